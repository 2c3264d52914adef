package deskgin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pilab-dev/reviewdesk/domain"
	"github.com/pilab-dev/reviewdesk/internal/audit"
	"github.com/pilab-dev/reviewdesk/internal/ingestion"
	"github.com/pilab-dev/reviewdesk/internal/reviews"
)

// Ingester runs review ingestion for the tenant in ctx.
type Ingester interface {
	Ingest(ctx context.Context) (ingestion.Result, error)
}

// ReviewService lists and approves the reviews of the tenant in ctx.
type ReviewService interface {
	List(ctx context.Context, q reviews.Query) (reviews.Page, error)
	Respond(ctx context.Context, reviewID, finalResponse string) (*domain.Review, error)
}

// ReplyGenerator drafts replies. It never fails.
type ReplyGenerator interface {
	Generate(ctx context.Context, text string) string
}

// ReviewAPI serves stored reviews, ingestion and reply suggestions.
type ReviewAPI struct {
	ingester  Ingester
	reviews   ReviewService
	generator ReplyGenerator
}

func NewReviewAPI(ingester Ingester, reviews ReviewService, generator ReplyGenerator) *ReviewAPI {
	return &ReviewAPI{ingester: ingester, reviews: reviews, generator: generator}
}

func (api *ReviewAPI) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reviews", RequireRole(domain.RoleViewer), api.ListHandler)
	rg.POST("/reviews/ingest", RequireRole(domain.RoleManager), api.IngestHandler)
	rg.POST("/reviews/respond", RequireRole(domain.RoleManager), api.RespondHandler)
	rg.POST("/llm/suggest", RequireRole(domain.RoleViewer), api.SuggestHandler)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": msg})
}

// ListHandler answers one page of reviews. Query parameters: sentiment,
// isApproved, sortBy, sortDirection, page and pageSize.
func (api *ReviewAPI) ListHandler(c *gin.Context) {
	q := reviews.DefaultQuery()
	q.Sentiment = strings.TrimSpace(c.Query("sentiment"))
	q.SortBy = c.DefaultQuery("sortBy", q.SortBy)
	q.SortDirection = c.DefaultQuery("sortDirection", q.SortDirection)

	if raw := c.Query("isApproved"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "isApproved must be true or false.")
			return
		}
		q.IsApproved = &v
	}
	for name, dst := range map[string]*int{"page": &q.Page, "pageSize": &q.PageSize} {
		raw, ok := c.GetQuery(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "page and pageSize must be positive integers.")
			return
		}
		*dst = n
	}

	page, err := api.reviews.List(c.Request.Context(), q)
	if errors.Is(err, reviews.ErrInvalidQuery) {
		badRequest(c, err.Error())
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// RespondRequest is the body of an approval.
type RespondRequest struct {
	ReviewID      string `json:"reviewId"`
	FinalResponse string `json:"finalResponse"`
}

// RespondHandler approves the final response of a review. A review is
// approved once; later attempts answer 409.
func (api *ReviewAPI) RespondHandler(c *gin.Context) {
	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "reviewId and finalResponse are required.")
		return
	}

	review, err := api.reviews.Respond(c.Request.Context(), req.ReviewID, req.FinalResponse)
	audit.Log(c.Request.Context(), audit.ActionApprove, req.ReviewID, err)
	switch {
	case errors.Is(err, reviews.ErrEmptyResponse):
		badRequest(c, "Final response cannot be empty.")
	case errors.Is(err, domain.ErrReviewNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "review_not_found", "message": "Review not found."})
	case errors.Is(err, domain.ErrReviewAlreadyApproved):
		c.JSON(http.StatusConflict, gin.H{"error": "already_approved", "message": "Review has already been approved."})
	case err != nil:
		writeError(c, err)
	default:
		c.JSON(http.StatusOK, review)
	}
}

func (api *ReviewAPI) IngestHandler(c *gin.Context) {
	res, err := api.ingester.Ingest(c.Request.Context())
	audit.Log(c.Request.Context(), audit.ActionIngest, "reviews", err)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SuggestRequest is the body of a reply suggestion request.
type SuggestRequest struct {
	ReviewID string `json:"reviewId"`
	Author   string `json:"author"`
	Comment  string `json:"comment"`
}

func (api *ReviewAPI) SuggestHandler(c *gin.Context) {
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Comment) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Comment is required."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestion": api.generator.Generate(c.Request.Context(), req.Comment)})
}
