// Package reviews lists stored reviews and records the approved reply.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pilab-dev/reviewdesk/domain"
	"github.com/pilab-dev/reviewdesk/internal/metrics"
	"github.com/pilab-dev/reviewdesk/internal/tenant"
	"github.com/pilab-dev/reviewdesk/log"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10

	SortRating      = "Rating"
	SortSubmittedAt = "SubmittedAt"
	SortApprovedAt  = "ApprovedAt"

	SortAsc  = "asc"
	SortDesc = "desc"
)

var (
	// ErrInvalidQuery is wrapped by List for rejected query values.
	ErrInvalidQuery = errors.New("invalid review query")
	// ErrEmptyResponse is returned by Respond for a blank final response.
	ErrEmptyResponse = errors.New("final response cannot be empty")
)

var sortFields = []string{SortRating, SortSubmittedAt, SortApprovedAt}

// Query selects one page of a tenant's reviews. Sentiment and IsApproved
// filter when set; SortBy and SortDirection match case-insensitively.
type Query struct {
	Sentiment     string
	IsApproved    *bool
	SortBy        string
	SortDirection string
	Page          int
	PageSize      int
}

// DefaultQuery returns the newest-first first page.
func DefaultQuery() Query {
	return Query{
		SortBy:        SortSubmittedAt,
		SortDirection: SortDesc,
		Page:          DefaultPage,
		PageSize:      DefaultPageSize,
	}
}

// Page is one page of reviews plus the size of the whole result.
type Page struct {
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalCount int              `json:"totalCount"`
	TotalPages int              `json:"totalPages"`
	Data       []*domain.Review `json:"data"`
}

type Service struct {
	reviews domain.ReviewRepository
	logger  log.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(l log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(reviews domain.ReviewRepository, opts ...Option) *Service {
	s := &Service{
		reviews: reviews,
		logger:  log.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the page of the tenant's reviews selected by q.
func (s *Service) List(ctx context.Context, q Query) (Page, error) {
	tenantID, err := tenant.TenantID(ctx, "reviews.list")
	if err != nil {
		return Page{}, err
	}
	sortBy, desc, err := q.normalize()
	if err != nil {
		return Page{}, err
	}

	all, err := s.reviews.ListByTenant(ctx, tenantID)
	if err != nil {
		return Page{}, err
	}

	matched := make([]*domain.Review, 0, len(all))
	for _, r := range all {
		if q.Sentiment != "" && !strings.EqualFold(string(r.Sentiment), q.Sentiment) {
			continue
		}
		if q.IsApproved != nil && r.IsApproved != *q.IsApproved {
			continue
		}
		matched = append(matched, r)
	}
	sortReviews(matched, sortBy, desc)

	total := len(matched)
	totalPages := (total + q.PageSize - 1) / q.PageSize
	out := Page{
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalCount: total,
		TotalPages: totalPages,
		Data:       []*domain.Review{},
	}
	if q.Page > totalPages {
		return out, nil
	}
	start := (q.Page - 1) * q.PageSize
	end := min(start+q.PageSize, total)
	out.Data = matched[start:end]
	return out, nil
}

// normalize validates q and resolves the canonical sort field and order.
func (q Query) normalize() (sortBy string, desc bool, err error) {
	if q.Page < 1 || q.PageSize < 1 {
		return "", false, fmt.Errorf("%w: page and pageSize must be positive integers", ErrInvalidQuery)
	}

	if q.Sentiment != "" {
		switch strings.ToLower(q.Sentiment) {
		case "positive", "neutral", "negative":
		default:
			return "", false, fmt.Errorf("%w: sentiment must be one of positive, neutral, negative", ErrInvalidQuery)
		}
	}

	sortBy = SortSubmittedAt
	if q.SortBy != "" {
		sortBy = ""
		for _, f := range sortFields {
			if strings.EqualFold(f, q.SortBy) {
				sortBy = f
			}
		}
		if sortBy == "" {
			return "", false, fmt.Errorf("%w: sortBy must be one of %s", ErrInvalidQuery, strings.Join(sortFields, ", "))
		}
	}

	switch {
	case q.SortDirection == "", strings.EqualFold(q.SortDirection, SortDesc):
		desc = true
	case strings.EqualFold(q.SortDirection, SortAsc):
	default:
		return "", false, fmt.Errorf("%w: sortDirection must be asc or desc", ErrInvalidQuery)
	}
	return sortBy, desc, nil
}

// sortReviews orders reviews by field. Unapproved reviews sort as the
// earliest approval time.
func sortReviews(reviews []*domain.Review, field string, desc bool) {
	less := func(a, b *domain.Review) bool {
		switch field {
		case SortRating:
			return a.Rating < b.Rating
		case SortApprovedAt:
			return approvedAt(a).Before(approvedAt(b))
		default:
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
	}
	sort.SliceStable(reviews, func(i, j int) bool {
		if desc {
			return less(reviews[j], reviews[i])
		}
		return less(reviews[i], reviews[j])
	})
}

func approvedAt(r *domain.Review) time.Time {
	if r.ApprovedAt == nil {
		return time.Time{}
	}
	return *r.ApprovedAt
}

// Respond stores finalResponse as the approved reply of the tenant's review.
// A review is approved at most once.
func (s *Service) Respond(ctx context.Context, reviewID, finalResponse string) (*domain.Review, error) {
	tenantID, err := tenant.TenantID(ctx, "reviews.respond")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(finalResponse) == "" {
		return nil, ErrEmptyResponse
	}
	if strings.TrimSpace(reviewID) == "" {
		return nil, domain.ErrReviewNotFound
	}

	review, err := s.reviews.Approve(ctx, tenantID, reviewID, finalResponse, s.now().UTC())
	if err != nil {
		return nil, err
	}

	metrics.ReviewsApprovedTotal.Inc()
	s.logger.Info(ctx, "review response approved", map[string]interface{}{"review_id": reviewID})
	return review, nil
}
