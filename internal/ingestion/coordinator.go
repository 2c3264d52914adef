// Package ingestion pulls reviews from the connected provider and stores
// the ones not seen before.
package ingestion

import (
	"context"
	"strings"
	"time"

	"github.com/pilab-dev/reviewdesk/domain"
	"github.com/pilab-dev/reviewdesk/internal/metrics"
	"github.com/pilab-dev/reviewdesk/internal/tenant"
	"github.com/pilab-dev/reviewdesk/log"
)

// ReviewSource lists the reviews of a tenant's connected account.
type ReviewSource interface {
	FetchReviews(ctx context.Context, tenantID string) ([]domain.ExternalReview, error)
}

// ReplySuggester drafts a reply for a review. It does not fail.
type ReplySuggester interface {
	Generate(ctx context.Context, text string) string
}

// Result summarizes one ingestion run.
type Result struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

type Coordinator struct {
	source    ReviewSource
	reviews   domain.ReviewRepository
	suggester ReplySuggester
	logger    log.Logger
	now       func() time.Time
}

type Option func(*Coordinator)

// WithSuggester drafts a reply for every new review that has a comment and
// no published reply.
func WithSuggester(s ReplySuggester) Option {
	return func(c *Coordinator) { c.suggester = s }
}

func WithLogger(l log.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(source ReviewSource, reviews domain.ReviewRepository, opts ...Option) *Coordinator {
	c := &Coordinator{
		source:  source,
		reviews: reviews,
		logger:  log.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ingest fetches the reviews of the tenant in ctx and inserts the ones
// whose provider id is not stored yet. Running it twice without new
// upstream reviews inserts nothing.
func (c *Coordinator) Ingest(ctx context.Context) (Result, error) {
	tenantID, err := tenant.TenantID(ctx, "ingestion.ingest")
	if err != nil {
		return Result{}, err
	}

	external, err := c.source.FetchReviews(ctx, tenantID)
	if err != nil {
		return Result{}, err
	}

	existing, err := c.reviews.ExistingReviewIDs(ctx, tenantID)
	if err != nil {
		return Result{}, err
	}

	seen := make(map[string]struct{}, len(existing)+len(external))
	for id := range existing {
		seen[id] = struct{}{}
	}

	now := c.now()
	fresh := make([]*domain.Review, 0, len(external))
	for _, ext := range external {
		if ext.ReviewID == "" {
			continue
		}
		if _, dup := seen[ext.ReviewID]; dup {
			continue
		}
		seen[ext.ReviewID] = struct{}{}

		review := toReview(tenantID, ext, now)
		if c.suggester != nil && review.FinalResponse == "" && strings.TrimSpace(review.Comment) != "" {
			review.SuggestedResponse = c.suggester.Generate(ctx, review.Comment)
		}
		fresh = append(fresh, review)
	}

	res := Result{Fetched: len(external)}
	if len(fresh) > 0 {
		inserted, err := c.reviews.InsertNew(ctx, fresh)
		if err != nil {
			return Result{}, err
		}
		res.Inserted = inserted
	}
	res.Skipped = res.Fetched - res.Inserted

	metrics.ReviewsIngestedTotal.Add(float64(res.Inserted))
	c.logger.Info(ctx, "review ingestion finished", map[string]interface{}{
		"fetched":  res.Fetched,
		"inserted": res.Inserted,
		"skipped":  res.Skipped,
	})

	return res, nil
}
