package ingestion_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pilab-dev/reviewdesk/domain"
	mock_domain "github.com/pilab-dev/reviewdesk/domain/mock"
	serrors "github.com/pilab-dev/reviewdesk/errors"
	"github.com/pilab-dev/reviewdesk/internal/ingestion"
	"github.com/pilab-dev/reviewdesk/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type staticSource struct {
	reviews []domain.ExternalReview
	err     error
	tenants []string
}

func (s *staticSource) FetchReviews(_ context.Context, tenantID string) ([]domain.ExternalReview, error) {
	s.tenants = append(s.tenants, tenantID)
	return s.reviews, s.err
}

type memReviews struct {
	mu   sync.Mutex
	rows map[string]*domain.Review
}

func newMemReviews() *memReviews {
	return &memReviews{rows: make(map[string]*domain.Review)}
}

func (m *memReviews) ExistingReviewIDs(_ context.Context, tenantID string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]struct{})
	for _, r := range m.rows {
		if r.TenantID == tenantID {
			ids[r.ReviewID] = struct{}{}
		}
	}
	return ids, nil
}

func (m *memReviews) InsertNew(_ context.Context, reviews []*domain.Review) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range reviews {
		key := r.TenantID + "/" + r.ReviewID
		if _, ok := m.rows[key]; ok {
			continue
		}
		m.rows[key] = r
		n++
	}
	return n, nil
}

func (m *memReviews) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Review
	for _, r := range m.rows {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReviews) Approve(_ context.Context, tenantID, reviewID, finalResponse string, approvedAt time.Time) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[tenantID+"/"+reviewID]
	if !ok {
		return nil, domain.ErrReviewNotFound
	}
	if r.IsApproved {
		return nil, domain.ErrReviewAlreadyApproved
	}
	r.FinalResponse = finalResponse
	r.IsApproved = true
	r.ApprovedAt = &approvedAt
	return r, nil
}

func (m *memReviews) get(tenantID, reviewID string) *domain.Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[tenantID+"/"+reviewID]
}

type fixedSuggester struct{ calls []string }

func (f *fixedSuggester) Generate(_ context.Context, text string) string {
	f.calls = append(f.calls, text)
	return "Thank you for your feedback"
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func tenantCtx(tenantID string) context.Context {
	return tenant.Background(context.Background(), tenantID, "1", domain.RoleManager)
}

func sampleReviews() []domain.ExternalReview {
	return []domain.ExternalReview{
		{ReviewID: "r1", ReviewerName: "Ann", StarRating: "FIVE", Comment: "Great coffee", CreateTime: "2024-04-01T10:00:00Z"},
		{ReviewID: "r2", StarRating: "two", Comment: "Slow", CreateTime: "2024-04-02T10:00:00.5Z",
			Reply: &domain.ReviewReply{Comment: "Sorry!", UpdateTime: "2024-04-03T08:00:00Z"}},
		{ReviewID: "r3", ReviewerName: "Cy", StarRating: "STAR_RATING_UNSPECIFIED", CreateTime: "not a time"},
		{ReviewID: "r1", ReviewerName: "Ann again", StarRating: "ONE"},
		{ReviewID: "", StarRating: "FOUR"},
	}
}

func TestIngest_InsertsNewAndIsIdempotent(t *testing.T) {
	source := &staticSource{reviews: sampleReviews()}
	repo := newMemReviews()
	suggester := &fixedSuggester{}

	c := ingestion.NewCoordinator(source, repo,
		ingestion.WithSuggester(suggester),
		ingestion.WithClock(func() time.Time { return fixedNow }),
	)

	res, err := c.Ingest(tenantCtx("t1"))
	require.NoError(t, err)
	assert.Equal(t, ingestion.Result{Fetched: 5, Inserted: 3, Skipped: 2}, res)
	assert.Equal(t, []string{"t1"}, source.tenants)

	r1 := repo.get("t1", "r1")
	require.NotNil(t, r1)
	assert.Equal(t, "Ann", r1.Author)
	assert.Equal(t, 5, r1.Rating)
	assert.Equal(t, domain.SentimentPositive, r1.Sentiment)
	assert.Equal(t, time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC), r1.SubmittedAt)
	assert.Equal(t, "Thank you for your feedback", r1.SuggestedResponse)
	assert.False(t, r1.IsApproved)

	r2 := repo.get("t1", "r2")
	require.NotNil(t, r2)
	assert.Equal(t, "Anonymous", r2.Author)
	assert.Equal(t, 2, r2.Rating)
	assert.Equal(t, domain.SentimentNegative, r2.Sentiment)
	assert.Equal(t, "Sorry!", r2.FinalResponse)
	assert.True(t, r2.IsApproved)
	require.NotNil(t, r2.ApprovedAt)
	assert.Equal(t, time.Date(2024, 4, 3, 8, 0, 0, 0, time.UTC), *r2.ApprovedAt)
	assert.Empty(t, r2.SuggestedResponse)

	r3 := repo.get("t1", "r3")
	require.NotNil(t, r3)
	assert.Equal(t, 0, r3.Rating)
	assert.Equal(t, fixedNow, r3.SubmittedAt)

	assert.Equal(t, []string{"Great coffee"}, suggester.calls)

	res, err = c.Ingest(tenantCtx("t1"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 5, res.Skipped)
}

func TestIngest_TenantsAreIsolated(t *testing.T) {
	repo := newMemReviews()
	c := ingestion.NewCoordinator(&staticSource{reviews: sampleReviews()}, repo)

	_, err := c.Ingest(tenantCtx("t1"))
	require.NoError(t, err)

	res, err := c.Ingest(tenantCtx("t2"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)
	assert.NotNil(t, repo.get("t2", "r1"))
}

func TestIngest_RequiresTenant(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock_domain.NewMockReviewRepository(ctrl)
	source := &staticSource{}

	_, err := ingestion.NewCoordinator(source, repo).Ingest(context.Background())
	assert.ErrorIs(t, err, serrors.ErrNoTenantContext)
	assert.Empty(t, source.tenants)
}

func TestIngest_SourceErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock_domain.NewMockReviewRepository(ctrl)
	source := &staticSource{err: serrors.NotConnected("gbp.fetch_reviews", "t1")}

	_, err := ingestion.NewCoordinator(source, repo).Ingest(tenantCtx("t1"))
	assert.ErrorIs(t, err, serrors.ErrNotConnected)
}

func TestIngest_RepositoryErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock_domain.NewMockReviewRepository(ctrl)
	boom := errors.New("db down")

	repo.EXPECT().ExistingReviewIDs(gomock.Any(), "t1").Return(map[string]struct{}{"r2": {}, "r3": {}}, nil)
	repo.EXPECT().InsertNew(gomock.Any(), gomock.Len(1)).Return(0, boom)

	_, err := ingestion.NewCoordinator(&staticSource{reviews: sampleReviews()}, repo).Ingest(tenantCtx("t1"))
	assert.ErrorIs(t, err, boom)
}

func TestIngest_NothingNewSkipsInsert(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock_domain.NewMockReviewRepository(ctrl)

	repo.EXPECT().ExistingReviewIDs(gomock.Any(), "t1").Return(map[string]struct{}{"r1": {}, "r2": {}, "r3": {}}, nil)

	res, err := ingestion.NewCoordinator(&staticSource{reviews: sampleReviews()}, repo).Ingest(tenantCtx("t1"))
	require.NoError(t, err)
	assert.Equal(t, ingestion.Result{Fetched: 5, Skipped: 5}, res)
}

func TestIngest_NilExistingIDs(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock_domain.NewMockReviewRepository(ctrl)

	repo.EXPECT().ExistingReviewIDs(gomock.Any(), "t1").Return(nil, nil)
	repo.EXPECT().InsertNew(gomock.Any(), gomock.Len(3)).Return(3, nil)

	res, err := ingestion.NewCoordinator(&staticSource{reviews: sampleReviews()}, repo).Ingest(tenantCtx("t1"))
	require.NoError(t, err)
	assert.Equal(t, ingestion.Result{Fetched: 5, Inserted: 3, Skipped: 2}, res)
}

func TestIngest_DoesNotMutateExistingIDs(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock_domain.NewMockReviewRepository(ctrl)
	existing := map[string]struct{}{"r2": {}}

	repo.EXPECT().ExistingReviewIDs(gomock.Any(), "t1").Return(existing, nil)
	repo.EXPECT().InsertNew(gomock.Any(), gomock.Len(2)).Return(2, nil)

	_, err := ingestion.NewCoordinator(&staticSource{reviews: sampleReviews()}, repo).Ingest(tenantCtx("t1"))
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"r2": {}}, existing)
}

func TestStarRatingAndSentiment(t *testing.T) {
	for in, want := range map[string]int{"ONE": 1, "two": 2, " Three ": 3, "FOUR": 4, "five": 5, "": 0, "SIX": 0, "5": 0} {
		assert.Equal(t, want, ingestion.StarRating(in), in)
	}

	assert.Equal(t, domain.SentimentPositive, ingestion.SentimentFor(4))
	assert.Equal(t, domain.SentimentNeutral, ingestion.SentimentFor(3))
	assert.Equal(t, domain.SentimentNegative, ingestion.SentimentFor(2))
	assert.Equal(t, domain.SentimentNegative, ingestion.SentimentFor(0))
}
