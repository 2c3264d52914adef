package gbp_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pilab-dev/reviewdesk/config"
	"github.com/pilab-dev/reviewdesk/domain"
	mock_domain "github.com/pilab-dev/reviewdesk/domain/mock"
	serrors "github.com/pilab-dev/reviewdesk/errors"
	"github.com/pilab-dev/reviewdesk/internal/federation"
	"github.com/pilab-dev/reviewdesk/internal/gbp"
	"github.com/pilab-dev/reviewdesk/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type staticTokens map[string]string

func (s staticTokens) AccessToken(_ context.Context, tenantID string) federation.AccessResult {
	tok, ok := s[tenantID]
	if !ok {
		return federation.AccessResult{State: federation.TokenMissing}
	}
	return federation.AccessResult{Value: tok, State: federation.TokenValid}
}

type resultTokens federation.AccessResult

func (r resultTokens) AccessToken(context.Context, string) federation.AccessResult {
	return federation.AccessResult(r)
}

type fakeGBP struct {
	server       *httptest.Server
	failLocation string
	reviewCalls  atomic.Int32
}

func newFakeGBP(t *testing.T) *fakeGBP {
	t.Helper()
	f := &fakeGBP{}

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"accounts":[{"name":"accounts/1","accountName":"Cafe"},{"name":"accounts/2"}]}`))
	})
	mux.HandleFunc("/accounts/1/locations", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{"locations":[{"name":"locations/10"}],"nextPageToken":"p2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"locations":[{"name":"locations/20"}]}`))
	})
	mux.HandleFunc("/accounts/1/locations/10/reviews", func(w http.ResponseWriter, r *http.Request) {
		f.reviewCalls.Add(1)
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{"reviews":[{"reviewId":"r1","name":"accounts/1/locations/10/reviews/r1","reviewer":{"displayName":"Ann"},"starRating":"FIVE","comment":"Great","createTime":"2024-01-02T03:04:05Z","reviewReply":{"comment":"Thanks!","updateTime":"2024-01-03T00:00:00Z"}}],"nextPageToken":"n"}`))
			return
		}
		_, _ = w.Write([]byte(`{"reviews":[{"reviewId":"r2","reviewer":{"displayName":"Hidden","isAnonymous":true},"starRating":"TWO"}]}`))
	})
	mux.HandleFunc("/accounts/1/locations/20/reviews", func(w http.ResponseWriter, _ *http.Request) {
		f.reviewCalls.Add(1)
		if f.failLocation == "20" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"reviews":[{"reviewId":"r3","reviewer":{"displayName":"Cy"},"starRating":"THREE"}]}`))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGBP) client(tokens gbp.TokenSource) *gbp.Client {
	cfg := config.ReviewAPIConfig{
		AccountsURL:     f.server.URL,
		BusinessInfoURL: f.server.URL,
		ReviewsURL:      f.server.URL,
	}
	return gbp.NewClient(cfg, tokens,
		gbp.WithHTTPClient(f.server.Client()),
		gbp.WithRetryPolicy(retry.NewExternalCallPolicy(2, time.Millisecond)),
	)
}

func TestFetchReviews_AllLocationsAndPages(t *testing.T) {
	f := newFakeGBP(t)

	reviews, err := f.client(staticTokens{"t1": "good-token"}).FetchReviews(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, reviews, 3)

	assert.Equal(t, "r1", reviews[0].ReviewID)
	assert.Equal(t, "Ann", reviews[0].ReviewerName)
	assert.Equal(t, "FIVE", reviews[0].StarRating)
	require.NotNil(t, reviews[0].Reply)
	assert.Equal(t, "Thanks!", reviews[0].Reply.Comment)

	assert.Equal(t, "r2", reviews[1].ReviewID)
	assert.Empty(t, reviews[1].ReviewerName)
	assert.Nil(t, reviews[1].Reply)

	assert.Equal(t, "r3", reviews[2].ReviewID)
}

func TestFetchReviews_NotConnected(t *testing.T) {
	f := newFakeGBP(t)

	_, err := f.client(staticTokens{}).FetchReviews(context.Background(), "t1")
	require.Error(t, err)
	assert.ErrorIs(t, err, serrors.ErrNotConnected)
}

func TestFetchReviews_FailingLocationIsSkipped(t *testing.T) {
	f := newFakeGBP(t)
	f.failLocation = "20"

	reviews, err := f.client(staticTokens{"t1": "good-token"}).FetchReviews(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
	// two pages of location 10 plus three attempts on location 20
	assert.Equal(t, int32(5), f.reviewCalls.Load())
}

func TestFetchReviews_AccountErrorPropagates(t *testing.T) {
	f := newFakeGBP(t)

	_, err := f.client(staticTokens{"t1": "stale-token"}).FetchReviews(context.Background(), "t1")
	require.Error(t, err)
	assert.ErrorIs(t, err, serrors.ErrExternalProvider)
	assert.Equal(t, http.StatusUnauthorized, serrors.StatusCodeOf(err))
}

func TestFetchReviews_TokenStatesThatNeedReconnect(t *testing.T) {
	for _, state := range []federation.TokenState{
		federation.TokenMissing,
		federation.TokenRevoked,
		federation.TokenReconnectRequired,
	} {
		t.Run(state.String(), func(t *testing.T) {
			f := newFakeGBP(t)
			tokens := resultTokens{State: state, Err: serrors.NoRefreshToken("oauth.refresh", "gone")}

			_, err := f.client(tokens).FetchReviews(context.Background(), "t1")
			assert.ErrorIs(t, err, serrors.ErrNotConnected)
			assert.Zero(t, f.reviewCalls.Load())
		})
	}
}

func TestFetchReviews_TokenEndpointOutageIsProviderError(t *testing.T) {
	var tokenCalls, accountCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		tokenCalls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, _ *http.Request) {
		accountCalls.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ctrl := gomock.NewController(t)
	repo := mock_domain.NewMockTokenRepository(ctrl)
	repo.EXPECT().GetByTenant(gomock.Any(), "t1", domain.ProviderGoogle).Return(&domain.OAuthToken{
		TenantID:     "t1",
		Provider:     domain.ProviderGoogle,
		AccessToken:  "expired",
		RefreshToken: "refresh",
		ExpiresAt:    now.Add(-time.Minute),
	}, nil).AnyTimes()

	lifecycle := federation.NewGoogleLifecycle(config.GoogleOAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example.com/api/oauth/google/callback",
		TokenURL:     srv.URL + "/token",
	}, repo,
		federation.WithClock(func() time.Time { return now }),
		federation.WithHTTPClient(srv.Client()),
		federation.WithRetryPolicy(retry.NewExternalCallPolicy(1, time.Millisecond)),
	)

	client := gbp.NewClient(config.ReviewAPIConfig{AccountsURL: srv.URL}, lifecycle,
		gbp.WithHTTPClient(srv.Client()),
	)

	_, err := client.FetchReviews(context.Background(), "t1")
	require.Error(t, err)
	assert.ErrorIs(t, err, serrors.ErrExternalProvider)
	assert.NotErrorIs(t, err, serrors.ErrNotConnected)
	assert.Equal(t, http.StatusBadGateway, serrors.HTTPStatus(serrors.KindOf(err)))
	assert.Positive(t, tokenCalls.Load())
	assert.Zero(t, accountCalls.Load())
}

func pagingServer(t *testing.T, nextToken func(call int32) string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"accounts":[{"name":"accounts/1"}]}`))
	})
	mux.HandleFunc("/accounts/1/locations", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"locations":[{"name":"locations/10"}]}`))
	})
	mux.HandleFunc("/accounts/1/locations/10/reviews", func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		fmt.Fprintf(w, `{"reviews":[{"reviewId":"r%d"}],"nextPageToken":%q}`, n, nextToken(n))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func pagingClient(srv *httptest.Server) *gbp.Client {
	cfg := config.ReviewAPIConfig{
		AccountsURL:     srv.URL,
		BusinessInfoURL: srv.URL,
		ReviewsURL:      srv.URL,
	}
	return gbp.NewClient(cfg, staticTokens{"t1": "good-token"},
		gbp.WithHTTPClient(srv.Client()),
		gbp.WithRetryPolicy(retry.NewExternalCallPolicy(0, time.Millisecond)),
	)
}

func TestFetchReviews_RepeatedPageTokenStops(t *testing.T) {
	srv, calls := pagingServer(t, func(int32) string { return "same" })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reviews, err := pagingClient(srv).FetchReviews(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchReviews_PageCountIsCapped(t *testing.T) {
	srv, calls := pagingServer(t, func(n int32) string { return fmt.Sprintf("p%d", n) })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reviews, err := pagingClient(srv).FetchReviews(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, reviews, 100)
	assert.Equal(t, int32(100), calls.Load())
}
