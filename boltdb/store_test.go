package boltdb_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pilab-dev/reviewdesk/boltdb"
	"github.com/pilab-dev/reviewdesk/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *boltdb.Store {
	t.Helper()

	store, err := boltdb.Open(filepath.Join(t.TempDir(), "data", "reviewdesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestTokenRepository_SaveKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t).Tokens()

	expires := time.Now().Add(time.Hour)
	first, err := repo.Save(ctx, &domain.OAuthToken{
		TenantID:     "t1",
		Provider:     domain.ProviderGoogle,
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    expires,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := repo.Save(ctx, &domain.OAuthToken{
		TenantID:    "t1",
		Provider:    domain.ProviderGoogle,
		AccessToken: "access-2",
		ExpiresAt:   expires,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	got, err := repo.GetByTenant(ctx, "t1", domain.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "access-2", got.AccessToken)
	assert.Empty(t, got.RefreshToken)
	assert.WithinDuration(t, expires, got.ExpiresAt, time.Millisecond)
}

func TestTokenRepository_RevokeAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t).Tokens()

	_, err := repo.GetByTenant(ctx, "t1", domain.ProviderGoogle)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)

	found, err := repo.Revoke(ctx, "t1", domain.ProviderGoogle)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = repo.Save(ctx, &domain.OAuthToken{TenantID: "t1", Provider: domain.ProviderGoogle, ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	found, err = repo.Revoke(ctx, "t1", domain.ProviderGoogle)
	require.NoError(t, err)
	assert.True(t, found)

	got, err := repo.GetByTenant(ctx, "t1", domain.ProviderGoogle)
	require.NoError(t, err)
	assert.True(t, got.IsRevoked)

	found, err = repo.Delete(ctx, "t1", domain.ProviderGoogle)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.Delete(ctx, "t1", domain.ProviderGoogle)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTokenRepository_ListExpired(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t).Tokens()

	past := time.Now().Add(-time.Minute)
	for _, tok := range []*domain.OAuthToken{
		{TenantID: "expired", Provider: domain.ProviderGoogle, ExpiresAt: past},
		{TenantID: "revoked", Provider: domain.ProviderGoogle, ExpiresAt: past, IsRevoked: true},
		{TenantID: "valid", Provider: domain.ProviderGoogle, ExpiresAt: time.Now().Add(time.Hour)},
	} {
		_, err := repo.Save(ctx, tok)
		require.NoError(t, err)
	}

	expired, err := repo.ListExpired(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "expired", expired[0].TenantID)
}

func TestTokenRepository_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t).Tokens()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Save(ctx, &domain.OAuthToken{TenantID: "t1", Provider: domain.ProviderGoogle, ExpiresAt: time.Now().Add(time.Hour)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetByTenant(ctx, "t1", domain.ProviderGoogle)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
}

func TestReviewRepository_InsertNewIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t).Reviews()

	now := time.Now().UTC()
	n, err := repo.InsertNew(ctx, []*domain.Review{
		{TenantID: "t1", ReviewID: "r1", Author: "Ann", Rating: 5, SubmittedAt: now},
		{TenantID: "t1", ReviewID: "r2", Author: "Bob", Rating: 2, SubmittedAt: now.Add(time.Hour)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.InsertNew(ctx, []*domain.Review{
		{TenantID: "t1", ReviewID: "r1", Author: "Changed"},
		{TenantID: "t2", ReviewID: "r1", Author: "Other tenant"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := repo.ExistingReviewIDs(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"r1": {}, "r2": {}}, ids)

	empty, err := repo.ExistingReviewIDs(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)

	reviews, err := repo.ListByTenant(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "r2", reviews[0].ReviewID)
	assert.Equal(t, "Ann", reviews[1].Author)
}

func TestTokenRepository_UpdateRefreshed(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t).Tokens()

	_, err := repo.UpdateRefreshed(ctx, "t1", domain.ProviderGoogle, domain.RefreshedCredentials{AccessToken: "a"})
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)

	_, err = repo.GetByTenant(ctx, "t1", domain.ProviderGoogle)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound, "must not insert")

	_, err = repo.Save(ctx, &domain.OAuthToken{
		TenantID:     "t1",
		Provider:     domain.ProviderGoogle,
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Scope:        "scope-1",
		ExpiresAt:    time.Now(),
	})
	require.NoError(t, err)

	expires := time.Now().Add(time.Hour)
	got, err := repo.UpdateRefreshed(ctx, "t1", domain.ProviderGoogle, domain.RefreshedCredentials{
		AccessToken: "access-2",
		ExpiresAt:   expires,
	})
	require.NoError(t, err)
	assert.Equal(t, "access-2", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)
	assert.Equal(t, "scope-1", got.Scope)
	assert.WithinDuration(t, expires, got.ExpiresAt, time.Millisecond)

	found, err := repo.Revoke(ctx, "t1", domain.ProviderGoogle)
	require.NoError(t, err)
	require.True(t, found)

	_, err = repo.UpdateRefreshed(ctx, "t1", domain.ProviderGoogle, domain.RefreshedCredentials{AccessToken: "access-3"})
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)

	stored, err := repo.GetByTenant(ctx, "t1", domain.ProviderGoogle)
	require.NoError(t, err)
	assert.True(t, stored.IsRevoked)
	assert.Equal(t, "access-2", stored.AccessToken)
}

func TestReviewRepository_Approve(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t).Reviews()

	_, err := repo.Approve(ctx, "t1", "r1", "Thanks!", time.Now())
	assert.ErrorIs(t, err, domain.ErrReviewNotFound)

	_, err = repo.InsertNew(ctx, []*domain.Review{{TenantID: "t1", ReviewID: "r1", Rating: 5}})
	require.NoError(t, err)

	_, err = repo.Approve(ctx, "t2", "r1", "Thanks!", time.Now())
	assert.ErrorIs(t, err, domain.ErrReviewNotFound, "other tenants cannot approve")

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	review, err := repo.Approve(ctx, "t1", "r1", "Thanks!", at)
	require.NoError(t, err)
	assert.True(t, review.IsApproved)
	assert.Equal(t, "Thanks!", review.FinalResponse)
	require.NotNil(t, review.ApprovedAt)
	assert.True(t, at.Equal(*review.ApprovedAt))

	_, err = repo.Approve(ctx, "t1", "r1", "Changed my mind", time.Now())
	assert.ErrorIs(t, err, domain.ErrReviewAlreadyApproved)

	list, err := repo.ListByTenant(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Thanks!", list[0].FinalResponse)
}
