package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTokenNotFound is returned when no token exists for a tenant and provider.
	ErrTokenNotFound = errors.New("oauth token not found")
	// ErrTokenRevoked is returned by UpdateRefreshed when the token was revoked.
	ErrTokenRevoked = errors.New("oauth token revoked")

	ErrReviewNotFound        = errors.New("review not found")
	ErrReviewAlreadyApproved = errors.New("review already approved")
)

// TokenRepository persists provider tokens keyed by (tenant, provider).
//
//go:generate go run go.uber.org/mock/mockgen -source=$GOFILE -destination=mock/mock_$GOFILE -package=mock_$GOPACKAGE TokenRepository,ReviewRepository
type TokenRepository interface {
	// GetByTenant returns the token for the tenant and provider, or ErrTokenNotFound.
	GetByTenant(ctx context.Context, tenantID, provider string) (*OAuthToken, error)

	// Save inserts or overwrites the token for (token.TenantID, token.Provider)
	// atomically. IsRevoked is written exactly as given.
	Save(ctx context.Context, token *OAuthToken) (*OAuthToken, error)

	// Revoke marks the token revoked. It reports whether a token existed.
	Revoke(ctx context.Context, tenantID, provider string) (bool, error)

	// Delete removes the token row. It reports whether a token existed.
	Delete(ctx context.Context, tenantID, provider string) (bool, error)

	// ListExpired returns non-revoked tokens whose expiry is not in the future.
	ListExpired(ctx context.Context) ([]*OAuthToken, error)

	// UpdateRefreshed rotates the credentials of a stored, non-revoked token
	// in one atomic write. It never inserts and never touches IsRevoked. An
	// empty RefreshToken or Scope keeps the stored value. ErrTokenNotFound and
	// ErrTokenRevoked report why nothing was written.
	UpdateRefreshed(ctx context.Context, tenantID, provider string, creds RefreshedCredentials) (*OAuthToken, error)
}

// ReviewRepository persists ingested reviews. Records are write-once per
// (TenantID, ReviewID).
type ReviewRepository interface {
	// ExistingReviewIDs returns the provider review ids already stored for the tenant.
	ExistingReviewIDs(ctx context.Context, tenantID string) (map[string]struct{}, error)

	// InsertNew stores the reviews whose (TenantID, ReviewID) is not stored yet
	// and returns how many were inserted.
	InsertNew(ctx context.Context, reviews []*Review) (int, error)

	// ListByTenant returns all stored reviews of the tenant, newest first.
	ListByTenant(ctx context.Context, tenantID string) ([]*Review, error)

	// Approve stores the final response of a review that is not approved yet.
	// ErrReviewNotFound and ErrReviewAlreadyApproved report why nothing was written.
	Approve(ctx context.Context, tenantID, reviewID, finalResponse string, approvedAt time.Time) (*Review, error)
}
