package domain

import "time"

// ProviderGoogle is the provider key for Google Business Profile connections.
const ProviderGoogle = "google"

// OAuthToken is the credential a tenant obtained by connecting an external
// provider account. There is at most one token per (TenantID, Provider).
type OAuthToken struct {
	ID           string    `bson:"_id"           json:"id"`
	TenantID     string    `bson:"tenant_id"     json:"tenant_id"`
	Provider     string    `bson:"provider"      json:"provider"`
	AccessToken  string    `bson:"access_token"  json:"-"`
	RefreshToken string    `bson:"refresh_token" json:"-"`
	ExpiresAt    time.Time `bson:"expires_at"    json:"expires_at"`
	Scope        string    `bson:"scope"         json:"scope"`
	IsRevoked    bool      `bson:"is_revoked"    json:"is_revoked"`
	CreatedAt    time.Time `bson:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"    json:"updated_at"`
}

// IsExpired reports whether the access token is past its expiry at now.
func (t *OAuthToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsValid reports whether the access token can be used as-is.
func (t *OAuthToken) IsValid(now time.Time) bool {
	return !t.IsRevoked && !t.IsExpired(now)
}

// HasRefreshToken reports whether the token can be refreshed.
func (t *OAuthToken) HasRefreshToken() bool {
	return t.RefreshToken != ""
}

// RefreshedCredentials are the values a refresh grant rotates.
type RefreshedCredentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
}
