package domain_test

import (
	"testing"
	"time"

	"github.com/pilab-dev/reviewdesk/domain"
	"github.com/stretchr/testify/assert"
)

func TestOAuthToken_Validity(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		token       domain.OAuthToken
		wantExpired bool
		wantValid   bool
	}{
		{
			name:      "fresh token",
			token:     domain.OAuthToken{ExpiresAt: now.Add(time.Hour)},
			wantValid: true,
		},
		{
			name:        "expiry equal to now counts as expired",
			token:       domain.OAuthToken{ExpiresAt: now},
			wantExpired: true,
		},
		{
			name:        "expired token",
			token:       domain.OAuthToken{ExpiresAt: now.Add(-time.Minute)},
			wantExpired: true,
		},
		{
			name:  "revoked token is never valid",
			token: domain.OAuthToken{ExpiresAt: now.Add(time.Hour), IsRevoked: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantExpired, tt.token.IsExpired(now))
			assert.Equal(t, tt.wantValid, tt.token.IsValid(now))
		})
	}
}

func TestRole_Satisfies(t *testing.T) {
	assert.True(t, domain.RoleOwner.Satisfies(domain.RoleAdmin))
	assert.True(t, domain.RoleAdmin.Satisfies(domain.RoleAdmin))
	assert.True(t, domain.RoleManager.Satisfies(domain.RoleViewer))
	assert.False(t, domain.RoleViewer.Satisfies(domain.RoleManager))
	assert.False(t, domain.Role("Janitor").Satisfies(domain.RoleViewer))
	assert.Equal(t, 0, domain.Role("Janitor").Level())
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, domain.RoleOwner, domain.ParseRole("owner"))
	assert.Equal(t, domain.RoleManager, domain.ParseRole(" MANAGER "))
	assert.False(t, domain.ParseRole("superuser").IsKnown())
}
