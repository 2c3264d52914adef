// Package federation manages the OAuth tokens tenants obtain by connecting
// an external provider account.
package federation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pilab-dev/reviewdesk/cache"
	"github.com/pilab-dev/reviewdesk/config"
	"github.com/pilab-dev/reviewdesk/domain"
	serrors "github.com/pilab-dev/reviewdesk/errors"
	"github.com/pilab-dev/reviewdesk/internal/metrics"
	"github.com/pilab-dev/reviewdesk/internal/retry"
	"github.com/pilab-dev/reviewdesk/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("github.com/pilab-dev/reviewdesk/internal/federation")

// Lifecycle obtains, stores, refreshes and revokes one provider's tokens
// for all tenants. It is safe for concurrent use.
type Lifecycle struct {
	provider string
	cfg      config.GoogleOAuthConfig
	oauth    *oauth2.Config
	tokens   domain.TokenRepository
	profiles cache.ProfileCache
	policy   *retry.Policy
	client   *http.Client
	logger   log.Logger
	now      func() time.Time

	refreshes singleflight.Group
}

type Option func(*Lifecycle)

func WithProfileCache(c cache.ProfileCache) Option {
	return func(l *Lifecycle) { l.profiles = c }
}

func WithHTTPClient(c *http.Client) Option {
	return func(l *Lifecycle) { l.client = c }
}

func WithRetryPolicy(p *retry.Policy) Option {
	return func(l *Lifecycle) { l.policy = p }
}

func WithLogger(logger log.Logger) Option {
	return func(l *Lifecycle) { l.logger = logger }
}

// WithClock replaces the time source used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) { l.now = now }
}

// NewGoogleLifecycle creates the token lifecycle for Google.
func NewGoogleLifecycle(cfg config.GoogleOAuthConfig, tokens domain.TokenRepository, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		provider: domain.ProviderGoogle,
		cfg:      cfg,
		oauth:    newGoogleOAuth2Config(cfg),
		tokens:   tokens,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   log.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.policy == nil {
		l.policy = retry.NewExternalCallPolicy(retry.DefaultMaxRetries, retry.DefaultBaseDelay, retry.WithLogger(l.logger))
	}
	l.logger = l.logger.With(map[string]interface{}{"provider": l.provider})
	return l
}

// Provider returns the provider key this lifecycle manages.
func (l *Lifecycle) Provider() string {
	return l.provider
}

// AuthorizationURL returns the consent URL the tenant's browser must visit.
// It requests offline access and forces the consent prompt so the provider
// issues a refresh token.
func (l *Lifecycle) AuthorizationURL(tenantID, extra string) (string, error) {
	const op = "oauth.authorize"
	if l.cfg.ClientID == "" {
		return "", serrors.Configuration(op, "client id is not configured")
	}
	if l.cfg.RedirectURI == "" {
		return "", serrors.Configuration(op, "redirect uri is not configured")
	}
	if len(l.cfg.Scopes) == 0 {
		return "", serrors.Configuration(op, "no scopes configured")
	}

	state, err := EncodeState(tenantID, extra)
	if err != nil {
		return "", err
	}

	return l.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

func (l *Lifecycle) requireClientCredentials(op string) error {
	if l.cfg.ClientID == "" || l.cfg.ClientSecret == "" {
		return serrors.Configuration(op, "client credentials are not configured")
	}
	if l.cfg.RedirectURI == "" {
		return serrors.Configuration(op, "redirect uri is not configured")
	}
	return nil
}

func (l *Lifecycle) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, l.client)
}

// ExchangeCode trades an authorization code for tokens and stores them as
// the tenant's active, non-revoked token.
func (l *Lifecycle) ExchangeCode(ctx context.Context, tenantID, code string) (_ *domain.OAuthToken, err error) {
	const op = "oauth.exchange"
	ctx, span := l.startSpan(ctx, "Lifecycle.ExchangeCode", tenantID)
	defer func() { endSpan(span, err) }()
	defer func() { metrics.ObserveTokenOperation("exchange", err) }()

	if tenantID == "" {
		return nil, ErrMissingTenant
	}
	if err := l.requireClientCredentials(op); err != nil {
		return nil, err
	}

	var tok *oauth2.Token
	err = l.policy.Do(ctx, op, func(ctx context.Context) error {
		t, exErr := l.oauth.Exchange(l.oauthContext(ctx), code)
		if exErr != nil {
			return classifyTokenError(op, exErr)
		}
		tok = t
		return nil
	})
	if err != nil {
		l.logger.Error(ctx, "Authorization code exchange failed", err, map[string]interface{}{"tenant_id": tenantID})
		return nil, err
	}

	stored, err := l.tokens.Save(ctx, &domain.OAuthToken{
		TenantID:     tenantID,
		Provider:     l.provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tokenExpiry(tok, l.now()),
		Scope:        tokenScope(tok, l.cfg.Scopes),
		IsRevoked:    false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	l.forgetProfile(ctx, tenantID)

	l.logger.Info(ctx, "Stored token from authorization code", map[string]interface{}{
		"tenant_id":         tenantID,
		"expires_at":        stored.ExpiresAt,
		"has_refresh_token": stored.HasRefreshToken(),
		"token_fingerprint": cache.Fingerprint(stored.AccessToken),
	})
	return stored, nil
}

// refreshTimeout bounds a shared refresh, which outlives the caller that
// started it.
const refreshTimeout = 2 * time.Minute

// Refresh obtains a new access token with the stored refresh token. Concurrent
// refreshes for the same tenant share one provider call. Each caller waits on
// its own ctx; cancelling one caller does not abort the shared call.
func (l *Lifecycle) Refresh(ctx context.Context, tenantID string) (*domain.OAuthToken, error) {
	ch := l.refreshes.DoChan(tenantID, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return l.refresh(shared, tenantID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		tok := *res.Val.(*domain.OAuthToken)
		return &tok, nil
	}
}

func (l *Lifecycle) refresh(ctx context.Context, tenantID string) (_ *domain.OAuthToken, err error) {
	const op = "oauth.refresh"
	ctx, span := l.startSpan(ctx, "Lifecycle.Refresh", tenantID)
	defer func() { endSpan(span, err) }()
	defer func() { metrics.ObserveTokenOperation("refresh", err) }()

	existing, err := l.tokens.GetByTenant(ctx, tenantID, l.provider)
	if errors.Is(err, domain.ErrTokenNotFound) {
		return nil, serrors.NoRefreshToken(op, "no token stored for tenant")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if existing.IsRevoked {
		return nil, serrors.NoRefreshToken(op, "token was revoked, re-authorization required")
	}
	if !existing.HasRefreshToken() {
		return nil, serrors.NoRefreshToken(op, "no refresh token stored for tenant")
	}
	if err := l.requireClientCredentials(op); err != nil {
		return nil, err
	}

	var tok *oauth2.Token
	err = l.policy.Do(ctx, op, func(ctx context.Context) error {
		src := l.oauth.TokenSource(l.oauthContext(ctx), &oauth2.Token{RefreshToken: existing.RefreshToken})
		t, rErr := src.Token()
		if rErr != nil {
			return classifyTokenError(op, rErr)
		}
		tok = t
		return nil
	})
	if err != nil {
		l.logger.Error(ctx, "Token refresh failed", err, map[string]interface{}{"tenant_id": tenantID})
		return nil, err
	}

	creds := domain.RefreshedCredentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tokenExpiry(tok, l.now()),
	}
	if sc, ok := tok.Extra("scope").(string); ok {
		creds.Scope = sc
	}

	// The token may have been revoked or deleted during the provider call.
	// Only a still-active token is rotated.
	stored, err := l.tokens.UpdateRefreshed(ctx, tenantID, l.provider, creds)
	switch {
	case errors.Is(err, domain.ErrTokenNotFound):
		return nil, serrors.NoRefreshToken(op, "token was deleted during refresh")
	case errors.Is(err, domain.ErrTokenRevoked):
		return nil, serrors.NoRefreshToken(op, "token was revoked during refresh")
	case err != nil:
		return nil, fmt.Errorf("failed to store refreshed token: %w", err)
	}

	l.logger.Info(ctx, "Refreshed access token", map[string]interface{}{
		"tenant_id":         tenantID,
		"expires_at":        stored.ExpiresAt,
		"token_fingerprint": cache.Fingerprint(stored.AccessToken),
	})
	return stored, nil
}

// Revoke revokes the tenant's token at the provider and marks it revoked
// locally. It reports false when there is no token or either step fails.
func (l *Lifecycle) Revoke(ctx context.Context, tenantID string) bool {
	const op = "oauth.revoke"
	var err error
	ctx, span := l.startSpan(ctx, "Lifecycle.Revoke", tenantID)
	defer func() { endSpan(span, err) }()
	defer func() { metrics.ObserveTokenOperation("revoke", err) }()

	existing, err := l.tokens.GetByTenant(ctx, tenantID, l.provider)
	if err != nil {
		if !errors.Is(err, domain.ErrTokenNotFound) {
			l.logger.Error(ctx, "Failed to load token for revocation", err, map[string]interface{}{"tenant_id": tenantID})
		}
		return false
	}

	err = l.policy.Do(ctx, op, func(ctx context.Context) error {
		return l.postRevoke(ctx, existing.AccessToken)
	})
	if err != nil {
		l.logger.Error(ctx, "Provider rejected token revocation", err, map[string]interface{}{"tenant_id": tenantID})
		return false
	}

	found, err := l.tokens.Revoke(ctx, tenantID, l.provider)
	if err != nil {
		l.logger.Error(ctx, "Failed to mark token revoked", err, map[string]interface{}{"tenant_id": tenantID})
		return false
	}
	if !found {
		err = domain.ErrTokenNotFound
		return false
	}
	l.forgetProfile(ctx, tenantID)

	l.logger.Info(ctx, "Revoked token", map[string]interface{}{"tenant_id": tenantID})
	return true
}

// TokenState describes the outcome of an access token lookup.
type TokenState int

const (
	// TokenMissing means the tenant never connected.
	TokenMissing TokenState = iota
	// TokenRevoked means the connection was revoked.
	TokenRevoked
	// TokenValid means the stored access token is still valid.
	TokenValid
	// TokenRefreshed means the stored token was expired and got refreshed.
	TokenRefreshed
	// TokenReconnectRequired means refreshing failed in a way only a new
	// authorization can fix.
	TokenReconnectRequired
	// TokenUnavailable means the lookup or refresh failed transiently.
	TokenUnavailable
)

func (s TokenState) String() string {
	switch s {
	case TokenMissing:
		return "missing"
	case TokenRevoked:
		return "revoked"
	case TokenValid:
		return "valid"
	case TokenRefreshed:
		return "refreshed"
	case TokenReconnectRequired:
		return "reconnect_required"
	case TokenUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// AccessResult is the outcome of AccessToken. Value is empty unless State is
// TokenValid or TokenRefreshed; Err holds the failure behind the last two states.
type AccessResult struct {
	Value string
	State TokenState
	Err   error
}

// AccessToken returns a usable access token for the tenant, refreshing it
// when expired. It never returns an error; failures are reported in the result.
func (l *Lifecycle) AccessToken(ctx context.Context, tenantID string) AccessResult {
	existing, err := l.tokens.GetByTenant(ctx, tenantID, l.provider)
	if errors.Is(err, domain.ErrTokenNotFound) {
		return AccessResult{State: TokenMissing}
	}
	if err != nil {
		l.logger.Error(ctx, "Failed to load token", err, map[string]interface{}{"tenant_id": tenantID})
		return AccessResult{State: TokenUnavailable, Err: err}
	}
	if existing.IsRevoked {
		return AccessResult{State: TokenRevoked}
	}
	if !existing.IsExpired(l.now()) {
		return AccessResult{Value: existing.AccessToken, State: TokenValid}
	}

	refreshed, err := l.Refresh(ctx, tenantID)
	if err != nil {
		state := TokenUnavailable
		if IsReconnectRequired(err) {
			state = TokenReconnectRequired
		}
		l.logger.Warn(ctx, "Could not refresh expired token", map[string]interface{}{
			"tenant_id": tenantID,
			"state":     state.String(),
			"error":     err.Error(),
		})
		return AccessResult{State: state, Err: err}
	}
	return AccessResult{Value: refreshed.AccessToken, State: TokenRefreshed}
}

// ValidAccessToken returns a usable access token, or false when there is none.
func (l *Lifecycle) ValidAccessToken(ctx context.Context, tenantID string) (string, bool) {
	res := l.AccessToken(ctx, tenantID)
	return res.Value, res.Value != ""
}

// IsReconnectRequired reports whether err can only be fixed by re-authorizing.
func IsReconnectRequired(err error) bool {
	switch serrors.KindOf(err) {
	case serrors.KindNoRefreshToken:
		return true
	case serrors.KindExternalProvider:
		code := serrors.StatusCodeOf(err)
		return code >= 400 && code < 500 && code != http.StatusTooManyRequests
	default:
		return false
	}
}

// UserProfile returns the profile of the connected account, or false when
// it cannot be obtained.
func (l *Lifecycle) UserProfile(ctx context.Context, tenantID string) (*domain.UserProfile, bool) {
	key := cache.ProfileKey(l.provider, tenantID)
	if l.profiles != nil {
		if p, ok := l.profiles.Get(ctx, key); ok {
			return p, true
		}
	}

	accessToken, ok := l.ValidAccessToken(ctx, tenantID)
	if !ok {
		return nil, false
	}

	var profile *domain.UserProfile
	err := l.policy.Do(ctx, "oauth.userinfo", func(ctx context.Context) error {
		p, fErr := l.fetchUserInfo(ctx, accessToken)
		if fErr != nil {
			return fErr
		}
		profile = p
		return nil
	})
	if err != nil {
		l.logger.Warn(ctx, "Failed to fetch user profile", map[string]interface{}{
			"tenant_id": tenantID,
			"error":     err.Error(),
		})
		return nil, false
	}

	if l.profiles != nil {
		if err := l.profiles.Set(ctx, key, profile); err != nil {
			l.logger.Warn(ctx, "Failed to cache user profile", map[string]interface{}{"error": err.Error()})
		}
	}
	return profile, true
}

// Status is the connection state of a tenant as shown to the dashboard.
type Status struct {
	IsConnected bool                `json:"isConnected"`
	HasToken    bool                `json:"hasToken"`
	ExpiresAt   *time.Time          `json:"expiresAt,omitempty"`
	Scope       string              `json:"scope,omitempty"`
	IsExpired   bool                `json:"isExpired"`
	IsRevoked   bool                `json:"isRevoked"`
	UserProfile *domain.UserProfile `json:"userProfile,omitempty"`
}

// Status reports the tenant's connection. Storage failures are presented as
// "not connected".
func (l *Lifecycle) Status(ctx context.Context, tenantID string) Status {
	existing, err := l.tokens.GetByTenant(ctx, tenantID, l.provider)
	if err != nil {
		if !errors.Is(err, domain.ErrTokenNotFound) {
			l.logger.Error(ctx, "Failed to load token for status", err, map[string]interface{}{"tenant_id": tenantID})
		}
		return Status{}
	}

	now := l.now()
	expiresAt := existing.ExpiresAt
	st := Status{
		IsConnected: existing.IsValid(now),
		HasToken:    true,
		ExpiresAt:   &expiresAt,
		Scope:       existing.Scope,
		IsExpired:   existing.IsExpired(now),
		IsRevoked:   existing.IsRevoked,
	}
	if st.IsConnected {
		if p, ok := l.UserProfile(ctx, tenantID); ok {
			st.UserProfile = p
		}
	}
	return st
}

// Delete removes the tenant's token row entirely. It reports whether a
// token existed. The provider grant is left untouched.
func (l *Lifecycle) Delete(ctx context.Context, tenantID string) (bool, error) {
	found, err := l.tokens.Delete(ctx, tenantID, l.provider)
	metrics.ObserveTokenOperation("delete", err)
	if err != nil {
		return false, fmt.Errorf("failed to delete token: %w", err)
	}
	if found {
		l.forgetProfile(ctx, tenantID)
		l.logger.Info(ctx, "Deleted token", map[string]interface{}{"tenant_id": tenantID})
	}
	return found, nil
}

// Token returns the stored token of the tenant or domain.ErrTokenNotFound.
func (l *Lifecycle) Token(ctx context.Context, tenantID string) (*domain.OAuthToken, error) {
	return l.tokens.GetByTenant(ctx, tenantID, l.provider)
}

// ExpiredTokens lists non-revoked tokens of every tenant whose access token expired.
func (l *Lifecycle) ExpiredTokens(ctx context.Context) ([]*domain.OAuthToken, error) {
	all, err := l.tokens.ListExpired(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, t := range all {
		if t.Provider == l.provider {
			out = append(out, t)
		}
	}
	return out, nil
}

func (l *Lifecycle) forgetProfile(ctx context.Context, tenantID string) {
	if l.profiles == nil {
		return
	}
	if err := l.profiles.Delete(ctx, cache.ProfileKey(l.provider, tenantID)); err != nil {
		l.logger.Warn(ctx, "Failed to drop cached profile", map[string]interface{}{"error": err.Error()})
	}
}

func (l *Lifecycle) startSpan(ctx context.Context, name, tenantID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("oauth.provider", l.provider),
		attribute.String("tenant.id", tenantID),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
