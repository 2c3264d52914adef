package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pilab-dev/reviewdesk/config"
	"github.com/pilab-dev/reviewdesk/domain"
	serrors "github.com/pilab-dev/reviewdesk/errors"
	"golang.org/x/oauth2"
	googleOAuth2 "golang.org/x/oauth2/google"
)

// defaultTokenLifetime applies when the token response carries no expiry.
const defaultTokenLifetime = time.Hour

const maxResponseBody = 1 << 20

// newGoogleOAuth2Config builds the oauth2 client configuration. Endpoints
// default to Google's well-known ones; client credentials travel in the
// form body.
func newGoogleOAuth2Config(cfg config.GoogleOAuthConfig) *oauth2.Config {
	endpoint := googleOAuth2.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
		Endpoint:     endpoint,
	}
}

// tokenExpiry computes the absolute expiry from the response's expires_in.
func tokenExpiry(tok *oauth2.Token, now time.Time) time.Time {
	if tok.ExpiresIn > 0 {
		return now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		if v > 0 {
			return now.Add(time.Duration(v) * time.Second)
		}
	case string:
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs > 0 {
			return now.Add(time.Duration(secs) * time.Second)
		}
	}
	if !tok.Expiry.IsZero() {
		return tok.Expiry
	}
	return now.Add(defaultTokenLifetime)
}

// tokenScope returns the granted scope, or the requested scopes when the
// provider did not echo them.
func tokenScope(tok *oauth2.Token, requested []string) string {
	if s, ok := tok.Extra("scope").(string); ok && s != "" {
		return s
	}
	return strings.Join(requested, " ")
}

// classifyTokenError maps errors from the oauth2 package onto error kinds.
// Transport errors are returned unchanged so the retry policy sees them.
func classifyTokenError(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return serrors.FromHTTPResponse(op, status, re.Body)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return serrors.Parse(op, err)
}

// postRevoke asks the provider to revoke token.
func (l *Lifecycle) postRevoke(ctx context.Context, token string) error {
	const op = "oauth.revoke"
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return serrors.Configuration(op, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serrors.FromHTTPResponse(op, resp.StatusCode, body)
	}
	return nil
}

// googleUserInfo is the userinfo v2 response.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// fetchUserInfo retrieves the profile of the account behind accessToken.
func (l *Lifecycle) fetchUserInfo(ctx context.Context, accessToken string) (*domain.UserProfile, error) {
	const op = "oauth.userinfo"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, serrors.Configuration(op, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, serrors.FromHTTPResponse(op, resp.StatusCode, body)
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, serrors.Parse(op, fmt.Errorf("failed to unmarshal Google user info: %w", err))
	}

	return &domain.UserProfile{
		ID:            info.ID,
		Name:          info.Name,
		Email:         info.Email,
		Picture:       info.Picture,
		GivenName:     info.GivenName,
		FamilyName:    info.FamilyName,
		VerifiedEmail: info.VerifiedEmail,
	}, nil
}
