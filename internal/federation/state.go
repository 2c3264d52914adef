package federation

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const stateSeparator = ":"

// EncodeState builds the OAuth state parameter: "{tenantID}" or
// "{tenantID}:{extra}". The tenant id must not contain the separator.
func EncodeState(tenantID, extra string) (string, error) {
	if tenantID == "" {
		return "", ErrMissingTenant
	}
	if strings.Contains(tenantID, stateSeparator) {
		return "", fmt.Errorf("%w: tenant id contains %q", ErrInvalidAuthState, stateSeparator)
	}
	if extra == "" {
		return tenantID, nil
	}
	return tenantID + stateSeparator + extra, nil
}

// ParseState splits a state parameter on the first separator and returns the
// tenant id and the extra part.
func ParseState(state string) (tenantID, extra string, err error) {
	tenantID, extra, _ = strings.Cut(state, stateSeparator)
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", "", ErrInvalidAuthState
	}
	return tenantID, extra, nil
}

// NewStateNonce returns a random URL-safe value for the extra part of the state.
func NewStateNonce() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
