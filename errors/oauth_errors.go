package errors

import (
	"encoding/json"
	"fmt"
)

// OAuth2Error is the error body OAuth 2.0 endpoints answer with.
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
}

func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Standard OAuth2 error codes
const (
	InvalidRequest         = "invalid_request"
	InvalidClient          = "invalid_client"
	InvalidGrant           = "invalid_grant"
	InvalidToken           = "invalid_token"
	UnauthorizedClient     = "unauthorized_client"
	ServerError            = "server_error"
	TemporarilyUnavailable = "temporarily_unavailable"
)

// ParseOAuth2Error decodes a provider error body. It returns nil when the body
// is not an OAuth2 error document.
func ParseOAuth2Error(body []byte) *OAuth2Error {
	var e OAuth2Error
	if err := json.Unmarshal(body, &e); err != nil || e.Code == "" {
		return nil
	}
	return &e
}
