package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies failures so callers can decide recovery without
// inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration means required settings are missing or invalid.
	KindConfiguration
	// KindExternalProvider means a provider returned a non-success response or
	// was unreachable after retries.
	KindExternalProvider
	// KindParse means a provider response could not be decoded. It is handled
	// like KindExternalProvider when propagating.
	KindParse
	// KindNoRefreshToken means a refresh was requested without a usable
	// refresh token. The tenant must re-authorize.
	KindNoRefreshToken
	// KindNoTenantContext means a tenant-scoped operation ran without a tenant.
	KindNoTenantContext
	// KindNotConnected means no valid access token is available for a data fetch.
	KindNotConnected
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindExternalProvider:
		return "external_provider"
	case KindParse:
		return "parse"
	case KindNoRefreshToken:
		return "no_refresh_token"
	case KindNoTenantContext:
		return "no_tenant_context"
	case KindNotConnected:
		return "not_connected"
	default:
		return "unknown"
	}
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "oauth.exchange".
	Op string
	// StatusCode is the provider HTTP status, 0 when no response was received.
	StatusCode int
	Msg        string
	Err        error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrConfiguration    = &Error{Kind: KindConfiguration}
	ErrExternalProvider = &Error{Kind: KindExternalProvider}
	ErrParse            = &Error{Kind: KindParse}
	ErrNoRefreshToken   = &Error{Kind: KindNoRefreshToken}
	ErrNoTenantContext  = &Error{Kind: KindNoTenantContext}
	ErrNotConnected     = &Error{Kind: KindNotConnected}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind. A parse error also matches ErrExternalProvider.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil || t.Msg != "" || t.StatusCode != 0 {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindExternalProvider && e.Kind == KindParse
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusCodeOf returns the provider HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// HTTPStatus maps a kind to the status the API answers with.
func HTTPStatus(k Kind) int {
	switch k {
	case KindConfiguration:
		return http.StatusInternalServerError
	case KindExternalProvider, KindParse:
		return http.StatusBadGateway
	case KindNoRefreshToken, KindNotConnected:
		return http.StatusConflict
	case KindNoTenantContext:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func Configuration(op, msg string) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Msg: msg}
}

func ExternalProvider(op string, statusCode int, err error) *Error {
	return &Error{Kind: KindExternalProvider, Op: op, StatusCode: statusCode, Err: err}
}

func Parse(op string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

func NoRefreshToken(op, msg string) *Error {
	return &Error{Kind: KindNoRefreshToken, Op: op, Msg: msg}
}

func NoTenantContext(op string) *Error {
	return &Error{Kind: KindNoTenantContext, Op: op, Msg: "no tenant in request context"}
}

func NotConnected(op, tenantID string) *Error {
	return &Error{Kind: KindNotConnected, Op: op, Msg: "no valid access token for tenant " + tenantID}
}
