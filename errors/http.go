package errors

import (
	"errors"
	"strings"
)

const maxBodyInError = 512

// FromHTTPResponse classifies a non-success provider response. An OAuth2
// error document in the body becomes the cause; otherwise a trimmed body.
func FromHTTPResponse(op string, statusCode int, body []byte) *Error {
	var cause error
	if oe := ParseOAuth2Error(body); oe != nil {
		cause = oe
	} else {
		text := strings.TrimSpace(string(body))
		if len(text) > maxBodyInError {
			text = text[:maxBodyInError] + "..."
		}
		if text == "" {
			text = "empty response body"
		}
		cause = errors.New(text)
	}
	return ExternalProvider(op, statusCode, cause)
}

// OAuth2ErrorCode returns the OAuth2 error code carried in err's chain, if any.
func OAuth2ErrorCode(err error) string {
	var oe *OAuth2Error
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}
