package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	serrors "github.com/pilab-dev/reviewdesk/errors"
	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", serrors.ExternalProvider("oauth.exchange", http.StatusBadRequest, errors.New("bad code")))

	assert.True(t, errors.Is(err, serrors.ErrExternalProvider))
	assert.False(t, errors.Is(err, serrors.ErrParse))
	assert.Equal(t, serrors.KindExternalProvider, serrors.KindOf(err))
	assert.Equal(t, http.StatusBadRequest, serrors.StatusCodeOf(err))
}

func TestError_ParseCountsAsExternalProvider(t *testing.T) {
	err := serrors.Parse("oauth.exchange", errors.New("unexpected end of JSON input"))

	assert.True(t, errors.Is(err, serrors.ErrParse))
	assert.True(t, errors.Is(err, serrors.ErrExternalProvider))
	assert.False(t, errors.Is(serrors.ExternalProvider("x", 500, nil), serrors.ErrParse))
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := serrors.ExternalProvider("gbp.accounts", 0, cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "gbp.accounts")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, serrors.KindUnknown, serrors.KindOf(errors.New("plain")))
	assert.Equal(t, 0, serrors.StatusCodeOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, serrors.HTTPStatus(serrors.KindConfiguration))
	assert.Equal(t, http.StatusBadGateway, serrors.HTTPStatus(serrors.KindExternalProvider))
	assert.Equal(t, http.StatusBadGateway, serrors.HTTPStatus(serrors.KindParse))
	assert.Equal(t, http.StatusConflict, serrors.HTTPStatus(serrors.KindNoRefreshToken))
	assert.Equal(t, http.StatusBadRequest, serrors.HTTPStatus(serrors.KindNoTenantContext))
}

func TestParseOAuth2Error(t *testing.T) {
	e := serrors.ParseOAuth2Error([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
	if assert.NotNil(t, e) {
		assert.Equal(t, serrors.InvalidGrant, e.Code)
		assert.Equal(t, "invalid_grant: Token has been expired or revoked.", e.Error())
	}

	assert.Nil(t, serrors.ParseOAuth2Error([]byte(`<html>oops</html>`)))
	assert.Nil(t, serrors.ParseOAuth2Error([]byte(`{}`)))
}
