package federation_test

import (
	"strings"
	"testing"

	"github.com/pilab-dev/reviewdesk/config"
	"github.com/pilab-dev/reviewdesk/internal/federation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_RoundTrip(t *testing.T) {
	for _, extra := range []string{"", "abc", "with:colons:inside"} {
		state, err := federation.EncodeState("42", extra)
		require.NoError(t, err)

		tenantID, gotExtra, err := federation.ParseState(state)
		require.NoError(t, err)
		assert.Equal(t, "42", tenantID)
		assert.Equal(t, extra, gotExtra)
	}
}

func TestEncodeState_Invalid(t *testing.T) {
	_, err := federation.EncodeState("", "x")
	assert.ErrorIs(t, err, federation.ErrMissingTenant)

	_, err = federation.EncodeState("4:2", "")
	assert.ErrorIs(t, err, federation.ErrInvalidAuthState)
}

func TestParseState_Invalid(t *testing.T) {
	for _, s := range []string{"", ":x", "  :"} {
		_, _, err := federation.ParseState(s)
		assert.ErrorIs(t, err, federation.ErrInvalidAuthState, s)
	}
}

func TestNewStateNonce(t *testing.T) {
	a, err := federation.NewStateNonce()
	require.NoError(t, err)
	b, err := federation.NewStateNonce()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.False(t, strings.ContainsAny(a, ":=+/"))
}

func TestRegistry(t *testing.T) {
	l := federation.NewGoogleLifecycle(config.GoogleOAuthConfig{ClientID: "client-id"}, nil)
	r := federation.NewRegistry(l)

	got, err := r.Get("Google")
	require.NoError(t, err)
	assert.Same(t, l, got)

	_, err = r.Get("facebook")
	assert.ErrorIs(t, err, federation.ErrProviderNotFound)
	assert.Equal(t, []string{"google"}, r.Providers())
}
