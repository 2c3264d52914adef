package generation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pilab-dev/reviewdesk/config"
	serrors "github.com/pilab-dev/reviewdesk/errors"
	"github.com/pilab-dev/reviewdesk/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Auth string
	Body struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
}

func chatServer(t *testing.T, status int, response string, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got != nil {
			got.Auth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&got.Body)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI_Generate(t *testing.T) {
	var got capturedRequest
	srv := chatServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  Thank you!  "}}]}`, &got)

	gen, err := generation.NewOpenAI(config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-3.5-turbo", BaseURL: srv.URL + "/v1/"}, srv.Client())
	require.NoError(t, err)

	reply, err := gen.Generate(context.Background(), "Lovely place")
	require.NoError(t, err)
	assert.Equal(t, "Thank you!", reply)

	assert.Equal(t, "Bearer sk-test", got.Auth)
	assert.Equal(t, "gpt-3.5-turbo", got.Body.Model)
	assert.InDelta(t, 0.7, got.Body.Temperature, 0.0001)
	require.Len(t, got.Body.Messages, 2)
	assert.Equal(t, "system", got.Body.Messages[0].Role)
	assert.Equal(t, "Lovely place", got.Body.Messages[1].Content)
}

func TestOpenAI_RequiresAPIKey(t *testing.T) {
	_, err := generation.NewOpenAI(config.OpenAIConfig{}, nil)
	assert.ErrorIs(t, err, serrors.ErrConfiguration)
}

func TestLocal_EmptyReplyAndNoAuth(t *testing.T) {
	var got capturedRequest
	srv := chatServer(t, http.StatusOK, `{"choices":[{"message":{"content":"   "}}]}`, &got)

	gen, err := generation.NewLocal(config.LocalLLMConfig{BaseURL: srv.URL + "/v1", Model: "llama3"}, srv.Client())
	require.NoError(t, err)

	reply, err := gen.Generate(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, generation.EmptyReply, reply)
	assert.Empty(t, got.Auth)
	assert.Equal(t, "llama3", got.Body.Model)
}

func TestLocal_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		want     error
	}{
		{"server error", http.StatusInternalServerError, `boom`, serrors.ErrExternalProvider},
		{"no choices", http.StatusOK, `{"choices":[]}`, serrors.ErrParse},
		{"malformed", http.StatusOK, `{`, serrors.ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, tt.status, tt.response, nil)
			gen, err := generation.NewLocal(config.LocalLLMConfig{BaseURL: srv.URL + "/v1"}, srv.Client())
			require.NoError(t, err)

			_, err = gen.Generate(context.Background(), "text")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewGenerator_UnknownProvider(t *testing.T) {
	_, err := generation.NewGenerator(config.LLMConfig{Provider: "bard"}, nil)
	assert.ErrorIs(t, err, serrors.ErrConfiguration)

	gen, err := generation.NewGenerator(config.LLMConfig{Provider: "LOCAL", Local: config.LocalLLMConfig{BaseURL: "http://localhost:11434/v1"}}, nil)
	require.NoError(t, err)
	assert.NotNil(t, gen)
}
