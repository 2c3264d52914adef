package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pilab-dev/reviewdesk/config"
	serrors "github.com/pilab-dev/reviewdesk/errors"
)

const (
	openAISystemPrompt = "Write a short, polite response to a customer review."
	localSystemPrompt  = "You're a polite assistant that writes short, helpful replies to customer reviews."

	// EmptyReply is returned when the backend answered without any text.
	EmptyReply = "(No response generated)"

	defaultTemperature = 0.7
	maxResponseBody    = 1 << 20
)

// ChatCompletions talks to an OpenAI compatible /chat/completions endpoint.
type ChatCompletions struct {
	name         string
	endpoint     string
	apiKey       string
	model        string
	systemPrompt string
	temperature  float64
	client       *http.Client
}

// NewOpenAI returns the hosted OpenAI backend. An API key is required.
func NewOpenAI(cfg config.OpenAIConfig, client *http.Client) (*ChatCompletions, error) {
	if cfg.APIKey == "" {
		return nil, serrors.Configuration("generation.openai", "OpenAI API key not configured")
	}
	return newChatCompletions("openai", cfg.BaseURL, cfg.APIKey, cfg.Model, openAISystemPrompt, client), nil
}

// NewLocal returns a backend for a self-hosted model server.
func NewLocal(cfg config.LocalLLMConfig, client *http.Client) (*ChatCompletions, error) {
	if cfg.BaseURL == "" {
		return nil, serrors.Configuration("generation.local", "local LLM base URL not configured")
	}
	return newChatCompletions("local", cfg.BaseURL, "", cfg.Model, localSystemPrompt, client), nil
}

func newChatCompletions(name, baseURL, apiKey, model, prompt string, client *http.Client) *ChatCompletions {
	if client == nil {
		client = http.DefaultClient
	}
	return &ChatCompletions{
		name:         name,
		endpoint:     strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey:       apiKey,
		model:        model,
		systemPrompt: prompt,
		temperature:  defaultTemperature,
		client:       client,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *ChatCompletions) Generate(ctx context.Context, text string) (string, error) {
	op := "generation." + c.name

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: text},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", serrors.Configuration(op, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", serrors.FromHTTPResponse(op, resp.StatusCode, body)
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", serrors.Parse(op, err)
	}
	if len(out.Choices) == 0 {
		return "", serrors.Parse(op, fmt.Errorf("%s returned no choices", c.name))
	}

	reply := strings.TrimSpace(out.Choices[0].Message.Content)
	if reply == "" {
		return EmptyReply, nil
	}
	return reply, nil
}
