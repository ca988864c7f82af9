package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/podforge-ai/podforge/pkg/models"
	"github.com/podforge-ai/podforge/pkg/router"
)

// Client talks to an OpenAI-compatible chat-completions endpoint.
// It implements router.Generator.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Client. A zero timeout defaults to 60 seconds.
func New(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Generate sends one chat completion and returns the generated text
// plus the backend's true token counts. An HTTP 429 maps to
// router.ErrRateLimited; any other failure is terminal.
func (c *Client) Generate(ctx context.Context, model, systemPrompt, userPrompt string, maxTokens int) (string, int, int, error) {
	body, err := json.Marshal(models.ChatCompletionRequest{
		Model: model,
		Messages: []models.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return "", 0, 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", 0, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, 0, fmt.Errorf("openrouter request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, 0, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("openrouter call",
		"model", model,
		"status", resp.StatusCode,
		"latency", time.Since(start),
	)

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", 0, 0, fmt.Errorf("openrouter: %w", router.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, 0, fmt.Errorf("openrouter: HTTP %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var out models.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", 0, 0, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("openrouter: empty choices")
	}

	var in, outTok int
	if out.Usage != nil {
		in = out.Usage.PromptTokens
		outTok = out.Usage.CompletionTokens
	}
	return out.Choices[0].Message.Content, in, outTok, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
