package typefully

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/podforge-ai/podforge/pkg/models"
)

// ErrPublishFailed is the sentinel for per-item publish failures. The
// coordinator's retry queue handles these; they are never fatal to a
// batch.
var ErrPublishFailed = errors.New("publish failed")

// Client schedules posts through a Typefully-style HTTP API. It
// implements publish.Publisher.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Client. calls/period define the outbound call quota;
// a zero quota means unlimited.
func New(baseURL, apiKey string, timeout time.Duration, calls int, period time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if calls > 0 && period > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(calls)/period.Seconds()), calls)
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  logger,
	}
}

type postPayload struct {
	Content      string   `json:"content"`
	ScheduleTime string   `json:"schedule_time"`
	Status       string   `json:"status"`
	Tweets       []string `json:"tweets,omitempty"`
}

type postResponse struct {
	ID string `json:"id"`
}

// Post is one existing draft or scheduled post.
type Post struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	ScheduleTime string `json:"schedule_time,omitempty"`
	Status       string `json:"status"`
}

// Publish schedules one content item for the given time and returns
// the external post ID.
func (c *Client) Publish(ctx context.Context, item models.ContentItem, at time.Time) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	payload := postPayload{
		Content:      item.Text,
		ScheduleTime: at.Format(time.RFC3339),
		Status:       "scheduled",
	}
	if item.Kind == models.KindThread {
		payload.Tweets = item.ThreadParts
		if payload.Content == "" && len(item.ThreadParts) > 0 {
			payload.Content = item.ThreadParts[0]
		}
	}

	body, err := c.do(ctx, http.MethodPost, "/v1/posts", payload)
	if err != nil {
		return "", err
	}

	var out postResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrPublishFailed, err)
	}
	return out.ID, nil
}

// Drafts returns all draft posts.
func (c *Client) Drafts(ctx context.Context) ([]Post, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/drafts", nil)
	if err != nil {
		return nil, err
	}
	var posts []Post
	if err := json.Unmarshal(body, &posts); err != nil {
		return nil, fmt.Errorf("decode drafts: %w", err)
	}
	return posts, nil
}

// Scheduled returns all scheduled posts.
func (c *Client) Scheduled(ctx context.Context) ([]Post, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/posts?status=scheduled", nil)
	if err != nil {
		return nil, err
	}
	var posts []Post
	if err := json.Unmarshal(body, &posts); err != nil {
		return nil, fmt.Errorf("decode scheduled posts: %w", err)
	}
	return posts, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encode request: %v", ErrPublishFailed, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrPublishFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: network error: %v", ErrPublishFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrPublishFailed, err)
	}

	c.logger.Debug("typefully call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"latency", time.Since(start),
	)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrPublishFailed, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
