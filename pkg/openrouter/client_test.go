package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/podforge-ai/podforge/pkg/models"
	"github.com/podforge-ai/podforge/pkg/router"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerate(t *testing.T) {
	var gotReq models.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth header = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(models.ChatCompletionResponse{
			Choices: []models.Choice{
				{Message: models.ChatMessage{Role: "assistant", Content: "generated text"}},
			},
			Usage: &models.Usage{PromptTokens: 120, CompletionTokens: 80, TotalTokens: 200},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", 5*time.Second, testLogger())

	text, in, out, err := c.Generate(context.Background(), "deepseek/deepseek-chat", "sys", "user", 500)
	if err != nil {
		t.Fatal(err)
	}
	if text != "generated text" {
		t.Errorf("text = %q", text)
	}
	if in != 120 || out != 80 {
		t.Errorf("tokens = %d/%d, want 120/80", in, out)
	}

	if gotReq.Model != "deepseek/deepseek-chat" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if gotReq.MaxTokens == nil || *gotReq.MaxTokens != 500 {
		t.Error("max_tokens not forwarded")
	}
}

func TestGenerate429IsRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", 5*time.Second, testLogger())

	_, _, _, err := c.Generate(context.Background(), "m", "s", "u", 100)
	if !errors.Is(err, router.ErrRateLimited) {
		t.Errorf("429 error = %v, want ErrRateLimited", err)
	}
}

func TestGenerateServerErrorIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", 5*time.Second, testLogger())

	_, _, _, err := c.Generate(context.Background(), "m", "s", "u", 100)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, router.ErrRateLimited) {
		t.Error("500 mapped to a retryable rate limit")
	}
}

func TestGenerateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.ChatCompletionResponse{})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", 5*time.Second, testLogger())

	if _, _, _, err := c.Generate(context.Background(), "m", "s", "u", 100); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
