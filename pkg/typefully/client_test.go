package typefully

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
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(url string) *Client {
	return New(url, "test-key", 5*time.Second, 0, 0, testLogger())
}

func TestPublishSinglePost(t *testing.T) {
	var got postPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/posts" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(postResponse{ID: "post-123"})
	}))
	defer srv.Close()

	at := time.Date(2026, time.March, 4, 14, 0, 0, 0, time.UTC)
	id, err := newTestClient(srv.URL).Publish(context.Background(), models.ContentItem{
		ID:   "c1",
		Kind: models.KindSinglePost,
		Text: "a single post",
	}, at)
	if err != nil {
		t.Fatal(err)
	}
	if id != "post-123" {
		t.Errorf("id = %q", id)
	}
	if got.Content != "a single post" {
		t.Errorf("content = %q", got.Content)
	}
	if got.ScheduleTime != at.Format(time.RFC3339) {
		t.Errorf("schedule_time = %q", got.ScheduleTime)
	}
	if got.Status != "scheduled" {
		t.Errorf("status = %q", got.Status)
	}
	if len(got.Tweets) != 0 {
		t.Errorf("single post carries tweets: %v", got.Tweets)
	}
}

func TestPublishThread(t *testing.T) {
	var got postPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(postResponse{ID: "thread-1"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Publish(context.Background(), models.ContentItem{
		ID:          "c2",
		Kind:        models.KindThread,
		ThreadParts: []string{"hook", "part 2", "part 3"},
	}, time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tweets) != 3 {
		t.Errorf("tweets = %d, want 3", len(got.Tweets))
	}
	if got.Content != "hook" {
		t.Errorf("content = %q, want the hook", got.Content)
	}
}

func TestPublishFailureWrapsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exhausted", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Publish(context.Background(), models.ContentItem{
		ID: "c3", Kind: models.KindSinglePost, Text: "x",
	}, time.Now().Add(24*time.Hour))
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("error = %v, want ErrPublishFailed", err)
	}
}

func TestScheduled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/posts" || r.URL.Query().Get("status") != "scheduled" {
			t.Errorf("unexpected request %s", r.URL)
		}
		json.NewEncoder(w).Encode([]Post{
			{ID: "p1", Content: "one", Status: "scheduled"},
			{ID: "p2", Content: "two", Status: "scheduled"},
		})
	}))
	defer srv.Close()

	posts, err := newTestClient(srv.URL).Scheduled(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 {
		t.Errorf("posts = %d, want 2", len(posts))
	}
}

func TestDrafts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/drafts" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	posts, err := newTestClient(srv.URL).Drafts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 0 {
		t.Errorf("posts = %d, want 0", len(posts))
	}
}
