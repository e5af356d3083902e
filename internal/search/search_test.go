package search

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload.Model != "sonar" {
			t.Errorf("model = %q", payload.Model)
		}
		if len(payload.Messages) != 1 || payload.Messages[0].Content != "latest go release" {
			t.Errorf("messages = %+v", payload.Messages)
		}

		io.WriteString(w, `{"choices": [{"message": {"content": "Go 1.24 is out."}}]}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", testLogger())
	c.endpoint = srv.URL

	got, err := c.Search(context.Background(), "latest go release")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got != "Go 1.24 is out." {
		t.Errorf("got %q", got)
	}
}

func TestCleanForSpeech(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"citations", "Go 1.24 is out[1][2].", "Go 1.24 is out."},
		{"emphasis", "This is **very** important and *also* this.", "This is very important and also this."},
		{"links", "See [the docs](https://go.dev/doc) for details.", "See the docs for details."},
		{"collapsed spaces", "left[3]  right", "left right"},
		{"trimmed", "  padded  ", "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanForSpeech(tt.in); got != tt.want {
				t.Errorf("cleanForSpeech(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHandleSearchNotConfigured(t *testing.T) {
	c := NewClient("", testLogger())

	out, err := c.handleSearch(context.Background(), map[string]any{"query": "anything"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Search unavailable") {
		t.Errorf("out = %q", out)
	}
}

func TestHandleSearchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", testLogger())
	c.endpoint = srv.URL

	out, err := c.handleSearch(context.Background(), map[string]any{"query": "anything"})
	if err != nil {
		t.Fatalf("API failure must be a plain result: %v", err)
	}
	if !strings.Contains(out, "429") {
		t.Errorf("out = %q", out)
	}
}

func TestHandleSearchStripsMarkdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices": [{"message": {"content": "**Answer**: see [docs](https://example.com)[1]."}}]}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key", testLogger())
	c.endpoint = srv.URL

	out, err := c.handleSearch(context.Background(), map[string]any{"query": "q"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Answer: see docs." {
		t.Errorf("out = %q", out)
	}
}
