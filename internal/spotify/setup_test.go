package spotify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAuthorizeURL(t *testing.T) {
	s := newTestSession(t, seedStore(t, nil))

	u := s.AuthorizeURL()
	for _, want := range []string{
		"accounts.spotify.com/authorize",
		"client_id=test-client",
		"response_type=code",
		"user-modify-playback-state",
	} {
		if !strings.Contains(u, want) {
			t.Errorf("AuthorizeURL missing %q: %s", want, u)
		}
	}
}

func TestExchangeCodePersistsRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Error(err)
		}
		if got := r.FormValue("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.FormValue("code"); got != "auth-code-1" {
			t.Errorf("code = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)

	store := seedStore(t, nil)
	s := newTestSession(t, store)
	s.tokenURL = srv.URL

	if err := s.ExchangeCode(context.Background(), "auth-code-1"); err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}

	creds, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if creds == nil || creds.AccessToken != "access-1" || creds.RefreshToken != "refresh-1" {
		t.Errorf("persisted creds = %+v", creds)
	}
	if !s.Authenticated() {
		t.Error("Authenticated() = false after exchange")
	}
}

func TestExchangeCodeRejectsMissingRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-1",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)

	store := seedStore(t, nil)
	s := newTestSession(t, store)
	s.tokenURL = srv.URL

	if err := s.ExchangeCode(context.Background(), "auth-code-1"); err == nil {
		t.Fatal("expected error for grant without refresh token")
	}
	if s.Authenticated() {
		t.Error("record persisted despite failed exchange")
	}
}
