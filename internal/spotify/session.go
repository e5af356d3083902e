package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/murmur-assistant/murmur/internal/config"
	"github.com/murmur-assistant/murmur/internal/httpkit"
)

const (
	defaultAPIBase  = "https://api.spotify.com/v1"
	defaultTokenURL = "https://accounts.spotify.com/api/token"

	requestTimeout = 10 * time.Second
)

// Session owns the token lifecycle and issues authenticated calls to
// the Spotify Web API. A single session serializes token refreshes
// across goroutines; the persisted record is shared with any other
// process through the atomic TokenStore.
type Session struct {
	clientID     string
	clientSecret string
	redirectURI  string

	store  TokenStore
	client *http.Client
	logger *slog.Logger

	apiBase  string
	tokenURL string

	refreshSkew time.Duration
	devicePoll  time.Duration
	deviceWait  time.Duration

	// launch starts the local desktop app; swapped out in tests.
	launch func(ctx context.Context) error
	// now is the clock used for staleness checks; swapped out in tests.
	now func() time.Time

	mu sync.Mutex
}

// NewSession creates a session from configuration. The store holds the
// credential record produced by the one-time authorization flow.
func NewSession(cfg config.SpotifyConfig, store TokenStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		store:        store,
		client:       httpkit.NewClient(httpkit.WithTimeout(requestTimeout)),
		logger:       logger,
		apiBase:      defaultAPIBase,
		tokenURL:     defaultTokenURL,
		refreshSkew:  cfg.RefreshSkew(),
		devicePoll:   cfg.DevicePollInterval(),
		deviceWait:   cfg.DeviceWait(),
		launch:       launchDesktopApp,
		now:          time.Now,
	}
}

// Configured reports whether application credentials are present.
func (s *Session) Configured() bool {
	return s.clientID != "" && s.clientSecret != ""
}

// Authenticated reports whether a credential record exists.
func (s *Session) Authenticated() bool {
	creds, err := s.store.Load()
	return err == nil && creds != nil
}

// AccessToken returns a valid access token, refreshing and persisting
// first when the stored one is stale. A fresh token costs no network
// call. Absent record: *NotAuthenticatedError. Unreadable record:
// *StorageError, surfaced without attempting a refresh.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessTokenLocked(ctx, false)
}

// accessTokenLocked implements AccessToken; force discards the stored
// access token regardless of its expiry (the 401 path).
func (s *Session) accessTokenLocked(ctx context.Context, force bool) (string, error) {
	creds, err := s.store.Load()
	if err != nil {
		return "", err
	}
	if creds == nil {
		return "", &NotAuthenticatedError{}
	}
	if !force && !creds.Stale(s.now(), s.refreshSkew) {
		return creds.AccessToken, nil
	}

	fresh, err := s.refreshLocked(ctx, creds)
	if err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// refreshLocked exchanges the refresh token for a new access token and
// persists the updated record. The refresh token itself is replaced
// only when the endpoint issues a new one.
func (s *Session) refreshLocked(ctx context.Context, creds *Credentials) (*Credentials, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {creds.RefreshToken},
	}

	tok, err := s.tokenCall(ctx, form)
	if err != nil {
		return nil, err
	}

	fresh := &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    s.now().Unix() + tok.ExpiresIn,
	}
	if tok.RefreshToken != "" {
		fresh.RefreshToken = tok.RefreshToken
	}

	if err := s.store.Save(fresh); err != nil {
		return nil, err
	}
	s.logger.Debug("spotify access token refreshed", "expires_in", tok.ExpiresIn)
	return fresh, nil
}

// tokenCall posts a form to the accounts token endpoint with the
// application credentials as basic auth.
func (s *Session) tokenCall(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.clientID, s.clientSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify token endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		httpkit.DrainAndClose(resp.Body, 4096)
		return nil, &AuthError{Status: resp.StatusCode}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("spotify token endpoint: decode response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, &AuthError{Status: resp.StatusCode}
	}
	return &tok, nil
}

// apiError is the error envelope the Web API wraps failures in.
type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// do issues one authenticated API call. On 401 the current token is
// treated as invalid and the call is retried exactly once after a
// forced refresh; a second 401 is an AuthError. No other status is
// retried.
func (s *Session) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return err
	}

	resp, err := s.send(ctx, method, path, query, body, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		httpkit.DrainAndClose(resp.Body, 4096)
		s.logger.Debug("spotify call unauthorized, forcing refresh", "path", path)

		s.mu.Lock()
		token, err = s.accessTokenLocked(ctx, true)
		s.mu.Unlock()
		if err != nil {
			return err
		}

		resp, err = s.send(ctx, method, path, query, body, token)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			httpkit.DrainAndClose(resp.Body, 4096)
			return &AuthError{Status: resp.StatusCode}
		}
	}

	return decodeAPIResponse(resp, out)
}

func (s *Session) send(ctx context.Context, method, path string, query url.Values, body any, token string) (*http.Response, error) {
	u := s.apiBase + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify api %s %s: %w", method, path, err)
	}
	return resp, nil
}

// decodeAPIResponse classifies the status and decodes a 2xx body into
// out when one is expected. 403 with the PREMIUM_REQUIRED reason and
// 404 with a no-active-device message map to their dedicated errors so
// callers can degrade gracefully.
func decodeAPIResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil

	case resp.StatusCode == http.StatusForbidden:
		var apiErr apiError
		body := httpkit.ReadErrorBody(resp.Body, 4096)
		if err := json.Unmarshal([]byte(body), &apiErr); err == nil {
			if apiErr.Error.Reason == "PREMIUM_REQUIRED" {
				return &PremiumRequiredError{}
			}
			if apiErr.Error.Message != "" {
				return &RemoteError{Status: resp.StatusCode, Message: apiErr.Error.Message}
			}
		}
		return &RemoteError{Status: resp.StatusCode, Message: "forbidden"}

	case resp.StatusCode == http.StatusNotFound:
		var apiErr apiError
		body := httpkit.ReadErrorBody(resp.Body, 4096)
		if err := json.Unmarshal([]byte(body), &apiErr); err == nil {
			if strings.Contains(apiErr.Error.Message, "No active device") {
				return &NoDeviceError{Reason: "no active device"}
			}
			if apiErr.Error.Message != "" {
				return &RemoteError{Status: resp.StatusCode, Message: apiErr.Error.Message}
			}
		}
		return &RemoteError{Status: resp.StatusCode, Message: "not found"}

	case resp.StatusCode >= 400:
		var apiErr apiError
		body := httpkit.ReadErrorBody(resp.Body, 4096)
		msg := body
		if err := json.Unmarshal([]byte(body), &apiErr); err == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return &RemoteError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		httpkit.DrainAndClose(resp.Body, 4096)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("spotify api: decode response: %w", err)
	}
	return nil
}
