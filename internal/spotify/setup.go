package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// oauthScopes are the playback permissions the assistant asks for.
var oauthScopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
}

const (
	authorizeURL = "https://accounts.spotify.com/authorize"

	// setupTimeout bounds how long the callback server waits for the
	// user to approve access in the browser.
	setupTimeout = 2 * time.Minute
)

// AuthorizeURL builds the browser URL for the one-time consent screen.
func (s *Session) AuthorizeURL() string {
	q := url.Values{
		"client_id":     {s.clientID},
		"response_type": {"code"},
		"redirect_uri":  {s.redirectURI},
		"scope":         {strings.Join(oauthScopes, " ")},
	}
	return authorizeURL + "?" + q.Encode()
}

// ExchangeCode trades an authorization code for a credential record and
// persists it. This completes the one-time setup flow.
func (s *Session) ExchangeCode(ctx context.Context, code string) error {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {s.redirectURI},
	}

	tok, err := s.tokenCall(ctx, form)
	if err != nil {
		return err
	}
	if tok.RefreshToken == "" {
		return fmt.Errorf("spotify: authorization grant returned no refresh token")
	}

	creds := &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    s.now().Unix() + tok.ExpiresIn,
	}
	if err := s.store.Save(creds); err != nil {
		return err
	}
	s.logger.Info("spotify authorization complete")
	return nil
}

// Authorize runs the interactive setup flow: serve the OAuth callback
// on the configured redirect URI, hand the consent URL to openBrowser,
// wait for the redirect, and exchange the code. Progress is written to
// out for the terminal user.
func (s *Session) Authorize(ctx context.Context, openBrowser func(string) error, out io.Writer) error {
	if !s.Configured() {
		return fmt.Errorf("spotify: client_id and client_secret must be configured")
	}

	redirect, err := url.Parse(s.redirectURI)
	if err != nil {
		return fmt.Errorf("spotify: invalid redirect_uri: %w", err)
	}
	callbackPath := redirect.Path
	if callbackPath == "" {
		callbackPath = "/"
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "Authorization failed: "+e, http.StatusBadRequest)
			errCh <- fmt.Errorf("spotify: authorization denied: %s", e)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "No authorization code received", http.StatusBadRequest)
			errCh <- errors.New("spotify: callback carried no code")
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authorization successful</h1><p>You can close this window and return to the terminal.</p></body></html>")
		codeCh <- code
	})

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("spotify: callback server: %w", err)
	}
	server := &http.Server{Handler: mux}
	go server.Serve(listener)
	defer server.Close()

	authURL := s.AuthorizeURL()
	fmt.Fprintf(out, "Opening browser for Spotify authorization...\n")
	fmt.Fprintf(out, "If the browser does not open, visit:\n%s\n\n", authURL)
	if openBrowser != nil {
		if err := openBrowser(authURL); err != nil {
			s.logger.Warn("could not open browser", "error", err)
		}
	}
	fmt.Fprintln(out, "Waiting for authorization...")

	ctx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return fmt.Errorf("spotify: authorization timed out: %w", ctx.Err())
	case err := <-errCh:
		return err
	case code := <-codeCh:
		if err := s.ExchangeCode(ctx, code); err != nil {
			return err
		}
		fmt.Fprintln(out, "Spotify authentication successful.")
		return nil
	}
}
