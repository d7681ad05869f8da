package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	// ClientSecretsFile is the Google API credentials.json downloaded from the Cloud Console.
	// It is read from the tasker config directory.
	ClientSecretsFile = "credentials.json"

	// TokenFile holds the OAuth token (access + refresh) next to the client secrets.
	TokenFile = "token.json"

	// LocalhostAuthPort is the port the local web server listens on to capture the OAuth redirect.
	LocalhostAuthPort = "6789"
)

// GetConfig creates an oauth2.Config from the client secrets file and specified scopes.
func GetConfig(configDir string, scopes []string) (*oauth2.Config, error) {
	clientSecretsFile := filepath.Join(configDir, ClientSecretsFile)
	b, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", clientSecretsFile, err)
	}

	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	config.RedirectURL = normalizeRedirectURL(config.RedirectURL)
	return config, nil
}

// normalizeRedirectURL points localhost and out-of-band redirects at the port the local
// callback server listens on. Other redirect URLs are returned unchanged.
func normalizeRedirectURL(raw string) string {
	if raw == "urn:ietf:wg:oauth:2.0:oob" {
		return fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
	}
	u, err := url.Parse(raw)
	if err != nil {
		log.Printf("Warning: Could not parse RedirectURL '%s': %v. Using it as is.", raw, err)
		return raw
	}
	if u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		log.Printf("Warning: RedirectURL in credentials.json is not a localhost callback: %s", raw)
		return raw
	}
	if port := u.Port(); port != "" && port != LocalhostAuthPort {
		log.Printf("Warning: credentials.json redirects to port %s, forcing %s", port, LocalhostAuthPort)
	}
	u.Host = net.JoinHostPort(u.Hostname(), LocalhostAuthPort)
	return u.String()
}

// GetClient retrieves an authenticated *http.Client.
// It tries to load an existing token, refreshes it if expired, or
// initiates a new web-based authorization flow if no token exists.
func GetClient(ctx context.Context, configDir string, scopes []string) (*http.Client, error) {
	config, err := GetConfig(configDir, scopes)
	if err != nil {
		return nil, err
	}

	tokenFile := filepath.Join(configDir, TokenFile)
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		// No existing token, perform the full OAuth flow
		log.Printf("No existing token found at %s. Initiating web authorization flow...", tokenFile)
		tok, err = getTokenFromWeb(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}

	// The token source refreshes expired access tokens; persist whatever it hands back so the
	// next run starts from the latest token.
	src := config.TokenSource(ctx, tok)
	currentTok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain a valid token: %w", err)
	}
	if currentTok.AccessToken != tok.AccessToken || currentTok.RefreshToken != tok.RefreshToken {
		log.Println("Token was refreshed. Saving new token to file.")
		if err := saveToken(tokenFile, currentTok); err != nil {
			log.Printf("Warning: could not save refreshed token: %v", err)
		}
	}

	return oauth2.NewClient(ctx, src), nil
}

// getTokenFromWeb runs the authorization code flow, capturing the redirect on a local server.
func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	state := uuid.New().String()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("state") != state {
				http.Error(w, "State mismatch", http.StatusBadRequest)
				return
			}
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				select {
				case errCh <- fmt.Errorf("authorization code not found in redirect URL"):
				default:
				}
				return
			}
			fmt.Fprintf(w, "Authentication successful! You can close this window.")
			select {
			case codeCh <- code:
			default:
			}
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	defer server.Close()

	go func() {
		log.Printf("Local server listening on %s for OAuth2 redirect...", config.RedirectURL)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case errCh <- fmt.Errorf("HTTP server error: %w", err):
			default:
			}
		}
	}()

	// AccessTypeOffline makes Google hand out a refresh token.
	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Printf("Please open the following URL in your browser to authorize tasker:\n%s\n", authURL)
	log.Println("Waiting for authorization code...")

	select {
	case authCode := <-codeCh:
		exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := config.Exchange(exchangeCtx, authCode)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Minute):
		return nil, fmt.Errorf("authorization timed out. Please try again")
	}
}

// tokenFromFile reads an oauth2.Token from a JSON file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", file, err)
	}
	return tok, nil
}

// saveToken writes an oauth2.Token to path, readable by the owner only.
func saveToken(path string, token *oauth2.Token) error {
	fmt.Printf("Saving authentication token to: %s\n", path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// ResetToken removes a cached token so the next GetClient runs the browser flow again.
func ResetToken(configDir string) error {
	tokenFile := filepath.Join(configDir, TokenFile)
	if err := os.Remove(tokenFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete token file '%s': %w", tokenFile, err)
	}
	return nil
}

// Authorize runs the browser flow if needed and verifies the token works for the calendar scopes.
func Authorize(ctx context.Context, configDir string) error {
	scopes := []string{
		calendar.CalendarEventsScope,
		calendar.CalendarReadonlyScope,
	}
	client, err := GetClient(ctx, configDir, scopes)
	if err != nil {
		return fmt.Errorf("failed to get authenticated client for Calendar API: %w", err)
	}
	if _, err := calendar.NewService(ctx, option.WithHTTPClient(client)); err != nil {
		return fmt.Errorf("unable to retrieve Google Calendar service: %w", err)
	}
	return nil
}
