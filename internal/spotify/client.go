package spotify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
)

const (
	defaultAPIBaseURL = "https://api.spotify.com/v1"
	defaultAuthURL    = "https://accounts.spotify.com/authorize"
	defaultTokenURL   = "https://accounts.spotify.com/api/token"

	// Scopes needed to create playlists on the user's behalf.
	scopePlaylistModifyPublic  = "playlist-modify-public"
	scopePlaylistModifyPrivate = "playlist-modify-private"

	maxRetryAfter = 30 * time.Second
)

// ClientConfig configures the Spotify Web API client.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	APIBaseURL   string // overridable for tests
	AuthURL      string
	TokenURL     string
	Timeout      time.Duration
}

// Client wraps the OAuth flow and authenticated Web API calls. Token
// refreshes performed by the underlying OAuth transport are written back
// to the token repository so rotated refresh tokens survive restarts.
type Client struct {
	oauth      *oauth2.Config
	tokens     *TokenRepository
	apiBaseURL string
	timeout    time.Duration
	logger     *log.Logger
}

func NewClient(cfg ClientConfig, tokens *TokenRepository, logger *log.Logger) *Client {
	apiBaseURL := cfg.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = defaultAuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{scopePlaylistModifyPublic, scopePlaylistModifyPrivate},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		tokens:     tokens,
		apiBaseURL: apiBaseURL,
		timeout:    timeout,
		logger:     logger,
	}
}

// Configured reports whether client credentials are present.
func (c *Client) Configured() bool {
	return c.oauth.ClientID != "" && c.oauth.ClientSecret != ""
}

// AuthURL builds the provider authorization URL for the given state.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for tokens and persists them.
func (c *Client) Exchange(ctx context.Context, userID int64, code string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return apperrors.NewRemoteServiceError("Spotify code exchange failed", nil)
	}
	if err := c.tokens.Upsert(userID, token); err != nil {
		return err
	}
	return nil
}

// Linked reports whether the user has a stored Spotify token.
func (c *Client) Linked(userID int64) (bool, error) {
	token, err := c.tokens.Get(userID)
	if err != nil {
		return false, err
	}
	return token != nil, nil
}

// notLinked is the canonical error for users without a Spotify connection.
func notLinked() *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrorCodeSpotifyNotLinked,
		"Spotify account not linked", 400, nil)
}

// tokenSourceFor returns a refreshing, persisting token source for the user.
func (c *Client) tokenSourceFor(ctx context.Context, userID int64) (oauth2.TokenSource, error) {
	stored, err := c.tokens.Get(userID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, notLinked()
	}
	return &persistingTokenSource{
		userID: userID,
		tokens: c.tokens,
		src:    c.oauth.TokenSource(ctx, stored),
		last:   stored,
		logger: c.logger,
	}, nil
}

// persistingTokenSource writes refreshed tokens back to storage. Spotify
// may rotate the refresh token on renewal; losing the new one would break
// every later refresh.
type persistingTokenSource struct {
	userID int64
	tokens *TokenRepository
	src    oauth2.TokenSource
	last   *oauth2.Token
	logger *log.Logger
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	if p.last == nil || token.AccessToken != p.last.AccessToken {
		if token.RefreshToken == "" && p.last != nil {
			token.RefreshToken = p.last.RefreshToken
		}
		if err := p.tokens.Upsert(p.userID, token); err != nil {
			p.logger.Printf("failed to persist refreshed spotify token for user %d: %v", p.userID, err)
		}
		p.last = token
	}
	return token, nil
}

// apiRequest performs one authenticated Web API call. A 429 is retried a
// single time after honoring Retry-After; a second 429 surfaces as a rate
// limit error.
func (c *Client) apiRequest(ctx context.Context, source oauth2.TokenSource, method, path string, body []byte) ([]byte, error) {
	retried := false
	for {
		responseBody, status, retryAfter, err := c.doRequest(ctx, source, method, path, body)
		if err != nil {
			return nil, err
		}

		switch {
		case status >= 200 && status < 300:
			return responseBody, nil
		case status == http.StatusTooManyRequests && !retried:
			retried = true
			if err := waitRetryAfter(ctx, retryAfter); err != nil {
				return nil, err
			}
		case status == http.StatusTooManyRequests:
			return nil, apperrors.NewRateLimitError("Spotify rate limit exceeded")
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return nil, apperrors.NewAppError(apperrors.ErrorCodeSpotifyNotLinked,
				"Spotify authorization rejected; relink your account", 400, nil)
		default:
			return nil, apperrors.NewRemoteServiceError("Spotify API error",
				map[string]any{"status": status, "path": path})
		}
	}
}

func (c *Client) doRequest(ctx context.Context, source oauth2.TokenSource, method, path string, body []byte) ([]byte, int, string, error) {
	token, err := source.Token()
	if err != nil {
		return nil, 0, "", apperrors.NewRemoteServiceError("Spotify token refresh failed", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, c.apiBaseURL+path, reader)
	if err != nil {
		return nil, 0, "", fmt.Errorf("build request: %w", err)
	}
	token.SetAuthHeader(request)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, 0, "", apperrors.NewRemoteServiceError("Spotify request failed", map[string]any{"path": path})
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, 4<<20))
	if err != nil {
		return nil, 0, "", apperrors.NewRemoteServiceError("Spotify response unreadable", nil)
	}
	return responseBody, response.StatusCode, response.Header.Get("Retry-After"), nil
}

func waitRetryAfter(ctx context.Context, retryAfter string) error {
	wait := time.Second
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		wait = time.Duration(seconds) * time.Second
	}
	if wait > maxRetryAfter {
		return apperrors.NewRateLimitError("Spotify rate limit exceeded")
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
