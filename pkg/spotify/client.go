package spotify

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// Config holds client configuration.
type Config struct {
	ClientID    string       // Required: application client id
	RedirectURI string       // Required: registered redirect URI
	Scopes      []string     // Optional: defaults to ScopeUserTopRead
	HTTPClient  *http.Client // Optional: HTTP client (defaults to http.DefaultClient)
	BaseURL     string       // Optional: Web API base URL (used for testing)
	AccountsURL string       // Optional: accounts service base URL (used for testing)
	MaxRetries  int          // Optional: extra attempts on rate limits and 5xx (default 0)
	Logger      Logger       // Optional: Logger interface for debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client is the main entry point for Spotify Web API operations.
type Client struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	baseURL    string
	maxRetries int
	logger     Logger

	mu     sync.Mutex
	tokens oauth2.TokenSource

	auth *AuthService
	user *UserService
}

const (
	// DefaultBaseURL is the default Web API endpoint.
	DefaultBaseURL = "https://api.spotify.com/v1"

	// DefaultAccountsURL is the default accounts service endpoint.
	DefaultAccountsURL = "https://accounts.spotify.com"

	// ScopeUserTopRead grants read access to a user's top artists and tracks.
	ScopeUserTopRead = "user-top-read"
)

// NewClient creates a new Spotify API client.
//
// Returns an error if required configuration (ClientID, RedirectURI) is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("spotify: ClientID is required")
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("spotify: RedirectURI is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	accountsURL := cfg.AccountsURL
	if accountsURL == "" {
		accountsURL = DefaultAccountsURL
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{ScopeUserTopRead}
	}

	c := &Client{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   accountsURL + "/authorize",
				TokenURL:  accountsURL + "/api/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		baseURL:    baseURL,
		maxRetries: cfg.MaxRetries,
		logger:     cfg.Logger,
	}

	c.auth = &AuthService{client: c}
	c.user = &UserService{client: c}

	return c, nil
}

// Auth returns the authentication service.
func (c *Client) Auth() *AuthService {
	return c.auth
}

// User returns the current-user service.
func (c *Client) User() *UserService {
	return c.user
}

// SetToken installs a token for authenticated requests. Expired tokens are
// refreshed with the token's refresh token on first use.
func (c *Client) SetToken(tok *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tok == nil {
		c.tokens = nil
		return
	}
	c.tokens = oauth2.ReuseTokenSource(tok, c.oauth.TokenSource(c.oauthContext(context.Background()), tok))
}

// HasToken reports whether a token has been installed.
func (c *Client) HasToken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens != nil
}

// Token returns the current, possibly refreshed, token.
func (c *Client) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	src := c.tokens
	c.mu.Unlock()

	if src == nil {
		return nil, ErrNoToken
	}

	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("spotify: failed to refresh token: %w", err)
	}
	return tok, nil
}

// oauthContext attaches the configured HTTP client for oauth2 requests.
func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
