package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Client talks to the passage HTTP API. It is safe for concurrent use, but
// all calls share one cookie jar and therefore one refresh token.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a fresh cookie jar and a 10s timeout.
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
			// Federated endpoints answer with redirects the caller wants to see.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Register creates a password account and signs it in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	return c.postForTokens(ctx, "/auth/register", req, http.StatusCreated)
}

// Login signs in with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	return c.postForTokens(ctx, "/auth/login", LoginRequest{Email: email, Password: password}, http.StatusOK)
}

// Refresh rotates the refresh cookie held in the jar.
func (c *Client) Refresh(ctx context.Context) (*TokenResponse, error) {
	return c.postForTokens(ctx, "/auth/refresh", nil, http.StatusOK)
}

// ExchangeCode trades a one-time authorization code from a federated login
// redirect for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	return c.postForTokens(ctx, "/auth/oauth2/exchange", ExchangeRequest{Code: code}, http.StatusOK)
}

// Logout deletes the refresh token held in the jar. It succeeds even when no
// session exists.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.doJSON(ctx, http.MethodDelete, "/auth/refresh", nil, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// Me returns the identity behind accessToken.
func (c *Client) Me(ctx context.Context, accessToken string) (*UserResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// RefreshCookie returns the refresh token currently held in the jar, or ""
// when there is none.
func (c *Client) RefreshCookie() string {
	if c.HTTPClient.Jar == nil {
		return ""
	}
	u, err := url.Parse(c.url("/auth/refresh"))
	if err != nil {
		return ""
	}
	for _, ck := range c.HTTPClient.Jar.Cookies(u) {
		if ck.Name == RefreshCookieName {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) postForTokens(ctx context.Context, path string, body any, expected int) (*TokenResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, path, body, nil)
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, expected); err != nil {
		return nil, err
	}
	return &tokens, nil
}
