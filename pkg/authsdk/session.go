package authsdk

import (
	"context"
	"errors"
	"sync"
	"time"
)

// refreshSkew refreshes the access token this long before it expires.
const refreshSkew = 30 * time.Second

var ErrSessionClosed = errors.New("authsdk: session closed")

// Session holds an access token and refreshes it through the Client's
// refresh cookie when it is about to expire.
type Session struct {
	client *Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewSession wraps tokens previously obtained from client.
func (c *Client) NewSession(tokens *TokenResponse) *Session {
	s := &Session{client: c}
	s.set(tokens)
	return s
}

// LoginSession logs in and returns a Session for the new tokens.
func (c *Client) LoginSession(ctx context.Context, email, password string) (*Session, error) {
	tokens, err := c.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.NewSession(tokens), nil
}

func (s *Session) set(tokens *TokenResponse) {
	s.accessToken = tokens.AccessToken
	s.expiresAt = time.Now().
		Add(time.Duration(tokens.ExpiresIn) * time.Millisecond).
		Add(-refreshSkew)
}

// AccessToken returns a valid access token, refreshing it first if needed.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	token, _, err := s.token(ctx)
	return token, err
}

// token returns a valid access token together with the client it belongs
// to, both read under the lock.
func (s *Session) token(ctx context.Context) (string, *Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return "", nil, ErrSessionClosed
	}
	if s.accessToken != "" && time.Now().Before(s.expiresAt) {
		return s.accessToken, s.client, nil
	}

	tokens, err := s.client.Refresh(ctx)
	if err != nil {
		return "", nil, err
	}
	s.set(tokens)
	return s.accessToken, s.client, nil
}

// Me returns the identity of the session's user.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	token, client, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return client.Me(ctx, token)
}

// Close logs out, deleting the refresh token. The session cannot be used
// afterwards.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return ErrSessionClosed
	}
	err := s.client.Logout(ctx)
	s.accessToken = ""
	s.client = nil
	return err
}
