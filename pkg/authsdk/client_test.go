package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeServer mimics the cookie handling of the real service closely enough
// to exercise the client's jar.
func fakeServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var refreshes atomic.Int32
	mux := http.NewServeMux()

	setCookie := func(w http.ResponseWriter, value string) {
		http.SetCookie(w, &http.Cookie{
			Name:     RefreshCookieName,
			Value:    value,
			Path:     "/auth/refresh",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	}
	writeTokens := func(w http.ResponseWriter, status int, access string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(TokenResponse{AccessToken: access, TokenType: "Bearer", ExpiresIn: 900000})
	}

	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Email == "taken@test.com" {
			ErrAlreadyExists.WriteError(w)
			return
		}
		setCookie(w, "r0")
		writeTokens(w, http.StatusCreated, "a0")
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret123" {
			ErrInvalidCredentials.WriteError(w)
			return
		}
		setCookie(w, "r1")
		writeTokens(w, http.StatusOK, "a1")
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(RefreshCookieName)
		if err != nil || ck.Value != "r1" {
			ErrInvalidCredentials.WriteError(w)
			return
		}
		refreshes.Add(1)
		setCookie(w, "r2")
		writeTokens(w, http.StatusOK, "a2")
	})
	mux.HandleFunc("DELETE /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: RefreshCookieName, Path: "/auth/refresh", MaxAge: -1})
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			NewAPIError(http.StatusUnauthorized, ErrorCodeInvalidToken, "missing bearer token").WriteError(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(UserResponse{ID: "u1", Email: "ana@test.com", Name: "Ana", Provider: "password"})
	})
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
	})
	mux.HandleFunc("GET /broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &refreshes
}

func newTestClient(t *testing.T) (*Client, *atomic.Int32) {
	t.Helper()
	srv, refreshes := fakeServer(t)
	c, err := NewClient(srv.URL + "/")
	require.NoError(t, err)
	return c, refreshes
}

func TestClientLoginRefreshLogout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestClient(t)

	tokens, err := c.Login(ctx, "ana@test.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, "a1", tokens.AccessToken)
	require.Equal(t, "Bearer", tokens.TokenType)
	require.Equal(t, "r1", c.RefreshCookie())

	tokens, err = c.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, "a2", tokens.AccessToken)
	require.Equal(t, "r2", c.RefreshCookie())

	_, err = c.Refresh(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, ErrorCodeInvalidCredentials, apiErr.Code)

	require.NoError(t, c.Logout(ctx))
	require.Empty(t, c.RefreshCookie())
}

func TestClientErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestClient(t)

	_, err := c.Register(ctx, RegisterRequest{Email: "taken@test.com", Password: "secret123", Name: "Ana"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)
	require.Equal(t, ErrorCodeAlreadyExists, apiErr.Code)

	_, err = c.Login(ctx, "ana@test.com", "wrong")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, ErrorCodeInvalidCredentials, apiErr.Code)

	_, err = c.Me(ctx, "")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, ErrorCodeInvalidToken, apiErr.Code)

	var target struct{}
	resp, err := c.doJSON(ctx, http.MethodGet, "/broken", nil, nil)
	require.NoError(t, err)
	err = decodeJSON(resp, &target, http.StatusOK)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, ErrorCodeServerError, apiErr.Code)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestClientRegisterAndMe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestClient(t)

	tokens, err := c.Register(ctx, RegisterRequest{Email: "ana@test.com", Password: "secret123", Name: "Ana"})
	require.NoError(t, err)
	require.Equal(t, "a0", tokens.AccessToken)

	me, err := c.Me(ctx, tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "ana@test.com", me.Email)

	health, err := c.Liveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
}

func TestSessionRefreshesExpiredToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, refreshes := newTestClient(t)

	session, err := c.LoginSession(ctx, "ana@test.com", "secret123")
	require.NoError(t, err)

	token, err := session.AccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "a1", token)
	require.Zero(t, refreshes.Load())

	// Force expiry.
	session.mu.Lock()
	session.expiresAt = time.Now().Add(-time.Second)
	session.mu.Unlock()

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "u1", me.ID)
	require.EqualValues(t, 1, refreshes.Load())

	require.NoError(t, session.Close(ctx))
	_, err = session.AccessToken(ctx)
	require.True(t, errors.Is(err, ErrSessionClosed))
}

func TestSessionMeRacingClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestClient(t)

	session, err := c.LoginSession(ctx, "ana@test.com", "secret123")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := session.Me(ctx)
			errs <- err
		}()
	}
	closeErr := session.Close(ctx)
	wg.Wait()
	close(errs)

	require.NoError(t, closeErr)
	for err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrSessionClosed)
		}
	}
}

func TestAPIErrorWithFields(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	ErrInvalidRequest.WithFields(map[string]string{"email": "must be a valid email address"}).WriteError(rec)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{
		"error": "invalid_request",
		"error_description": "the request is malformed or missing required fields",
		"errors": {"email": "must be a valid email address"}
	}`, rec.Body.String())
	require.Nil(t, ErrInvalidRequest.Fields, "WithFields must not mutate the shared error")
}
