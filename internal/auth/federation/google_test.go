package federation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeGoogle(t *testing.T, verified bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form := r.PostForm
		if form.Get("code") != "good-code" ||
			form.Get("grant_type") != "authorization_code" ||
			form.Get("client_id") != "client-id" ||
			form.Get("client_secret") != "client-secret" ||
			form.Get("redirect_uri") != "http://localhost:8080/login/oauth2/code/google" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "google-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer google-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":            "google-sub-1",
			"email":          "ana@gmail.com",
			"email_verified": verified,
			"name":           "Ana",
			"picture":        "https://lh3.example.com/a.png",
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogle(srv *httptest.Server) *Google {
	return NewGoogle(GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "http://localhost:8080/login/oauth2/code/google",
		AuthURL:      srv.URL + "/auth",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
	})
}

func TestGoogleAuthCodeURL(t *testing.T) {
	t.Parallel()

	g := NewGoogle(GoogleConfig{ClientID: "client-id", CallbackURL: "http://localhost/cb"})
	u, err := url.Parse(g.AuthCodeURL("state-1"))
	require.NoError(t, err)

	require.Equal(t, "accounts.google.com", u.Host)
	q := u.Query()
	require.Equal(t, "client-id", q.Get("client_id"))
	require.Equal(t, "http://localhost/cb", q.Get("redirect_uri"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "state-1", q.Get("state"))
	require.Contains(t, q.Get("scope"), "email")
	require.Contains(t, q.Get("scope"), "profile")
}

func TestGoogleExchange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("verified profile", func(t *testing.T) {
		g := newTestGoogle(fakeGoogle(t, true))

		p, err := g.Exchange(ctx, "good-code")
		require.NoError(t, err)
		require.Equal(t, "google", p.Provider)
		require.Equal(t, "google-sub-1", p.ExternalID)
		require.Equal(t, "ana@gmail.com", p.Email)
		require.Equal(t, "Ana", p.Name)
		require.Equal(t, "https://lh3.example.com/a.png", p.AvatarURL)
	})

	t.Run("unverified email is dropped", func(t *testing.T) {
		g := newTestGoogle(fakeGoogle(t, false))

		p, err := g.Exchange(ctx, "good-code")
		require.NoError(t, err)
		require.Empty(t, p.Email)
		require.Equal(t, "google-sub-1", p.ExternalID)
	})

	t.Run("rejected code", func(t *testing.T) {
		g := newTestGoogle(fakeGoogle(t, true))

		_, err := g.Exchange(ctx, "bad-code")
		require.ErrorContains(t, err, "status 400")
	})
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	g := NewGoogle(GoogleConfig{})
	r := NewRegistry(g)

	p, err := r.Get("google")
	require.NoError(t, err)
	require.Same(t, g, p)

	_, err = r.Get("github")
	require.ErrorIs(t, err, ErrUnknownProvider)
	require.Equal(t, []string{"google"}, r.Names())

	var empty *Registry
	_, err = empty.Get("google")
	require.ErrorIs(t, err, ErrUnknownProvider)
}
