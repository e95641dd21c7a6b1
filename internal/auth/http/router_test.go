package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/passage/internal/auth/domain"
	"github.com/aussiebroadwan/passage/internal/auth/federation"
	"github.com/aussiebroadwan/passage/internal/auth/metrics"
	"github.com/aussiebroadwan/passage/internal/auth/service"
	"github.com/aussiebroadwan/passage/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/passage/pkg/authsdk"
	"github.com/aussiebroadwan/passage/pkg/cryptox"
	"github.com/aussiebroadwan/passage/pkg/httpx"
	"github.com/aussiebroadwan/passage/pkg/jwtx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testRedirectURI = "http://localhost:5173/oauth2/callback"
	testRefreshTTL  = 7 * 24 * time.Hour
)

type testServer struct {
	handler  http.Handler
	store    *sqlite.Store
	provider *federation.MockProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.MemoryDSN)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec, err := jwtx.NewHS256Codec([]byte(strings.Repeat("s", 32)), "passage-test", 15*time.Minute)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	provider := federation.NewMockProvider(ctrl)
	provider.EXPECT().Name().Return("google").AnyTimes()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRouter(RouterConfig{
		BuildVersion: "test",
		Cookies:      CookieConfig{Secure: true, RefreshTTL: testRefreshTTL},
		CORS: httpx.CORSConfig{
			AllowedOrigins:   []string{"http://localhost:5173"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
		},
		RedirectURI:    testRedirectURI,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
	}, codec, st, logger)

	r.AuthService = &service.AuthService{
		Store:   st,
		Hasher:  cryptox.NewPasswordHasher("pepper"),
		Issuer:  &service.TokenIssuer{Access: codec, RefreshTTL: testRefreshTTL},
		Metrics: collector,
	}
	r.FederatedService = &service.FederatedService{Store: st, Metrics: collector}
	r.UserService = &service.UserService{Store: st}
	r.Providers = federation.NewRegistry(provider)
	r.ApplyRoutes()

	return &testServer{handler: r, store: st, provider: provider}
}

func (s *testServer) do(t *testing.T, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value}) }
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func (s *testServer) register(t *testing.T, email string) (authsdk.TokenResponse, *http.Cookie) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/register", authsdk.RegisterRequest{
		Email: email, Password: "secret123", Name: "Ana",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authsdk.TokenResponse](t, rec), findCookie(t, rec, authsdk.RefreshCookieName)
}

func TestRegisterEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("sets the refresh cookie", func(t *testing.T) {
		s := newTestServer(t)

		rec := s.do(t, http.MethodPost, "/auth/register", authsdk.RegisterRequest{
			Email: "ana@test.com", Password: "secret123", Name: "Ana",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		body := decode[authsdk.TokenResponse](t, rec)
		require.NotEmpty(t, body.AccessToken)
		require.Equal(t, "Bearer", body.TokenType)
		require.EqualValues(t, (15 * time.Minute).Milliseconds(), body.ExpiresIn)

		c := findCookie(t, rec, authsdk.RefreshCookieName)
		require.NotEmpty(t, c.Value)
		require.True(t, c.HttpOnly)
		require.True(t, c.Secure)
		require.Equal(t, http.SameSiteStrictMode, c.SameSite)
		require.Equal(t, RefreshPath, c.Path)
		require.Equal(t, int(testRefreshTTL.Seconds()), c.MaxAge)

		require.NotContains(t, rec.Body.String(), c.Value)
	})

	t.Run("validation", func(t *testing.T) {
		s := newTestServer(t)

		rec := s.do(t, http.MethodPost, "/auth/register", authsdk.RegisterRequest{
			Email: "Ana <ana@test.com>", Password: "123", Name: " ",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		body := decode[authsdk.APIError](t, rec)
		require.Equal(t, authsdk.ErrorCodeInvalidRequest, body.Code)
		require.Contains(t, body.Fields, "email")
		require.Contains(t, body.Fields, "password")
		require.Contains(t, body.Fields, "name")
	})

	t.Run("malformed bodies", func(t *testing.T) {
		s := newTestServer(t)

		rec := s.do(t, http.MethodPost, "/auth/register", `{"email":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = s.do(t, http.MethodPost, "/auth/register", `{"email":"a@b.c","password":"secret1","name":"A","role":"admin"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = s.do(t, http.MethodPost, "/auth/register", "email=a", func(r *http.Request) {
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "application/json")
	})

	t.Run("duplicate email", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "ana@test.com")

		rec := s.do(t, http.MethodPost, "/auth/register", authsdk.RegisterRequest{
			Email: "ANA@test.com", Password: "secret456", Name: "Ana2",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, authsdk.ErrorCodeAlreadyExists, decode[authsdk.APIError](t, rec).Code)
	})
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	s.register(t, "ana@test.com")

	rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "ana@test.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, findCookie(t, rec, authsdk.RefreshCookieName).Value)

	wrong := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "ana@test.com", Password: "nope-nope"})
	unknown := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "bob@test.com", Password: "secret123"})

	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.JSONEq(t, wrong.Body.String(), unknown.Body.String())
	require.Empty(t, wrong.Result().Cookies())
}

func TestLoginRateLimit(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	var last int
	for range httpx.StrictLimit.Burst + 1 {
		rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "ana@test.com", Password: "secret123"})
		last = rec.Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)

	// A different email has its own bucket.
	rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "bob@test.com", Password: "secret123"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	_, first := s.register(t, "ana@test.com")

	t.Run("missing cookie", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, RefreshPath, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	rec := s.do(t, http.MethodPost, RefreshPath, nil, withCookie(first))
	require.Equal(t, http.StatusOK, rec.Code)
	second := findCookie(t, rec, authsdk.RefreshCookieName)
	require.NotEqual(t, first.Value, second.Value)

	t.Run("replay is rejected and clears the cookie", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, RefreshPath, nil, withCookie(first))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, authsdk.ErrorCodeInvalidCredentials, decode[authsdk.APIError](t, rec).Code)
		require.Negative(t, findCookie(t, rec, authsdk.RefreshCookieName).MaxAge)
	})

	t.Run("rotated cookie still works", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, RefreshPath, nil, withCookie(second))
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	_, cookie := s.register(t, "ana@test.com")

	rec := s.do(t, http.MethodDelete, RefreshPath, nil, withCookie(cookie))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Negative(t, findCookie(t, rec, authsdk.RefreshCookieName).MaxAge)

	rec = s.do(t, http.MethodDelete, RefreshPath, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodPost, RefreshPath, nil, withCookie(cookie))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	tokens, _ := s.register(t, "ana@test.com")

	rec := s.do(t, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

	rec = s.do(t, http.MethodGet, "/auth/me", nil, withBearer(tokens.AccessToken+"x"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/auth/me", nil, withBearer(tokens.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)

	me := decode[authsdk.UserResponse](t, rec)
	require.Equal(t, "ana@test.com", me.Email)
	require.Equal(t, "Ana", me.Name)
	require.Equal(t, domain.OriginPassword, me.Provider)
	require.NotEmpty(t, me.ID)
}

func TestFederatedLogin(t *testing.T) {
	t.Parallel()

	profile := domain.FederatedProfile{
		Provider:   "google",
		ExternalID: "google-sub-1",
		Name:       "Ana",
		Email:      "ana@gmail.com",
		AvatarURL:  "https://lh3.example.com/a.png",
	}

	start := func(t *testing.T, s *testServer) *http.Cookie {
		t.Helper()
		s.provider.EXPECT().AuthCodeURL(gomock.Any()).DoAndReturn(func(state string) string {
			return "https://accounts.example.com/auth?state=" + state
		})

		rec := s.do(t, http.MethodGet, "/oauth2/authorization/google", nil)
		require.Equal(t, http.StatusFound, rec.Code)

		state := findCookie(t, rec, stateCookieName)
		require.True(t, state.HttpOnly)
		require.Equal(t, http.SameSiteLaxMode, state.SameSite)
		require.Equal(t, "https://accounts.example.com/auth?state="+state.Value, rec.Header().Get("Location"))
		return state
	}

	redirectQuery := func(t *testing.T, rec *httptest.ResponseRecorder) url.Values {
		t.Helper()
		require.Equal(t, http.StatusFound, rec.Code)
		u, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "localhost:5173", u.Host)
		require.Equal(t, "/oauth2/callback", u.Path)
		return u.Query()
	}

	t.Run("code round trip", func(t *testing.T) {
		s := newTestServer(t)
		state := start(t, s)

		s.provider.EXPECT().Exchange(gomock.Any(), "provider-code").Return(profile, nil)

		rec := s.do(t, http.MethodGet, "/login/oauth2/code/google?code=provider-code&state="+state.Value, nil, withCookie(state))
		q := redirectQuery(t, rec)
		require.Empty(t, q.Get("error"))
		code := q.Get("code")
		require.NotEmpty(t, code)
		require.NotContains(t, rec.Header().Get("Location"), "accessToken")

		ex := s.do(t, http.MethodPost, "/auth/oauth2/exchange", authsdk.ExchangeRequest{Code: code})
		require.Equal(t, http.StatusOK, ex.Code)
		tokens := decode[authsdk.TokenResponse](t, ex)
		require.NotEmpty(t, findCookie(t, ex, authsdk.RefreshCookieName).Value)

		me := s.do(t, http.MethodGet, "/auth/me", nil, withBearer(tokens.AccessToken))
		require.Equal(t, http.StatusOK, me.Code)
		user := decode[authsdk.UserResponse](t, me)
		require.Equal(t, "federated:google", user.Provider)
		require.Equal(t, profile.AvatarURL, user.AvatarURL)

		again := s.do(t, http.MethodPost, "/auth/oauth2/exchange", authsdk.ExchangeRequest{Code: code})
		require.Equal(t, http.StatusUnauthorized, again.Code)

		login := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: profile.Email, Password: "secret123"})
		require.Equal(t, http.StatusUnauthorized, login.Code)
	})

	t.Run("state mismatch", func(t *testing.T) {
		s := newTestServer(t)
		state := start(t, s)

		rec := s.do(t, http.MethodGet, "/login/oauth2/code/google?code=provider-code&state=forged", nil, withCookie(state))
		q := redirectQuery(t, rec)
		require.Empty(t, q.Get("code"))
		require.Equal(t, reasonInvalidState, q.Get("error"))
	})

	t.Run("provider denied consent", func(t *testing.T) {
		s := newTestServer(t)
		state := start(t, s)

		rec := s.do(t, http.MethodGet, "/login/oauth2/code/google?error=access_denied&state="+state.Value, nil, withCookie(state))
		require.Equal(t, reasonProviderDenied, redirectQuery(t, rec).Get("error"))
	})

	t.Run("missing email", func(t *testing.T) {
		s := newTestServer(t)
		state := start(t, s)

		noEmail := profile
		noEmail.Email = ""
		s.provider.EXPECT().Exchange(gomock.Any(), "provider-code").Return(noEmail, nil)

		rec := s.do(t, http.MethodGet, "/login/oauth2/code/google?code=provider-code&state="+state.Value, nil, withCookie(state))
		require.Equal(t, reasonMissingEmail, redirectQuery(t, rec).Get("error"))
	})

	t.Run("unknown provider", func(t *testing.T) {
		s := newTestServer(t)

		rec := s.do(t, http.MethodGet, "/oauth2/authorization/myspace", nil)
		require.Equal(t, reasonUnsupportedProvider, redirectQuery(t, rec).Get("error"))
	})
}

func TestSystemEndpoints(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/livez", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", decode[authsdk.HealthResponse](t, rec).Version)

	rec = s.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[authsdk.HealthResponse](t, rec)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)

	s.register(t, "ana@test.com")

	rec = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `passage_auth_attempts_total{flow="register",outcome="success"} 1`)
	require.Contains(t, rec.Body.String(), `route="POST /auth/register"`)

	rec = s.do(t, http.MethodGet, "/livez", nil, func(r *http.Request) { r.Header.Set("X-Request-ID", "req-1") })
	require.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}

func TestReadyzStoreDown(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	require.NoError(t, s.store.Close())

	rec := s.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "degraded", decode[authsdk.HealthResponse](t, rec).Status)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodOptions, "/auth/login", nil, func(r *http.Request) {
		r.Header.Set("Origin", "http://localhost:5173")
		r.Header.Set("Access-Control-Request-Method", "POST")
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
