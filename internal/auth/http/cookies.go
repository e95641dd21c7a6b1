package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/passage/pkg/authsdk"
)

// RefreshPath is the only path the refresh cookie is sent to.
const RefreshPath = "/auth/refresh"

const (
	stateCookieName = "oauth2_state"
	stateCookiePath = "/login/oauth2/code/"
	stateCookieTTL  = 10 * time.Minute
)

// CookieConfig controls the cookies set by the auth handlers.
type CookieConfig struct {
	// Secure must be true outside local development.
	Secure bool

	// RefreshTTL doubles as the refresh cookie's Max-Age.
	RefreshTTL time.Duration
}

// setRefresh stores the refresh token where only the refresh endpoint will
// ever see it.
func (c CookieConfig) setRefresh(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authsdk.RefreshCookieName,
		Value:    value,
		Path:     RefreshPath,
		MaxAge:   int(c.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c CookieConfig) clearRefresh(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authsdk.RefreshCookieName,
		Value:    "",
		Path:     RefreshPath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// setState binds an OAuth2 state value to the browser. SameSite must be Lax:
// the callback arrives as a cross-site top-level navigation from the
// provider.
func (c CookieConfig) setState(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     stateCookiePath,
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) clearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     stateCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
