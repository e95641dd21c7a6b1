package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/passage/internal/auth/federation"
	"github.com/aussiebroadwan/passage/internal/auth/service"
	"github.com/aussiebroadwan/passage/pkg/slogx"
	"github.com/google/uuid"
)

// Reasons sent to the front end in the ?error= parameter.
const (
	reasonUnsupportedProvider = "unsupported identity provider"
	reasonInvalidState        = "login session expired, please try again"
	reasonProviderDenied      = "sign-in was cancelled at the identity provider"
	reasonProviderFailed      = "could not read your profile from the identity provider"
	reasonMissingEmail        = "the identity provider did not share a verified email address"
	reasonServerError         = "sign-in failed, please try again later"
)

// FederatedHandler drives the browser through an OAuth2 authorization code
// login with an external provider. Failures never reach an API client; they
// are reported on the redirect URI.
type FederatedHandler struct {
	Providers        *federation.Registry
	FederatedService *service.FederatedService
	Cookies          CookieConfig

	// RedirectURI is the front-end page receiving ?code= or ?error=.
	RedirectURI string
}

// HandleStart redirects to the provider's consent page.
//
//	@Summary		Start federated login
//	@Description	Sets a state cookie and redirects the browser to the identity provider.
//	@Tags			Federated
//	@Param			provider	path	string	true	"Provider name"	Enums(google)
//	@Success		302
//	@Router			/oauth2/authorization/{provider} [get].
func (h *FederatedHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	p, err := h.Providers.Get(r.PathValue("provider"))
	if err != nil {
		h.fail(w, r, reasonUnsupportedProvider, err)
		return
	}

	state := uuid.NewString()
	h.Cookies.setState(w, state)
	http.Redirect(w, r, p.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback completes the provider round trip.
//
//	@Summary		Federated login callback
//	@Description	Checks state, exchanges the provider code for a profile and redirects to the front end with a one-time code. Tokens are never put in the URL.
//	@Tags			Federated
//	@Param			provider	path	string	true	"Provider name"	Enums(google)
//	@Param			code		query	string	false	"Provider authorization code"
//	@Param			state		query	string	false	"State from the start request"
//	@Param			error		query	string	false	"Provider error"
//	@Success		302
//	@Router			/login/oauth2/code/{provider} [get].
func (h *FederatedHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	expected := cookieValue(r, stateCookieName)
	h.Cookies.clearState(w)

	p, err := h.Providers.Get(r.PathValue("provider"))
	if err != nil {
		h.fail(w, r, reasonUnsupportedProvider, err)
		return
	}

	if e := q.Get("error"); e != "" {
		h.fail(w, r, reasonProviderDenied, errors.New(e))
		return
	}

	state := q.Get("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		h.fail(w, r, reasonInvalidState, errors.New("state mismatch"))
		return
	}

	profile, err := p.Exchange(ctx, q.Get("code"))
	if err != nil {
		h.fail(w, r, reasonProviderFailed, err)
		return
	}

	code, err := h.FederatedService.CompleteLogin(ctx, profile)
	switch {
	case errors.Is(err, service.ErrUnsupportedProvider):
		h.fail(w, r, reasonUnsupportedProvider, err)
		return
	case errors.Is(err, service.ErrMissingEmail):
		h.fail(w, r, reasonMissingEmail, err)
		return
	case err != nil:
		h.fail(w, r, reasonServerError, err)
		return
	}

	h.redirect(w, r, "code", code)
}

func (h *FederatedHandler) fail(w http.ResponseWriter, r *http.Request, reason string, err error) {
	slogx.FromContext(r.Context()).Warn("federated login failed",
		"provider", r.PathValue("provider"),
		"reason", reason,
		"err", err,
	)
	h.redirect(w, r, "error", reason)
}

func (h *FederatedHandler) redirect(w http.ResponseWriter, r *http.Request, key, value string) {
	u, err := url.Parse(h.RedirectURI)
	if err != nil {
		slogx.FromContext(r.Context()).Error("invalid redirect uri", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	http.Redirect(w, r, u.String(), http.StatusFound)
}
