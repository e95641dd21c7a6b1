package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/passage/internal/auth/domain"
	"github.com/aussiebroadwan/passage/internal/auth/service"
	"github.com/aussiebroadwan/passage/pkg/authsdk"
	"github.com/aussiebroadwan/passage/pkg/httpx"
	"github.com/aussiebroadwan/passage/pkg/slogx"
)

// AuthHandler serves the four credential flows plus logout.
type AuthHandler struct {
	AuthService *service.AuthService
	Cookies     CookieConfig
}

// HandleRegister creates a password account.
//
//	@Summary		Register
//	@Description	Creates a password account and signs it in. The refresh token is set as an HttpOnly cookie scoped to /auth/refresh.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"email, password, name"
//	@Success		201		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.APIError	"Validation failed"
//	@Failure		409		{object}	authsdk.APIError	"Email already registered"
//	@Failure		429		{object}	authsdk.APIError	"Rate limit exceeded"
//	@Router			/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if apiErr := validateRegister(req); apiErr != nil {
		apiErr.WriteError(w)
		return
	}

	pair, err := h.AuthService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeTokens(w, http.StatusCreated, pair)
}

// HandleLogin signs in with email and password.
//
//	@Summary		Login
//	@Description	Verifies email and password. Every failure returns the same invalid_credentials error.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"email, password"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.APIError	"Validation failed"
//	@Failure		401		{object}	authsdk.APIError	"Invalid credentials"
//	@Failure		429		{object}	authsdk.APIError	"Rate limit exceeded"
//	@Router			/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if apiErr := validateLogin(req); apiErr != nil {
		apiErr.WriteError(w)
		return
	}

	pair, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeTokens(w, http.StatusOK, pair)
}

// HandleRefresh rotates the refresh token cookie.
//
//	@Summary		Refresh
//	@Description	Consumes the refreshToken cookie and issues a new access token and refresh cookie. A refresh token works once.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.TokenResponse
//	@Failure		401	{object}	authsdk.APIError	"Missing, unknown or expired refresh token"
//	@Failure		429	{object}	authsdk.APIError	"Rate limit exceeded"
//	@Router			/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	pair, err := h.AuthService.Refresh(r.Context(), cookieValue(r, authsdk.RefreshCookieName))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.Cookies.clearRefresh(w)
		}
		writeServiceError(w, r, err)
		return
	}
	h.writeTokens(w, http.StatusOK, pair)
}

// HandleLogout deletes the presented refresh token.
//
//	@Summary		Logout
//	@Description	Deletes the refresh token in the refreshToken cookie and expires the cookie. Succeeds even without a cookie.
//	@Tags			Auth
//	@Success		204
//	@Failure		500	{object}	authsdk.APIError	"Internal server error"
//	@Router			/auth/refresh [delete].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context(), cookieValue(r, authsdk.RefreshCookieName)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.Cookies.clearRefresh(w)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleExchange trades a federated login code for tokens.
//
//	@Summary		Exchange authorization code
//	@Description	Exchanges the one-time code from a federated login redirect. The code is deleted on first use whatever the outcome.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ExchangeRequest	true	"code"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.APIError	"Validation failed"
//	@Failure		401		{object}	authsdk.APIError	"Unknown, used or expired code"
//	@Failure		429		{object}	authsdk.APIError	"Rate limit exceeded"
//	@Router			/auth/oauth2/exchange [post].
func (h *AuthHandler) HandleExchange(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ExchangeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if apiErr := validateExchange(req); apiErr != nil {
		apiErr.WriteError(w)
		return
	}

	pair, err := h.AuthService.ExchangeCode(r.Context(), req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeTokens(w, http.StatusOK, pair)
}

func (h *AuthHandler) writeTokens(w http.ResponseWriter, status int, pair domain.TokenPair) {
	h.Cookies.setRefresh(w, pair.RefreshToken)
	httpx.WriteJSON(w, status, authsdk.TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   pair.ExpiresIn.Milliseconds(),
	})
}

func writeDecodeError(w http.ResponseWriter, err error) {
	desc := "request body must be a JSON object"
	switch {
	case errors.Is(err, httpx.ErrUnsupportedMediaType):
		desc = "content type must be application/json"
	case errors.Is(err, httpx.ErrEmptyBody):
		desc = "request body is empty"
	}
	authsdk.NewAPIError(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, desc).WriteError(w)
}

// writeServiceError maps service errors onto API errors. Anything unexpected
// is logged here and reported as an opaque server_error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrAlreadyExists):
		authsdk.ErrAlreadyExists.WriteError(w)
	case errors.Is(err, service.ErrInvalidInput):
		authsdk.ErrInvalidRequest.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}
