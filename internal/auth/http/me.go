package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/passage/internal/auth/service"
	"github.com/aussiebroadwan/passage/pkg/authsdk"
	"github.com/aussiebroadwan/passage/pkg/httpx"
	"github.com/aussiebroadwan/passage/pkg/slogx"
)

type MeHandler struct {
	UserService *service.UserService
}

var errUnknownSubject = authsdk.NewAPIError(http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken, "token subject does not exist")

// ServeHTTP returns the authenticated user.
//
//	@Summary		Current user
//	@Description	Returns the identity behind the bearer access token.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.APIError	"Missing, invalid or expired access token"
//	@Failure		500	{object}	authsdk.APIError	"Internal server error"
//	@Router			/auth/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		errUnknownSubject.WriteError(w)
		return
	}

	user, err := h.UserService.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			slogx.FromContext(ctx).Warn("token for unknown user", "user_id", userID)
			errUnknownSubject.WriteError(w)
			return
		}
		slogx.FromContext(ctx).Error("failed to load user", "user_id", userID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Provider:  user.Provider,
	})
}
