package authsdk

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ExchangeRequest is the body of POST /auth/oauth2/exchange.
type ExchangeRequest struct {
	Code string `json:"code"`
}

// TokenResponse is returned by register, login, refresh and code exchange.
// The refresh token is never part of the body; it travels in the
// RefreshCookieName cookie.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`

	// TokenType is always "Bearer".
	TokenType string `json:"tokenType"`

	// ExpiresIn is the access token lifetime in milliseconds.
	ExpiresIn int64 `json:"expiresIn"`
}

// RefreshCookieName is the HttpOnly cookie carrying the refresh token.
const RefreshCookieName = "refreshToken"

// UserResponse is returned by GET /auth/me.
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`

	// Provider is "password" or "federated:<provider>".
	Provider string `json:"provider"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime,omitempty"`
	Version string `json:"version,omitempty"`

	// Checks is only present on /readyz.
	Checks *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
}
