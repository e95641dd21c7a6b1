package domain

import (
	"strings"
	"time"
)

// OriginPassword marks accounts created through registration.
const OriginPassword = "password"

// FederatedOrigin returns the origin tag for accounts created by a federated
// login, e.g. "federated:google".
func FederatedOrigin(provider string) string {
	return "federated:" + provider
}

type User struct {
	ID    string
	Email string // normalized, see NormalizeEmail
	Name  string

	// PasswordHash is empty for federated-only accounts. Its presence is the
	// only signal for password-login eligibility.
	PasswordHash string

	Provider   string // OriginPassword or FederatedOrigin(...)
	ProviderID string // external id at the identity provider
	AvatarURL  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) HasPassword() bool { return u.PasswordHash != "" }

// NormalizeEmail trims and lower-cases an email so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FederatedProfile is the identity attested by an external provider after a
// successful federated login.
type FederatedProfile struct {
	Provider   string
	ExternalID string
	Name       string
	Email      string
	AvatarURL  string
}
