package domain

import "time"

// AuthorizationCode bridges a federated login redirect to token issuance.
// It is single-use and lives for seconds.
type AuthorizationCode struct {
	ID        string
	UserID    string
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (c AuthorizationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
