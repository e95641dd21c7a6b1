package gen

import (
	"database/sql"
	"time"
)

type AuthorizationCode struct {
	ID        string
	UserID    string
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash sql.NullString
	Provider     string
	ProviderID   sql.NullString
	AvatarUrl    sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
