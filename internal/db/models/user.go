// Package models - user.go defines the User model for marketplace accounts with
// email, display name, optional password hash, optional OIDC subject, and role.
package models

import "time"

// Role values recognized by the authorization layer
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User represents an account in the system. PasswordHash is nil for accounts
// created through OIDC sign-in.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Name         string     `db:"name" json:"name"`
	PasswordHash *string    `db:"password_hash" json:"-"`
	OIDCSub      *string    `db:"oidc_sub" json:"-"`
	AvatarURL    *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	Role         string     `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// CanModerate returns true if the user's role grants moderation decisions
func (u *User) CanModerate() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}

// IsAdmin returns true for the admin role only
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
