package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Username      string     `bun:"username,notnull" json:"username"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Confirmed     bool       `bun:"confirmed,notnull,default:false" json:"confirmed"`
	Role          UserRole   `bun:"user_role,notnull,default:'user'" json:"role"`
	RefreshToken  *string    `bun:"refresh_token" json:"-"`
	Avatar        string     `bun:"avatar" json:"avatar,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasRefreshToken reports whether token equals the stored refresh token.
// A cleared slot matches nothing.
func (u *User) HasRefreshToken(token string) bool {
	if u == nil || u.RefreshToken == nil || token == "" {
		return false
	}
	return *u.RefreshToken == token
}

// SetRefreshToken stores token, an empty token clears the slot
func (u *User) SetRefreshToken(token string) *User {
	if token == "" {
		u.RefreshToken = nil
		return u
	}
	u.RefreshToken = &token
	return u
}

// Public returns a copy without credential material
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	out.RefreshToken = nil
	return &out
}
