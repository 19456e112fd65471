package auth

import (
	"strings"
)

// UserRole is the user's role
type UserRole string

const (
	// RoleUser is the default role for new accounts
	RoleUser UserRole = "user"
	// RoleModerator can see other accounts
	RoleModerator UserRole = "moderator"
	// RoleAdmin has full access
	RoleAdmin UserRole = "admin"
)

// ParseUserRole is case insensitive and rejects unknown roles
func ParseUserRole(s string) (UserRole, bool) {
	r := UserRole(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r UserRole) String() string {
	return string(r)
}

// RoleGate admits identities whose role is in a fixed allowed set.
// Gates are immutable after construction.
type RoleGate struct {
	allowed map[UserRole]struct{}
}

// NewRoleGate builds a gate for the given roles. An empty gate admits nobody.
func NewRoleGate(roles ...UserRole) RoleGate {
	allowed := make(map[UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return RoleGate{allowed: allowed}
}

// Allows reports whether role is in the allowed set
func (g RoleGate) Allows(role UserRole) bool {
	_, ok := g.allowed[role]
	return ok
}

// Roles returns the allowed roles
func (g RoleGate) Roles() []UserRole {
	out := make([]UserRole, 0, len(g.allowed))
	for r := range g.allowed {
		out = append(out, r)
	}
	return out
}

// Check returns ErrForbidden unless the identity role is allowed
func (g RoleGate) Check(identity Identity) error {
	if identity == nil {
		return ErrForbidden
	}

	if g.Allows(UserRole(identity.Role())) {
		return nil
	}

	return ErrForbidden.Clone().WithMetadata(map[string]any{
		"role": identity.Role(),
	})
}

// CheckUser is Check for a *User
func (g RoleGate) CheckUser(user *User) error {
	if user == nil {
		return ErrForbidden
	}
	return g.Check(NewIdentityFromUser(user))
}

// NewIdentityFromUser lets a gate check a *User, nil stays nil.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return userIdentity{user}
}

type userIdentity struct {
	u *User
}

func (i userIdentity) ID() string       { return i.u.ID.String() }
func (i userIdentity) Username() string { return i.u.Username }
func (i userIdentity) Email() string    { return i.u.Email }
func (i userIdentity) Role() string     { return i.u.Role.String() }
