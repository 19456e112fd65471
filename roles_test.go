package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-contacts-auth"
)

func TestParseUserRole(t *testing.T) {
	r, ok := auth.ParseUserRole(" Admin ")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleAdmin, r)

	_, ok = auth.ParseUserRole("root")
	assert.False(t, ok)
}

func TestRoleGate_Check(t *testing.T) {
	gate := auth.NewRoleGate(auth.RoleAdmin)

	admin := &auth.User{Email: "root@example.com", Role: auth.RoleAdmin}
	require.NoError(t, gate.CheckUser(admin))

	user := &auth.User{Email: "alice@example.com", Role: auth.RoleUser}
	err := gate.CheckUser(user)
	require.Error(t, err)
	assert.True(t, auth.IsForbidden(err))
	assert.False(t, auth.IsUnauthenticated(err))

	assert.True(t, auth.IsForbidden(gate.CheckUser(nil)))
	assert.True(t, auth.IsForbidden(gate.Check(nil)))
}

func TestRoleGate_CheckDoesNotTouchSentinel(t *testing.T) {
	gate := auth.NewRoleGate(auth.RoleAdmin)

	err := gate.CheckUser(&auth.User{Role: auth.RoleModerator})
	require.Error(t, err)
	assert.NotSame(t, auth.ErrForbidden, err)
	assert.NotContains(t, auth.ErrForbidden.Metadata, "role")
}

func TestRoleGate_MultipleRoles(t *testing.T) {
	gate := auth.NewRoleGate(auth.RoleAdmin, auth.RoleModerator)

	assert.True(t, gate.Allows(auth.RoleAdmin))
	assert.True(t, gate.Allows(auth.RoleModerator))
	assert.False(t, gate.Allows(auth.RoleUser))
	assert.ElementsMatch(t, []auth.UserRole{auth.RoleAdmin, auth.RoleModerator}, gate.Roles())

	identity := auth.NewIdentityFromUser(&auth.User{Role: auth.RoleModerator})
	assert.NoError(t, gate.Check(identity))
}

func TestNewIdentityFromUser(t *testing.T) {
	assert.Nil(t, auth.NewIdentityFromUser(nil))
	assert.True(t, auth.IsForbidden(auth.NewRoleGate(auth.RoleAdmin).Check(auth.NewIdentityFromUser(nil))))

	user := &auth.User{ID: uuid.New(), Username: "alice", Email: aliceEmail, Role: auth.RoleAdmin}
	identity := auth.NewIdentityFromUser(user)
	assert.Equal(t, user.ID.String(), identity.ID())
	assert.Equal(t, "alice", identity.Username())
	assert.Equal(t, aliceEmail, identity.Email())
	assert.Equal(t, "admin", identity.Role())
}

func TestRoleGate_Empty(t *testing.T) {
	gate := auth.NewRoleGate()

	for _, role := range []auth.UserRole{auth.RoleUser, auth.RoleModerator, auth.RoleAdmin} {
		assert.True(t, auth.IsForbidden(gate.CheckUser(&auth.User{Role: role})), role)
	}
}
