package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-contacts-auth"
)

func TestUserContext(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	assert.False(t, ok)

	user := &auth.User{Email: aliceEmail}
	got, ok := auth.FromContext(auth.WithContext(context.Background(), user))
	require.True(t, ok)
	assert.Same(t, user, got)

	_, ok = auth.FromContext(auth.WithContext(context.Background(), nil))
	assert.False(t, ok)
}

func TestResolverMiddleware_PropagatesUser(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(confirmedUser(aliceEmail, alicePassword))
	auther, _ := newAuther(store, newTestClock())

	pair, err := auther.Login(ctx, aliceEmail, alicePassword)
	require.NoError(t, err)

	srv, app := newFiberServer(nil)
	srv.Router().Get("/whoami",
		func(c router.Context) error {
			local, ok := auth.CurrentUser(c, "")
			if !ok {
				return c.Status(http.StatusTeapot).SendString("no user")
			}
			fromCtx, ok := auth.FromContext(c.Context())
			if !ok || fromCtx.Email != local.Email {
				return c.Status(http.StatusTeapot).SendString("no context user")
			}
			return c.SendString(local.Email)
		},
		auth.NewResolverMiddleware(auther, newTestConfig(), nil),
	)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestRequireRoles_WithoutResolver(t *testing.T) {
	srv, app := newFiberServer(nil)
	srv.Router().Get("/admin", func(c router.Context) error {
		return c.SendString("ok")
	}, auth.RequireRoles(auth.NewRoleGate(auth.RoleAdmin), "user"))

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}
