package jwtware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-contacts-auth/middleware/jwtware"
)

type ctxKey struct{}

var errBadToken = errors.New("bad token")

func resolver() jwtware.TokenResolver {
	return jwtware.TokenResolverFunc(func(_ context.Context, token string) (any, error) {
		if token != "good" {
			return nil, errBadToken
		}
		return "alice", nil
	})
}

// serve registers the route on a fiber backed router and returns the
// underlying app for app.Test.
func serve(path string, handler router.HandlerFunc, mws ...router.MiddlewareFunc) *fiber.App {
	var app *fiber.App
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app = fiber.New()
		return app
	})
	srv.Router().Get(path, handler, mws...)
	return app
}

func newApp(cfg jwtware.Config) *fiber.App {
	return serve("/me", func(ctx router.Context) error {
		name, _ := ctx.Locals("user").(string)
		fromCtx, _ := ctx.Context().Value(ctxKey{}).(string)
		return ctx.SendString(name + "|" + fromCtx)
	}, jwtware.New(cfg))
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	res, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(body)
}

func TestNew_HeaderToken(t *testing.T) {
	app := newApp(jwtware.Config{
		Resolver: resolver(),
		ContextEnricher: func(ctx context.Context, value any) context.Context {
			return context.WithValue(ctx, ctxKey{}, value)
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	status, body := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice|alice", body)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer good")
	status, _ = do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
}

func TestNew_MissingOrMalformed(t *testing.T) {
	app := newApp(jwtware.Config{Resolver: resolver()})

	headers := []string{"", "good", "Bearer", "Bearer ", "Bearergood", "Basic good"}
	for _, h := range headers {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if h != "" {
			req.Header.Set("Authorization", h)
		}
		status, body := do(t, app, req)
		assert.Equal(t, http.StatusBadRequest, status, h)
		assert.Equal(t, jwtware.ErrJWTMissingOrMalformed.Error(), body, h)
	}
}

func TestNew_ResolverError(t *testing.T) {
	var got error
	app := newApp(jwtware.Config{
		Resolver: resolver(),
		ErrorHandler: func(c router.Context, err error) error {
			got = err
			return c.Status(router.StatusUnauthorized).SendString("denied")
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer forged")
	status, _ := do(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.ErrorIs(t, got, errBadToken)
}

func TestNew_ValidationListeners(t *testing.T) {
	errSuspended := errors.New("suspended")
	app := newApp(jwtware.Config{
		Resolver: resolver(),
		ValidationListeners: []jwtware.ValidationListener{
			nil,
			func(_ router.Context, value any) error {
				if value == "alice" {
					return errSuspended
				}
				return nil
			},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	status, body := do(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", body)
}

func TestNew_Filter(t *testing.T) {
	app := newApp(jwtware.Config{
		Resolver: resolver(),
		Filter: func(c router.Context) bool {
			return c.Query("skip", "") == "1"
		},
	})

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/me?skip=1", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "|", body)
}

func TestNew_LookupSources(t *testing.T) {
	app := newApp(jwtware.Config{
		Resolver:    resolver(),
		TokenLookup: "header:Authorization, query:token, cookie:jwt",
	})

	status, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/me?token=good", nil))
	assert.Equal(t, http.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: "good"})
	status, _ = do(t, app, req)
	assert.Equal(t, http.StatusOK, status)

	req = httptest.NewRequest(http.MethodGet, "/me?token=good", nil)
	req.Header.Set("Authorization", "Bearer nope")
	status, _ = do(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestNew_ParamLookup(t *testing.T) {
	app := serve("/confirm/:token", func(c router.Context) error {
		return c.SendString(c.Locals("user").(string))
	}, jwtware.New(jwtware.Config{
		Resolver:    resolver(),
		TokenLookup: "param:token",
	}))

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/confirm/good", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body)
}

func TestNew_RequiresResolver(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.New(jwtware.Config{})
	})
}

func TestGetExtractors(t *testing.T) {
	assert.Len(t, jwtware.GetExtractors("header:Authorization,query:t,param:p,cookie:c"), 4)
	assert.Len(t, jwtware.GetExtractors("header:Authorization,bogus,form:x"), 1)
	assert.Empty(t, jwtware.GetExtractors(""))
}

func TestExtractRawTokenFromContext_CustomScheme(t *testing.T) {
	app := serve("/", func(c router.Context) error {
		token, err := jwtware.ExtractRawTokenFromContext(c, jwtware.GetExtractors("header:X-Auth", "Token"))
		if err != nil {
			return c.Status(router.StatusBadRequest).SendString(err.Error())
		}
		return c.SendString(token)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Auth", "Token abc.def.ghi")
	status, body := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "abc.def.ghi", body)
}
