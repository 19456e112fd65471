package auth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-contacts-auth/middleware/jwtware"
)

// HTTPStatus maps an error to the transport status code.
func HTTPStatus(err error) int {
	if err == nil {
		return fiber.StatusOK
	}

	switch KindOf(err) {
	case KindUnauthenticated, KindEmailUnconfirmed, KindInvalidToken:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	}

	if IsEmailTaken(err) {
		return fiber.StatusConflict
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	var rich *errors.Error
	if errors.As(err, &rich) {
		switch rich.Category {
		case errors.CategoryValidation:
			return fiber.StatusUnprocessableEntity
		case errors.CategoryBadInput:
			return fiber.StatusBadRequest
		case errors.CategoryNotFound:
			return fiber.StatusNotFound
		case errors.CategoryConflict:
			return fiber.StatusConflict
		case errors.CategoryRateLimit:
			return fiber.StatusTooManyRequests
		case errors.CategoryAuth:
			return fiber.StatusUnauthorized
		case errors.CategoryAuthz:
			return fiber.StatusForbidden
		}
	}

	return fiber.StatusInternalServerError
}

// ErrorDetail is the JSON body of every error response
type ErrorDetail struct {
	Detail string         `json:"detail"`
	Code   string         `json:"code,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// NewErrorHandler returns a fiber.ErrorHandler rendering ErrorDetail bodies
// for errors that escape a route handler.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(c *fiber.Ctx, err error) error {
		status, body := errorResponse(err)
		if status == fiber.StatusUnauthorized {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		}
		if status >= fiber.StatusInternalServerError {
			logger.Error("request %s %s failed: %v", c.Method(), c.Path(), err)
		}
		return c.Status(status).JSON(body)
	}
}

// errorResponse hides the message of internal errors
func errorResponse(err error) (int, ErrorDetail) {
	status := HTTPStatus(err)
	body := ErrorDetail{Detail: err.Error()}

	var rich *errors.Error
	if errors.As(err, &rich) {
		body.Detail = rich.Message
		body.Code = rich.TextCode
		if rich.Category == errors.CategoryValidation && len(rich.Metadata) > 0 {
			body.Fields = rich.Metadata
		}
	}

	if status >= fiber.StatusInternalServerError {
		body = ErrorDetail{Detail: "internal server error"}
	}

	return status, body
}

func writeError(c router.Context, logger Logger, err error) error {
	status, body := errorResponse(err)

	if status == fiber.StatusUnauthorized {
		c.SetHeader(fiber.HeaderWWWAuthenticate, "Bearer")
	}

	if status >= fiber.StatusInternalServerError {
		logger.Error("request %s %s failed: %v", c.Method(), c.Path(), err)
	}

	return c.JSON(status, body)
}

// NewResolverMiddleware resolves the bearer access token of each request to
// its *User and stores it under the configured context key.
func NewResolverMiddleware(auther *Auther, cfg Config, logger Logger) router.MiddlewareFunc {
	logger = normalizeLogger(logger)
	return jwtware.New(jwtware.Config{
		ContextKey:  cfg.GetContextKey(),
		TokenLookup: cfg.GetTokenLookup(),
		AuthScheme:  cfg.GetAuthScheme(),
		Resolver: jwtware.TokenResolverFunc(func(ctx context.Context, token string) (any, error) {
			return auther.ResolveCurrentUser(ctx, token)
		}),
		ContextEnricher: func(ctx context.Context, value any) context.Context {
			if user, ok := value.(*User); ok {
				return WithContext(ctx, user)
			}
			return ctx
		},
		ErrorHandler: func(c router.Context, err error) error {
			if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
				err = ErrUnauthenticated
			}
			return writeError(c, logger, err)
		},
	})
}

// RequireRoles must run after the resolver middleware. Requests whose
// user role is not admitted by gate fail with 403.
func RequireRoles(gate RoleGate, contextKey string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			user, ok := CurrentUser(c, contextKey)
			if !ok {
				return writeError(c, defLogger, ErrUnauthenticated)
			}

			if err := gate.CheckUser(user); err != nil {
				return writeError(c, defLogger, err)
			}

			return next(c)
		}
	}
}

// NewRateLimiter limits requests per client IP, answering 429 when exceeded.
// max <= 0 disables the limiter. It runs on the fiber app ahead of the router.
func NewRateLimiter(max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorDetail{
				Detail: "too many requests",
			})
		},
	})
}
