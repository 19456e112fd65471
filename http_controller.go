package auth

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-contacts-auth/middleware/jwtware"
)

// HealthChecker reports whether the backing database answers
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// UserLister lists every account
type UserLister interface {
	List(ctx context.Context) ([]*User, error)
}

type AuthControllerRoutes struct {
	Signup         string
	Login          string
	Refresh        string
	ConfirmedEmail string
	RequestEmail   string
	Logout         string
	Me             string
	AllUsers       string
	Health         string
}

// DefaultRoutes are relative to the router the controller is registered on
var DefaultRoutes = AuthControllerRoutes{
	Signup:         "/auth/signup",
	Login:          "/auth/login",
	Refresh:        "/auth/refresh_token",
	ConfirmedEmail: "/auth/confirmed_email/:token",
	RequestEmail:   "/auth/request_email",
	Logout:         "/auth/logout",
	Me:             "/users/me",
	AllUsers:       "/users/all",
	Health:         "/healthchecker",
}

// AuthController binds the auth core to HTTP routes
type AuthController struct {
	Routes      AuthControllerRoutes
	auther      *Auther
	registrar   *Registrar
	users       UserLister
	health      HealthChecker
	cfg         Config
	logger      Logger
	listGate    RoleGate
	limitMax    int
	limitWindow time.Duration
	pages       *Pages
	publicURL   string
	debug       bool
}

// AuthControllerOption configures an AuthController
type AuthControllerOption func(*AuthController)

// WithControllerLogger sets the logger
func WithControllerLogger(l Logger) AuthControllerOption {
	return func(a *AuthController) {
		a.logger = normalizeLogger(l)
	}
}

// WithRateLimit limits login, signup and refresh to max requests per window and client
func WithRateLimit(max int, window time.Duration) AuthControllerOption {
	return func(a *AuthController) {
		a.limitMax = max
		a.limitWindow = window
	}
}

// WithListGate replaces the admin and moderator gate on the user listing
func WithListGate(gate RoleGate) AuthControllerOption {
	return func(a *AuthController) {
		a.listGate = gate
	}
}

// WithRoutes overrides the route paths
func WithRoutes(routes AuthControllerRoutes) AuthControllerOption {
	return func(a *AuthController) {
		a.Routes = routes
	}
}

// WithPublicURL sets the base URL used in verification links. The request
// Host header is never used, links carry no host when this is unset.
func WithPublicURL(url string) AuthControllerOption {
	return func(a *AuthController) {
		a.publicURL = strings.TrimRight(url, "/")
	}
}

// WithPages replaces the HTML pages of the verification routes, nil
// answers those routes with JSON only.
func WithPages(pages *Pages) AuthControllerOption {
	return func(a *AuthController) {
		a.pages = pages
	}
}

// WithDebug logs request payloads of failed validations
func WithDebug(debug bool) AuthControllerOption {
	return func(a *AuthController) {
		a.debug = debug
	}
}

// NewAuthController returns a controller, users and health are optional.
func NewAuthController(auther *Auther, registrar *Registrar, cfg Config, users UserLister, health HealthChecker, opts ...AuthControllerOption) *AuthController {
	a := &AuthController{
		Routes:      DefaultRoutes,
		auther:      auther,
		registrar:   registrar,
		users:       users,
		health:      health,
		cfg:         cfg,
		logger:      defLogger,
		listGate:    NewRoleGate(RoleAdmin, RoleModerator),
		limitMax:    10,
		limitWindow: time.Minute,
	}

	if pages, err := NewPages(); err == nil {
		a.pages = pages
	} else {
		a.logger.Error("html pages disabled: %v", err)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// RegisterAuthRoutes mounts the controller routes on app
func RegisterAuthRoutes[T any](app router.Router[T], a *AuthController) {
	protected := NewResolverMiddleware(a.auther, a.cfg, a.logger)

	app.Post(a.Routes.Signup, a.Signup).
		SetName("auth.signup")
	app.Post(a.Routes.Login, a.Login).
		SetName("auth.login")
	app.Get(a.Routes.Refresh, a.RefreshToken).
		SetName("auth.refresh")

	app.Get(a.Routes.ConfirmedEmail, a.ConfirmedEmail).SetName("auth.confirmed-email")
	app.Post(a.Routes.RequestEmail, a.RequestEmail).SetName("auth.request-email")

	app.Post(a.Routes.Logout, a.Logout, protected).SetName("auth.logout")
	app.Get(a.Routes.Me, a.Me, protected).SetName("users.me")
	app.Get(a.Routes.AllUsers, a.AllUsers, protected, RequireRoles(a.listGate, a.cfg.GetContextKey())).
		SetName("users.all")

	app.Get(a.Routes.Health, a.Health).SetName("health")
}

// UseRateLimits installs one limiter per credential route on the fiber app,
// prefix is the group the routes are registered under. Call it before
// RegisterAuthRoutes so the limiters run first.
func (a *AuthController) UseRateLimits(app *fiber.App, prefix string) {
	prefix = strings.TrimRight(prefix, "/")
	for _, path := range []string{a.Routes.Signup, a.Routes.Login, a.Routes.Refresh} {
		app.Use(prefix+path, NewRateLimiter(a.limitMax, a.limitWindow))
	}
}

func (a *AuthController) Signup(c router.Context) error {
	var payload RegisterUserMessage
	if err := c.Bind(&payload); err != nil {
		return a.fail(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body"))
	}
	payload.Host = a.publicURL

	user, err := a.registrar.Register(c.Context(), payload)
	if err != nil {
		if a.debug {
			payload.Password = "***"
			a.logger.Debug("signup failed for payload %s", print.MaybePrettyJSON(payload))
		}
		return a.fail(c, err)
	}

	return c.JSON(fiber.StatusCreated, fiber.Map{
		"user":   user.Public(),
		"detail": "User successfully created. Check your email for confirmation.",
	})
}

// Login expects the OAuth2 password form, username carries the e-mail
func (a *AuthController) Login(c router.Context) error {
	email := c.FormValue("username")
	password := c.FormValue("password")

	pair, err := a.auther.Login(c.Context(), email, password)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.StatusOK, pair)
}

func (a *AuthController) RefreshToken(c router.Context) error {
	extractors := jwtware.GetExtractors("header:"+router.HeaderAuthorization, a.cfg.GetAuthScheme())
	token, err := jwtware.ExtractRawTokenFromContext(c, extractors)
	if err != nil {
		return a.fail(c, ErrUnauthenticated)
	}

	pair, err := a.auther.Refresh(c.Context(), token)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.StatusOK, pair)
}

// ConfirmedEmail answers with an HTML page when the client accepts one,
// which is the case for links opened from the verification e-mail.
func (a *AuthController) ConfirmedEmail(c router.Context) error {
	result, err := a.auther.ConfirmEmail(c.Context(), c.Param("token"))
	if err != nil {
		if IsInvalidToken(err) {
			return c.JSON(fiber.StatusUnprocessableEntity, ErrorDetail{
				Detail: "Invalid token for email verification",
				Code:   TextCodeTokenInvalid,
			})
		}
		return a.fail(c, err)
	}

	if result == EmailAlreadyConfirmed {
		if a.wantsHTML(c) {
			return a.page(c, ViewEmailAlreadyConfirmed, nil)
		}
		return c.JSON(fiber.StatusOK, fiber.Map{"message": "Your email is already confirmed"})
	}

	if a.wantsHTML(c) {
		return a.page(c, ViewConfirmedEmail, nil)
	}
	return c.JSON(fiber.StatusOK, fiber.Map{"message": "Email confirmed"})
}

func (a *AuthController) RequestEmail(c router.Context) error {
	var payload RequestVerificationMessage
	if err := c.Bind(&payload); err != nil {
		return a.fail(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body"))
	}
	payload.Host = a.publicURL

	result, err := a.registrar.RequestEmail(c.Context(), payload)
	if err != nil {
		return a.fail(c, err)
	}

	data := map[string]any{"email": strings.TrimSpace(payload.Email)}

	if result == EmailAlreadyConfirmed {
		if a.wantsHTML(c) {
			return a.page(c, ViewEmailAlreadyConfirmed, data)
		}
		return c.JSON(fiber.StatusOK, fiber.Map{"message": "Your email is already confirmed"})
	}

	if a.wantsHTML(c) {
		return a.page(c, ViewCheckForConfirmation, data)
	}
	return c.JSON(fiber.StatusOK, fiber.Map{"message": "Check your email for confirmation."})
}

func (a *AuthController) Logout(c router.Context) error {
	user, ok := CurrentUser(c, a.cfg.GetContextKey())
	if !ok {
		return a.fail(c, ErrUnauthenticated)
	}

	if err := a.auther.Logout(c.Context(), user); err != nil {
		return a.fail(c, err)
	}

	return c.NoContent(fiber.StatusNoContent)
}

func (a *AuthController) Me(c router.Context) error {
	user, ok := CurrentUser(c, a.cfg.GetContextKey())
	if !ok {
		return a.fail(c, ErrUnauthenticated)
	}
	return c.JSON(fiber.StatusOK, user.Public())
}

func (a *AuthController) AllUsers(c router.Context) error {
	if a.users == nil {
		return a.fail(c, fiber.ErrNotImplemented)
	}

	records, err := a.users.List(c.Context())
	if err != nil {
		return a.fail(c, err)
	}

	out := make([]*User, 0, len(records))
	for _, u := range records {
		out = append(out, u.Public())
	}
	return c.JSON(fiber.StatusOK, out)
}

func (a *AuthController) Health(c router.Context) error {
	if a.health != nil {
		if err := a.health.Ping(c.Context()); err != nil {
			a.logger.Error("health check failed: %v", err)
			return c.JSON(fiber.StatusInternalServerError, ErrorDetail{
				Detail: "Error connecting to the database",
			})
		}
	}
	return c.JSON(fiber.StatusOK, fiber.Map{"message": "ok"})
}

func (a *AuthController) wantsHTML(c router.Context) bool {
	return a.pages != nil && strings.Contains(c.Header(fiber.HeaderAccept), fiber.MIMETextHTML)
}

func (a *AuthController) page(c router.Context, name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}

	body, err := a.pages.Render(name, data)
	if err != nil {
		return a.fail(c, err)
	}

	c.SetHeader(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(fiber.StatusOK).Send(body)
}

func (a *AuthController) fail(c router.Context, err error) error {
	return writeError(c, a.logger, err)
}
