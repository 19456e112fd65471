// Package auth is the authentication core of the contacts backend: password
// hashing, scoped JWTs, login, refresh token rotation, current user
// resolution, role gates and e-mail verification.
//
// Tokens:
//   - Every token carries sub (the account e-mail), iat, exp and a scope
//     claim. TokenService.Decode checks signature, algorithm and expiry
//     before the scope, so an expired token is reported as invalid even when
//     its scope is also wrong.
//   - Keys are symmetric and fixed for the life of the process.
//
// Sessions:
//   - Auther.Login stores the refresh token it issues on the user record.
//     Auther.Refresh only accepts the stored token. Presenting any other
//     valid refresh token clears the stored one, which logs out every holder
//     of the session.
//   - Stores that implement RefreshTokenSwapper rotate with a
//     compare-and-swap, so two concurrent refreshes with the same token
//     cannot both succeed. The loser is treated as a replay and clears the
//     session.
//
// Errors:
//   - Failures callers need to branch on are go-errors values with a text
//     code. Use KindOf or the Is* helpers instead of comparing messages.
//     HTTPStatus maps them to status codes.
//
// HTTP:
//   - RegisterAuthRoutes mounts an AuthController on a go-router Router.
//     Rate limits are fiber middleware, see AuthController.UseRateLimits.
//   - Verification links use the configured public URL only, never the
//     request Host header.
//
// Activity sinks:
//   - ActivitySink receives login, refresh, logout, signup and verification
//     events. Sinks run best-effort (errors are logged) so they never block
//     authentication.
package auth
