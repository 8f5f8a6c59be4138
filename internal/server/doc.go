// Package server provides HTTP routing, middleware and handlers for the Cliq to Spotify bridge.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering. Route level
// middleware, such as [BotSecret], runs inside the router's global stack.
//
// # Route Table
//
// [New] assembles the service:
//   - [StatusHandler]: GET /health and GET /users
//   - [AuthHandler]: GET /login and GET /callback
//   - [PlaybackHandler]: the /spotify routes, guarded by [BotSecret]
//
// # OAuth Callback Handler
//
// [AuthHandler] implements the authorization code flow. A random state is stored in an http-only
// cookie at login; the callback clears it, compares it with the state query parameter and then
// exchanges the code. The refresh token is stored under the Spotify account id returned by /me.
//
// # Errors
//
// Handlers answer with JSON. Validation failures are 400 with the message as "error". Upstream
// failures are 502 unless Spotify reports PREMIUM_REQUIRED (403) or there is no device to play
// on (404); these carry a "solution" hint for the bot to relay.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
