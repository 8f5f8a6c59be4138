// package server contains middleware & handlers for the Cliq to Spotify bridge
package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cliqspot/internal/models"
	"github.com/desertthunder/cliqspot/internal/services"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, panic recovery, CORS and the bot secret guard.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the bridge.
// Implementations handle a group of endpoints (auth, playback, status).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                                       // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler, mw ...Middleware) // Handle registers a handler for the specified method and path
	Handler(handler Handler, mw ...Middleware)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request)                   // ServeHTTP implements http.Handler for the entire router
}

// Options wires the bridge's dependencies into [New].
type Options struct {
	Auth          Authorizer
	Player        *services.Player
	Store         models.TokenStore
	Logger        *log.Logger
	BaseURL       string
	BotSecret     string
	CORSOrigins   []string
	SecureCookies bool
	Started       time.Time
}

// New builds the router with the full route table:
//
//	GET  /health, /login, /callback, /users
//	POST /spotify/{play,pause,resume,next,previous,volume,seek,queue,connect}
//	GET  /spotify/{current,devices}
//
// Every /spotify route is guarded by [BotSecret].
func New(opts Options) *BasicRouter {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	r := NewBasicRouter()
	r.Use(Recoverer(logger), RequestLogger(logger), CORS(opts.CORSOrigins))

	status := NewStatusHandler(opts.Store, opts.Started, logger)
	r.Handle(http.MethodGet, "/health", http.HandlerFunc(status.Health))
	r.Handle(http.MethodGet, "/users", http.HandlerFunc(status.Users))

	r.Handler(NewAuthHandler(AuthOpts{
		Auth:          opts.Auth,
		Store:         opts.Store,
		BaseURL:       opts.BaseURL,
		SecureCookies: opts.SecureCookies,
		Logger:        logger,
	}))

	r.Handler(NewPlaybackHandler(opts.Player, opts.Store, opts.BaseURL, logger), BotSecret(opts.BotSecret))

	return r
}
