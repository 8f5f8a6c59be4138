package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"runtime"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/cors"
)

// BotSecretHeader carries the shared secret on bot requests.
const BotSecretHeader = "x-bot-secret"

// Recoverer catches panics in handlers, logs the stack and answers 500.
func Recoverer(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rv := recover(); rv != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					logger.Error("http handler panic", "panic", fmt.Sprintf("%v", rv), "path", r.URL.Path, "stack", string(buf[:n]))
					writeJSON(w, http.StatusInternalServerError, errorBody{Error: internalErrorMsg})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per request. Query strings are not logged since they may carry the bot secret.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			kv := []any{"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start)}
			switch {
			case rec.status >= 500:
				logger.Error("request", kv...)
			case rec.status >= 400:
				logger.Warn("request", kv...)
			default:
				logger.Info("request", kv...)
			}
		})
	}
}

// CORS allows browser calls from origins. An empty list or "*" allows any origin; other
// origins are answered without CORS headers.
func CORS(origins []string) Middleware {
	allowAll := len(origins) == 0 || slices.Contains(origins, "*")

	c := cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return allowAll || slices.Contains(origins, origin)
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", BotSecretHeader},
		AllowCredentials: true,
	})
	return c.Handler
}

// BotSecret rejects requests whose x-bot-secret header (or secret query parameter) does not
// match secret. An empty secret disables the check.
func BotSecret(secret string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(BotSecretHeader)
			if provided == "" {
				provided = r.URL.Query().Get("secret")
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized request. Provide a valid x-bot-secret header."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
