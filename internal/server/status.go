package server

import (
	"math"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cliqspot/internal/models"
)

// StatusHandler serves the unauthenticated health and enrollment endpoints.
type StatusHandler struct {
	store   models.TokenStore
	started time.Time
	logger  *log.Logger
	now     func() time.Time
}

// NewStatusHandler creates a [StatusHandler]. A zero started time means now.
func NewStatusHandler(store models.TokenStore, started time.Time, logger *log.Logger) *StatusHandler {
	if started.IsZero() {
		started = time.Now()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &StatusHandler{store: store, started: started, logger: logger, now: time.Now}
}

// Health reports liveness and uptime in seconds.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	uptime := h.now().Sub(h.started).Seconds()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": math.Round(uptime*1000) / 1000,
	})
}

type enrolledUser struct {
	UserID      string    `json:"userId"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Users lists enrolled user ids with the time their refresh token was last written.
func (h *StatusHandler) Users(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list users", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to retrieve user IDs.", Details: err.Error()})
		return
	}

	users := make([]enrolledUser, 0, len(records))
	for _, rec := range records {
		users = append(users, enrolledUser{UserID: rec.UserID, LastUpdated: rec.UpdatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(users), "users": users})
}
