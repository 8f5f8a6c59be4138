package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cliqspot/internal/models"
	"github.com/desertthunder/cliqspot/internal/services"
	"github.com/desertthunder/cliqspot/internal/shared"
)

const maxBodyBytes = 1 << 20

// command is the JSON body accepted by the POST /spotify routes. Numeric fields stay untyped so a
// string such as "50" is rejected instead of coerced.
type command struct {
	UserID        string `json:"userId"`
	TrackURI      string `json:"trackUri"`
	VolumePercent any    `json:"volume_percent"`
	PositionMS    any    `json:"position_ms"`
}

type playbackRoute struct {
	method string
	serve  http.HandlerFunc
}

// PlaybackHandler serves the bot-facing /spotify routes.
type PlaybackHandler struct {
	player   *services.Player
	store    models.TokenStore
	loginURL string
	logger   *log.Logger
	routes   map[string]playbackRoute
}

// NewPlaybackHandler creates a new [PlaybackHandler]. baseURL is used to build the login link.
func NewPlaybackHandler(player *services.Player, store models.TokenStore, baseURL string, logger *log.Logger) *PlaybackHandler {
	if logger == nil {
		logger = log.Default()
	}

	h := &PlaybackHandler{
		player:   player,
		store:    store,
		loginURL: strings.TrimRight(baseURL, "/") + "/login",
		logger:   logger,
	}
	h.routes = map[string]playbackRoute{
		"/spotify/play":     {http.MethodPost, h.Play},
		"/spotify/pause":    {http.MethodPost, h.Pause},
		"/spotify/resume":   {http.MethodPost, h.Resume},
		"/spotify/next":     {http.MethodPost, h.Next},
		"/spotify/previous": {http.MethodPost, h.Previous},
		"/spotify/volume":   {http.MethodPost, h.Volume},
		"/spotify/seek":     {http.MethodPost, h.Seek},
		"/spotify/queue":    {http.MethodPost, h.Queue},
		"/spotify/connect":  {http.MethodPost, h.Connect},
		"/spotify/current":  {http.MethodGet, h.Current},
		"/spotify/devices":  {http.MethodGet, h.Devices},
	}
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *PlaybackHandler) Routes() []string {
	routes := make([]string, 0, len(h.routes))
	for path := range h.routes {
		routes = append(routes, path)
	}
	slices.Sort(routes)
	return routes
}

func (h *PlaybackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, ok := h.routes[r.URL.Path]
	if !ok {
		notFound(w, r)
		return
	}
	if r.Method != route.method {
		w.Header().Set("Allow", route.method)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed."})
		return
	}
	route.serve(w, r)
}

func (h *PlaybackHandler) Play(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.player.Play(r.Context(), cmd.UserID, cmd.TrackURI); err != nil {
		h.fail(w, "start playback", cmd.UserID, err)
		return
	}
	writeOK(w, "play", map[string]any{"trackUri": cmd.TrackURI})
}

func (h *PlaybackHandler) Pause(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.player.Pause(r.Context(), cmd.UserID); err != nil {
		h.fail(w, "pause playback", cmd.UserID, err)
		return
	}
	writeOK(w, "pause", nil)
}

func (h *PlaybackHandler) Next(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.player.Next(r.Context(), cmd.UserID); err != nil {
		h.fail(w, "skip to the next track", cmd.UserID, err)
		return
	}
	writeOK(w, "next", nil)
}

func (h *PlaybackHandler) Previous(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.player.Previous(r.Context(), cmd.UserID); err != nil {
		h.fail(w, "go to the previous track", cmd.UserID, err)
		return
	}
	writeOK(w, "previous", nil)
}

func (h *PlaybackHandler) Volume(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.decode(w, r)
	if !ok {
		return
	}

	percent, isNumber := cmd.VolumePercent.(float64)
	if !isNumber {
		writeError(w, "set volume", shared.Invalid("volume_percent must be a number between 0 and 100."))
		return
	}
	if err := h.player.SetVolume(r.Context(), cmd.UserID, percent); err != nil {
		h.fail(w, "set volume", cmd.UserID, err)
		return
	}
	writeOK(w, "volume", map[string]any{"volume_percent": percent})
}

func (h *PlaybackHandler) Seek(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.decode(w, r)
	if !ok {
		return
	}

	position, isNumber := cmd.PositionMS.(float64)
	if !isNumber {
		writeError(w, "seek in the current track", shared.Invalid("position_ms must be a positive number."))
		return
	}
	if err := h.player.Seek(r.Context(), cmd.UserID, position); err != nil {
		h.fail(w, "seek in the current track", cmd.UserID, err)
		return
	}
	writeOK(w, "seek", map[string]any{"position_ms": position})
}

func (h *PlaybackHandler) Queue(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.player.Queue(r.Context(), cmd.UserID, cmd.TrackURI); err != nil {
		h.fail(w, "add track to queue", cmd.UserID, err)
		return
	}
	writeOK(w, "queue", map[string]any{"trackUri": cmd.TrackURI})
}

func (h *PlaybackHandler) Resume(w http.ResponseWriter, r *http.Request) {
	cmd, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.player.Resume(r.Context(), cmd.UserID)
	if err != nil {
		h.fail(w, "resume playback", cmd.UserID, err)
		return
	}

	if result.AlreadyPlaying {
		writeOK(w, "resume", map[string]any{
			"message": "Track is already playing",
			"device":  deviceSummary(result.Device),
			"track": map[string]any{
				"name":        result.Track.Name,
				"artist":      result.Track.Artist,
				"uri":         result.Track.URI,
				"position_ms": result.Track.PositionMS,
				"is_playing":  true,
			},
		})
		return
	}

	extra := map[string]any{
		"device":      deviceSummary(result.Device),
		"transferred": result.Transferred,
		"track":       result.Track,
	}
	if result.Track == nil {
		extra["message"] = "Playback resumed"
	}
	writeOK(w, "resume", extra)
}

func (h *PlaybackHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, "fetch current playback", shared.Invalid("userId query parameter is required."))
		return
	}

	current, playing, err := h.player.Current(r.Context(), userID)
	if err != nil {
		h.fail(w, "fetch current playback", userID, err)
		return
	}
	if !playing {
		writeJSON(w, http.StatusOK, map[string]any{"is_playing": false, "message": "No active playback on this account."})
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (h *PlaybackHandler) Devices(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, "get devices", shared.Invalid("userId is required as a query parameter."))
		return
	}

	devices, err := h.player.Devices(r.Context(), userID)
	if err != nil {
		h.fail(w, "get devices", userID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// Connect returns the login link for the bot to hand out and whether userId is already enrolled.
func (h *PlaybackHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var cmd command
	if err := readJSON(w, r, &cmd); err != nil {
		writeError(w, "connect", err)
		return
	}

	connected := false
	if userID := strings.TrimSpace(cmd.UserID); userID != "" {
		_, err := h.store.Get(r.Context(), userID)
		switch {
		case err == nil:
			connected = true
		case !errors.Is(err, shared.ErrMissingCredential):
			h.logger.Warn("failed to check enrollment", "user", userID, "error", err)
		}
	}

	writeOK(w, "connect", map[string]any{"login_url": h.loginURL, "connected": connected})
}

func (h *PlaybackHandler) decode(w http.ResponseWriter, r *http.Request) (*command, bool) {
	var cmd command
	if err := readJSON(w, r, &cmd); err != nil {
		writeError(w, "read request", err)
		return nil, false
	}

	cmd.UserID = strings.TrimSpace(cmd.UserID)
	if cmd.UserID == "" {
		writeError(w, "read request", shared.Invalid("userId is required in the request body."))
		return nil, false
	}
	return &cmd, true
}

func (h *PlaybackHandler) fail(w http.ResponseWriter, action, userID string, err error) {
	if !errors.Is(err, shared.ErrValidation) {
		h.logger.Error("playback command failed", "action", action, "user", userID, "error", err)
	}
	writeError(w, action, err)
}

// readJSON decodes an optional JSON body into v. An empty body leaves v untouched.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return shared.Invalid("Request body must be valid JSON.")
}

func deviceSummary(d services.Device) map[string]any {
	return map[string]any{"id": d.ID, "name": d.Name, "type": d.Type}
}
