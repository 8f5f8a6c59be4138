package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/cliqspot/internal/services"
	"github.com/desertthunder/cliqspot/internal/shared"
)

const (
	premiumSolution  = "Spotify Premium subscription is required for playback controls. Please upgrade your Spotify account or use read-only endpoints like /spotify/current."
	deviceSolution   = "Please open Spotify on a device and start playing something first."
	internalErrorMsg = "Internal Server Error"
)

type errorBody struct {
	Error    string `json:"error"`
	Details  string `json:"details,omitempty"`
	Solution string `json:"solution,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeOK writes {"status":"ok","action":action} merged with extra.
func writeOK(w http.ResponseWriter, action string, extra map[string]any) {
	body := map[string]any{"status": "ok", "action": action}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// writeError maps err onto a status and body. action completes the sentence "Unable to <action>."
func writeError(w http.ResponseWriter, action string, err error) {
	status, body := errorResponse(action, err)
	writeJSON(w, status, body)
}

func errorResponse(action string, err error) (int, errorBody) {
	var field *shared.FieldError
	if errors.As(err, &field) {
		return http.StatusBadRequest, errorBody{Error: field.Message}
	}

	body := errorBody{Error: "Unable to " + action + ".", Details: err.Error()}

	switch {
	case services.ReasonOf(err) == services.ReasonPremiumRequired:
		body.Solution = premiumSolution
		return http.StatusForbidden, body
	case services.ReasonOf(err) == services.ReasonNoActiveDevice, errors.Is(err, shared.ErrNoDevices):
		body.Solution = deviceSolution
		return http.StatusNotFound, body
	default:
		return http.StatusBadGateway, body
	}
}
