package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/cliqspot/internal/shared"
)

// Reason is the machine-readable cause Spotify attaches to player errors.
//
// See https://developer.spotify.com/documentation/web-api/concepts/api-calls#response-schema
type Reason string

const (
	ReasonNoPrevTrack           Reason = "NO_PREV_TRACK"
	ReasonNoNextTrack           Reason = "NO_NEXT_TRACK"
	ReasonNoSpecificTrack       Reason = "NO_SPECIFIC_TRACK"
	ReasonAlreadyPaused         Reason = "ALREADY_PAUSED"
	ReasonNotPaused             Reason = "NOT_PAUSED"
	ReasonNotPlayingLocally     Reason = "NOT_PLAYING_LOCALLY"
	ReasonNotPlayingTrack       Reason = "NOT_PLAYING_TRACK"
	ReasonNotPlayingContext     Reason = "NOT_PLAYING_CONTEXT"
	ReasonEndlessContext        Reason = "ENDLESS_CONTEXT"
	ReasonContextDisallow       Reason = "CONTEXT_DISALLOW"
	ReasonAlreadyPlaying        Reason = "ALREADY_PLAYING"
	ReasonRateLimited           Reason = "RATE_LIMITED"
	ReasonRemoteControlDisallow Reason = "REMOTE_CONTROL_DISALLOW"
	ReasonDeviceNotControllable Reason = "DEVICE_NOT_CONTROLLABLE"
	ReasonVolumeControlDisallow Reason = "VOLUME_CONTROL_DISALLOW"
	ReasonNoActiveDevice        Reason = "NO_ACTIVE_DEVICE"
	ReasonPremiumRequired       Reason = "PREMIUM_REQUIRED"
	ReasonUnknown               Reason = "UNKNOWN"
)

var knownReasons = map[Reason]struct{}{
	ReasonNoPrevTrack: {}, ReasonNoNextTrack: {}, ReasonNoSpecificTrack: {}, ReasonAlreadyPaused: {},
	ReasonNotPaused: {}, ReasonNotPlayingLocally: {}, ReasonNotPlayingTrack: {}, ReasonNotPlayingContext: {},
	ReasonEndlessContext: {}, ReasonContextDisallow: {}, ReasonAlreadyPlaying: {}, ReasonRateLimited: {},
	ReasonRemoteControlDisallow: {}, ReasonDeviceNotControllable: {}, ReasonVolumeControlDisallow: {},
	ReasonNoActiveDevice: {}, ReasonPremiumRequired: {}, ReasonUnknown: {},
}

// ParseReason maps a raw reason string onto a known [Reason]; anything else is [ReasonUnknown].
func ParseReason(s string) Reason {
	r := Reason(strings.ToUpper(strings.TrimSpace(s)))
	if r == "" {
		return ""
	}
	if _, ok := knownReasons[r]; ok {
		return r
	}
	return ReasonUnknown
}

// APIError is a failed Web API call. Status is zero for transport failures.
type APIError struct {
	Status  int
	Path    string
	Reason  Reason
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("spotify API request to %s failed: %s", e.Path, e.Message)
	}

	msg := fmt.Sprintf("spotify API error: status %d on %s: %s", e.Status, e.Path, e.Message)
	if e.Reason != "" && e.Reason != ReasonUnknown {
		msg += " (" + string(e.Reason) + ")"
	}
	return msg
}

func (e *APIError) Unwrap() error { return shared.ErrUpstreamAPI }

// ReasonOf extracts the [Reason] from an [APIError] anywhere in err's chain.
func ReasonOf(err error) Reason {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Reason
	}
	return ""
}

// newAPIError decodes Spotify's {"error": {"status", "message", "reason"}} envelope, falling back
// to the OAuth {"error", "error_description"} shape and finally the raw body.
func newAPIError(status int, path string, body []byte) *APIError {
	e := &APIError{Status: status, Path: path}

	var envelope struct {
		Error json.RawMessage `json:"error"`
		Desc  string          `json:"error_description"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error) > 0 {
		var obj struct {
			Message string `json:"message"`
			Reason  string `json:"reason"`
		}
		var code string
		switch {
		case json.Unmarshal(envelope.Error, &obj) == nil:
			e.Message = obj.Message
			e.Reason = ParseReason(obj.Reason)
		case json.Unmarshal(envelope.Error, &code) == nil:
			e.Message = code
			if envelope.Desc != "" {
				e.Message += ": " + envelope.Desc
			}
		}
	}

	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}

	return e
}
