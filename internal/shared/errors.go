package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Request errors
	ErrValidation     = fmt.Errorf("validation failed")
	ErrInvalidSession = fmt.Errorf("invalid auth session")

	// Credential errors
	ErrMissingCredential = fmt.Errorf("no refresh token stored")
	ErrReAuthRequired    = fmt.Errorf("re-authorization required")

	// Upstream errors
	ErrUpstreamAuth = fmt.Errorf("spotify token request failed")
	ErrUpstreamAPI  = fmt.Errorf("spotify API request failed")
	ErrNoDevices    = fmt.Errorf("no playback devices available")
)

// FieldError carries a human-readable validation message that is safe to return to callers.
type FieldError struct {
	Message string
}

func (e *FieldError) Error() string { return e.Message }

func (e *FieldError) Unwrap() error { return ErrValidation }

// Invalid returns a [FieldError] with msg.
func Invalid(msg string) error {
	return &FieldError{Message: msg}
}

// SessionError is an OAuth state or cookie problem detected during the callback.
type SessionError struct {
	Message string
}

func (e *SessionError) Error() string { return e.Message }

func (e *SessionError) Unwrap() error { return ErrInvalidSession }
