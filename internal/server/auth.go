package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cliqspot/internal/models"
	"github.com/desertthunder/cliqspot/internal/services"
	"github.com/desertthunder/cliqspot/internal/shared"
	"golang.org/x/oauth2"
)

const (
	StateCookie = "spotify_auth_state"
	StateMaxAge = 20 * time.Minute
)

// Authorizer is the token side of the authorization code flow. Implemented by [services.SpotifyService].
type Authorizer interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	Profile(ctx context.Context, accessToken string) (*services.SpotifyUser, error)
}

// AuthOpts configures an [AuthHandler].
type AuthOpts struct {
	Auth          Authorizer
	Store         models.TokenStore
	BaseURL       string
	SecureCookies bool
	Logger        *log.Logger
}

// AuthHandler enrolls users through Spotify's authorization code flow.
//
// GET /login sets a single-use state cookie and redirects to Spotify. GET /callback checks the
// state, exchanges the code, resolves the account id and stores the refresh token.
type AuthHandler struct {
	auth     Authorizer
	store    models.TokenStore
	baseURL  string
	secure   bool
	logger   *log.Logger
	newState func() string
}

// NewAuthHandler creates a new [AuthHandler].
func NewAuthHandler(opts AuthOpts) *AuthHandler {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &AuthHandler{
		auth:     opts.Auth,
		store:    opts.Store,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		secure:   opts.SecureCookies,
		logger:   logger,
		newState: shared.GenerateState,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/login", "/callback"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed."})
		return
	}

	switch r.URL.Path {
	case "/login":
		h.Login(w, r)
	case "/callback":
		h.Callback(w, r)
	default:
		notFound(w, r)
	}
}

// Login starts the authorization flow.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := h.newState()
	http.SetCookie(w, h.cookie(state, int(StateMaxAge.Seconds())))

	h.logger.Debug("redirecting to spotify authorize", "state", shared.Redact(state), "secure", h.secure)
	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusFound)
}

// Callback completes the authorization flow. The state cookie is cleared on every call.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookie("", -1))

	code, err := h.checkSession(r)
	if err != nil {
		h.logger.Warn("rejected oauth callback", "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	page, err := h.enroll(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback failed", "error", err)
		if errors.Is(err, shared.ErrReAuthRequired) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Spotify callback failed.", Details: err.Error()})
			return
		}
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "Spotify callback failed.", Details: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := successPage.Execute(w, page); err != nil {
		h.logger.Error("failed to render success page", "error", err)
	}
}

func (h *AuthHandler) checkSession(r *http.Request) (string, error) {
	q := r.URL.Query()

	code := q.Get("code")
	if code == "" {
		if reason := q.Get("error"); reason != "" {
			h.logger.Warn("spotify denied authorization", "error", reason)
		}
		return "", &shared.SessionError{Message: "Missing authorization code."}
	}

	state := q.Get("state")
	if state == "" {
		return "", &shared.SessionError{Message: "Missing state parameter."}
	}

	stored, err := r.Cookie(StateCookie)
	if err != nil || stored.Value == "" {
		return "", &shared.SessionError{Message: "No stored state found. Cookies may be blocked or expired."}
	}

	if state != stored.Value {
		h.logger.Warn("state mismatch", "received", shared.Redact(state), "stored", shared.Redact(stored.Value))
		return "", &shared.SessionError{Message: "State mismatch. Please restart the login process."}
	}

	return code, nil
}

type enrollment struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	BaseURL      string
}

// enroll exchanges code, resolves the account and persists its refresh token. When Spotify omits
// the refresh token an existing one must already be on file.
func (h *AuthHandler) enroll(ctx context.Context, code string) (*enrollment, error) {
	token, err := h.auth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := h.auth.Profile(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	page := &enrollment{
		UserID:       user.ID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		BaseURL:      h.baseURL,
	}

	if token.RefreshToken != "" {
		if err := h.store.Save(ctx, user.ID, token.RefreshToken); err != nil {
			return nil, fmt.Errorf("failed to store refresh token: %w", err)
		}
		h.logger.Info("enrolled user", "user", user.ID)
		return page, nil
	}

	if _, err := h.store.Get(ctx, user.ID); err != nil {
		if errors.Is(err, shared.ErrMissingCredential) {
			return nil, fmt.Errorf("%w: Spotify did not return a refresh token. Ask the user to re-consent", shared.ErrReAuthRequired)
		}
		return nil, err
	}

	page.RefreshToken = "stored previously"
	h.logger.Info("re-authorized user with stored refresh token", "user", user.ID)
	return page, nil
}

func (h *AuthHandler) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8" />
    <title>Spotify Auth Success</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               margin: 3rem auto; max-width: 640px; line-height: 1.6; color: #0f172a; }
        code { background: #f1f5f9; padding: 0.2rem 0.35rem; border-radius: 4px; }
        pre { background: #0f172a; color: #f8fafc; padding: 1rem; border-radius: 8px; overflow-x: auto; }
        .container { border: 1px solid #cbd5f5; padding: 2rem; border-radius: 12px;
                     box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Authorization Successful</h1>
        <p>Spotify has authorized this Zoho Cliq controller. You can close this window.</p>
        <p><strong>User ID:</strong> {{.UserID}}</p>
        <pre>{
  "accessToken": "{{.AccessToken}}",
  "refreshToken": "{{.RefreshToken}}"
}</pre>
        <p>Next step: configure your Zoho Cliq bot to call <code>{{.BaseURL}}/spotify/*</code> endpoints with <code>userId={{.UserID}}</code>.</p>
    </div>
</body>
</html>
`))
