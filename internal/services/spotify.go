// Spotify accounts service and Web API client.
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cliqspot/internal/cache"
	"github.com/desertthunder/cliqspot/internal/models"
	"github.com/desertthunder/cliqspot/internal/shared"
	"golang.org/x/oauth2"
)

const (
	SpotifyAuthURL  = "https://accounts.spotify.com/authorize"
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
	SpotifyAPIURL   = "https://api.spotify.com/v1"

	DefaultTimeout = 10 * time.Second
)

// Scopes requested at login.
var Scopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-read-recently-played",
	"user-read-private",
	"user-read-email",
}

// SpotifyOpts configures a [SpotifyService]. Empty endpoint URLs fall back to Spotify's hosts.
type SpotifyOpts struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	APIURL       string
	Timeout      time.Duration

	Store      models.TokenStore
	Cache      cache.TokenCache
	HTTPClient *http.Client
	Logger     *log.Logger
}

// SpotifyService exchanges authorization codes, refreshes access tokens from the token store and
// proxies authenticated Web API calls.
type SpotifyService struct {
	config     *oauth2.Config
	apiURL     string
	httpClient *http.Client
	store      models.TokenStore
	cache      cache.TokenCache
	logger     *log.Logger
	now        func() time.Time
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 client credentials.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing spotify client_id", shared.ErrMissingConfig)
	}
	if opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing spotify client_secret", shared.ErrMissingConfig)
	}
	if opts.RedirectURI == "" {
		return nil, fmt.Errorf("%w: missing spotify redirect_uri", shared.ErrMissingConfig)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: token store is required", shared.ErrInvalidConfig)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	config := &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		RedirectURL:  opts.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   orDefault(opts.AuthURL, SpotifyAuthURL),
			TokenURL:  orDefault(opts.TokenURL, SpotifyTokenURL),
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	return &SpotifyService{
		config:     config,
		apiURL:     strings.TrimRight(orDefault(opts.APIURL, SpotifyAPIURL), "/"),
		httpClient: client,
		store:      opts.Store,
		cache:      opts.Cache,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// AuthURL returns the authorization URL the user is redirected to at login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for an access token and, usually, a refresh token.
func (s *SpotifyService) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, shared.Invalid("authorization code is required.")
	}

	token, err := s.config.Exchange(s.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", tokenError(err))
	}
	return token, nil
}

// Refresh returns a usable access token for userID.
//
// A cached token is returned without contacting Spotify. Otherwise the stored refresh token is
// exchanged; a rotated refresh token replaces the stored one.
func (s *SpotifyService) Refresh(ctx context.Context, userID string) (string, error) {
	if s.cache != nil {
		if token, ok := s.cache.Get(ctx, userID); ok {
			return token, nil
		}
	}

	refreshToken, err := s.store.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	source := s.config.TokenSource(s.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("failed to refresh access token for %s: %w", userID, tokenError(err))
	}

	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		if err := s.store.Save(ctx, userID, token.RefreshToken); err != nil {
			s.logger.Warn("failed to store rotated refresh token", "user", userID, "error", err)
		} else {
			s.logger.Debug("stored rotated refresh token", "user", userID)
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, userID, token.AccessToken, cache.TTL(s.now(), token.Expiry))
	}

	return token.AccessToken, nil
}

// Request performs an authenticated Web API call for userID and returns the raw JSON response,
// or an empty object when Spotify answers without a body.
func (s *SpotifyService) Request(ctx context.Context, userID, method, path string, body any) (json.RawMessage, error) {
	token, err := s.Refresh(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := s.doRequest(ctx, token, method, path, body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && s.cache != nil {
			s.cache.Delete(ctx, userID)
		}
		return nil, err
	}
	return data, nil
}

// Profile retrieves the profile of the account that owns accessToken.
func (s *SpotifyService) Profile(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	data, err := s.doRequest(ctx, accessToken, http.MethodGet, "/me", nil)
	if err != nil {
		return nil, err
	}

	var user SpotifyUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("%w: failed to decode profile: %v", shared.ErrUpstreamAPI, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: profile response has no user id", shared.ErrUpstreamAPI)
	}
	return &user, nil
}

// doRequest performs an HTTP request to the Spotify API with a bearer token.
func (s *SpotifyService) doRequest(ctx context.Context, token, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.apiURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Path: path, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Status: resp.StatusCode, Path: path, Message: "failed to read response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, path, data)
		s.logger.Debug("spotify API error", "method", method, "path", path, "status", apiErr.Status, "reason", apiErr.Reason)
		return nil, apiErr
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		return json.RawMessage("{}"), nil
	}
	return json.RawMessage(data), nil
}

func (s *SpotifyService) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// tokenError describes a failed token endpoint call as [shared.ErrUpstreamAuth].
func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		detail := strings.TrimSpace(string(re.Body))
		if re.ErrorCode != "" {
			detail = re.ErrorCode
			if re.ErrorDescription != "" {
				detail += ": " + re.ErrorDescription
			}
		}

		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		if re.ErrorCode == "invalid_grant" {
			return fmt.Errorf("%w (status %d): %s; the user must authenticate again via /login", shared.ErrUpstreamAuth, status, detail)
		}
		return fmt.Errorf("%w (status %d): %s", shared.ErrUpstreamAuth, status, detail)
	}
	return fmt.Errorf("%w: %v", shared.ErrUpstreamAuth, err)
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
