package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cliqspot/internal/services"
	tu "github.com/desertthunder/cliqspot/internal/testing"
)

type testServer struct {
	handler http.Handler
	fake    *tu.FakeSpotify
	store   *tu.MemoryTokenStore
	secret  string
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()

	logger := log.New(io.Discard)
	fake := tu.NewFakeSpotify(t)
	store := tu.NewMemoryTokenStore(map[string]string{"u1": "rt1"})

	spotify, err := services.NewSpotifyService(services.SpotifyOpts{
		ClientID:     fake.ClientID,
		ClientSecret: fake.ClientSecret,
		RedirectURI:  "http://localhost:3000/callback",
		AuthURL:      fake.AuthURL(),
		TokenURL:     fake.TokenURL(),
		APIURL:       fake.APIURL(),
		Store:        store,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	handler := New(Options{
		Auth:      spotify,
		Player:    services.NewPlayer(spotify, time.Millisecond, logger),
		Store:     store,
		Logger:    logger,
		BaseURL:   "http://localhost:3000",
		BotSecret: secret,
	})

	return &testServer{handler: handler, fake: fake, store: store, secret: secret}
}

func (s *testServer) do(method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.secret != "" {
		req.Header.Set(BotSecretHeader, s.secret)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec, decoded
}

func TestPlaybackCommands(t *testing.T) {
	tests := []struct {
		name     string
		route    string
		body     string
		method   string
		upstream string
		action   string
	}{
		{"Play", "/spotify/play", `{"userId":"u1","trackUri":"spotify:track:1"}`, http.MethodPut, "/me/player/play", "play"},
		{"Pause", "/spotify/pause", `{"userId":"u1"}`, http.MethodPut, "/me/player/pause", "pause"},
		{"Next", "/spotify/next", `{"userId":"u1"}`, http.MethodPost, "/me/player/next", "next"},
		{"Previous", "/spotify/previous", `{"userId":"u1"}`, http.MethodPost, "/me/player/previous", "previous"},
		{"Volume", "/spotify/volume", `{"userId":"u1","volume_percent":30}`, http.MethodPut, "/me/player/volume", "volume"},
		{"Seek", "/spotify/seek", `{"userId":"u1","position_ms":1500}`, http.MethodPut, "/me/player/seek", "seek"},
		{"Queue", "/spotify/queue", `{"userId":"u1","trackUri":"spotify:track:2"}`, http.MethodPost, "/me/player/queue", "queue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, "s3cret")
			s.fake.On(tt.method, tt.upstream, http.StatusNoContent, "")

			rec, body := s.do(http.MethodPost, tt.route, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if body["status"] != "ok" || body["action"] != tt.action {
				t.Errorf("unexpected body %v", body)
			}
			if n := len(s.fake.CallsTo(tt.method, tt.upstream)); n != 1 {
				t.Errorf("expected 1 upstream call, got %d", n)
			}
		})
	}

	t.Run("Extras", func(t *testing.T) {
		s := newTestServer(t, "")
		s.fake.On(http.MethodPut, "/me/player/volume", http.StatusNoContent, "")
		s.fake.On(http.MethodPost, "/me/player/queue", http.StatusNoContent, "")

		_, body := s.do(http.MethodPost, "/spotify/volume", `{"userId":"u1","volume_percent":30}`)
		if body["volume_percent"] != float64(30) {
			t.Errorf("expected volume_percent 30, got %v", body)
		}

		_, body = s.do(http.MethodPost, "/spotify/queue", `{"userId":"u1","trackUri":"spotify:track:2"}`)
		if body["trackUri"] != "spotify:track:2" {
			t.Errorf("expected trackUri, got %v", body)
		}

		calls := s.fake.CallsTo(http.MethodPost, "/me/player/queue")
		if calls[0].Query.Get("uri") != "spotify:track:2" {
			t.Errorf("expected uri query, got %v", calls[0].Query)
		}
	})
}

func TestPlaybackValidation(t *testing.T) {
	tests := []struct {
		name  string
		route string
		body  string
		want  string
	}{
		{"Missing User", "/spotify/pause", `{}`, "userId is required in the request body."},
		{"Empty Body", "/spotify/next", ``, "userId is required in the request body."},
		{"Invalid JSON", "/spotify/pause", `{"userId":`, "Request body must be valid JSON."},
		{"Play Without Track", "/spotify/play", `{"userId":"u1"}`, "trackUri is required to start playback."},
		{"Queue Without Track", "/spotify/queue", `{"userId":"u1"}`, "trackUri is required to queue a song."},
		{"Volume Missing", "/spotify/volume", `{"userId":"u1"}`, "volume_percent must be a number between 0 and 100."},
		{"Volume As String", "/spotify/volume", `{"userId":"u1","volume_percent":"50"}`, "volume_percent must be a number between 0 and 100."},
		{"Volume Out Of Range", "/spotify/volume", `{"userId":"u1","volume_percent":150}`, "volume_percent must be a number between 0 and 100."},
		{"Seek Negative", "/spotify/seek", `{"userId":"u1","position_ms":-1}`, "position_ms must be a positive number."},
		{"Seek As String", "/spotify/seek", `{"userId":"u1","position_ms":"10"}`, "position_ms must be a positive number."},
		{"Seek Beyond Int64", "/spotify/seek", `{"userId":"u1","position_ms":1e30}`, "position_ms must be a positive number."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, "")

			rec, body := s.do(http.MethodPost, tt.route, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if body["error"] != tt.want {
				t.Errorf("expected %q, got %v", tt.want, body["error"])
			}
			if n := len(s.fake.Calls()); n != 0 {
				t.Errorf("expected no upstream calls, got %d", n)
			}
		})
	}

	t.Run("Query Routes", func(t *testing.T) {
		s := newTestServer(t, "")

		_, body := s.do(http.MethodGet, "/spotify/current", "")
		if body["error"] != "userId query parameter is required." {
			t.Errorf("unexpected current error %v", body)
		}

		_, body = s.do(http.MethodGet, "/spotify/devices", "")
		if body["error"] != "userId is required as a query parameter." {
			t.Errorf("unexpected devices error %v", body)
		}
	})
}

func TestPlaybackErrors(t *testing.T) {
	t.Run("Premium Required", func(t *testing.T) {
		s := newTestServer(t, "")
		s.fake.Fail(http.MethodPut, "/me/player/pause", http.StatusForbidden, "PREMIUM_REQUIRED", "Player command failed: Premium required")

		rec, body := s.do(http.MethodPost, "/spotify/pause", `{"userId":"u1"}`)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if body["error"] != "Unable to pause playback." || body["solution"] == nil {
			t.Errorf("unexpected body %v", body)
		}
	})

	t.Run("No Active Device", func(t *testing.T) {
		s := newTestServer(t, "")
		s.fake.Fail(http.MethodPost, "/me/player/next", http.StatusNotFound, "NO_ACTIVE_DEVICE", "Player command failed: No active device found")

		rec, body := s.do(http.MethodPost, "/spotify/next", `{"userId":"u1"}`)
		if rec.Code != http.StatusNotFound || body["solution"] == nil {
			t.Errorf("expected 404 with solution, got %d %v", rec.Code, body)
		}
	})

	t.Run("Generic Upstream Failure", func(t *testing.T) {
		s := newTestServer(t, "")
		s.fake.Fail(http.MethodPost, "/me/player/previous", http.StatusInternalServerError, "", "Server error")

		rec, body := s.do(http.MethodPost, "/spotify/previous", `{"userId":"u1"}`)
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		if body["error"] != "Unable to go to the previous track." || !strings.Contains(body["details"].(string), "500") {
			t.Errorf("unexpected body %v", body)
		}
	})

	t.Run("Unknown User", func(t *testing.T) {
		s := newTestServer(t, "")

		rec, body := s.do(http.MethodPost, "/spotify/pause", `{"userId":"stranger"}`)
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		if !strings.Contains(body["details"].(string), "/login") {
			t.Errorf("expected login hint, got %v", body)
		}
		if n := len(s.fake.Calls()); n != 0 {
			t.Errorf("expected no upstream calls, got %d", n)
		}
	})
}

func TestPlaybackResume(t *testing.T) {
	t.Run("No Devices", func(t *testing.T) {
		s := newTestServer(t, "")
		s.fake.On(http.MethodGet, "/me/player/devices", http.StatusOK, `{"devices":[]}`)
		s.fake.On(http.MethodGet, "/me/player", http.StatusNoContent, "")

		rec, body := s.do(http.MethodPost, "/spotify/resume", `{"userId":"u1"}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if body["error"] != "Unable to resume playback." || body["solution"] == nil {
			t.Errorf("unexpected body %v", body)
		}
	})

	t.Run("Already Playing", func(t *testing.T) {
		s := newTestServer(t, "")
		s.fake.On(http.MethodGet, "/me/player/devices", http.StatusOK, `{"devices":[{"id":"d1","name":"Laptop","is_active":true}]}`)
		s.fake.On(http.MethodGet, "/me/player", http.StatusOK, `{"is_playing":true,"progress_ms":5,"device":{"id":"d1","name":"Laptop"},"item":{"name":"Song","uri":"spotify:track:1","artists":[{"name":"A"}]}}`)

		rec, body := s.do(http.MethodPost, "/spotify/resume", `{"userId":"u1"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body["message"] != "Track is already playing" {
			t.Errorf("unexpected body %v", body)
		}
		track := body["track"].(map[string]any)
		if track["is_playing"] != true || track["name"] != "Song" {
			t.Errorf("unexpected track %v", track)
		}
		if n := len(s.fake.CallsTo(http.MethodPut, "/me/player/play")); n != 0 {
			t.Errorf("expected no play command, got %d", n)
		}
	})

	t.Run("Resumes Paused Track", func(t *testing.T) {
		s := newTestServer(t, "")
		s.fake.On(http.MethodGet, "/me/player/devices", http.StatusOK, `{"devices":[{"id":"d1","name":"Laptop","is_active":true}]}`)
		s.fake.On(http.MethodGet, "/me/player", http.StatusOK, `{"is_playing":false,"progress_ms":42,"device":{"id":"d1"},"item":{"name":"Song","uri":"spotify:track:1","artists":[{"name":"A"}]}}`)
		s.fake.On(http.MethodPut, "/me/player/play", http.StatusNoContent, "")

		rec, body := s.do(http.MethodPost, "/spotify/resume", `{"userId":"u1"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		track := body["track"].(map[string]any)
		if track["position_ms"] != float64(42) || track["resumed_at"] == nil {
			t.Errorf("unexpected track %v", track)
		}

		plays := s.fake.CallsTo(http.MethodPut, "/me/player/play")
		if len(plays) != 1 || !strings.Contains(string(plays[0].Body), `"position_ms":42`) {
			t.Errorf("expected play at offset, got %+v", plays)
		}
	})
}

func TestPlaybackStatus(t *testing.T) {
	t.Run("Current Without Playback", func(t *testing.T) {
		s := newTestServer(t, "")
		s.fake.On(http.MethodGet, "/me/player", http.StatusNoContent, "")

		rec, body := s.do(http.MethodGet, "/spotify/current?userId=u1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body["is_playing"] != false || body["message"] != "No active playback on this account." {
			t.Errorf("unexpected body %v", body)
		}
		if n := len(s.fake.CallsTo(http.MethodGet, "/me/player/queue")); n != 0 {
			t.Errorf("expected no queue call, got %d", n)
		}
	})

	t.Run("Current", func(t *testing.T) {
		s := newTestServer(t, "")
		s.fake.On(http.MethodGet, "/me/player", http.StatusOK, `{"is_playing":true,"progress_ms":1000,"item":{"name":"Song","duration_ms":2000,"uri":"spotify:track:1","artists":[{"name":"A"},{"name":"B"}],"album":{"images":[{"url":"https://img"}]}}}`)
		s.fake.On(http.MethodGet, "/me/player/queue", http.StatusOK, `{"queue":[{"uri":"spotify:track:2"}]}`)
		s.fake.Fail(http.MethodGet, "/me/player/recently-played", http.StatusInternalServerError, "", "down")

		rec, body := s.do(http.MethodGet, "/spotify/current?userId=u1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		want := map[string]any{
			"track_name":         "Song",
			"artist":             "A, B",
			"album_image":        "https://img",
			"progress_ms":        float64(1000),
			"duration_ms":        float64(2000),
			"is_playing":         true,
			"next_track_uri":     "spotify:track:2",
			"previous_track_uri": nil,
		}
		for k, v := range want {
			if body[k] != v {
				t.Errorf("expected %s=%v, got %v", k, v, body[k])
			}
		}
	})

	t.Run("Current With Queue Failure", func(t *testing.T) {
		s := newTestServer(t, "")
		s.fake.On(http.MethodGet, "/me/player", http.StatusOK, `{"is_playing":true,"progress_ms":1000,"item":{"name":"Song","duration_ms":2000,"uri":"spotify:track:1","artists":[{"name":"A"}]}}`)
		s.fake.Fail(http.MethodGet, "/me/player/queue", http.StatusInternalServerError, "", "down")
		s.fake.On(http.MethodGet, "/me/player/recently-played", http.StatusOK, `{"items":[{"track":{"uri":"spotify:track:0"}}]}`)

		rec, body := s.do(http.MethodGet, "/spotify/current?userId=u1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body["next_track_uri"] != nil {
			t.Errorf("expected null next_track_uri, got %v", body["next_track_uri"])
		}
		if body["previous_track_uri"] != "spotify:track:0" {
			t.Errorf("expected previous_track_uri, got %v", body["previous_track_uri"])
		}
		if body["album_image"] != nil {
			t.Errorf("expected null album_image, got %v", body["album_image"])
		}
	})

	t.Run("Devices", func(t *testing.T) {
		s := newTestServer(t, "")
		s.fake.On(http.MethodGet, "/me/player/devices", http.StatusOK, `{"devices":[{"id":"d1","name":"Phone","type":"Smartphone","is_active":true,"is_private_session":false,"is_restricted":false,"volume_percent":70,"supports_volume":true}]}`)

		rec, body := s.do(http.MethodGet, "/spotify/devices?userId=u1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body["count"] != float64(1) {
			t.Errorf("expected count 1, got %v", body["count"])
		}

		device := body["devices"].([]any)[0].(map[string]any)
		if _, ok := device["supports_volume"]; ok {
			t.Error("expected device projection to drop unknown fields")
		}
		for _, key := range []string{"id", "name", "type", "is_active", "is_private_session", "is_restricted", "volume_percent"} {
			if _, ok := device[key]; !ok {
				t.Errorf("expected %s in device", key)
			}
		}
	})

	t.Run("Connect", func(t *testing.T) {
		s := newTestServer(t, "")

		_, body := s.do(http.MethodPost, "/spotify/connect", `{"userId":"u1"}`)
		if body["login_url"] != "http://localhost:3000/login" || body["connected"] != true {
			t.Errorf("unexpected body %v", body)
		}

		_, body = s.do(http.MethodPost, "/spotify/connect", `{"userId":"new"}`)
		if body["connected"] != false {
			t.Errorf("expected new user to be disconnected, got %v", body)
		}

		_, body = s.do(http.MethodPost, "/spotify/connect", ``)
		if body["status"] != "ok" || body["connected"] != false {
			t.Errorf("expected anonymous connect, got %v", body)
		}
	})
}

func TestPlaybackGuard(t *testing.T) {
	s := newTestServer(t, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/spotify/pause", strings.NewReader(`{"userId":"u1"}`))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if n := len(s.fake.Calls()); n != 0 {
		t.Errorf("expected no upstream calls, got %d", n)
	}

	t.Run("Public Routes Are Open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("Wrong Method", func(t *testing.T) {
		rec, _ := s.do(http.MethodGet, "/spotify/pause", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}
