package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	tu "github.com/desertthunder/cliqspot/internal/testing"
)

func TestStatusHandler(t *testing.T) {
	t.Run("Health", func(t *testing.T) {
		started := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		h := NewStatusHandler(tu.NewMemoryTokenStore(nil), started, log.New(io.Discard))
		h.now = func() time.Time { return started.Add(90*time.Second + 500*time.Millisecond) }

		rec := httptest.NewRecorder()
		h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		var body map[string]any
		json.Unmarshal(rec.Body.Bytes(), &body)
		if body["status"] != "ok" || body["uptime"] != 90.5 {
			t.Errorf("unexpected body %v", body)
		}
	})

	t.Run("Users", func(t *testing.T) {
		store := tu.NewMemoryTokenStore(nil)
		ctx := context.Background()
		store.Save(ctx, "bob", "rt-b")
		store.Save(ctx, "alice", "rt-a")

		h := NewStatusHandler(store, time.Time{}, log.New(io.Discard))
		rec := httptest.NewRecorder()
		h.Users(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

		var body struct {
			Count int `json:"count"`
			Users []struct {
				UserID      string    `json:"userId"`
				LastUpdated time.Time `json:"lastUpdated"`
			} `json:"users"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}

		if body.Count != 2 || body.Users[0].UserID != "alice" || body.Users[1].UserID != "bob" {
			t.Errorf("unexpected users %+v", body)
		}
		if body.Users[0].LastUpdated.IsZero() {
			t.Error("expected lastUpdated to be set")
		}
		if strings.Contains(rec.Body.String(), "rt-a") {
			t.Error("expected refresh tokens to stay private")
		}
	})

	t.Run("Users Store Failure", func(t *testing.T) {
		store := tu.NewMemoryTokenStore(nil)
		store.Err = errors.New("disk on fire")

		h := NewStatusHandler(store, time.Time{}, log.New(io.Discard))
		rec := httptest.NewRecorder()
		h.Users(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}
