package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/cliqspot/internal/models"
)

func TestUserTable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Empty", func(t *testing.T) {
		out := UserTable(nil, now)
		if !strings.Contains(out, "/login") {
			t.Errorf("expected enrollment hint, got %q", out)
		}
	})

	t.Run("Rows", func(t *testing.T) {
		records := []models.TokenRecord{
			{UserID: "alice", UpdatedAt: now.Add(-2 * time.Hour)},
			{UserID: "a-much-longer-user-id", UpdatedAt: now.Add(-72 * time.Hour)},
		}

		out := UserTable(records, now)
		lines := strings.Split(out, "\n")
		if !strings.Contains(lines[0], "USER ID") {
			t.Errorf("expected header, got %q", lines[0])
		}
		for _, want := range []string{"alice", "a-much-longer-user-id", "2h", "3d", "2 enrolled", "2025-05-29T12:00:00Z"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}

		col := strings.Index(lines[1], "2025")
		if col < 0 || strings.Index(lines[2], "2025") != col {
			t.Errorf("expected aligned timestamp column:\n%s", out)
		}
	})
}

func TestAge(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{49 * time.Hour, "2d"},
	}

	for _, tt := range tests {
		if got := Age(tt.d); got != tt.want {
			t.Errorf("Age(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
