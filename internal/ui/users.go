package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/cliqspot/internal/models"
)

var (
	headerCell = lipgloss.NewStyle().Bold(true).PaddingRight(2)
	cell       = lipgloss.NewStyle().PaddingRight(2)
)

// UserTable renders enrolled users as aligned columns: user id, last update and its age relative to now.
func UserTable(records []models.TokenRecord, now time.Time) string {
	if len(records) == 0 {
		return Help("No users have authorized Spotify yet. Share /login to enroll one.")
	}

	idWidth := len("USER ID")
	for _, r := range records {
		idWidth = max(idWidth, lipgloss.Width(r.UserID))
	}

	var b strings.Builder
	b.WriteString(row(headerCell, idWidth, "USER ID", "UPDATED", "AGE"))
	for _, r := range records {
		b.WriteString("\n")
		b.WriteString(row(cell, idWidth, r.UserID, r.UpdatedAt.UTC().Format(time.RFC3339), Age(now.Sub(r.UpdatedAt))))
	}
	b.WriteString("\n\n")
	b.WriteString(Success(fmt.Sprintf("%d enrolled", len(records))))

	return b.String()
}

func row(style lipgloss.Style, idWidth int, id, updated, age string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		style.Width(idWidth+2).Render(id),
		style.Width(len(time.RFC3339)+2).Render(updated),
		style.Render(age),
	)
}

// Age formats d coarsely: "just now", "5m", "3h", "12d".
func Age(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
