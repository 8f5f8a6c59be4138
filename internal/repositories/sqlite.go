package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/cliqspot/internal/models"
)

// SQLiteTokenStore implements [models.TokenStore] for the refresh_tokens table.
type SQLiteTokenStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteTokenStore creates a new [SQLiteTokenStore]. The schema must already be migrated.
func NewSQLiteTokenStore(db *sql.DB) *SQLiteTokenStore {
	return &SQLiteTokenStore{db: db, now: time.Now}
}

// Save upserts the refresh token for userID.
func (s *SQLiteTokenStore) Save(ctx context.Context, userID, refreshToken string) error {
	if err := validateSave(userID, refreshToken); err != nil {
		return err
	}

	query := `
		INSERT INTO refresh_tokens (user_id, refresh_token, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET refresh_token = excluded.refresh_token, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, userID, refreshToken, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

// Get returns the refresh token stored for userID.
func (s *SQLiteTokenStore) Get(ctx context.Context, userID string) (string, error) {
	if err := validateGet(userID); err != nil {
		return "", err
	}

	var token string
	err := s.db.QueryRowContext(ctx, "SELECT refresh_token FROM refresh_tokens WHERE user_id = ?", userID).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", missing(userID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query refresh token: %w", err)
	}

	return token, nil
}

// Remove deletes the record for userID if present.
func (s *SQLiteTokenStore) Remove(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// List returns all records ordered by user id.
func (s *SQLiteTokenStore) List(ctx context.Context) ([]models.TokenRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id, refresh_token, updated_at FROM refresh_tokens ORDER BY user_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh tokens: %w", err)
	}
	defer rows.Close()

	records := []models.TokenRecord{}
	for rows.Next() {
		var r models.TokenRecord
		if err := rows.Scan(&r.UserID, &r.RefreshToken, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan refresh token: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}
