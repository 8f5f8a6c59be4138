// package models defines the data model for the Cliq to Spotify bridge
package models

import (
	"context"
	"time"
)

// TokenRecord is the stored credential for one Spotify account.
type TokenRecord struct {
	UserID       string    `json:"userId"`
	RefreshToken string    `json:"refreshToken"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TokenStore persists refresh tokens keyed by Spotify user id.
//
// Implementations must be safe for concurrent use.
type TokenStore interface {
	Save(ctx context.Context, userID, refreshToken string) error // Save writes or overwrites the record for userID
	Get(ctx context.Context, userID string) (string, error)      // Get returns the refresh token or shared.ErrMissingCredential
	Remove(ctx context.Context, userID string) error             // Remove deletes the record; absent users are a no-op
	List(ctx context.Context) ([]TokenRecord, error)             // List returns every record ordered by user id
}
