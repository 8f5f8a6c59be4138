// package repositories provides refresh token persistence backends implementing [models.TokenStore].
package repositories

import (
	"fmt"

	"github.com/desertthunder/cliqspot/internal/models"
	"github.com/desertthunder/cliqspot/internal/shared"
)

var (
	_ models.TokenStore = (*FileTokenStore)(nil)
	_ models.TokenStore = (*SQLiteTokenStore)(nil)
)

func validateSave(userID, refreshToken string) error {
	if userID == "" || refreshToken == "" {
		return shared.Invalid("userId and refreshToken are required to save tokens.")
	}
	return nil
}

func validateGet(userID string) error {
	if userID == "" {
		return shared.Invalid("userId is required to fetch a refresh token.")
	}
	return nil
}

func missing(userID string) error {
	return fmt.Errorf("%w for user %s: ask them to authenticate via /login", shared.ErrMissingCredential, userID)
}
