package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/cliqspot/internal/shared"
	"github.com/desertthunder/cliqspot/internal/ui"
	"github.com/urfave/cli/v3"
)

// enrolledUser is the --json projection of a token record; refresh tokens are never printed.
type enrolledUser struct {
	UserID      string    `json:"userId"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// UsersList prints every enrolled user with the time their refresh token was last written.
func (r *Runner) UsersList(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(config, r.logger)
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if cmd.Bool("json") {
		users := make([]enrolledUser, 0, len(records))
		for _, rec := range records {
			users = append(users, enrolledUser{UserID: rec.UserID, LastUpdated: rec.UpdatedAt})
		}
		return r.writeJSON(users, true)
	}

	if len(records) > 0 {
		r.writePlain("%s\n", ui.Title("Enrolled Spotify users"))
	}
	return r.writePlain("%s\n", ui.UserTable(records, time.Now()))
}

// UsersRemove deletes the stored refresh token for one user, forcing them back through /login.
func (r *Runner) UsersRemove(ctx context.Context, cmd *cli.Command) error {
	userID := strings.TrimSpace(cmd.StringArg("userId"))
	if userID == "" {
		return shared.Invalid("userId is required: cliqspot users remove <userId>")
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(config, r.logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if _, err := store.Get(ctx, userID); err != nil {
		if errors.Is(err, shared.ErrMissingCredential) {
			return r.writePlain("%s\n", ui.Warning(fmt.Sprintf("No refresh token stored for %s", userID)))
		}
		return fmt.Errorf("failed to look up %s: %w", userID, err)
	}

	if err := store.Remove(ctx, userID); err != nil {
		return fmt.Errorf("failed to remove %s: %w", userID, err)
	}

	r.logger.Info("removed refresh token", "user", userID)
	return r.writePlain("%s\n", ui.Success(fmt.Sprintf("✓ Removed %s", userID)))
}
