package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/cliqspot/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "cliqspot",
		Usage:    "Control Spotify playback from a Zoho Cliq bot",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrMissingConfig) {
			logger.Fatal("configuration incomplete", "error", err, "hint", "run 'cliqspot setup config' or set the listed environment variables")
		}
		logger.Fatalf("application error: %v", err)
	}
}
