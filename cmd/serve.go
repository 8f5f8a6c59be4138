package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/cliqspot/internal/server"
	"github.com/desertthunder/cliqspot/internal/services"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 5 * time.Second

// Serve starts the HTTP service and blocks until SIGINT/SIGTERM, then drains in-flight requests.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	store, closeStore, err := openStore(config, r.logger)
	if err != nil {
		return err
	}
	defer closeStore()

	tokens, closeCache, err := openCache(ctx, config, r.logger)
	if err != nil {
		return err
	}
	defer closeCache()

	sp := config.Credentials.Spotify
	spotify, err := services.NewSpotifyService(services.SpotifyOpts{
		ClientID:     sp.ClientID,
		ClientSecret: sp.ClientSecret,
		RedirectURI:  sp.RedirectURI,
		AuthURL:      sp.AuthURL,
		TokenURL:     sp.TokenURL,
		APIURL:       sp.APIURL,
		Timeout:      config.Server.Timeout(),
		Store:        store,
		Cache:        tokens,
		Logger:       r.logger,
	})
	if err != nil {
		return err
	}

	handler := server.New(server.Options{
		Auth:          spotify,
		Player:        services.NewPlayer(spotify, config.Player.SettleDelay(), r.logger),
		Store:         store,
		Logger:        r.logger,
		BaseURL:       config.Server.BaseURL,
		BotSecret:     config.Server.BotSecret,
		CORSOrigins:   config.Server.CORSOrigins,
		SecureCookies: config.Server.SecureCookies,
		Started:       time.Now(),
	})

	if config.Server.BotSecret == "" {
		r.logger.Warn("BOT_SHARED_SECRET is not set; /spotify routes are open to anyone who can reach this service")
	}

	srv := &http.Server{
		Addr:              config.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("listening", "addr", srv.Addr, "base_url", config.Server.BaseURL, "client_id", sp.ClientID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
