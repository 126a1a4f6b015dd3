package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"storefront/config"
	"storefront/core"
	"storefront/handlers/feed"

	"github.com/sirupsen/logrus"
)

// Opener acquires the repository the server runs against.
type Opener func(ctx context.Context) (core.StoreRepository, error)

// Run opens the repository, serves HTTP on cfg.Addr until ctx is cancelled or
// the listener fails, then shuts the server down and releases the feed and
// the repository. A failure to open the repository is returned before
// anything is served.
func Run(ctx context.Context, cfg config.ServerConfig, open Opener) error {
	repo, err := open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := repo.Close(closeCtx); err != nil {
			logrus.WithError(err).Error("Failed to close storage")
			return
		}
		logrus.Info("Storage closed")
	}()

	hub := feed.NewHub()
	defer hub.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(repo, hub),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return serve(ctx, srv, cfg)
}

func serve(ctx context.Context, srv *http.Server, cfg config.ServerConfig) error {
	errC := make(chan error, 1)
	go func() {
		logrus.WithField("addr", srv.Addr).Info("Listening")
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
