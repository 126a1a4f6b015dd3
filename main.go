package main

import (
	"context"
	"os"
	"os/signal"
	"storefront/config"
	"storefront/core"
	"storefront/server"
	"storefront/stores"
	"syscall"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := setupLogging(cfg.Server.LogLevel); err != nil {
		logrus.WithError(err).Fatal("Failed to set up logging")
	}

	ctx, cancel := context.WithCancel(context.Background())
	SignalC := make(chan os.Signal, 1)
	signal.Notify(SignalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		s := <-SignalC
		logrus.WithField("signal", s.String()).Info("Received signal")
		cancel()
	}()

	err = server.Run(ctx, cfg.Server, func(ctx context.Context) (core.StoreRepository, error) {
		return stores.Open(ctx, cfg.Storage)
	})
	cancel()
	if err != nil {
		logrus.WithError(err).Fatal("Server stopped")
	}
}

func setupLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	return nil
}
