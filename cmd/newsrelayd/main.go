// Command newsrelayd runs the news relay daemon: an HTTP server exposing the
// websocket session endpoint, the health check and the source catalog.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/newsrelay/newsrelay"
	"github.com/newsrelay/newsrelay/config"
	"github.com/newsrelay/newsrelay/logging"
	"github.com/newsrelay/newsrelay/server"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "newsrelayd:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(&logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})

	relay, err := newsrelay.New(cfg, func(o *newsrelay.Options) {
		o.Logger = logger
	})
	if err != nil {
		return err
	}
	defer relay.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Seed once before accepting traffic; a failed seed is not fatal, the
	// catalog workers degrade gracefully and the refresh loop retries.
	if err := relay.SeedCatalog(ctx); err != nil {
		logger.Warn("initial catalog seed failed", "error", err)
	}

	srv := server.New(relay, relay.Catalog(), func(o *server.Options) {
		o.Logger = logger.WithComponent("server")
	})
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		err := relay.RefreshCatalog(ctx, cfg.Catalog.RefreshInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
