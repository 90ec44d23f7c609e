// Command bucketgate serves the object gateway over HTTP.
//
//	bucketgate -config bucketgate.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/bucketgate/internal/config"
	"github.com/koustreak/bucketgate/internal/gateway"
	"github.com/koustreak/bucketgate/internal/logger"
	"github.com/koustreak/bucketgate/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "bucketgate: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.LoggerConfig())

	factory, err := gateway.NewFactory(cfg.Provider(), cfg.Storage.Defaults)
	if err != nil {
		return err
	}
	gw, err := gateway.New(gateway.Options{
		Factory:  factory,
		Defaults: cfg.Storage.Defaults,
		Timeout:  cfg.Storage.Timeout,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	srv, err := server.New(server.Options{
		Addr:    cfg.Server.Addr,
		Gateway: gw,
		Logger:  log,
		Debug:   cfg.Server.Debug,
	})
	if err != nil {
		return err
	}

	log.InfoWith("starting bucketgate", map[string]interface{}{
		"provider": string(cfg.Provider()),
		"bucket":   cfg.Storage.Defaults.BucketName,
		"addr":     cfg.Server.Addr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
