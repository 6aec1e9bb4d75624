package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	reconciler "github.com/ehving/noticesystem-sub000/internal/app"
	"github.com/ehving/noticesystem-sub000/internal/config"
	"github.com/ehving/noticesystem-sub000/internal/telemetry"
)

const defaultGracefulTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the reconciler and its admin API",
		Long: `Start the background jobs (retry, detection, recheck, notification,
cleanup and full resync) together with the admin HTTP API.

Without --config the built-in defaults are used; NOTICE_RECONCILER_<STORE>_DSN
variables still supply the store connections.`,
		RunE: runServe,
	}
	cmd.Flags().String("address", "", "Address to listen on (overrides server.address)")
	cmd.Flags().String("config", "", "Path to configuration file (YAML format)")
	return cmd
}

// loadConfig reads the --config flag of cmd and loads the configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	var opts []config.Option
	if configPath != "" {
		opts = append(opts, config.WithConfigPath(configPath))
	}
	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	address, err := cmd.Flags().GetString("address")
	if err != nil {
		return fmt.Errorf("failed to get address flag: %w", err)
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Telemetry shutdown failed", "error", err)
		}
	}()

	opts := []reconciler.ReconcilerAppOptions{
		reconciler.WithConfig(cfg),
		reconciler.WithMeterProvider(tel.MeterProvider()),
		reconciler.WithTracerProvider(tel.TracerProvider()),
	}
	if address != "" {
		opts = append(opts, reconciler.WithAddress(address))
	}

	app, err := reconciler.NewReconcilerApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to build reconciler: %w", err)
	}

	slog.Info("Starting notice reconciler",
		"address", app.GetHTTPServer().Addr,
		"storage", cfg.Storage.Type,
		"stores", cfg.EnabledStores())

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		slog.Info("Shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			_ = app.Stop(defaultGracefulTimeout)
			return err
		}
	}

	if err := app.Stop(defaultGracefulTimeout); err != nil {
		return err
	}
	if err := <-errCh; err != nil {
		slog.Warn("Server exited with error", "error", err)
	}
	slog.Info("Reconciler stopped")
	return nil
}
