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
	"github.com/spf13/viper"

	pvpapp "github.com/pvpmeta/pvpmeta-server/internal/app"
	"github.com/pvpmeta/pvpmeta-server/internal/config"
	"github.com/pvpmeta/pvpmeta-server/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the update server",
	Long: `Start the update server. It bootstraps an empty store from every active source,
then checks each source on its interval and applies changed payloads one at a time.

The configuration file (--config) lists the sources, the database and the scheduler
settings. Changes to the active flag of a source are picked up without a restart.`,
	RunE: runServe,
}

const defaultGracefulTimeout = 30 * time.Second

func init() {
	serveCmd.Flags().String("address", "", "Address to listen on (overrides server.address, default :8080)")
	addConfigFlag(serveCmd, false)

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
	}
}

// listenAddress resolves the address from the flag, then the config file
func listenAddress(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg.Server != nil && cfg.Server.Address != "" {
		return cfg.Server.Address
	}
	return ""
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}

	watcher, err := config.NewWatcher(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := watcher.Config()
	slog.Info("Loaded configuration", "path", configPath, "sources", len(cfg.Sources))

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	opts := []pvpapp.Options{
		pvpapp.WithConfigWatcher(watcher),
		pvpapp.WithMeterProvider(tel.MeterProvider()),
		pvpapp.WithTracerProvider(tel.TracerProvider()),
		pvpapp.WithDebugSQL(viper.GetBool("debug")),
	}
	if addr := listenAddress(viper.GetString("address"), cfg); addr != "" {
		opts = append(opts, pvpapp.WithAddress(addr))
	}
	if h := tel.MetricsHandler(); h != nil {
		opts = append(opts, pvpapp.WithMetricsHandler(h))
	}

	server, err := pvpapp.NewApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-errChan:
		_ = server.Stop(defaultGracefulTimeout)
		return err
	}

	if err := server.Stop(defaultGracefulTimeout); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}
	return <-errChan
}
