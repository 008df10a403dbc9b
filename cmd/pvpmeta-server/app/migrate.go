package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pvpmeta/pvpmeta-server/database"
	"github.com/pvpmeta/pvpmeta-server/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool",
	Long:  `Database migration tool for managing schema versions. Use with 'up' or 'down' subcommands.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Usage()
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending database migrations",
	Long: `Apply all pending database migrations to bring the schema up to date.
The server also does this on startup.`,
	RunE: runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migration group",
	Long: `Roll back the most recently applied group of migrations.
WARNING: This operation can result in data loss. Use with caution.

Example:
  pvpmeta-server migrate down --config config.yaml --yes`,
	RunE: runMigrateDown,
}

func init() {
	migrateCmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	addConfigFlag(migrateCmd, true)

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func openForMigration(cmd *cobra.Command) (*db.Connection, error) {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(contextOf(cmd), cfg.Database, db.WithDebug(viper.GetBool("debug")))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return conn, nil
}

func closeConnection(conn *db.Connection) {
	if err := conn.Close(); err != nil {
		slog.Error("Error closing database connection", "error", err)
	}
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	conn, err := openForMigration(cmd)
	if err != nil {
		return err
	}
	defer closeConnection(conn)

	slog.Info("Applying database migrations...")
	return database.MigrateUp(contextOf(cmd), conn.DB)
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("failed to get yes flag: %w", err)
	}
	if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
		"WARNING: This will roll back the last migration group and may result in data loss. Continue?") {
		slog.Info("Migration cancelled")
		return fmt.Errorf("migration cancelled by user")
	}

	conn, err := openForMigration(cmd)
	if err != nil {
		return err
	}
	defer closeConnection(conn)

	return database.MigrateDown(contextOf(cmd), conn.DB)
}

// confirm asks a yes/no question and reports whether the answer was yes
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s (yes/no): ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "yes", "y":
		return true
	default:
		return false
	}
}

// contextOf returns the command context, which is nil outside ExecuteContext
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
