package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/ehving/noticesystem-sub000/database"
	"github.com/ehving/noticesystem-sub000/internal/config"
	"github.com/ehving/noticesystem-sub000/internal/db"
	"github.com/ehving/noticesystem-sub000/internal/store"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tool",
		Long: `Database migration tool for managing schema versions. Use with 'up' or 'down' subcommands.

Without --store the system-of-record database (attempt log and conflict
tickets) is migrated. With --store the notice tables of that store are.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}

	cmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	cmd.PersistentFlags().UintP("num-steps", "n", 0, "Number of steps to migrate (0 = all)")
	cmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")
	cmd.PersistentFlags().String("store", "", "Store to migrate (MYSQL, PG or SQLSERVER); empty for the system of record")

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateDownCmd())
	return cmd
}

// migrationTarget is the resolved database a migrate command works on.
type migrationTarget struct {
	name     string
	migrator database.Migrator
}

func (t *migrationTarget) close() {
	srcErr, dbErr := t.migrator.Close()
	if srcErr != nil {
		slog.Warn("Failed to close migration source", "error", srcErr)
	}
	if dbErr != nil {
		slog.Warn("Failed to close migration database", "target", t.name, "error", dbErr)
	}
}

// setupMigration loads the configuration and opens a migrator for the
// database selected by --store.
func setupMigration(cmd *cobra.Command) (*migrationTarget, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	storeName, err := cmd.Flags().GetString("store")
	if err != nil {
		return nil, fmt.Errorf("failed to get store flag: %w", err)
	}
	return openMigrationTarget(cmd.Context(), cfg, storeName)
}

func openMigrationTarget(ctx context.Context, cfg *config.Config, storeName string) (*migrationTarget, error) {
	if storeName == "" {
		if cfg.Database == nil {
			return nil, fmt.Errorf("database configuration is required")
		}
		connString, err := db.ConnectionString(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to build connection string: %w", err)
		}
		m, err := database.NewFromConnectionString(connString)
		if err != nil {
			return nil, fmt.Errorf("failed to create migrator: %w", err)
		}
		return &migrationTarget{name: "system of record", migrator: m}, nil
	}

	s, err := store.Parse(storeName)
	if err != nil {
		return nil, err
	}
	dsn := cfg.DSN(s)
	if dsn == "" {
		return nil, fmt.Errorf("no DSN configured for store %s", s)
	}
	m, err := database.NewForStore(s, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator for store %s: %w", s, err)
	}
	return &migrationTarget{name: string(s), migrator: m}, nil
}

// confirm asks prompt on out and reads a yes/no answer from in.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s (yes/no): ", prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "yes" || answer == "y"
}

func displayMigrationVersion(t *migrationTarget) {
	version, dirty, err := t.migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		slog.Info("No migrations applied", "target", t.name)
	case err != nil:
		slog.Warn("Failed to get migration version", "target", t.name, "error", err)
	case dirty:
		slog.Warn("Current migration version is dirty, manual intervention may be required",
			"target", t.name, "version", version)
	default:
		slog.Info("Current migration version", "target", t.name, "version", version)
	}
}
