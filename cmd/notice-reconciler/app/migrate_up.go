package app

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending database migrations",
		Long: `Apply pending migrations to bring the schema up to date.

Examples:
  # Migrate the system of record
  notice-reconciler migrate up --config config.yaml --yes

  # Migrate the notice tables of the MySQL store
  notice-reconciler migrate up --config config.yaml --store MYSQL --yes`,
		RunE: runMigrateUp,
	}
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	numSteps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("failed to get yes flag: %w", err)
	}

	target, err := setupMigration(cmd)
	if err != nil {
		return err
	}
	defer target.close()

	if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
		fmt.Sprintf("About to apply migrations to %s. Continue?", target.name)) {
		slog.Info("Migration cancelled by user")
		return nil
	}

	if err := executeMigrateUp(target, numSteps); err != nil {
		return err
	}
	displayMigrationVersion(target)
	return nil
}

func executeMigrateUp(t *migrationTarget, numSteps uint) error {
	var err error
	if numSteps == 0 {
		slog.Info("Applying all pending migrations", "target", t.name)
		err = t.migrator.Up()
	} else {
		if numSteps > math.MaxInt {
			return fmt.Errorf("number of steps exceeds maximum allowed value")
		}
		slog.Info("Applying migrations", "target", t.name, "steps", numSteps)
		err = t.migrator.Steps(int(numSteps)) // #nosec G115 -- overflow checked above
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("No pending migrations", "target", t.name)
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("Migration completed successfully", "target", t.name)
	return nil
}
