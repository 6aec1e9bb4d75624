package app

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

func newMigrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Migrate the database down",
		Long: `Migrate the database schema down by reverting migrations.
WARNING: This operation can result in data loss. Use with caution.

Examples:
  # Migrate the system of record down by 1 step
  notice-reconciler migrate down --config config.yaml --num-steps 1 --yes

  # Drop every notice table of the SQL Server store
  notice-reconciler migrate down --config config.yaml --store SQLSERVER --yes`,
		RunE: runMigrateDown,
	}
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
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

	if !yes {
		prompt := fmt.Sprintf("WARNING: This will migrate %s down %d step(s) and may result in data loss. Continue?",
			target.name, numSteps)
		if numSteps == 0 {
			prompt = fmt.Sprintf("WARNING: This will migrate %s down ALL steps and may result in complete data loss. Continue?",
				target.name)
		}
		if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt) {
			slog.Info("Migration cancelled")
			return fmt.Errorf("migration cancelled by user")
		}
	}

	if err := executeMigrateDown(target, numSteps); err != nil {
		return err
	}
	displayMigrationVersion(target)
	return nil
}

func executeMigrateDown(t *migrationTarget, numSteps uint) error {
	var err error
	if numSteps == 0 {
		slog.Warn("Migrating down all steps, this will remove all schema", "target", t.name)
		err = t.migrator.Down()
	} else {
		if numSteps > math.MaxInt {
			return fmt.Errorf("number of steps exceeds maximum allowed value")
		}
		slog.Info("Migrating down", "target", t.name, "steps", numSteps)
		err = t.migrator.Steps(-1 * int(numSteps)) // #nosec G115 -- overflow checked above
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("No migrations to revert", "target", t.name)
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("Migration completed successfully", "target", t.name)
	return nil
}
