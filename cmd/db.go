package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cmdUtils "github.com/ninjapay/payments-reconciler/cmd/utils"
	"github.com/ninjapay/payments-reconciler/db"
	"github.com/ninjapay/payments-reconciler/db/migrations"
)

type DatabaseCommand struct{}

func (c *DatabaseCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:              "db",
		Short:            "Database related commands",
		PersistentPreRun: cmdUtils.PropagatePersistentPreRun,
		RunE:             cmdUtils.CallHelpCommand,
	}

	// migrate up|down CMD
	// Runs the migrations from the `reconciler-migrations` folder and tracks
	// migrated files in the `reconciler_migrations` table.
	migrateCmd := &cobra.Command{
		Use:              "migrate",
		Short:            "Schema migration helpers",
		PersistentPreRun: cmdUtils.PropagatePersistentPreRun,
		RunE:             cmdUtils.CallHelpCommand,
	}

	migrateUpCmd := &cobra.Command{
		Use:              "up",
		Short:            "Migrates database up [count] migrations",
		Args:             cobra.MaximumNArgs(1),
		PersistentPreRun: cmdUtils.PropagatePersistentPreRun,
		Run: func(cmd *cobra.Command, args []string) {
			var count int
			if len(args) > 0 {
				var err error
				count, err = strconv.Atoi(args[0])
				if err != nil {
					log.Fatalf("Invalid [count] argument: %s", args[0])
				}
			}

			if err := executeMigrate(cmd.Context(), globalOptions.DatabaseDSN, migrate.Up, count); err != nil {
				log.Fatalf("Error executing migrate up: %v", err)
			}
		},
	}

	var skipConfirmation bool
	migrateDownCmd := &cobra.Command{
		Use:              "down [count]",
		Short:            "Migrates database down [count] migrations",
		Args:             cobra.ExactArgs(1),
		PersistentPreRun: cmdUtils.PropagatePersistentPreRun,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			count, err := strconv.Atoi(args[0])
			if err != nil {
				log.Fatalf("Invalid [count] argument: %s", args[0])
			}

			if !skipConfirmation && !confirmRollback(count) {
				log.WithContext(ctx).Info("Rollback cancelled.")
				return
			}

			if err := executeMigrate(ctx, globalOptions.DatabaseDSN, migrate.Down, count); err != nil {
				log.Fatalf("Error executing migrate down: %v", err)
			}
		},
	}
	migrateDownCmd.Flags().BoolVar(&skipConfirmation, "yes", false, "Skip the rollback confirmation prompt.")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	cmd.AddCommand(migrateCmd)

	return cmd
}

// confirmRollback asks the operator before rolling migrations back. Rollbacks
// drop tables, so an accidental invocation must not proceed on its own.
func confirmRollback(count int) bool {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Roll back %d migration(s)? This can drop tables and delete rows", count),
		IsConfirm: true,
	}

	res, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			fmt.Println("\nRollback cancelled.")
			os.Exit(130)
		}
		return false
	}

	return res == "y" || res == "Y"
}

// executeMigrate executes the migrations on the database, according with the
// direction and count. A zero count applies every pending migration.
func executeMigrate(ctx context.Context, dbURL string, dir migrate.MigrationDirection, count int) error {
	numMigrationsRun, err := db.Migrate(dbURL, dir, count, migrations.ReconcilerMigrationRouter)
	if err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	if numMigrationsRun == 0 {
		log.WithContext(ctx).Info("No migrations applied.")
	} else {
		log.WithContext(ctx).Infof("Successfully applied %d migrations %s.", numMigrationsRun, migrationDirectionStr(dir))
	}
	return nil
}

// migrationDirectionStr returns a string representation of the migration direction (up or down).
func migrationDirectionStr(dir migrate.MigrationDirection) string {
	if dir == migrate.Up {
		return "up"
	}
	return "down"
}
