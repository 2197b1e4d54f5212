package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dekker/factuurstroom/internal/config"
	"github.com/dekker/factuurstroom/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  `Open the local database and bring its schema up to date.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer func() { _ = store.Close() }()

			statusOnly, _ := cmd.Flags().GetBool("status")
			if !statusOnly {
				if err := store.Migrate(ctx); err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
			}

			version, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s: schema version %d\n", cfg.DatabasePath, version)
			return nil
		},
	}
	cmd.Flags().Bool("status", false, "print the schema version without migrating")
	return cmd
}
