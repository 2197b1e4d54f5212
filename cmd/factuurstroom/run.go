package main

import (
	"github.com/spf13/cobra"

	"github.com/dekker/factuurstroom/internal/config"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process the next unprocessed invoice once",
		Long: `Run the invoice pipeline a single time: detect the next unprocessed
invoice, work it through extraction, resolution, validation,
classification and matching, and book it or raise an alert.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			return executeRun(ctx, cfg, store)
		},
	}
}
