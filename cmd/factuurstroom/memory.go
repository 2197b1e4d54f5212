package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dekker/factuurstroom/internal/config"
	"github.com/dekker/factuurstroom/internal/model"
)

func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect the supplier memory and processing log",
		Long:  `View and seed the learned supplier→category mappings, and list past runs.`,
	}

	cmd.AddCommand(memoryListCmd())
	cmd.AddCommand(memorySeedCmd())
	cmd.AddCommand(memoryDeleteCmd())
	cmd.AddCommand(memoryRunsCmd())
	return cmd
}

func memoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List learned supplier→category mappings",
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

			mappings, err := store.ListMappings(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SUPPLIER\tCATEGORY\tCONFIDENCE\tUSED\tUPDATED")
			for _, m := range mappings {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					m.SupplierName, m.CategoryName, m.Confidence, m.UseCount,
					m.LastUpdated.Format(time.DateOnly))
			}
			return w.Flush()
		},
	}
}

func memorySeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <supplier> <category-id> <category-name>",
		Short: "Seed a supplier→category mapping by hand",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			confidence, _ := cmd.Flags().GetInt("confidence")
			mapping := &model.SupplierMapping{
				SupplierName: args[0],
				CategoryID:   args[1],
				CategoryName: args[2],
				Confidence:   confidence,
			}
			if err := store.SaveMapping(ctx, mapping); err != nil {
				return err
			}
			fmt.Printf("seeded %s -> %s (%s)\n", args[0], args[2], args[1])
			return nil
		},
	}
	cmd.Flags().Int("confidence", 90, "confidence to record for the mapping")
	return cmd
}

func memoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <supplier> <category-id>",
		Short: "Delete a supplier→category mapping",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if err := store.DeleteMapping(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("deleted mapping %s -> %s\n", args[0], args[1])
			return nil
		},
	}
}

func memoryRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
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

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tINVOICE\tACTION\tCONFIDENCE\tERROR\tFINISHED")
			for _, r := range runs {
				errText := r.Error
				if errText == "" {
					errText = "-"
				}
				invoice := r.InvoiceID
				if invoice == "" {
					invoice = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, invoice, r.Action, strconv.Itoa(r.Confidence), errText,
					r.FinishedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "number of runs to show")
	return cmd
}
