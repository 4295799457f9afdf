package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehr/claimcoder/internal/refload"
)

func refdataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refdata",
		Short: "Load reference data",
	}

	var (
		file string
		year int
	)
	loadRVU := &cobra.Command{
		Use:   "load-rvu",
		Short: "Bulk-load relative value units from a Parquet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			res, err := refload.NewLoader(pool, logger).LoadFile(ctx, file, int32(year))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "read %d, loaded %d, rejected %d in %s\n",
				res.RowsRead, res.RowsLoaded, res.RowsRejected, res.Duration.Round(time.Millisecond))
			return nil
		},
	}
	loadRVU.Flags().StringVar(&file, "file", "", "Parquet file with procedure_code, work_rvu, practice_expense_rvu, malpractice_rvu[, year]")
	loadRVU.Flags().IntVar(&year, "year", time.Now().Year(), "year for rows without one")
	loadRVU.MarkFlagRequired("file")
	cmd.AddCommand(loadRVU)

	return cmd
}
