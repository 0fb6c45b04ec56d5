package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/source"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync against the contract source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.syncer.Run(cmd.Context())
			printRun(cmd.OutOrStdout(), run)
			return err
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Normalize and apply a JSON array of raw contracts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raws, err := readRaws(args[0])
			if err != nil {
				return err
			}

			a, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.syncer.Import(cmd.Context(), raws)
			printRun(cmd.OutOrStdout(), run)
			if verbose {
				printWarnings(cmd.OutOrStdout(), run.Warnings)
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every warning")
	return cmd
}

func readRaws(path string) ([]contract.RawContract, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var raws []contract.RawContract
	if err := json.NewDecoder(f).Decode(&raws); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raws, nil
}

func printRun(w io.Writer, run source.SyncRun) {
	if run.ID == "" {
		return
	}
	fmt.Fprintf(w, "run %s (%s)\n", run.ID, run.Origin)
	fmt.Fprintf(w, "  fetched:   %d\n", run.Fetched)
	fmt.Fprintf(w, "  created:   %d\n", run.Created)
	fmt.Fprintf(w, "  updated:   %d\n", run.Updated)
	fmt.Fprintf(w, "  unchanged: %d\n", run.Unchanged)
	fmt.Fprintf(w, "  rejected:  %d\n", run.Rejected)
	fmt.Fprintf(w, "  warnings:  %d\n", len(run.Warnings))
	if run.Error != "" {
		fmt.Fprintf(w, "  error:     %s\n", run.Error)
	}
}

func printWarnings(w io.Writer, warnings []contract.Warning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "  [%s] %s: %s\n", warn.Code, warn.IDContrato, warn.Message)
	}
}
