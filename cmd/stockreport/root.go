package main

import (
	"fmt"
	"os"

	"github.com/aluiziolira/stockreport/config"
	"github.com/aluiziolira/stockreport/reports"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with one subcommand per report.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Scrape stock pages into plain-text reports",
		Long: `stockreport reads a listing page, follows each entity to its detail page
and writes the extracted fields as a titled table.

Pages are read from a directory of saved snapshots or fetched from a base URL.
The output format follows the file extension: .txt (default), .csv, .json,
.md, or .db/.sqlite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	for _, r := range reports.All() {
		cmd.AddCommand(newReportCmd(r))
	}
	return cmd
}

func newReportCmd(r reports.Report) *cobra.Command {
	cmd := &cobra.Command{
		Use:   r.Definition.Name,
		Short: r.Short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("input") {
				cfg.Input, _ = cmd.Flags().GetString("input")
			}
			if cmd.Flags().Changed("output") {
				cfg.Output, _ = cmd.Flags().GetString("output")
			}
			return runReport(cmd.Context(), cmd.OutOrStdout(), cfg, r)
		},
	}

	cmd.Flags().StringP("input", "i", config.DefaultConfig().Input,
		"Directory of saved pages or base URL")
	cmd.Flags().StringP("output", "o", "",
		fmt.Sprintf("Output file (default %q)", r.DefaultOutput))
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
