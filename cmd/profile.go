package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/covidlens-cli/internal/analysis"
	"github.com/KaramelBytes/covidlens-cli/internal/report"
	"github.com/KaramelBytes/covidlens-cli/internal/utils"
)

var (
	prRows       int
	prOutputPath string
)

var profileCmd = &cobra.Command{
	Use:   "profile [file]",
	Short: "Summarize the report schema, missing values and column statistics",
	Long: `Summarize the daily report for --date: resolved columns, per-column kind,
missing counts and numeric statistics, followed by the first and last rows.
Given a file, the local CSV is profiled instead of fetching a report.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var snap *report.Snapshot
		if len(args) == 1 {
			date, err := reportDate()
			if err != nil {
				return err
			}
			content, err := afero.ReadFile(appFs, args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			if snap, err = report.Parse(date, args[0], content); err != nil {
				return loadFailure(err)
			}
		} else {
			var err error
			if snap, err = loadSnapshot(cmd.Context()); err != nil {
				return err
			}
		}

		opt := analysis.DefaultProfileOptions()
		if cmd.Flags().Changed("rows") {
			opt.SampleRows = prRows
		}
		p := analysis.ProfileSnapshot(snap, opt)
		if flagJSON {
			return printJSON(cmd, map[string]any{"date": p.Date, "source": p.Source, "rows": p.Rows, "columns": p.Cols, "index": p.Index, "notes": p.Warnings})
		}
		md := p.Markdown()

		// Decide where to write: --output path or stdout
		if prOutputPath != "" {
			if err := utils.SafeWriteFile(appFs, prOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", prOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().IntVar(&prRows, "rows", 10, "number of head and tail rows to include")
	profileCmd.Flags().StringVarP(&prOutputPath, "output", "o", "", "optional path to write the profile (Markdown)")
}
