package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/covidlens-cli/internal/chart"
	"github.com/KaramelBytes/covidlens-cli/internal/dashboard"
	"github.com/KaramelBytes/covidlens-cli/internal/report"
	"github.com/KaramelBytes/covidlens-cli/internal/utils"
)

var (
	chOut       string
	chThreshold float64
	chCountry   string
	chMetric    string
	chCountries []string
	chTop       int
	chBins      int
)

var chartCmd = &cobra.Command{
	Use:       "chart <line|bar|pie|histogram|boxplot>",
	Short:     "Render a chart of the report to PNG",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"line", "bar", "pie", "histogram", "boxplot"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := chart.ParseKind(args[0])
		if err != nil {
			return err
		}
		p := dashboard.ChartParams(cfg)
		f := cmd.Flags()
		if f.Changed("threshold") {
			p.DeathsThreshold = chThreshold
		}
		if f.Changed("country") {
			p.Country = chCountry
		}
		if f.Changed("metric") {
			k, ok := report.ParseKey(chMetric)
			if !ok {
				return fmt.Errorf("unknown --metric: %s (use confirmed|deaths|recovered|active)", chMetric)
			}
			p.Metric = k
		}
		if f.Changed("countries") {
			p.PieCountries = chCountries
		}
		if f.Changed("top") {
			p.TopN = chTop
		}
		if f.Changed("bins") {
			p.Bins = chBins
		}

		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		png, err := chart.Render(snap, kind, p)
		if err != nil {
			return err
		}
		out := chOut
		if out == "" {
			out = fmt.Sprintf("%s_%s.png", kind, strings.ReplaceAll(snap.Key, "-", ""))
		}
		path := utils.OutputPath(cfg.ExportDir, out)
		if err := utils.SafeWriteFile(appFs, path, png); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s chart to %s\n", kind, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringVarP(&chOut, "out", "o", "", "output PNG path (default <kind>_<date>.png in export_dir)")
	chartCmd.Flags().Float64Var(&chThreshold, "threshold", 2500, "line: only rows with more deaths than this")
	chartCmd.Flags().StringVar(&chCountry, "country", "", "bar: country broken down by province; empty ranks countries")
	chartCmd.Flags().StringVar(&chMetric, "metric", "deaths", "bar: metric to rank by")
	chartCmd.Flags().StringSliceVar(&chCountries, "countries", nil, "pie: countries to compare")
	chartCmd.Flags().IntVar(&chTop, "top", 10, "bar/pie: number of slices")
	chartCmd.Flags().IntVar(&chBins, "bins", 20, "histogram: number of bins")
}
