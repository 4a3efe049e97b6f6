package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/covidlens-cli/internal/analysis"
	"github.com/KaramelBytes/covidlens-cli/internal/report"
)

var (
	ctTop     int
	pvCountry string
	exMetric  string
	listOnly  bool
)

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "Rank countries by confirmed cases, summing every published metric",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		if listOnly {
			names := analysis.Countries(snap)
			if flagJSON {
				return printJSON(cmd, names)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
			return nil
		}
		r, err := analysis.ByCountry(snap)
		if err != nil {
			return err
		}
		top := cfg.TopN
		if cmd.Flags().Changed("top") {
			top = ctTop
		}
		if top > 0 {
			r = r.Top(top)
		}
		return printRanking(cmd, snap, r)
	},
}

var provincesCmd = &cobra.Command{
	Use:   "provinces",
	Short: "Break one country down by province/state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		country := pvCountry
		if country == "" {
			country = cfg.BarCountry
		}
		r, err := analysis.ByProvince(snap, country)
		if err != nil {
			return err
		}
		return printRanking(cmd, snap, r)
	},
}

var extremesCmd = &cobra.Command{
	Use:   "extremes",
	Short: "Show the countries with the highest and lowest value of a metric",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		metric, ok := report.ParseKey(exMetric)
		if !ok {
			return fmt.Errorf("unknown --metric: %s (use confirmed|deaths|recovered|active)", exMetric)
		}
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		r, err := analysis.ByCountry(snap)
		if err != nil {
			return err
		}
		hi, lo, err := analysis.Extremes(r, metric)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd, map[string]any{"date": snap.Key, "metric": metric, "max": hi.Records(), "min": lo.Records()})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "[MAX %s] %s\n", strings.ToUpper(string(metric)), snap.Key)
		fmt.Fprint(out, hi.Markdown())
		fmt.Fprintf(out, "\n[MIN %s] %s\n", strings.ToUpper(string(metric)), snap.Key)
		fmt.Fprint(out, lo.Markdown())
		return nil
	},
}

func printRanking(cmd *cobra.Command, snap *report.Snapshot, r *analysis.Ranking) error {
	if flagJSON {
		return printJSON(cmd, map[string]any{"date": snap.Key, "rows": r.Records()})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report %s (%d rows)\n\n", snap.Key, snap.Rows())
	fmt.Fprint(cmd.OutOrStdout(), r.Markdown())
	return nil
}

func init() {
	rootCmd.AddCommand(countriesCmd)
	rootCmd.AddCommand(provincesCmd)
	rootCmd.AddCommand(extremesCmd)
	countriesCmd.Flags().IntVar(&ctTop, "top", 0, "show only the first N countries (0 = all; default from config)")
	countriesCmd.Flags().BoolVar(&listOnly, "list", false, "print the distinct country names only")
	provincesCmd.Flags().StringVar(&pvCountry, "country", "", "country to break down (default from config bar_country)")
	extremesCmd.Flags().StringVar(&exMetric, "metric", "deaths", "metric to compare")
}
