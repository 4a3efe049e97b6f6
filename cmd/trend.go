package cmd

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/covidlens-cli/internal/analysis"
	"github.com/KaramelBytes/covidlens-cli/internal/report"
)

var (
	trFrom    string
	trTo      string
	trCountry string
	trQuiet   bool
)

// maxTrendDays bounds one trend run.
const maxTrendDays = 366

// dayTotal is one line of a trend.
type dayTotal struct {
	Date      string   `json:"date"`
	Confirmed *float64 `json:"confirmed,omitempty"`
	Deaths    *float64 `json:"deaths,omitempty"`
	Error     string   `json:"error,omitempty"`
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Load every day in a range and print the daily totals",
	Long: `Load every daily report between --from and --to (inclusive) through the
shared cache and print the confirmed and death totals per day, optionally for
one country. Days that fail to load are reported and skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := report.ParseDate(trFrom)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to := from
		if trTo != "" {
			if to, err = report.ParseDate(trTo); err != nil {
				return fmt.Errorf("--to: %w", err)
			}
		}
		if to.Before(from) {
			return fmt.Errorf("--to %s is before --from %s", report.DateKey(to), report.DateKey(from))
		}
		days := int(to.Sub(from).Hours()/24) + 1
		if days > maxTrendDays {
			return fmt.Errorf("range of %d days exceeds the limit of %d", days, maxTrendDays)
		}

		l := getLoader()
		out := cmd.OutOrStdout()
		var rows []dayTotal
		failed := 0
		for i := 0; i < days; i++ {
			date := from.AddDate(0, 0, i)
			if !trQuiet && !flagJSON {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] Loading %s...\n", i+1, days, report.DateKey(date))
			}
			row := dayTotal{Date: report.DateKey(date)}
			snap, err := l.Load(cmd.Context(), date)
			if err == nil {
				err = totals(snap, trCountry, &row)
			}
			if err != nil {
				failed++
				row.Error = err.Error()
				if kind := report.Kind(err); kind != "" {
					row.Error = kind
				}
			}
			rows = append(rows, row)
		}
		if failed == days {
			return fmt.Errorf("no report could be loaded between %s and %s", report.DateKey(from), report.DateKey(to))
		}

		if flagJSON {
			return printJSON(cmd, rows)
		}
		title := "all countries"
		if trCountry != "" {
			title = trCountry
		}
		fmt.Fprintf(out, "Daily totals for %s\n\n| date | confirmed | deaths |\n| --- | --- | --- |\n", title)
		for _, r := range rows {
			if r.Error != "" {
				fmt.Fprintf(out, "| %s | (%s) | |\n", r.Date, r.Error)
				continue
			}
			fmt.Fprintf(out, "| %s | %s | %s |\n", r.Date, number(r.Confirmed), number(r.Deaths))
		}
		return nil
	},
}

// totals sums confirmed and deaths for country, or every row when empty.
func totals(snap *report.Snapshot, country string, row *dayTotal) error {
	r, err := analysis.ByCountry(snap)
	if err != nil {
		return err
	}
	for _, k := range []report.Key{report.Confirmed, report.Deaths} {
		vals, err := r.Values(k)
		if err != nil {
			continue
		}
		var sum float64
		found := country == ""
		for i, v := range vals {
			if country != "" && r.Rows[i].Keys[0] != country {
				continue
			}
			found = true
			sum += v
		}
		if !found {
			return fmt.Errorf("country %q not in report", country)
		}
		v := sum
		if k == report.Confirmed {
			row.Confirmed = &v
		} else {
			row.Deaths = &v
		}
	}
	return nil
}

func number(v *float64) string {
	if v == nil {
		return "-"
	}
	return analysis.FormatNumber(math.Round(*v))
}

func init() {
	rootCmd.AddCommand(trendCmd)
	trendCmd.Flags().StringVar(&trFrom, "from", "", "first date YYYY-MM-DD")
	trendCmd.Flags().StringVar(&trTo, "to", "", "last date YYYY-MM-DD (default --from)")
	trendCmd.Flags().StringVar(&trCountry, "country", "", "restrict totals to one country")
	trendCmd.Flags().BoolVar(&trQuiet, "quiet", false, "suppress progress output")
	_ = trendCmd.MarkFlagRequired("from")
}
