package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/covidlens-cli/internal/config"
	"github.com/KaramelBytes/covidlens-cli/internal/logging"
	"github.com/KaramelBytes/covidlens-cli/internal/report"
	"github.com/KaramelBytes/covidlens-cli/internal/utils"
)

var (
	// Global flags
	cfgFile            string
	debug              bool
	flagDate           string
	flagSourceDir      string
	flagHTTPTimeoutSec int
	flagJSON           bool

	// Loaded configuration
	cfg *cfgpkg.Global
	log = zap.NewNop()

	// appFs backs the local mirror source and every file the CLI writes.
	appFs afero.Fs = afero.NewOsFs()
	// now is the clock the loader checks dates against.
	now = time.Now

	loader *report.Loader
)

var rootCmd = &cobra.Command{
	Use:   "covidlens",
	Short: "covidlens: explore the JHU CSSE COVID-19 daily reports",
	Long: `covidlens loads the JHU CSSE daily report for a date, normalizes its
schema and serves rankings, samples, charts and spreadsheet exports from it,
either on the command line or through a local dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.covidlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagDate, "date", "", "report date YYYY-MM-DD (overrides default_date)")
	rootCmd.PersistentFlags().StringVar(&flagSourceDir, "source-dir", "", "read daily reports from a local mirror instead of the network")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print JSON instead of tables")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec >= 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("source-dir") {
		cfg.SourceDir = flagSourceDir
	}
	if f.Changed("date") {
		cfg.DefaultDate = flagDate
	}

	if l, err := logging.New(debug); err == nil {
		log = l
	}
	loader = nil
}

// getLoader builds the shared loader on first use.
func getLoader() *report.Loader {
	if loader == nil {
		loader = newLoader(log)
	}
	return loader
}

// newLoader reads from the local mirror when source_dir is set and from
// the network otherwise.
func newLoader(lg *zap.Logger) *report.Loader {
	var src report.Source
	if cfg.SourceDir != "" {
		src = report.NewFSSource(appFs, cfg.SourceDir)
	} else {
		src = report.NewHTTPSource(time.Duration(cfg.HTTPTimeoutSec) * time.Second)
	}
	return report.NewLoader(src, cfg.SourceBaseURL, report.WithLogger(lg), report.WithClock(now))
}

func reportDate() (time.Time, error) {
	return report.ParseDate(cfg.DefaultDate)
}

// loadSnapshot loads the report for the selected date.
func loadSnapshot(ctx context.Context) (*report.Snapshot, error) {
	date, err := reportDate()
	if err != nil {
		return nil, err
	}
	snap, err := getLoader().Load(ctx, date)
	if err != nil {
		return nil, loadFailure(err)
	}
	return snap, nil
}

// loadFailure prefixes a loader error with its kind and appends the hint.
func loadFailure(err error) error {
	kind := report.Kind(err)
	if kind == "" {
		return err
	}
	return fmt.Errorf("%s: %w\n  hint: %s", kind, err, report.Hint(err))
}

// printJSON writes v as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
