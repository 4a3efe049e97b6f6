package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/covidlens-cli/internal/dashboard"
	"github.com/KaramelBytes/covidlens-cli/internal/logging"
)

var svAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API and charts over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = svAddr
		}
		if _, err := reportDate(); err != nil {
			return fmt.Errorf("default date: %w", err)
		}
		if !debug {
			gin.SetMode(gin.ReleaseMode)
		}
		srvLog, err := logging.NewServer(debug)
		if err != nil {
			return err
		}
		defer func() { _ = srvLog.Sync() }()
		l := newLoader(srvLog)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "Dashboard on http://%s (default date %s)\n", addr, cfg.DefaultDate)
		return dashboard.NewServer(l, cfg, srvLog).Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&svAddr, "addr", "", "listen address (default from config listen_addr)")
}
