package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appLog "calkit/internal/log"
	"calkit/internal/web"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the refresh scheduler",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	if err := a.activate(ctx); err != nil {
		// Plugins that failed to activate stay disabled; keep serving.
		appLog.Error("plugin activation incomplete", err)
	}

	if err := a.refresher.Start(ctx, cfg.RefreshCron); err != nil {
		return err
	}

	appLog.Info("calkit starting", "listen", cfg.Listen)
	if err := web.StartServer(ctx, a.server()); err != nil {
		return err
	}
	appLog.Info("calkit exiting")
	return nil
}
