/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookx-exchange/apiserver/config"
	"github.com/bookx-exchange/apiserver/internal/server"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bookx",
	Short: "Book exchange backend",
	Long: `bookx runs the book exchange REST API and its maintenance tasks:

	bookx server
	bookx migrate up
	bookx seed
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// setup loads the config and installs the process logger.
func setup() (config.Config, *slog.Logger) {
	cfg := config.LoadConfig()
	logger := server.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger
}
