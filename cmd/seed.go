/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/bookx-exchange/apiserver/internal/db"
	"github.com/bookx-exchange/apiserver/internal/server"
	"github.com/bookx-exchange/apiserver/internal/services"
	"github.com/spf13/cobra"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default users and sample books",
	Long: `Creates admin/admin, user/password, user2/password2 and user3/password3
when they are missing, plus three sample books for each regular user when
no books exist yet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := setup()
		ctx := cmd.Context()

		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer dbConn.Close()

		backend, err := server.NewBackend(ctx, cfg, dbConn, logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		result, err := services.Seed(ctx, backend.API.Users, backend.API.Books, logger)
		if err != nil {
			return err
		}
		logger.Info("seed complete", "users_created", result.Users, "books_created", result.Books)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
