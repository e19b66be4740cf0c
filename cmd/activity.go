/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"

	"github.com/bookx-exchange/apiserver/internal/mq"
	"github.com/bookx-exchange/apiserver/internal/server"
	"github.com/spf13/cobra"
)

// activityCmd represents the activity command
var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Inspect the activity feed",
}

var activityWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log activity entries as they are published to the broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := setup()
		ctx := cmd.Context()

		queue, err := mq.Open(ctx, cfg.MQ)
		if errors.Is(err, mq.ErrDisabled) {
			return errors.New("MQ_BACKEND must be rabbitmq or pubsub to watch activity")
		}
		if err != nil {
			return err
		}
		defer queue.Close()

		return server.WatchActivity(ctx, queue, cfg.MQ.ActivityChannel, logger)
	},
}

func init() {
	activityCmd.AddCommand(activityWatchCmd)
	rootCmd.AddCommand(activityCmd)
}
