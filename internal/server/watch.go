package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/bookx-exchange/apiserver/internal/mq"
	"github.com/bookx-exchange/apiserver/types"
)

// WatchActivity logs every activity entry published on channel until ctx
// is cancelled.
func WatchActivity(ctx context.Context, queue *mq.MQ, channel string, logger *slog.Logger) error {
	logger.Info("watching activity", "backend", queue.Name(), "channel", channel)
	err := queue.Subscribe(ctx, channel, activityHandler(logger))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// activityHandler never asks for redelivery; a body that does not decode
// will not decode on the next attempt either.
func activityHandler(logger *slog.Logger) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		var entry types.UserActionLog
		if err := json.Unmarshal(msg.Data, &entry); err != nil {
			logger.WarnContext(ctx, "dropping malformed activity message",
				"message_id", msg.ID,
				"error", err,
			)
			return nil
		}
		logger.InfoContext(ctx, "activity",
			"message_id", msg.ID,
			"id", entry.ID,
			"user", entry.UserName,
			"action_type", entry.ActionType,
			"target_type", entry.TargetType,
			"target_id", entry.TargetID,
			"description", entry.Description,
		)
		return nil
	}
}
