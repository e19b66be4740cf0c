package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/bookx-exchange/apiserver/types"
)

// recordTimeout bounds one append plus publish once the caller's own
// deadline no longer applies.
const recordTimeout = 10 * time.Second

// ActivityRepository defines persistence operations for the action log.
type ActivityRepository interface {
	Append(ctx context.Context, entry types.UserActionLog) (types.UserActionLog, error)
	List(ctx context.Context) ([]types.UserActionLog, error)
	ListByType(ctx context.Context, action types.ActionType) ([]types.UserActionLog, error)
}

// Publisher fans recorded entries out to a message broker.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// ActivityService records the audit trail of mutating actions.
type ActivityService struct {
	repo      ActivityRepository
	publisher Publisher
	channel   string
	logger    *slog.Logger
}

// NewActivityService builds the service. publisher may be nil, in which
// case entries are only stored.
func NewActivityService(repo ActivityRepository, publisher Publisher, channel string, logger *slog.Logger) *ActivityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityService{
		repo:      repo,
		publisher: publisher,
		channel:   channel,
		logger:    logger,
	}
}

// Record appends entry to the log and publishes it. It runs after the
// action it describes has been committed, so failures are logged and
// never returned. The caller's cancellation is ignored: a client that
// hangs up after the commit still gets its entry.
func (s *ActivityService) Record(ctx context.Context, entry types.UserActionLog) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	saved, err := s.repo.Append(ctx, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record activity",
			"action", entry.ActionType,
			"user_id", entry.UserID,
			"target_id", entry.TargetID,
			"error", err,
		)
		return
	}
	s.publish(ctx, saved)
}

func (s *ActivityService) publish(ctx context.Context, entry types.UserActionLog) {
	if s.publisher == nil || s.channel == "" {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode activity", "id", entry.ID, "error", err)
		return
	}
	attrs := map[string]string{
		"action_type": string(entry.ActionType),
		"target_type": string(entry.TargetType),
	}
	if _, err := s.publisher.Publish(ctx, s.channel, data, attrs); err != nil {
		s.logger.WarnContext(ctx, "failed to publish activity",
			"id", entry.ID,
			"channel", s.channel,
			"error", err,
		)
	}
}

func (s *ActivityService) List(ctx context.Context) ([]types.UserActionLog, error) {
	return s.repo.List(ctx)
}

func (s *ActivityService) ByType(ctx context.Context, action types.ActionType) ([]types.UserActionLog, error) {
	return s.repo.ListByType(ctx, action)
}
