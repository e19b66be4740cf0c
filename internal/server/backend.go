package server

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/bookx-exchange/apiserver/config"
	"github.com/bookx-exchange/apiserver/internal/handlers"
	"github.com/bookx-exchange/apiserver/internal/mq"
	"github.com/bookx-exchange/apiserver/internal/services"
	"github.com/bookx-exchange/apiserver/internal/storage"
	"github.com/bookx-exchange/apiserver/internal/store"
)

// Backend is the service layer wired over Postgres plus the broker and
// object store it owns.
type Backend struct {
	API   handlers.API
	Queue *mq.MQ
}

// NewBackend wires repositories and services. The broker and object store
// are optional; when disabled, activity is only stored and cover uploads
// are rejected.
func NewBackend(ctx context.Context, cfg config.Config, dbConn *sql.DB, logger *slog.Logger) (*Backend, error) {
	queue, err := mq.Open(ctx, cfg.MQ)
	switch {
	case errors.Is(err, mq.ErrDisabled):
		logger.Info("activity fan-out disabled")
	case err != nil:
		return nil, err
	default:
		logger.Info("activity fan-out enabled", "backend", queue.Name(), "channel", cfg.MQ.ActivityChannel)
	}

	covers, err := storage.Open(ctx, cfg.Storage)
	switch {
	case errors.Is(err, storage.ErrDisabled):
		logger.Info("cover storage disabled")
	case err != nil:
		if queue != nil {
			_ = queue.Close()
		}
		return nil, err
	default:
		logger.Info("cover storage enabled", "backend", cfg.Storage.Backend, "bucket", covers.Bucket())
	}

	userRepo := store.NewUserRepository(dbConn)
	bookRepo := store.NewBookRepository(dbConn)
	txRepo := store.NewTransactionRepository(dbConn)
	commentRepo := store.NewCommentRepository(dbConn)
	messageRepo := store.NewMessageRepository(dbConn)
	activityRepo := store.NewActivityRepository(dbConn)

	var publisher services.Publisher
	if queue != nil {
		publisher = queue
	}
	var coverStore services.CoverStore
	if covers != nil {
		coverStore = covers
	}

	activity := services.NewActivityService(activityRepo, publisher, cfg.MQ.ActivityChannel, logger)
	bookService := services.NewBookService(bookRepo, activity, coverStore, logger)
	lendingService := services.NewLendingService(txRepo, bookRepo, userRepo, activity)

	return &Backend{
		API: handlers.API{
			Users:     services.NewUserService(userRepo),
			Books:     bookService,
			Lending:   lendingService,
			Comments:  services.NewCommentService(commentRepo, bookRepo, activity),
			Messages:  services.NewMessageService(messageRepo, bookRepo, userRepo, activity),
			Admin:     services.NewAdminService(userRepo, bookService, lendingService, activity),
			JWTSecret: cfg.Auth.JWTSecret,
			TokenTTL:  cfg.Auth.TokenTTL,
		},
		Queue: queue,
	}, nil
}

// Close releases the broker connection.
func (b *Backend) Close() error {
	if b.Queue == nil {
		return nil
	}
	return b.Queue.Close()
}
