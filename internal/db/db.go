package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/bookx-exchange/apiserver/config"
	_ "github.com/lib/pq"
)

const (
	driverName = "postgres"

	defaultConnectTimeout = 5 * time.Second
	firstRetryDelay       = 250 * time.Millisecond
	maxRetryDelay         = 2 * time.Second

	connMaxIdleTime = 2 * time.Minute
	connMaxLifetime = 30 * time.Minute
	maxIdleConns    = 5
	maxOpenConns    = 25
)

// MigrationsURL turns a migrations directory into a golang-migrate source.
func MigrationsURL(dir string) string {
	if dir == "" {
		dir = "internal/db/migrations"
	}
	return "file://" + filepath.ToSlash(dir)
}

// PostgresURL builds the connection URL used by both the pool and migrate.
func PostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port),
		User:     url.UserPassword(cfg.Database.User, cfg.Database.Password),
		Path:     cfg.Database.DBName,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	return u.String()
}

// Open returns a pooled connection. The first ping is retried with backoff
// for up to cfg.Database.ConnectTimeout so the server can start alongside
// Postgres.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open(driverName, PostgresURL(cfg))
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(connMaxIdleTime)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetMaxOpenConns(maxOpenConns)

	timeout := cfg.Database.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	if err := pingWithRetry(ctx, db.PingContext, timeout); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s@%s:%d/%s: %w",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, err)
	}
	return db, nil
}

func pingWithRetry(ctx context.Context, ping func(context.Context) error, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delay := firstRetryDelay
	for {
		err := ping(ctx)
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}
