package journal

import (
	"context"
	"database/sql"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type dbConfig struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	connMaxIdleTime time.Duration
	pingTimeout     time.Duration
	retryAttempts   int
	retryDelay      time.Duration
}

type DBOption func(*dbConfig)

func WithConnectionPool(maxOpen, maxIdle int, maxLifetime time.Duration) DBOption {
	return func(config *dbConfig) {
		config.maxOpenConns = maxOpen
		config.maxIdleConns = maxIdle
		config.connMaxLifetime = maxLifetime
	}
}

func WithConnectionIdleTime(idleTime time.Duration) DBOption {
	return func(config *dbConfig) {
		config.connMaxIdleTime = idleTime
	}
}

func WithPingTimeout(timeout time.Duration) DBOption {
	return func(config *dbConfig) {
		config.pingTimeout = timeout
	}
}

func WithRetry(attempts int, delay time.Duration) DBOption {
	return func(config *dbConfig) {
		config.retryAttempts = attempts
		config.retryDelay = delay
	}
}

// OpenDB opens and pings driver/dsn. Failed pings are retried with
// exponential backoff starting at the retry delay; a malformed DSN is not
// retried. The context bounds the whole retry loop.
func OpenDB(ctx context.Context, driver, dsn string, options ...DBOption) (*sql.DB, error) {
	if _, err := dialectFor(driver); err != nil {
		return nil, err
	}

	config := dbConfig{
		maxOpenConns:    10,
		maxIdleConns:    2,
		connMaxLifetime: time.Hour,
		connMaxIdleTime: time.Minute * 5,
		pingTimeout:     time.Second * 5,
		retryAttempts:   3,
		retryDelay:      time.Second,
	}
	for _, option := range options {
		option(&config)
	}

	var db *sql.DB
	connect := func() error {
		conn, err := sql.Open(driver, dsn)
		if err != nil {
			return backoff.Permanent(err)
		}
		conn.SetMaxOpenConns(config.maxOpenConns)
		conn.SetMaxIdleConns(config.maxIdleConns)
		conn.SetConnMaxLifetime(config.connMaxLifetime)
		conn.SetConnMaxIdleTime(config.connMaxIdleTime)

		pingCtx, cancel := context.WithTimeout(ctx, config.pingTimeout)
		defer cancel()
		if err := conn.PingContext(pingCtx); err != nil {
			_ = conn.Close()
			return err
		}
		db = conn
		return nil
	}

	if err := backoff.Retry(connect, retryPolicy(ctx, config)); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, ErrFailedToOpenDatabase.WithDetail("driver", driver).WithCause(err)
	}
	return db, nil
}

func retryPolicy(ctx context.Context, config dbConfig) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = config.retryDelay
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	attempts := config.retryAttempts
	if attempts < 0 {
		attempts = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts)), ctx)
}
