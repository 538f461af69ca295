// Package sqlite opens the embedded file-backed database used when no database
// server is configured.
package sqlite

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultBusyTimeout   = 5 * time.Second
	defaultSlowThreshold = 200 * time.Millisecond
)

type options struct {
	busyTimeout time.Duration
	logger      *slog.Logger
	models      []any
}

type Option func(*options)

// WithBusyTimeout sets how long a connection waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithLogger routes gorm's query log through logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithAutoMigrate creates or updates the tables of the given models on open.
func WithAutoMigrate(models ...any) Option {
	return func(o *options) {
		o.models = append(o.models, models...)
	}
}

// New opens the database file at path in WAL mode with a single writer connection.
func New(path string, opts ...Option) (*gorm.DB, error) {
	const op = "sqlite.New"

	o := options{busyTimeout: defaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &gorm.Config{
		Logger: logger.Discard,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
	if o.logger != nil {
		cfg.Logger = newLogger(o.logger)
	}

	db, err := gorm.Open(sqlite.Open(dsn(path, o.busyTimeout)), cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open database: %w", op, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get underlying connection: %w", op, err)
	}
	sqlDB.SetMaxOpenConns(1)

	if len(o.models) > 0 {
		if err := db.AutoMigrate(o.models...); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("%s: failed to migrate database: %w", op, err)
		}
	}

	return db, nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	const op = "sqlite.Close"

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("%s: failed to get underlying connection: %w", op, err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func dsn(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprint(busyTimeout.Milliseconds()))
	q.Set("_journal_mode", "WAL")
	q.Set("_foreign_keys", "on")

	return "file:" + path + "?" + q.Encode()
}

func newLogger(l *slog.Logger) logger.Interface {
	return logger.New(
		slog.NewLogLogger(l.Handler(), slog.LevelDebug),
		logger.Config{
			SlowThreshold:             defaultSlowThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}
