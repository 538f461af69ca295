package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nowisf/url-shortner/internal/config"
	"github.com/nowisf/url-shortner/internal/usecase"
	"github.com/nowisf/url-shortner/migrations"
	"github.com/nowisf/url-shortner/pkg/mongo"
	"github.com/nowisf/url-shortner/pkg/postgres"
	"github.com/nowisf/url-shortner/pkg/redis"
	"github.com/nowisf/url-shortner/pkg/sqlite"

	mongorepo "github.com/nowisf/url-shortner/internal/adapter/repository/mongo"
	postgresrepo "github.com/nowisf/url-shortner/internal/adapter/repository/postgres"
	redisrepo "github.com/nowisf/url-shortner/internal/adapter/repository/redis"
	sqliterepo "github.com/nowisf/url-shortner/internal/adapter/repository/sqlite"
)

// newStorage builds the URL repository selected by storage.driver. The returned
// function releases the underlying connections.
func newStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (usecase.URLRepository, func() error, error) {
	const op = "app.newStorage"

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		if err := postgres.RunMigrations(migrations.FS, cfg.Postgres.DSN()); err != nil {
			return nil, nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
		}

		db, err := postgres.New(
			ctx,
			cfg.Postgres.DSN(),
			postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to postgres: %w", op, err)
		}

		return postgresrepo.NewURLRepository(db), db.Close, nil

	case config.DriverSQLite:
		db, err := sqlite.New(
			cfg.SQLite.Path,
			sqlite.WithBusyTimeout(cfg.SQLite.BusyTimeout),
			sqlite.WithLogger(logger),
			sqlite.WithAutoMigrate(&sqliterepo.URLModel{}),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to open sqlite database: %w", op, err)
		}

		return sqliterepo.NewURLRepository(db), func() error { return sqlite.Close(db) }, nil

	case config.DriverRedis:
		client, err := redis.New(ctx, redis.Config{
			Addr:         cfg.Redis.Addr,
			Username:     cfg.Redis.Username,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			PoolSize:     cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
		}

		return redisrepo.NewURLRepository(client), client.Close, nil

	case config.DriverMongo:
		client, err := mongo.New(ctx, cfg.Mongo.URI, cfg.Mongo.ConnectTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to mongo: %w", op, err)
		}
		closeFn := func() error {
			return client.Disconnect(context.Background())
		}

		repo := mongorepo.NewURLRepository(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = closeFn()
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}

		return repo, closeFn, nil

	default:
		return nil, nil, fmt.Errorf("%s: %w: %q", op, config.ErrUnknownDriver, cfg.Storage.Driver)
	}
}
