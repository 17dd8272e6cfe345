// Package app builds the service components selected by configuration. It is
// shared by the API server and the authctl CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/go-auth-api/internal/auth"
	"github.com/redmonkez12/go-auth-api/internal/config"
	"github.com/redmonkez12/go-auth-api/internal/database"
	"github.com/redmonkez12/go-auth-api/internal/logging"
	"github.com/redmonkez12/go-auth-api/internal/user"
)

// OpenStore connects the configured credential store backend. The returned
// close function releases its connections.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (auth.CredentialStore, func() error, error) {
	switch cfg.Auth.StoreBackend {
	case config.StorePostgres:
		sqlDB, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}

		if cfg.Database.AutoMigrate {
			if err := database.MigrateUp(ctx, sqlDB); err != nil {
				sqlDB.Close()
				return nil, nil, err
			}
			logger.Info("database migrations applied")
		}

		db := database.NewBunDB(sqlDB)
		logger.Info("using postgres credential store", "host", cfg.Database.Host, "db", cfg.Database.DBName)
		return user.NewRepository(db), db.Close, nil

	case config.StoreRedis:
		client, err := OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		logger.Info("using redis credential store", "addr", cfg.Redis.Address())
		return user.NewRedisStore(client), client.Close, nil

	case config.StoreMemory:
		logger.Warn("using in-memory credential store, accounts are lost on restart")
		return user.NewMemoryStore(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Auth.StoreBackend)
	}
}

// OpenPostgres opens the configured database for tooling that needs raw SQL.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	return database.Open(ctx, cfg.Database)
}

// OpenRedis initializes the Redis connection and verifies it
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// NewIssuer builds the token issuer for the configured format.
func NewIssuer(cfg *config.Config) (auth.TokenIssuer, error) {
	tokenCfg := auth.TokenConfig{
		AccessSecret:  []byte(cfg.Auth.AccessSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		AccessTTL:     cfg.Auth.AccessTokenDuration,
		RefreshTTL:    cfg.Auth.RefreshTokenDuration,
	}

	switch cfg.Auth.TokenFormat {
	case config.TokenFormatJWT:
		return auth.NewJWTIssuer(tokenCfg)
	case config.TokenFormatPaseto:
		return auth.NewPasetoIssuer(tokenCfg)
	default:
		return nil, fmt.Errorf("unknown token format %q", cfg.Auth.TokenFormat)
	}
}

// NewHasher builds the argon2id hasher from the hashing config.
func NewHasher(cfg config.HashingConfig) (*auth.Argon2Hasher, error) {
	params := auth.DefaultArgon2Params()
	params.Memory = cfg.MemoryKiB
	params.Iterations = cfg.Iterations
	params.Parallelism = cfg.Parallelism

	return auth.NewArgon2Hasher(params, cfg.Concurrency)
}
