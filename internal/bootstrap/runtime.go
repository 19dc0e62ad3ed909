// Package bootstrap wires the database, cache and optional demo data shared by
// the server and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"pulse/internal/cache"
	"pulse/internal/config"
	"pulse/internal/database"
	"pulse/internal/middleware"
	"pulse/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo loads the embedded demo scenario when the users table is empty.
	SeedDemo bool
}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
// The Redis client is nil when the cache is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemo {
		if err := seedDemo(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// Close releases everything InitRuntime opened.
func Close() error {
	if err := cache.Close(); err != nil {
		middleware.Logger.Warn("redis close failed", slog.String("error", err.Error()))
	}
	return database.Close()
}

func seedDemo(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Table("users").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		middleware.Logger.InfoContext(ctx, "demo seed skipped, users already present", slog.Int64("users", count))
		return nil
	}

	sc, err := seed.DefaultScenario()
	if err != nil {
		return err
	}
	_, err = seed.NewSeeder(db, seed.Options{}).Run(ctx, sc)
	return err
}
