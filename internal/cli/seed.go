package cli

import (
	"fmt"

	"academy-quiz-service/internal/config"
	pgstore "academy-quiz-service/internal/infra/postgres"
	redisstore "academy-quiz-service/internal/infra/redis"
	"academy-quiz-service/internal/seed"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewSeedCmd writes the stock catalog into Postgres and drops stale cache entries.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the stock themes and budget scenarios into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log)

			db, err := openBun(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := migrateDB(ctx, db, logger); err != nil {
				return err
			}

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			catalog := seed.Catalog()
			if err := pgstore.NewContentLoader(pool).SaveContent(ctx, catalog...); err != nil {
				return err
			}

			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
				defer client.Close()
				cache := redisstore.NewCatalogRepository(client, nil, 0)
				for _, c := range catalog {
					if err := cache.Invalidate(ctx, c.Ref()); err != nil {
						logger.Warn("invalidate cached content", "content", c.Ref().String(), "error", err)
					}
				}
			}
			logger.Info("catalog seeded", "entries", len(catalog))
			return nil
		},
	}
}
