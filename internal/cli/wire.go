package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"academy-quiz-service/internal/app"
	"academy-quiz-service/internal/config"
	"academy-quiz-service/internal/domain"
	"academy-quiz-service/internal/infra/memory"
	pgstore "academy-quiz-service/internal/infra/postgres"
	"academy-quiz-service/internal/infra/queue"
	redisstore "academy-quiz-service/internal/infra/redis"
	"academy-quiz-service/internal/infra/resilient"
	"academy-quiz-service/internal/seed"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

// services is the wired application graph plus what must be closed on shutdown.
type services struct {
	sessions *app.SessionService
	ledger   *app.Ledger
	game     domain.GameConfig
	consumer *queue.Consumer
	closers  []func() error
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func buildServices(ctx context.Context, cfg config.Config, logger *slog.Logger) (*services, error) {
	out := &services{}
	fail := func(err error) (*services, error) {
		out.Close()
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		out.closers = append(out.closers, redisClient.Close)
	}

	var (
		pool *pgxpool.Pool
		db   *bun.DB
	)
	if cfg.Postgres.URL != "" {
		var err error
		db, err = openBun(cfg)
		if err != nil {
			return fail(err)
		}
		out.closers = append(out.closers, db.Close)
		if err := migrateDB(ctx, db, logger); err != nil {
			return fail(err)
		}
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fail(fmt.Errorf("connect postgres: %w", err))
		}
		out.closers = append(out.closers, func() error { pool.Close(); return nil })
	}

	var loader memory.ContentLoader = memory.NewStaticLoader(seed.Catalog()...)
	if pool != nil {
		loader = pgstore.NewContentLoader(pool)
	}
	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog app.CatalogRepository
	if redisClient != nil {
		catalog = redisstore.NewCatalogRepository(redisClient, loader, catalogTTL)
	} else {
		catalog = memory.NewCatalogRepository(loader, catalogTTL)
	}

	backend := cfg.Store.Backend
	if backend == "" {
		switch {
		case db != nil:
			backend = "postgres"
		case redisClient != nil:
			backend = "redis"
		default:
			backend = "memory"
		}
	}
	var (
		sessionRepo  app.SessionRepository
		profileRepo  app.ProfileRepository
		progressRepo app.ProgressRepository
	)
	switch backend {
	case "postgres":
		sessionRepo = pgstore.NewSessionStore(db)
		profileRepo = pgstore.NewProfileStore(db)
		progressRepo = pgstore.NewProgressStore(db)
	case "redis":
		sessionRepo = redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.SessionTTL, 0))
		profileRepo = redisstore.NewProfileStore(redisClient)
		progressRepo = redisstore.NewProgressStore(redisClient)
	default:
		sessionRepo = memory.NewSessionStore()
		profileRepo = memory.NewProfileStore()
		progressRepo = memory.NewProgressStore()
	}

	policy := resilient.DefaultPolicy()
	policy.Timeout = config.TTLDuration(cfg.Store.Timeout, policy.Timeout)
	policy.ReadAttempts = cfg.Store.ReadAttempts
	policy.BreakerFailures = cfg.Store.BreakerFailures
	policy.Logger = logger

	out.ledger = app.NewLedger(resilient.NewProfileRepository(profileRepo, policy), cfg.Gamification.XPPerLevel, logger).
		WithHistory(resilient.NewProgressRepository(progressRepo, policy))
	out.game = gameConfig(cfg.Gamification)
	rewards := app.NewRewards(out.ledger, rewardsConfig(cfg.Gamification), logger)

	var events app.EventPublisher = rewards
	if cfg.AMQP.URL != "" {
		conn, err := queue.NewConnection(cfg.AMQP.URL, cfg.AMQP.Queue, logger)
		if err != nil {
			return fail(err)
		}
		out.closers = append(out.closers, conn.Close)
		events = queue.NewPublisher(conn)
		consumerCfg := queue.DefaultConsumerConfig()
		consumerCfg.Workers = cfg.AMQP.Workers
		out.consumer = queue.NewConsumer(conn, rewards, consumerCfg, logger)
	}

	rngSeed, err := app.NewSeed()
	if err != nil {
		return fail(err)
	}
	out.sessions = app.NewSessionService(
		resilient.NewSessionRepository(sessionRepo, policy),
		resilient.NewCatalogRepository(catalog, policy),
		events,
		app.NewRandShuffler(rngSeed),
		logger,
	)

	logger.Info("services wired",
		"store", backend,
		"redis", redisClient != nil,
		"postgres", pool != nil,
		"amqp", out.consumer != nil)
	return out, nil
}

func rewardsConfig(g config.GamificationConfig) app.RewardsConfig {
	rc := app.DefaultRewardsConfig()
	rc.XPPerCorrectAnswer = g.XPPerCorrectAnswer
	rc.XPPerActivityCreation = g.XPPerActivityCreation
	rc.XPPerBudgetSimulation = g.XPPerBudgetSimulation
	rc.MasteryThreshold = g.MasteryThreshold
	if len(g.ThemeBadges) > 0 {
		rc.ThemeBadges = g.ThemeBadges
	}
	return rc
}

// gameConfig is the stock game catalog with the configured XP amounts.
func gameConfig(g config.GamificationConfig) domain.GameConfig {
	game := seed.Game()
	game.XPPerCorrectAnswer = g.XPPerCorrectAnswer
	game.XPPerActivityCreation = g.XPPerActivityCreation
	game.XPPerBudgetSimulation = g.XPPerBudgetSimulation
	game.XPPerLevel = g.XPPerLevel
	return game
}
