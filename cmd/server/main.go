// @title                       Bank Cards API
// @version                     1.0
// @description                 Card ledger with encrypted card numbers, top-ups and transfers.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	_ "github.com/effectivemobile/bank-cards/docs"
	"github.com/effectivemobile/bank-cards/internal/api"
	"github.com/effectivemobile/bank-cards/internal/core/security"
	"github.com/effectivemobile/bank-cards/internal/core/service"
	mongostore "github.com/effectivemobile/bank-cards/internal/infrastructure/db/mongo"
	"github.com/effectivemobile/bank-cards/internal/infrastructure/db/postgres"
	redisstore "github.com/effectivemobile/bank-cards/internal/infrastructure/db/redis"
	"github.com/effectivemobile/bank-cards/internal/infrastructure/http/handlers"
	"github.com/effectivemobile/bank-cards/internal/infrastructure/jobs"
	"github.com/effectivemobile/bank-cards/internal/infrastructure/queue"
	"github.com/effectivemobile/bank-cards/internal/pkg/config"
	"github.com/effectivemobile/bank-cards/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{Service: "bank-cards"})
		boot.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "bank-cards",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	pool, err := postgres.Connect(ctx, postgres.Config{URL: cfg.Postgres.URL, MaxConns: cfg.Postgres.MaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}

	mongoClient, mongoDB, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()
	auditRepo := mongostore.NewAuditRepository(mongoDB)
	if err := auditRepo.EnsureIndexes(ctx); err != nil {
		return err
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	// --- Core ---
	cipher, err := security.NewPANCipher(cfg.PANKey())
	if err != nil {
		return err
	}

	cardRepo := postgres.NewCardRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	auditService := service.NewAuditService(auditRepo, logger.Component("audit"))

	// Workers outlive ctx so they can drain after the server stops.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Jobs.AuditWorkers, auditService, logger.Component("dispatcher"))
	dispatcher.Start(workerCtx)
	defer func() {
		stopWorkers()
		dispatcher.Wait()
	}()

	ledger := service.NewLedgerService(
		postgres.NewTransactor(pool),
		cardRepo,
		cipher,
		dispatcher,
		logger.Component("ledger"),
	)
	users := service.NewUserService(userRepo, logger.Component("users"))
	auth := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)

	if cfg.Admin.Enabled() {
		created, err := users.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password)
		if err != nil {
			return err
		}
		if created {
			log.Info().Str("username", cfg.Admin.Username).Msg("bootstrap admin created")
		}
	}

	// --- Jobs ---
	stats := jobs.NewCardStats(cardRepo, logger.Component("card-stats"))
	if err := stats.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial card stats refresh failed")
	}
	scheduler, err := stats.Schedule(ctx, cfg.Jobs.CardStatsSchedule)
	if err != nil {
		return err
	}
	defer func() { <-scheduler.Stop().Done() }()

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Ledger:      ledger,
		Users:       users,
		Auth:        auth,
		Audit:       auditService,
		Idempotency: redisstore.NewIdempotencyStore(rdb, cfg.Idempotency.TTL),
		Accounts:    userRepo,
		Readiness: map[string]handlers.Check{
			"postgres": pool.Ping,
			"mongodb": func(ctx context.Context) error {
				return mongoClient.Ping(ctx, readpref.Primary())
			},
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		},
		JWTSecret: cfg.JWTSecret,
		Log:       logger.Component("http"),
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	return nil
}

