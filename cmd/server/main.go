package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/onepwr/procurement-tracker/internal/api"
	"github.com/onepwr/procurement-tracker/internal/api/handler"
	"github.com/onepwr/procurement-tracker/internal/core/ports"
	"github.com/onepwr/procurement-tracker/internal/core/service"
	mongodb "github.com/onepwr/procurement-tracker/internal/infrastructure/db/mongo"
	redisdb "github.com/onepwr/procurement-tracker/internal/infrastructure/db/redis"
	"github.com/onepwr/procurement-tracker/internal/infrastructure/db/tabular"
	"github.com/onepwr/procurement-tracker/internal/infrastructure/notify"
	"github.com/onepwr/procurement-tracker/internal/infrastructure/rowstore"
	"github.com/onepwr/procurement-tracker/internal/pkg/config"
	"github.com/onepwr/procurement-tracker/pkg/logger"
)

// repositories groups the durable-store ports so both backends can satisfy
// them behind one wiring step.
type repositories struct {
	Accounts    ports.AccountRepository
	Sessions    ports.SessionRepository
	Counters    ports.CounterRepository
	Allocations ports.AllocationLogRepository
	Requests    ports.RequestRepository
}

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "procurement-tracker",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}
	defer func() { _ = rdb.Close() }()

	health := map[string]handler.Pinger{
		"redis": handler.PingerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}),
	}

	var repos repositories
	switch cfg.Backend {
	case config.BackendSheets:
		store, err := rowstore.NewSheetsStore(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("sheets store init failed")
		}
		repos = sheetsRepositories(store)
		log.Info().Str("spreadsheet", cfg.Sheets.SpreadsheetID).Msg("using sheets backend")

	case config.BackendMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			log.Fatal().Err(err).Msg("mongo connect failed")
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		repos = mongoRepositories(ctx, db, log)
		health["mongo"] = handler.PingerFunc(func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		})

	default:
		log.Fatal().Str("backend", cfg.Backend).Msg("unknown store backend")
	}

	// Ephemeral tier and per-key leases.
	sessionCache := redisdb.NewSessionCache(rdb, cfg.Session.TTL)
	resvCache := redisdb.NewReservationCache(rdb, cfg.Alloc.ReservationTTL)
	locker := redisdb.NewLeaseLocker(rdb)

	// Core services.
	sessions := service.NewSessionStore(repos.Sessions, sessionCache, locker, cfg.Session.Retention, log)
	allocator := service.NewAllocator(repos.Counters, repos.Allocations, resvCache, locker, log)
	auth := service.NewAuthService(repos.Accounts, sessions, cfg.JWTSecret, cfg.Session.TTL, log)

	var publisher ports.NoticePublisher
	if cfg.SMTP.Host != "" {
		mailer := notify.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.ApproverList)
		dispatcher := notify.NewDispatcher(0, mailer, log)
		dispatcher.Start(ctx)
		publisher = dispatcher
	}

	requests := service.NewRequestService(repos.Requests, allocator, publisher, log)

	go sweepLoop(ctx, sessions, cfg.Session.SweepInterval, log)

	e := api.NewRouter(api.Deps{
		Auth:      auth,
		Sessions:  sessions,
		Requests:  requests,
		Allocator: allocator,
		Health:    health,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil {
			log.Info().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

func mongoRepositories(ctx context.Context, db *mongo.Database, log zerolog.Logger) repositories {
	accounts := mongodb.NewAccountRepository(db)
	sessions := mongodb.NewSessionRepository(db)
	counters := mongodb.NewCounterRepository(db)
	allocations := mongodb.NewAllocationRepository(db)
	requests := mongodb.NewRequestRepository(db)

	// Index creation is best-effort: a replica without createIndex rights
	// still serves traffic.
	for name, ensure := range map[string]func(context.Context) error{
		"sessions":    sessions.EnsureIndexes,
		"counters":    counters.EnsureIndexes,
		"allocations": allocations.EnsureIndexes,
		"requests":    requests.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Warn().Err(err).Str("collection", name).Msg("ensure indexes failed")
		}
	}

	return repositories{
		Accounts:    accounts,
		Sessions:    sessions,
		Counters:    counters,
		Allocations: allocations,
		Requests:    requests,
	}
}

func sheetsRepositories(store rowstore.Store) repositories {
	return repositories{
		Accounts:    tabular.NewAccountRepository(store),
		Sessions:    tabular.NewSessionRepository(store),
		Counters:    tabular.NewCounterRepository(store),
		Allocations: tabular.NewAllocationRepository(store),
		Requests:    tabular.NewRequestRepository(store),
	}
}

// sweepLoop periodically deletes deactivated session rows past retention.
func sweepLoop(ctx context.Context, sessions ports.SessionService, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Sweep(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("session sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int("removed", n).Msg("session sweep")
			}
		}
	}
}
