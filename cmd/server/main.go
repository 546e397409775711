package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/api"
	"github.com/trogers1052/portfolio-tracker/internal/config"
	"github.com/trogers1052/portfolio-tracker/internal/database"
	"github.com/trogers1052/portfolio-tracker/internal/kafka"
	"github.com/trogers1052/portfolio-tracker/internal/logger"
	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/trogers1052/portfolio-tracker/internal/portfolio"
	"github.com/trogers1052/portfolio-tracker/internal/quotes"
	"github.com/trogers1052/portfolio-tracker/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{})
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	log.Info().
		Str("store", cfg.Store.Backend).
		Str("quote_cache", cfg.Quotes.CacheBackend).
		Dur("refresh_interval", cfg.Quotes.RefreshInterval).
		Msg("Starting portfolio tracker")

	// amounts go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rdb *redis.Client
	if cfg.Store.Backend == config.StoreRedis || cfg.Quotes.CacheBackend == config.CacheRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	store, closeStore := openStore(cfg, rdb, log)
	defer closeStore()

	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka producer enabled")
	}

	var quoteStore quotes.Store = quotes.NewMemoryStore(cfg.Quotes.CacheRetention)
	if cfg.Quotes.CacheBackend == config.CacheRedis {
		quoteStore = quotes.NewRedisStore(rdb, cfg.Redis.KeyPrefix, cfg.Quotes.CacheRetention)
	}
	source := quotes.NewCoinGecko(cfg.Quotes.BaseURL, cfg.Quotes.APIKey, cfg.Quotes.Timeout, log)
	cache := quotes.NewCache(source, quoteStore, cfg.Quotes.CacheTTL, log)

	svcCfg := portfolio.Config{Store: store, Quotes: cache, Log: log}
	if producer != nil {
		svcCfg.Publisher = producer
	}
	svc := portfolio.NewService(ctx, svcCfg)

	pollerCfg := quotes.PollerConfig{
		Cache:   cache,
		Targets: svc.AssetIDs,
		OnRefresh: func(ctx context.Context, batch models.QuoteBatch) {
			if err := svc.SetLastSync(ctx, batch.FetchedAt); err != nil {
				log.Warn().Err(err).Msg("Failed to record last sync")
			}
		},
		Log: log,
	}
	if producer != nil {
		pollerCfg.Publisher = producer
	}
	poller := quotes.NewPoller(pollerCfg)

	sched := scheduler.New(ctx, log)
	if err := sched.AddJob(cfg.Quotes.RefreshSchedule(), poller); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule quote refresh")
	}
	sched.Start()
	go func() {
		if err := sched.RunNow(poller); err != nil {
			log.Warn().Err(err).Msg("Initial quote refresh failed")
		}
	}()

	if cfg.Kafka.Enabled() {
		consumer := kafka.NewCommandConsumer(cfg.Kafka.Brokers, cfg.Kafka.CommandsTopic, cfg.Kafka.GroupID, svc, log)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Kafka command consumer stopped")
			}
		}()
	}

	handler := api.NewHandler(svc, cache, poller, log)
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(handler, cfg.Server.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Quotes.Timeout + 20*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// openStore returns the configured portfolio store and a func releasing it
func openStore(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) (portfolio.Store, func()) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		db, err := database.New(cfg.Database.ConnectionString())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("Using postgres portfolio store")
		return db, func() { db.Close() }
	case config.StoreRedis:
		log.Info().Str("key", cfg.Store.RedisKey).Msg("Using redis portfolio store")
		return portfolio.NewRedisStore(rdb, cfg.Redis.KeyPrefix, cfg.Store.RedisKey), func() {}
	default:
		log.Info().Str("path", cfg.Store.FilePath).Msg("Using file portfolio store")
		return portfolio.NewFileStore(cfg.Store.FilePath), func() {}
	}
}
