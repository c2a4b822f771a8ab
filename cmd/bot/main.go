// File: cmd/bot/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/last9death/maturmarket/internal/application"
	"github.com/last9death/maturmarket/internal/config"
	"github.com/last9death/maturmarket/internal/domain/ports/adapter"
	tele "github.com/last9death/maturmarket/internal/infra/adapters/telegram"
	"github.com/last9death/maturmarket/internal/infra/db/sqlite"
	"github.com/last9death/maturmarket/internal/infra/i18n"
	"github.com/last9death/maturmarket/internal/infra/logging"
	"github.com/last9death/maturmarket/internal/infra/metrics"
	"github.com/last9death/maturmarket/internal/infra/ops"
	"github.com/last9death/maturmarket/internal/infra/ratelimit"
	red "github.com/last9death/maturmarket/internal/infra/redis"
	"github.com/last9death/maturmarket/internal/infra/sched"
	"github.com/last9death/maturmarket/internal/infra/scrape"
	"github.com/last9death/maturmarket/internal/usecase"
)

// Populated via -ldflags at release builds.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode (console logs, tokenless runs allowed)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- SQLite ----
	db, err := sqlite.Open(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("sqlite open failed")
	}
	defer db.Close()
	go sampleDBStats(ctx, db)

	// ---- Rate limiter (Redis when configured, in-memory otherwise) ----
	var limiter ratelimit.Limiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
		logger.Info().Str("addr", cfg.Redis.URL).Msg("using redis rate limiter")
	} else {
		limiter = ratelimit.NewMemoryLimiter()
	}

	// ---- Repositories ----
	userRepo := sqlite.NewSQLiteUserRepo(db)
	watchRepo := sqlite.NewSQLiteWatchRepo(db)
	cacheRepo := sqlite.NewSQLiteProductCacheRepo(db)
	scanRepo := sqlite.NewSQLiteScanRunRepo(db)

	// ---- Shop client ----
	fetcher := scrape.NewClient(cfg.Site.RequestTimeout, logger)

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(userRepo, logger)
	productUC := usecase.NewProductUseCase(fetcher, cacheRepo, limiter, &cfg.Site, &cfg.Limits, logger)
	watchUC := usecase.NewWatchUseCase(watchRepo, userRepo, productUC, logger)
	scanUC := usecase.NewScanUseCase(fetcher, scanRepo, productUC, limiter, &cfg.Site, &cfg.Limits, &cfg.Scan, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, watchRepo, cacheRepo, scanRepo, logger)

	// ---- Facade ----
	translator, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	if err != nil {
		logger.Fatal().Err(err).Msg("locale load failed")
	}
	facade := application.NewBotFacade(userUC, productUC, watchUC, statsUC, scanUC, translator, logger)

	// ---- Telegram ----
	var bot adapter.TelegramBotAdapter
	if cfg.Bot.Token == "" {
		logger.Warn().Msg("no bot token, outgoing messages go to the log")
		bot = tele.NewNoopBotAdapter(logger)
	} else {
		realBot, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, facade, translator, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram init failed")
		}
		go func() {
			if err := realBot.StartPolling(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
		bot = realBot
	}

	// ---- Ops server ----
	opsSrv := ops.NewServer(cfg.Ops.Addr, logger)
	go func() {
		if err := opsSrv.Start(); err != nil {
			logger.Error().Err(err).Msg("ops server failed")
		}
	}()

	// ---- Watch worker ----
	worker := sched.NewWatchWorker(cfg.Watch.Interval, facade, bot, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops server shutdown failed")
	}
}

// sampleDBStats feeds the connection pool gauges once a minute.
func sampleDBStats(ctx context.Context, db *sql.DB) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := db.Stats()
			metrics.SetDBPoolStats(s.OpenConnections, s.Idle, s.InUse)
		}
	}
}
