package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Spok95/expedition-bot/internal/bot"
	"github.com/Spok95/expedition-bot/internal/calendar"
	"github.com/Spok95/expedition-bot/internal/config"
	"github.com/Spok95/expedition-bot/internal/credentials"
	"github.com/Spok95/expedition-bot/internal/db"
	"github.com/Spok95/expedition-bot/internal/httpapi"
	"github.com/Spok95/expedition-bot/internal/jobs"
	"github.com/Spok95/expedition-bot/internal/lifecycle"
	"github.com/Spok95/expedition-bot/internal/logging"
	"github.com/Spok95/expedition-bot/internal/observability"
	"github.com/Spok95/expedition-bot/internal/stats"
	"github.com/Spok95/expedition-bot/internal/trips"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Не удалось загрузить .env файл, используем переменные окружения")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env, version)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal("db open", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrations", zap.Error(err))
	}

	creds := credentials.NewManager(pool, lg.Component("credentials"), cfg.DBTimeout)
	if res := creds.EnsureAdmin(ctx, cfg.AdminSurname, cfg.AdminPassword); !res.OK() {
		logger.Fatal("ensure admin", zap.String("result", res.String()))
	} else if res.Value != "" && cfg.AdminPassword == "" {
		// пароль показывается один раз; сменить его можно через API
		logger.Warn("admin created", zap.String("surname", cfg.AdminSurname), zap.String("password", res.Value))
	}

	tripSvc := trips.NewService(pool, lg.Component("trips"), trips.Options{
		DBTimeout:    cfg.DBTimeout,
		Location:     cfg.Location,
		CalendarSync: cfg.Calendar.Enabled,
	})
	agg := stats.NewAggregator(pool, lg.Component("stats"), cfg.DBTimeout, cfg.Location)
	life := lifecycle.NewManager(pool, lg.Component("lifecycle"), cfg.DBTimeout, cfg.Calendar.Enabled)

	if cfg.Calendar.Enabled {
		client, err := calendar.NewGoogleClient(ctx, cfg.Calendar.CredentialsFile, cfg.Calendar.CalendarID, cfg.Location)
		if err != nil {
			// без календаря ядро работает; задания копятся в очереди
			logger.Error("calendar client", zap.Error(err))
		} else {
			syncer := calendar.NewSyncer(calendar.NewPgStore(pool, cfg.Calendar.MaxAttempts), client, logger)
			runner := jobs.New(ctx, logger)
			runner.Every(cfg.Calendar.SyncInterval, "calendar_sync", syncer.RunOnce)
			runner.Every(time.Minute, "calendar_backlog", syncer.ReportBacklog)
		}
	}

	srv := httpapi.Start(cfg.HTTPAddr, httpapi.Deps{
		Log:         logger,
		DB:          pool,
		Credentials: creds,
		Lifecycle:   life,
		Trips:       tripSvc,
		Stats:       agg,
	})
	logger.Info("http server started", zap.String("addr", cfg.HTTPAddr))
	defer func() {
		if err := srv.Shutdown(); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
		logger.Info("http server stopped")
	}()

	if cfg.BotToken == "" {
		logger.Warn("BOT_TOKEN не задан, бот не запущен")
		<-ctx.Done()
		return
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatal("bot init", zap.Error(err))
	}
	api.Debug = cfg.Env == "dev"
	logger.Info("bot started", zap.String("username", api.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	b := bot.New(api, creds, tripSvc, life, agg, logger, cfg.Location)
	b.Run(ctx, updates)

	api.StopReceivingUpdates()
	logger.Info("shutting down")
}
