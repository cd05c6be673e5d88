package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/config"
	"github.com/mamadbah2/farmer/internal/repository"
	"github.com/mamadbah2/farmer/internal/repository/memory"
	"github.com/mamadbah2/farmer/internal/repository/mongodb"
	"github.com/mamadbah2/farmer/internal/repository/sheets"
	"github.com/mamadbah2/farmer/internal/scheduler"
	"github.com/mamadbah2/farmer/internal/server/handlers"
	"github.com/mamadbah2/farmer/internal/server/router"
	"github.com/mamadbah2/farmer/internal/service/clock"
	"github.com/mamadbah2/farmer/internal/service/export"
	"github.com/mamadbah2/farmer/internal/service/finance"
	"github.com/mamadbah2/farmer/internal/service/flock"
	"github.com/mamadbah2/farmer/internal/service/production"
	"github.com/mamadbah2/farmer/internal/service/reminders"
	"github.com/mamadbah2/farmer/internal/service/vaccination"
	whatsappsvc "github.com/mamadbah2/farmer/internal/service/whatsapp"
	"github.com/mamadbah2/farmer/pkg/clients/email"
	"github.com/mamadbah2/farmer/pkg/clients/whatsapp"
	"github.com/mamadbah2/farmer/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Reminders.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}
	clk := clock.New(loc)

	store, closeStore := openStore(cfg.MongoDB, baseLogger)
	defer closeStore()

	financeSvc := finance.NewService(store, clk, logger.Named(baseLogger, "svc.finance"))
	vaccinationSvc := vaccination.NewService(store, financeSvc, clk, logger.Named(baseLogger, "svc.vaccination"))
	flockSvc := flock.NewService(store, financeSvc, vaccinationSvc, flock.NewBatchCode, clk, logger.Named(baseLogger, "svc.flock"))
	productionSvc := production.NewService(store, financeSvc, clk, logger.Named(baseLogger, "svc.production"))
	remindersSvc := reminders.NewService(store, clk, reminderChannels(cfg, baseLogger), logger.Named(baseLogger, "svc.reminders"))

	var exporter *export.Service
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		exporter = export.NewService(store, sheetsRepo, clk, logger.Named(baseLogger, "svc.export"))
	} else {
		baseLogger.Warn("google sheets not configured, spreadsheet export disabled")
	}

	handlerLogger := logger.Named(baseLogger, "handlers")
	var webhook *handlers.WebhookHandler
	if cfg.WhatsApp.CommandsEnabled() {
		commandSvc, err := whatsappsvc.NewService(cfg.WhatsApp, whatsapp.NewClient(cfg.WhatsApp), whatsappsvc.Deps{
			Flock:      flockSvc,
			Production: productionSvc,
			Vaccines:   vaccinationSvc,
			Ledger:     financeSvc,
		}, clk, logger.Named(baseLogger, "svc.whatsapp"))
		if err != nil {
			baseLogger.Fatal("failed to init whatsapp commands", zap.Error(err))
		}
		webhook = handlers.NewWebhookHandler(commandSvc, logger.Named(baseLogger, "handlers.whatsapp"))
	} else {
		baseLogger.Warn("whatsapp webhook not configured, field commands disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := router.New(router.Handlers{
		Batches:       handlers.NewBatchHandler(flockSvc, vaccinationSvc, exporter, loc, handlerLogger),
		Logs:          handlers.NewLogHandler(flockSvc, productionSvc, loc, handlerLogger),
		Vaccinations:  handlers.NewVaccinationHandler(vaccinationSvc, loc, handlerLogger),
		Finances:      handlers.NewFinanceHandler(financeSvc, loc, handlerLogger),
		Notifications: handlers.NewNotificationHandler(remindersSvc, loc, handlerLogger),
		Webhook:       webhook,
	}, cfg.Auth.JWTSecret, logger.Named(baseLogger, "router"))

	// Initialize Scheduler
	sched := scheduler.NewScheduler(cfg.Reminders, loc, remindersSvc, logger.Named(baseLogger, "scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.MongoDB.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	sched.Stop()
	remindersSvc.Wait()
}

// openStore returns the configured store and its release function.
func openStore(cfg config.MongoDBConfig, base *zap.Logger) (repository.Store, func()) {
	if cfg.Driver == config.DriverMemory {
		base.Warn("using in-memory store, data is lost on restart")
		return memory.New(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	store, err := mongodb.New(ctx, cfg.URI, cfg.DBName, mongodb.Options{Transactions: cfg.Transactions}, logger.Named(base, "repo.mongodb"))
	if err != nil {
		base.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		base.Fatal("failed to ensure mongodb indexes", zap.Error(err))
	}

	return store, func() {
		if err := store.Close(context.Background()); err != nil {
			base.Error("failed to close mongodb connection", zap.Error(err))
		}
	}
}

// reminderChannels builds the optional delivery channels from configuration.
func reminderChannels(cfg *config.Config, base *zap.Logger) reminders.Channels {
	var channels reminders.Channels
	if cfg.Email.Enabled() {
		channels.Email = email.NewResendClient(cfg.Email)
		base.Info("reminder email channel enabled")
	} else {
		base.Warn("resend api key missing, reminder emails disabled")
	}
	if cfg.WhatsApp.Enabled() {
		channels.WhatsApp = whatsapp.NewClient(cfg.WhatsApp)
		channels.WhatsAppTo = cfg.WhatsApp.ReminderTo
		base.Info("reminder whatsapp channel enabled")
	} else {
		base.Warn("whatsapp not configured, reminder messages disabled")
	}
	return channels
}
