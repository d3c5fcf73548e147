package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/xchicks/internal/config"
	"github.com/mamadbah2/xchicks/internal/metrics"
	"github.com/mamadbah2/xchicks/internal/repository/mongodb"
	"github.com/mamadbah2/xchicks/internal/repository/sheets"
	"github.com/mamadbah2/xchicks/internal/repository/storage"
	"github.com/mamadbah2/xchicks/internal/scheduler"
	"github.com/mamadbah2/xchicks/internal/server/handlers"
	"github.com/mamadbah2/xchicks/internal/server/router"
	admissionsvc "github.com/mamadbah2/xchicks/internal/service/admission"
	allocationsvc "github.com/mamadbah2/xchicks/internal/service/allocation"
	commandsvc "github.com/mamadbah2/xchicks/internal/service/commands"
	registrysvc "github.com/mamadbah2/xchicks/internal/service/registry"
	reportingsvc "github.com/mamadbah2/xchicks/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/xchicks/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/xchicks/pkg/clients/whatsapp"
	"github.com/mamadbah2/xchicks/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, closeStore, err := storage.Open(cfg.Database, logger.Named(baseLogger, "repo.store"))
	if err != nil {
		baseLogger.Fatal("failed to open inventory store", zap.Error(err))
	}
	defer func() {
		if err := closeStore(); err != nil {
			baseLogger.Error("failed to close inventory store", zap.Error(err))
		}
	}()

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Fatal("failed to load timezone", zap.Error(err))
	}

	recorder := metrics.NewPrometheus()
	allocationOpts := []allocationsvc.Option{allocationsvc.WithMetrics(recorder)}

	if cfg.Sheets.Enabled() {
		ledger, err := sheets.NewSalesLedger(context.Background(), cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sales ledger sheet", zap.Error(err))
		}
		allocationOpts = append(allocationOpts, allocationsvc.WithSalesLedger(ledger))
		baseLogger.Info("sales ledger sheet enabled", zap.String("range", cfg.Sheets.SalesRange))
	} else {
		baseLogger.Warn("google sheets not configured, sales ledger mirror disabled")
	}

	var archive scheduler.Archive
	if cfg.MongoDB.URI != "" {
		connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoRepo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		cancel()
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		archive = mongoRepo
	} else {
		baseLogger.Warn("mongodb uri missing, daily reports will not be archived")
	}

	var messagingSvc *whatsappsvc.MetaWhatsAppService
	if cfg.WhatsApp.Enabled() {
		// The dispatcher is attached below once the allocation engine exists.
		allocationOpts = append(allocationOpts, allocationsvc.WithNotifier(notifierFunc(func(ctx context.Context, to, msg string) error {
			return messagingSvc.Notify(ctx, to, msg)
		})))
	} else {
		baseLogger.Warn("whatsapp token missing, manager commands and notifications disabled")
	}

	registrySvc := registrysvc.NewService(store, logger.Named(baseLogger, "svc.registry"))
	admissionSvc := admissionsvc.NewService(store, admissionsvc.Policy(cfg.Policy), logger.Named(baseLogger, "svc.admission"))
	allocationSvc := allocationsvc.NewService(store, logger.Named(baseLogger, "svc.allocation"), allocationOpts...)
	reportingSvc := reportingsvc.NewService(store, logger.Named(baseLogger, "svc.reporting"))

	deps := router.Dependencies{
		API:     handlers.NewAPIHandler(registrySvc, admissionSvc, allocationSvc, reportingSvc, loc, logger.Named(baseLogger, "handlers.api")),
		Metrics: recorder.Handler(),
	}

	var messenger scheduler.Messenger
	if cfg.WhatsApp.Enabled() {
		commandDispatcher := commandsvc.NewService(allocationSvc, reportingSvc, logger.Named(baseLogger, "svc.commands"))
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc = whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, logger.Named(baseLogger, "svc.whatsapp"))
		deps.Webhook = handlers.NewWebhookHandler(messagingSvc, logger.Named(baseLogger, "handlers.whatsapp"))
		messenger = messagingSvc
	}

	engine := router.New(deps, logger.Named(baseLogger, "router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, reportingSvc, archive, messenger, logger.Named(baseLogger, "scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to build scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

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
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

type notifierFunc func(ctx context.Context, to, msg string) error

func (f notifierFunc) Notify(ctx context.Context, to, msg string) error {
	return f(ctx, to, msg)
}
