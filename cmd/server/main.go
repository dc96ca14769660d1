package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockledger/internal/config"
	"github.com/mamadbah2/stockledger/internal/repository/memory"
	"github.com/mamadbah2/stockledger/internal/repository/mongodb"
	"github.com/mamadbah2/stockledger/internal/repository/redisstore"
	"github.com/mamadbah2/stockledger/internal/repository/sheets"
	"github.com/mamadbah2/stockledger/internal/repository/store"
	"github.com/mamadbah2/stockledger/internal/scheduler"
	"github.com/mamadbah2/stockledger/internal/server/handlers"
	"github.com/mamadbah2/stockledger/internal/server/router"
	"github.com/mamadbah2/stockledger/internal/service/exchange"
	"github.com/mamadbah2/stockledger/internal/service/ledger"
	reportingsvc "github.com/mamadbah2/stockledger/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/stockledger/internal/service/whatsapp"
	"github.com/mamadbah2/stockledger/pkg/clients/sheetsync"
	whatsappclient "github.com/mamadbah2/stockledger/pkg/clients/whatsapp"
	"github.com/mamadbah2/stockledger/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	kv, snapshots, err := openStore(context.Background(), cfg)
	if err != nil {
		baseLogger.Fatal("failed to init store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	st := store.New(kv, baseLogger.Named("repo.store"))
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()
	baseLogger.Info("store ready", zap.String("backend", cfg.Store.Backend), zap.String("namespace", cfg.Store.Namespace))

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		sheetsRepo, err = sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
	} else {
		baseLogger.Warn("google sheets credentials missing, snapshot mirror disabled")
	}

	var notifier whatsappsvc.MessagingService
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		notifier = whatsappsvc.NewMetaWhatsAppService(whatsClient, baseLogger.Named("svc.whatsapp"))
		baseLogger.Info("whatsapp report notifications enabled")
	}

	ledgerSvc := ledger.NewService(st, ledger.Options{StrictImport: cfg.Ledger.StrictImport}, baseLogger.Named("svc.ledger"))
	syncClient := sheetsync.NewClient(cfg.SheetSync, baseLogger.Named("client.sheetsync"))
	exchangeSvc := exchange.NewService(ledgerSvc, syncClient, baseLogger.Named("svc.exchange"))
	reportingSvc := reportingsvc.NewService(ledgerSvc, sheetsRepo, snapshots, cfg.Reporting.ExpiryWarningDays, baseLogger.Named("svc.reporting"))

	engine := router.New(router.Handlers{
		Stock:   handlers.NewStockHandler(ledgerSvc, baseLogger.Named("handlers.stock")),
		Sync:    handlers.NewSyncHandler(exchangeSvc, baseLogger.Named("handlers.sync")),
		Reports: handlers.NewReportHandler(reportingSvc, notifier, cfg.WhatsApp.RecipientID, baseLogger.Named("handlers.reports")),
	}, cfg.SheetSync.Password, baseLogger.Named("router"))

	var exporter scheduler.Exporter
	if cfg.SheetSync.URL != "" {
		exporter = exchangeSvc
	} else {
		baseLogger.Warn("SHEET_SYNC_URL missing, sync endpoints will answer 503")
	}

	sched, err := scheduler.NewScheduler(*cfg, reportingSvc, exporter, notifier, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
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
}

// openStore connects the configured backend. The snapshot repository is only
// available with MongoDB.
func openStore(ctx context.Context, cfg *config.Config) (store.KVStore, mongodb.SnapshotRepository, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.Store.Backend {
	case config.BackendMemory:
		return memory.NewKVStore(), nil, nil
	case config.BackendMongoDB:
		repo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName, cfg.Store.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	case config.BackendRedis:
		kv, err := redisstore.NewKVStore(connectCtx, cfg.Redis.URL, cfg.Store.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return kv, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}
