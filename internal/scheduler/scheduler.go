package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockledger/internal/config"
	"github.com/mamadbah2/stockledger/internal/domain/models"
	"github.com/mamadbah2/stockledger/internal/service/reporting"
)

// Reporter builds and publishes stock snapshots.
type Reporter interface {
	StockSnapshot(ctx context.Context, now time.Time) (models.StockSnapshot, error)
	PublishSnapshot(ctx context.Context, snapshot models.StockSnapshot) error
}

// Exporter pushes the full catalog to the spreadsheet web app.
type Exporter interface {
	ExportAll(ctx context.Context) (models.SyncReply, error)
}

// Notifier delivers the formatted report.
type Notifier interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron       *cron.Cron
	reporter   Reporter
	exporter   Exporter
	notifier   Notifier
	cfg        config.Config
	logger     *zap.Logger
	now        func() time.Time
	jobTimeout time.Duration
}

// NewScheduler creates a new scheduler instance. exporter and notifier may be nil.
func NewScheduler(cfg config.Config, reporter Reporter, exporter Exporter, notifier Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Reporting.Timezone, err)
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		reporter:   reporter,
		exporter:   exporter,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
		now:        func() time.Time { return time.Now().In(loc) },
		jobTimeout: 2 * time.Minute,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("snapshot_schedule", s.cfg.Reporting.SnapshotSchedule),
		zap.String("export_schedule", s.cfg.Reporting.ExportSchedule))

	if _, err := s.cron.AddFunc(s.cfg.Reporting.SnapshotSchedule, s.runDailySnapshot); err != nil {
		return fmt.Errorf("schedule daily snapshot: %w", err)
	}

	if s.cfg.Reporting.ExportSchedule != "" && s.exporter != nil {
		if _, err := s.cron.AddFunc(s.cfg.Reporting.ExportSchedule, s.runExport); err != nil {
			return fmt.Errorf("schedule export: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDailySnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	if err := s.dailySnapshot(ctx); err != nil {
		s.logger.Error("daily snapshot failed", zap.Error(err))
	}
}

func (s *Scheduler) dailySnapshot(ctx context.Context) error {
	s.logger.Info("generating daily snapshot")

	snapshot, err := s.reporter.StockSnapshot(ctx, s.now())
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}

	if err := s.reporter.PublishSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	if s.notifier == nil || s.cfg.WhatsApp.RecipientID == "" {
		return nil
	}

	req := models.OutboundMessageRequest{
		To:      s.cfg.WhatsApp.RecipientID,
		Message: reporting.FormatSnapshot(snapshot),
	}
	if err := s.notifier.SendOutbound(ctx, req); err != nil {
		return fmt.Errorf("send snapshot: %w", err)
	}

	s.logger.Info("daily snapshot sent successfully")
	return nil
}

func (s *Scheduler) runExport() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	reply, err := s.exporter.ExportAll(ctx)
	if err != nil {
		s.logger.Error("scheduled export failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled export completed",
		zap.Int("products", reply.Products),
		zap.Int("transactions", reply.Transactions))
}
