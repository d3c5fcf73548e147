package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/xchicks/internal/config"
	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/service/reporting"
)

const jobTimeout = 2 * time.Minute

// Reporter produces the figures the scheduled jobs publish.
type Reporter interface {
	DailyReport(ctx context.Context, day time.Time) (models.DailyReport, error)
	OverduePayments(ctx context.Context, asOf time.Time) ([]models.OverduePayment, error)
}

// Archive stores daily reports.
type Archive interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// Messenger delivers scheduled messages.
type Messenger interface {
	Notify(ctx context.Context, to, message string) error
	NotifyManagers(ctx context.Context, message string) error
}

// Scheduler runs the end-of-day report and the payment reminder on cron schedules.
type Scheduler struct {
	cron      *cron.Cron
	cfg       config.ReportingConfig
	location  *time.Location
	reporter  Reporter
	archive   Archive
	messenger Messenger
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler creates a scheduler. archive and messenger may be nil when the
// matching integration is not configured.
func NewScheduler(cfg config.ReportingConfig, reporter Reporter, archive Archive, messenger Messenger, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		cfg:       cfg,
		location:  loc,
		reporter:  reporter,
		archive:   archive,
		messenger: messenger,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.job("daily report", s.RunDailyReport)); err != nil {
		return fmt.Errorf("schedule daily report %q: %w", s.cfg.CronSchedule, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.ReminderSchedule, s.job("payment reminders", s.RunPaymentReminders)); err != nil {
		return fmt.Errorf("schedule payment reminders %q: %w", s.cfg.ReminderSchedule, err)
	}

	s.logger.Info("starting scheduler",
		zap.String("report_schedule", s.cfg.CronSchedule),
		zap.String("reminder_schedule", s.cfg.ReminderSchedule),
		zap.String("timezone", s.location.String()))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) job(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		started := time.Now()
		if err := run(ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Info("scheduled job finished", zap.String("job", name), zap.Duration("took", time.Since(started)))
	}
}

// RunDailyReport builds today's report, archives it and sends it to managers.
func (s *Scheduler) RunDailyReport(ctx context.Context) error {
	report, err := s.reporter.DailyReport(ctx, s.now().In(s.location))
	if err != nil {
		return err
	}

	var errs []error
	if s.archive != nil {
		if err := s.archive.SaveDailyReport(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("archive: %w", err))
		}
	}
	if s.messenger != nil {
		if err := s.messenger.NotifyManagers(ctx, reporting.FormatDaily(report)); err != nil {
			errs = append(errs, fmt.Errorf("send: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RunPaymentReminders messages every farmer with an overdue feed payment.
func (s *Scheduler) RunPaymentReminders(ctx context.Context) error {
	overdue, err := s.reporter.OverduePayments(ctx, s.now())
	if err != nil {
		return err
	}
	if s.messenger == nil {
		s.logger.Info("payment reminders skipped, no messenger configured", zap.Int("overdue", len(overdue)))
		return nil
	}

	sent := 0
	for _, item := range overdue {
		if item.Farmer.Phone == "" {
			s.logger.Warn("overdue allocation without farmer phone", zap.String("allocation", item.Allocation.RequestCode))
			continue
		}
		if err := s.messenger.Notify(ctx, item.Farmer.Phone, reporting.FormatReminder(item)); err != nil {
			s.logger.Warn("payment reminder failed", zap.String("allocation", item.Allocation.RequestCode), zap.Error(err))
			continue
		}
		sent++
	}
	s.logger.Info("payment reminders sent", zap.Int("overdue", len(overdue)), zap.Int("sent", sent))
	return nil
}
