package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	auditdomain "github.com/railzwaylabs/caremarket/internal/audit/domain"
	"github.com/railzwaylabs/caremarket/internal/clock"
	"github.com/railzwaylabs/caremarket/internal/config"
	invoicedomain "github.com/railzwaylabs/caremarket/internal/invoice/domain"
	"github.com/railzwaylabs/caremarket/internal/observability"
	payoutdomain "github.com/railzwaylabs/caremarket/internal/payout/domain"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobMarkOverdueInvoices = "mark_overdue_invoices"
	JobGeneratePayouts     = "generate_payouts"
	JobPurgeAuditLogs      = "purge_audit_logs"
)

const jobTimeout = 10 * time.Minute

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Cfg      config.Config
	Invoices invoicedomain.Service
	Payouts  payoutdomain.Service
	Audit    auditdomain.Service
	Metrics  *observability.Metrics `optional:"true"`
}

type Scheduler struct {
	log      *zap.Logger
	clock    clock.Clock
	cfg      config.SchedulerConfig
	invoices invoicedomain.Service
	payouts  payoutdomain.Service
	audit    auditdomain.Service
	metrics  *observability.Metrics
	cron     *cron.Cron
}

func New(p Params) (*Scheduler, error) {
	log := p.Log.Named("scheduler")
	cronLog := cronLogger{log: log}
	s := &Scheduler{
		log:      log,
		clock:    p.Clock,
		cfg:      p.Cfg.Scheduler,
		invoices: p.Invoices,
		payouts:  p.Payouts,
		audit:    p.Audit,
		metrics:  p.Metrics,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
	}

	jobs := []struct {
		name string
		spec string
		fn   func(context.Context) error
	}{
		{JobMarkOverdueInvoices, s.cfg.OverdueSpec, s.MarkOverdueInvoicesJob},
		{JobGeneratePayouts, s.cfg.PayoutSpec, s.GeneratePayoutsJob},
		{JobPurgeAuditLogs, s.cfg.RetentionSpec, s.PurgeAuditLogsJob},
	}
	for _, job := range jobs {
		if job.spec == "" {
			log.Info("job disabled", zap.String("job", job.name))
			continue
		}
		if _, err := s.cron.AddFunc(job.spec, s.wrap(job.name, job.fn)); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", job.name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) wrap(name string, fn func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		_ = s.Run(ctx, name, fn)
	}
}

// Run executes one job with logging and metrics.
func (s *Scheduler) Run(ctx context.Context, name string, fn func(context.Context) error) error {
	started := time.Now()
	s.log.Info("job started", zap.String("job", name))

	err := fn(ctx)
	elapsed := time.Since(started)

	outcome := "success"
	if err != nil {
		outcome = "failure"
		s.log.Error("job failed",
			zap.String("job", name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	} else {
		s.log.Info("job finished", zap.String("job", name), zap.Duration("elapsed", elapsed))
	}

	if s.metrics != nil {
		s.metrics.JobRuns.WithLabelValues(name, outcome).Inc()
		s.metrics.JobDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}
	return err
}

func (s *Scheduler) MarkOverdueInvoicesJob(ctx context.Context) error {
	moved, err := s.invoices.MarkOverdue(ctx)
	if err != nil {
		return err
	}
	s.log.Info("overdue invoices processed", zap.Int("moved", moved))
	return nil
}

// GeneratePayoutsJob settles the previous calendar month.
func (s *Scheduler) GeneratePayoutsJob(ctx context.Context) error {
	start, end := PreviousMonth(s.clock.Now(ctx))
	out, err := s.payouts.Generate(ctx, payoutdomain.GenerateRequest{
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil {
		return err
	}
	s.log.Info("payouts generated",
		zap.Time("period_start", start),
		zap.Time("period_end", end),
		zap.Int("payouts", len(out.Payouts)),
	)
	return nil
}

func (s *Scheduler) PurgeAuditLogsJob(ctx context.Context) error {
	days := s.cfg.AuditRetentionDays
	if days <= 0 {
		s.log.Info("audit retention disabled", zap.Int("days", days))
		return nil
	}
	cutoff := s.clock.Now(ctx).AddDate(0, 0, -days)
	deleted, err := s.audit.Purge(ctx, cutoff)
	if err != nil {
		return err
	}
	s.log.Info("audit logs purged", zap.Time("cutoff", cutoff), zap.Int64("deleted", deleted))
	return nil
}

// PreviousMonth returns [first of last month, first of this month) in UTC.
func PreviousMonth(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, -1, 0), end
}

type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	if err == nil {
		err = errors.New("unknown")
	}
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
