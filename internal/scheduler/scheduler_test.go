package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	auditdomain "github.com/railzwaylabs/caremarket/internal/audit/domain"
	"github.com/railzwaylabs/caremarket/internal/clock"
	"github.com/railzwaylabs/caremarket/internal/config"
	invoicedomain "github.com/railzwaylabs/caremarket/internal/invoice/domain"
	"github.com/railzwaylabs/caremarket/internal/observability"
	payoutdomain "github.com/railzwaylabs/caremarket/internal/payout/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockInvoices struct {
	invoicedomain.Service
	mock.Mock
}

func (m *MockInvoices) MarkOverdue(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockPayouts struct {
	payoutdomain.Service
	mock.Mock
}

func (m *MockPayouts) Generate(ctx context.Context, req payoutdomain.GenerateRequest) (*payoutdomain.GenerateResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*payoutdomain.GenerateResponse)
	return resp, args.Error(1)
}

type MockAudit struct {
	auditdomain.Service
	mock.Mock
}

func (m *MockAudit) Purge(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

var now = time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T) (*Scheduler, *MockInvoices, *MockPayouts, *MockAudit, *observability.Metrics) {
	t.Helper()
	invoices := &MockInvoices{}
	payouts := &MockPayouts{}
	audit := &MockAudit{}
	metrics := observability.NewMetrics()

	s, err := New(Params{
		Log:   zap.NewNop(),
		Clock: clock.NewFixed(now),
		Cfg: config.Config{Scheduler: config.SchedulerConfig{
			Enabled:            true,
			OverdueSpec:        "@every 1h",
			PayoutSpec:         "0 2 1 * *",
			RetentionSpec:      "30 3 * * *",
			AuditRetentionDays: 30,
		}},
		Invoices: invoices,
		Payouts:  payouts,
		Audit:    audit,
		Metrics:  metrics,
	})
	require.NoError(t, err)
	return s, invoices, payouts, audit, metrics
}

func TestPreviousMonth(t *testing.T) {
	start, end := PreviousMonth(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), end)

	start, end = PreviousMonth(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestNewRegistersJobs(t *testing.T) {
	s, _, _, _, _ := newTestScheduler(t)
	assert.Len(t, s.cron.Entries(), 3)

	_, err := New(Params{
		Log:   zap.NewNop(),
		Clock: clock.NewFixed(now),
		Cfg:   config.Config{Scheduler: config.SchedulerConfig{OverdueSpec: "every hour"}},
	})
	assert.Error(t, err)
}

func TestGeneratePayoutsJobUsesPreviousMonth(t *testing.T) {
	s, _, payouts, _, metrics := newTestScheduler(t)
	ctx := context.Background()

	want := payoutdomain.GenerateRequest{
		PeriodStart: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	payouts.On("Generate", mock.Anything, want).
		Return(&payoutdomain.GenerateResponse{Payouts: []payoutdomain.Response{{ID: "1"}}}, nil).
		Once()

	require.NoError(t, s.Run(ctx, JobGeneratePayouts, s.GeneratePayoutsJob))
	payouts.AssertExpectations(t)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.JobRuns.WithLabelValues(JobGeneratePayouts, "success")))
}

func TestRunRecordsFailures(t *testing.T) {
	s, invoices, _, _, metrics := newTestScheduler(t)
	ctx := context.Background()

	invoices.On("MarkOverdue", mock.Anything).Return(0, errors.New("db down")).Once()
	invoices.On("MarkOverdue", mock.Anything).Return(2, nil).Once()

	assert.Error(t, s.Run(ctx, JobMarkOverdueInvoices, s.MarkOverdueInvoicesJob))
	assert.NoError(t, s.Run(ctx, JobMarkOverdueInvoices, s.MarkOverdueInvoicesJob))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.JobRuns.WithLabelValues(JobMarkOverdueInvoices, "failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.JobRuns.WithLabelValues(JobMarkOverdueInvoices, "success")))
	invoices.AssertExpectations(t)
}

func TestPurgeAuditLogsJob(t *testing.T) {
	s, _, _, audit, _ := newTestScheduler(t)
	ctx := context.Background()

	audit.On("Purge", mock.Anything, now.AddDate(0, 0, -30)).Return(int64(12), nil).Once()
	require.NoError(t, s.PurgeAuditLogsJob(ctx))
	audit.AssertExpectations(t)

	s.cfg.AuditRetentionDays = 0
	require.NoError(t, s.PurgeAuditLogsJob(ctx))
	audit.AssertNumberOfCalls(t, "Purge", 1)
}
