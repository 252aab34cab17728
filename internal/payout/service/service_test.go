package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/railzwaylabs/caremarket/internal/audit/domain"
	"github.com/railzwaylabs/caremarket/internal/clock"
	invoicedomain "github.com/railzwaylabs/caremarket/internal/invoice/domain"
	"github.com/railzwaylabs/caremarket/internal/payout/domain"
	"github.com/railzwaylabs/caremarket/internal/payout/repository"
	"github.com/railzwaylabs/caremarket/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	march = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	april = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
)

const (
	providerA snowflake.ID = 1001
	providerB snowflake.ID = 1002
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db := testutil.OpenDB(t,
		&invoicedomain.Invoice{}, &domain.Payout{}, &domain.LineItem{}, &auditdomain.AuditLog{},
	)
	node := testutil.Node(t)
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFixed(april.Add(2 * time.Hour)),
		Repo:  repository.Provide(),
	})
	return svc, db, node
}

type seed struct {
	provider snowflake.ID
	status   invoicedomain.InvoiceStatus
	total    int64
	net      int64
	discount int64
	rate     int64
	paidAt   time.Time
}

func insertInvoice(t *testing.T, db *gorm.DB, node *snowflake.Node, s seed) snowflake.ID {
	t.Helper()
	id := node.Generate()
	inv := invoicedomain.Invoice{
		ID:             id,
		InvoiceNumber:  "INV-" + id.String(),
		ClientID:       9,
		ProviderID:     s.provider,
		Currency:       "EUR",
		Status:         s.status,
		PaymentType:    invoicedomain.PaymentTypeFull,
		TotalCents:     s.total,
		NetCents:       s.net,
		VATCents:       s.total - s.net,
		DiscountCents:  s.discount,
		CommissionRate: decimal.NewFromInt(s.rate),
		CreatedAt:      march,
		UpdatedAt:      march,
	}
	if s.status == invoicedomain.InvoiceStatusPaid {
		paid := s.paidAt
		inv.PaidAt = &paid
	}
	require.NoError(t, db.Create(&inv).Error)
	return id
}

func seedPeriod(t *testing.T, db *gorm.DB, node *snowflake.Node) {
	t.Helper()
	paid := invoicedomain.InvoiceStatusPaid
	insertInvoice(t, db, node, seed{provider: providerA, status: paid, total: 12100, net: 10000, rate: 15, paidAt: march.Add(48 * time.Hour)})
	insertInvoice(t, db, node, seed{provider: providerA, status: paid, total: 24200, net: 20000, discount: 2420, rate: 10, paidAt: march.Add(72 * time.Hour)})
	insertInvoice(t, db, node, seed{provider: providerB, status: paid, total: 6050, net: 5000, rate: 20, paidAt: march})
	// outside the window or not paid
	insertInvoice(t, db, node, seed{provider: providerA, status: paid, total: 1210, net: 1000, rate: 15, paidAt: april})
	insertInvoice(t, db, node, seed{provider: providerB, status: invoicedomain.InvoiceStatusSent, total: 1210, net: 1000, rate: 15})
}

func byProvider(payouts []domain.Response, provider snowflake.ID) *domain.Response {
	for i := range payouts {
		if payouts[i].ProviderID == provider.String() {
			return &payouts[i]
		}
	}
	return nil
}

func TestGenerateGroupsPaidInvoices(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	seedPeriod(t, db, node)

	out, err := svc.Generate(ctx, domain.GenerateRequest{PeriodStart: march, PeriodEnd: april})
	require.NoError(t, err)
	require.Len(t, out.Payouts, 2)

	a := byProvider(out.Payouts, providerA)
	require.NotNil(t, a)
	assert.Equal(t, domain.PayoutStatusPending, a.Status)
	require.Len(t, a.LineItems, 2)
	// 100.00 at 15% and 200.00 x 0.9 at 10%
	assert.Equal(t, int64(28000), a.GrossAmount)
	assert.Equal(t, int64(3300), a.CommissionAmount)
	assert.Equal(t, int64(24700), a.TotalAmount)
	assert.Equal(t, int64(18000), a.LineItems[1].AmountCents)
	assert.Equal(t, int64(16200), a.LineItems[1].NetAmountCents)

	b := byProvider(out.Payouts, providerB)
	require.NotNil(t, b)
	assert.Equal(t, int64(4000), b.TotalAmount)
	assert.Equal(t, "20", b.LineItems[0].CommissionPercentage.String())
}

func TestGenerateIsIdempotent(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	seedPeriod(t, db, node)

	first, err := svc.Generate(ctx, domain.GenerateRequest{PeriodStart: march, PeriodEnd: april})
	require.NoError(t, err)
	require.Len(t, first.Payouts, 2)

	again, err := svc.Generate(ctx, domain.GenerateRequest{PeriodStart: march, PeriodEnd: april})
	require.NoError(t, err)
	assert.Empty(t, again.Payouts)

	// cancelling releases the invoices for the next run
	a := byProvider(first.Payouts, providerA)
	_, err = svc.Cancel(ctx, a.ID)
	require.NoError(t, err)

	third, err := svc.Generate(ctx, domain.GenerateRequest{PeriodStart: march, PeriodEnd: april, ProviderID: providerA.String()})
	require.NoError(t, err)
	require.Len(t, third.Payouts, 1)
	assert.Equal(t, int64(24700), third.Payouts[0].TotalAmount)
}

func TestGenerateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Generate(ctx, domain.GenerateRequest{PeriodStart: april, PeriodEnd: march})
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)

	_, err = svc.Generate(ctx, domain.GenerateRequest{PeriodStart: march, PeriodEnd: april, ProviderID: "abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)

	out, err := svc.Generate(ctx, domain.GenerateRequest{PeriodStart: march, PeriodEnd: april})
	require.NoError(t, err)
	assert.Empty(t, out.Payouts)
}

func TestPayoutTransitions(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	seedPeriod(t, db, node)

	out, err := svc.Generate(ctx, domain.GenerateRequest{PeriodStart: march, PeriodEnd: april})
	require.NoError(t, err)
	id := byProvider(out.Payouts, providerA).ID

	resp, err := svc.Process(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusProcessing, resp.Status)
	require.NotNil(t, resp.ProcessedAt)

	_, err = svc.Cancel(ctx, id)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	resp, err = svc.Fail(ctx, id, "bank rejected transfer")
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusFailed, resp.Status)
	require.NotNil(t, resp.FailureReason)
	assert.Equal(t, "bank rejected transfer", *resp.FailureReason)

	resp, err = svc.Process(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, resp.FailureReason)

	resp, err = svc.MarkPaid(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPaid, resp.Status)
	require.NotNil(t, resp.PaidAt)

	_, err = svc.Process(ctx, id)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// admin path straight from pending
	other := byProvider(out.Payouts, providerB).ID
	resp, err = svc.MarkPaid(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPaid, resp.Status)

	_, err = svc.MarkPaid(ctx, "42")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPayouts(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	seedPeriod(t, db, node)

	_, err := svc.Generate(ctx, domain.GenerateRequest{PeriodStart: march, PeriodEnd: april})
	require.NoError(t, err)

	all, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Payouts, 2)

	onlyA, err := svc.List(ctx, domain.ListRequest{ProviderID: providerA.String(), Status: "pending"})
	require.NoError(t, err)
	require.Len(t, onlyA.Payouts, 1)

	got, err := svc.Get(ctx, onlyA.Payouts[0].ID)
	require.NoError(t, err)
	assert.Len(t, got.LineItems, 2)

	_, err = svc.List(ctx, domain.ListRequest{Status: "settled"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
