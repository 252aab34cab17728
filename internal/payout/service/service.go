package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/railzwaylabs/caremarket/internal/audit/domain"
	"github.com/railzwaylabs/caremarket/internal/clock"
	invoicedomain "github.com/railzwaylabs/caremarket/internal/invoice/domain"
	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/railzwaylabs/caremarket/internal/observability"
	"github.com/railzwaylabs/caremarket/internal/payout/domain"
	"github.com/railzwaylabs/caremarket/internal/pricing"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// generateLockKey serializes concurrent generation runs on postgres.
const generateLockKey int64 = 0x63617265706f7574

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Audit   auditdomain.Service    `optional:"true"`
	Metrics *observability.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	audit   auditdomain.Service
	metrics *observability.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("payout.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		audit:   p.Audit,
		metrics: p.Metrics,
	}
}

type groupKey struct {
	providerID snowflake.ID
	currency   string
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	start := req.PeriodStart.UTC()
	end := req.PeriodEnd.UTC()
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return nil, domain.ErrInvalidPeriod
	}

	var providerID *snowflake.ID
	if raw := strings.TrimSpace(req.ProviderID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidProvider
		}
		providerID = &id
	}

	out := &domain.GenerateResponse{PeriodStart: start, PeriodEnd: end, Payouts: []domain.Response{}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", generateLockKey).Error; err != nil {
				return err
			}
		}

		invoices, err := s.repo.ListEligibleInvoices(ctx, tx, start, end, providerID)
		if err != nil {
			return err
		}

		groups := make(map[groupKey][]domain.EligibleInvoice)
		var order []groupKey
		for _, inv := range invoices {
			key := groupKey{providerID: inv.ProviderID, currency: inv.Currency}
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], inv)
		}

		now := s.clock.Now(ctx)
		for _, key := range order {
			resp, err := s.createPayout(ctx, tx, key, groups[key], start, end, now)
			if err != nil {
				return err
			}
			out.Payouts = append(out.Payouts, *resp)
		}
		return nil
	})
	s.metrics.ObserveCalculation("payout_generate", err)
	if err != nil {
		return nil, err
	}

	s.log.Info("payouts generated",
		zap.Time("period_start", start),
		zap.Time("period_end", end),
		zap.Int("count", len(out.Payouts)),
	)
	return out, nil
}

func (s *Service) createPayout(ctx context.Context, tx *gorm.DB, key groupKey, invoices []domain.EligibleInvoice, start, end, now time.Time) (*domain.Response, error) {
	payout := &domain.Payout{
		ID:          s.genID.Generate(),
		ProviderID:  key.providerID,
		Currency:    key.currency,
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      domain.PayoutStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	lines := make([]pricing.PayoutLine, 0, len(invoices))
	rows := make([]domain.LineItem, 0, len(invoices))
	for _, inv := range invoices {
		amount := (&invoicedomain.Invoice{
			TotalCents:    inv.TotalCents,
			NetCents:      inv.NetCents,
			DiscountCents: inv.DiscountCents,
		}).NetAfterDiscount()

		line, err := pricing.ComputePayoutLine(amount, inv.CommissionRate)
		if err != nil {
			return nil, fmt.Errorf("invoice %s: %w", inv.ID, err)
		}
		lines = append(lines, line)
		rows = append(rows, domain.LineItem{
			ID:                    s.genID.Generate(),
			PayoutID:              payout.ID,
			InvoiceID:             inv.ID,
			AmountCents:           money.ToCents(line.Amount),
			CommissionPercentage:  line.CommissionPercentage,
			CommissionAmountCents: money.ToCents(line.CommissionAmount),
			NetAmountCents:        money.ToCents(line.NetAmount),
			CreatedAt:             now,
		})
		payout.GrossCents += money.ToCents(line.Amount)
		payout.CommissionCents += money.ToCents(line.CommissionAmount)
	}
	payout.TotalCents = money.ToCents(pricing.PayoutTotal(lines))

	if err := s.repo.Insert(ctx, tx, payout); err != nil {
		return nil, err
	}
	if err := s.repo.InsertLineItems(ctx, tx, rows); err != nil {
		return nil, err
	}
	if err := s.auditTx(ctx, tx, "payout.generate", payout, map[string]any{"invoices": len(rows)}); err != nil {
		return nil, err
	}

	resp := toResponse(payout, rows)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	payoutID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	payout, err := s.repo.FindByID(ctx, s.db, payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, domain.ErrNotFound
	}
	lines, err := s.repo.ListLineItems(ctx, s.db, payout.ID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(payout, lines)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.Status != "" && !validStatus(domain.PayoutStatus(req.Status)) {
		return domain.ListResponse{}, domain.ErrInvalidStatus
	}
	if req.ProviderID != "" {
		if _, err := snowflake.ParseString(req.ProviderID); err != nil {
			return domain.ListResponse{}, domain.ErrInvalidProvider
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	} else if pageSize > pagination.MaxPageSize {
		pageSize = pagination.MaxPageSize
	}

	items, err := s.repo.List(ctx, s.db, req, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.Payout) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item, []domain.LineItem{}))
	}
	out := domain.ListResponse{Payouts: resp}
	if pageInfo != nil {
		out.PageInfo = *pageInfo
	}
	return out, nil
}

func (s *Service) auditTx(ctx context.Context, tx *gorm.DB, action string, payout *domain.Payout, extra map[string]any) error {
	if s.audit == nil {
		return nil
	}
	metadata := map[string]any{
		"provider_id":  payout.ProviderID.String(),
		"status":       string(payout.Status),
		"total_amount": payout.TotalCents,
		"currency":     payout.Currency,
	}
	for k, v := range extra {
		metadata[k] = v
	}
	targetID := payout.ID.String()
	return s.audit.AuditLogTx(ctx, tx, auditdomain.ActorTypeAPI, action, "payout", &targetID, metadata)
}

func toResponse(p *domain.Payout, lines []domain.LineItem) domain.Response {
	return domain.Response{
		ID:               p.ID.String(),
		ProviderID:       p.ProviderID.String(),
		Currency:         p.Currency,
		PeriodStart:      p.PeriodStart,
		PeriodEnd:        p.PeriodEnd,
		Status:           p.Status,
		GrossAmount:      p.GrossCents,
		CommissionAmount: p.CommissionCents,
		TotalAmount:      p.TotalCents,
		FailureReason:    p.FailureReason,
		ProcessedAt:      p.ProcessedAt,
		PaidAt:           p.PaidAt,
		FailedAt:         p.FailedAt,
		CancelledAt:      p.CancelledAt,
		LineItems:        lines,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func validStatus(status domain.PayoutStatus) bool {
	switch status {
	case domain.PayoutStatusPending, domain.PayoutStatusProcessing, domain.PayoutStatusPaid,
		domain.PayoutStatusFailed, domain.PayoutStatusCancelled:
		return true
	default:
		return false
	}
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}
