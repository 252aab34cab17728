package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/railzwaylabs/caremarket/internal/audit/domain"
	catalogdomain "github.com/railzwaylabs/caremarket/internal/catalog/domain"
	"github.com/railzwaylabs/caremarket/internal/clock"
	"github.com/railzwaylabs/caremarket/internal/config"
	discountdomain "github.com/railzwaylabs/caremarket/internal/discount/domain"
	"github.com/railzwaylabs/caremarket/internal/invoice/domain"
	"github.com/railzwaylabs/caremarket/internal/invoice/render"
	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/railzwaylabs/caremarket/internal/observability"
	"github.com/railzwaylabs/caremarket/internal/pricing"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const overdueBatchSize = 500

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Cfg       config.Config
	Repo      domain.Repository
	Discounts discountdomain.Service
	Catalog   catalogdomain.Service  `optional:"true"`
	Audit     auditdomain.Service    `optional:"true"`
	Renderer  *render.Renderer       `optional:"true"`
	Metrics   *observability.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	discounts discountdomain.Service
	catalog   catalogdomain.Service
	audit     auditdomain.Service
	renderer  *render.Renderer
	metrics   *observability.Metrics

	currency           string
	defaultVATRate     decimal.Decimal
	platformCommission decimal.Decimal
	dueDays            int
}

func NewService(p Params) domain.Service {
	return &Service{
		db:                 p.DB,
		log:                p.Log.Named("invoice.service"),
		genID:              p.GenID,
		clock:              p.Clock,
		repo:               p.Repo,
		discounts:          p.Discounts,
		catalog:            p.Catalog,
		audit:              p.Audit,
		renderer:           p.Renderer,
		metrics:            p.Metrics,
		currency:           p.Cfg.Billing.Currency,
		defaultVATRate:     decimal.NewFromFloat(p.Cfg.Billing.VATRate),
		platformCommission: decimal.NewFromFloat(p.Cfg.Billing.PlatformCommissionRate),
		dueDays:            p.Cfg.Billing.InvoiceDueDays,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	idempotencyKey := strings.TrimSpace(req.IdempotencyKey)
	if idempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.load(ctx, s.db, existing)
		}
	}

	clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
	if err != nil || clientID == 0 {
		return nil, domain.ErrInvalidClient
	}
	providerID, err := snowflake.ParseString(strings.TrimSpace(req.ProviderID))
	if err != nil || providerID == 0 {
		return nil, domain.ErrInvalidProvider
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}
	if len(currency) != 3 {
		return nil, domain.ErrInvalidCurrency
	}

	var serviceID *snowflake.ID
	if raw := strings.TrimSpace(req.ProviderServiceID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		serviceID = &id
	}

	commissionRate, err := s.commissionRate(ctx, req.CommissionRate, serviceID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	inv := &domain.Invoice{
		ID:                s.genID.Generate(),
		InvoiceNumber:     "INV-" + ulid.Make().String(),
		ClientID:          clientID,
		ProviderID:        providerID,
		ProviderServiceID: serviceID,
		Currency:          currency,
		Status:            domain.InvoiceStatusDraft,
		PaymentType:       domain.PaymentTypeFull,
		CommissionRate:    commissionRate,
		DueAt:             utcPtr(req.DueAt),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if idempotencyKey != "" {
		inv.IdempotencyKey = &idempotencyKey
	}
	if req.Metadata != nil {
		inv.Metadata = datatypes.JSONMap(req.Metadata)
	}

	lines := make([]domain.LineItem, 0, len(req.LineItems))
	for i, input := range req.LineItems {
		line, err := s.buildLineItem(inv.ID, i+1, input, now)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	var resp *domain.Response
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, inv); err != nil {
			return err
		}
		if err := s.repo.InsertLineItems(ctx, tx, lines); err != nil {
			return err
		}
		items, installments, err := s.recompute(ctx, tx, inv)
		if err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, inv); err != nil {
			return err
		}
		if err := s.auditTx(ctx, tx, "invoice.create", inv, nil); err != nil {
			return err
		}
		out := toResponse(inv, items, installments)
		resp = &out
		return nil
	})
	if err != nil {
		if idempotencyKey != "" && errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, findErr := s.repo.FindByIdempotencyKey(ctx, s.db, idempotencyKey)
			if findErr != nil {
				return nil, findErr
			}
			if existing != nil {
				return s.load(ctx, s.db, existing)
			}
		}
		return nil, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Int64("total_cents", inv.TotalCents),
	)
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	inv, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return s.load(ctx, s.db, inv)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.Status != "" {
		switch domain.InvoiceStatus(req.Status) {
		case domain.InvoiceStatusDraft, domain.InvoiceStatusSent, domain.InvoiceStatusPaid,
			domain.InvoiceStatusOverdue, domain.InvoiceStatusCancelled:
		default:
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
	}
	if req.ClientID != "" {
		if _, err := snowflake.ParseString(req.ClientID); err != nil {
			return domain.ListResponse{}, domain.ErrInvalidClient
		}
	}
	if req.ProviderID != "" {
		if _, err := snowflake.ParseString(req.ProviderID); err != nil {
			return domain.ListResponse{}, domain.ErrInvalidProvider
		}
	}

	pageSize := req.PageSize
	if pageSize < 0 {
		pageSize = 0
	} else if pageSize == 0 {
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

	var pageInfo *pagination.PageInfo
	if pageSize > 0 {
		pageInfo = pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.Invoice) string {
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
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item, []domain.LineItem{}, nil))
	}
	out := domain.ListResponse{Invoices: resp}
	if pageInfo != nil {
		out.PageInfo = *pageInfo
	}
	return out, nil
}

// commissionRate snapshots the rate at creation: explicit rate, then the
// provider service resolution chain, then the platform default.
func (s *Service) commissionRate(ctx context.Context, explicit *decimal.Decimal, serviceID *snowflake.ID) (decimal.Decimal, error) {
	if explicit != nil {
		if err := pricing.ValidateCommissionRate(*explicit); err != nil {
			return decimal.Zero, err
		}
		return *explicit, nil
	}
	if serviceID != nil && s.catalog != nil {
		return s.catalog.ResolveCommissionRate(ctx, serviceID.String())
	}
	return pricing.ResolveCommissionRate(nil, nil, s.platformCommission)
}

// recompute folds the current line items into the invoice totals and
// re-derives the discount and installment amounts from them.
func (s *Service) recompute(ctx context.Context, tx *gorm.DB, inv *domain.Invoice) ([]domain.LineItem, []domain.Installment, error) {
	items, err := s.repo.ListLineItems(ctx, tx, inv.ID)
	if err != nil {
		return nil, nil, err
	}

	inputs := make([]pricing.LineItem, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, item.ToPricing())
	}
	totals, _, err := pricing.AggregateLineItems(inputs)
	s.metrics.ObserveCalculation("invoice_totals", err)
	if err != nil {
		return nil, nil, err
	}

	inv.TotalCents = money.ToCents(totals.Total)
	inv.VATCents = money.ToCents(totals.VAT)
	inv.NetCents = money.ToCents(totals.Net)

	if inv.DiscountValue != nil {
		// the code was validated and redeemed when applied; only the
		// amount follows the new total
		amount, err := pricing.EvaluateDiscount(pricing.Discount{
			IsPercentage: inv.DiscountPercent,
			Value:        *inv.DiscountValue,
			IsActive:     true,
		}, totals.Total, s.clock.Now(ctx))
		if err != nil {
			return nil, nil, err
		}
		inv.DiscountCents = money.ToCents(amount)
	}

	installments, err := s.repo.ListInstallments(ctx, tx, inv.ID)
	if err != nil {
		return nil, nil, err
	}
	if inv.PaymentType == domain.PaymentTypeInstallment && len(installments) > 0 {
		installments, err = s.resplit(ctx, tx, inv, installments)
		if err != nil {
			return nil, nil, err
		}
	}
	return items, installments, nil
}

func (s *Service) resplit(ctx context.Context, tx *gorm.DB, inv *domain.Invoice, current []domain.Installment) ([]domain.Installment, error) {
	pcts := make([]decimal.Decimal, 0, len(current))
	for _, in := range current {
		pcts = append(pcts, in.PercentageDue)
	}
	plan, err := pricing.SplitInstallments(money.FromCents(inv.PayableCents()), pcts)
	if err != nil {
		return nil, err
	}
	for i := range current {
		current[i].AmountDueCents = money.ToCents(plan[i].Amount)
	}
	if err := s.repo.ReplaceInstallments(ctx, tx, inv.ID, current); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, inv *domain.Invoice) (*domain.Response, error) {
	items, err := s.repo.ListLineItems(ctx, db, inv.ID)
	if err != nil {
		return nil, err
	}
	installments, err := s.repo.ListInstallments(ctx, db, inv.ID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(inv, items, installments)
	return &resp, nil
}

func (s *Service) auditTx(ctx context.Context, tx *gorm.DB, action string, inv *domain.Invoice, extra map[string]any) error {
	if s.audit == nil {
		return nil
	}
	metadata := map[string]any{
		"invoice_number": inv.InvoiceNumber,
		"status":         string(inv.Status),
		"total_amount":   inv.TotalCents,
		"discount":       inv.DiscountCents,
	}
	for k, v := range extra {
		metadata[k] = v
	}
	targetID := inv.ID.String()
	return s.audit.AuditLogTx(ctx, tx, auditdomain.ActorTypeAPI, action, "invoice", &targetID, metadata)
}

func toResponse(inv *domain.Invoice, items []domain.LineItem, installments []domain.Installment) domain.Response {
	resp := domain.Response{
		ID:             inv.ID.String(),
		InvoiceNumber:  inv.InvoiceNumber,
		ClientID:       inv.ClientID.String(),
		ProviderID:     inv.ProviderID.String(),
		Currency:       inv.Currency,
		Status:         inv.Status,
		PaymentType:    inv.PaymentType,
		TotalAmount:    inv.TotalCents,
		VATAmount:      inv.VATCents,
		NetAmount:      inv.NetCents,
		DiscountCode:   inv.DiscountCode,
		DiscountAmount: inv.DiscountCents,
		AmountDue:      inv.PayableCents(),
		CommissionRate: inv.CommissionRate.StringFixed(2),
		DueAt:          inv.DueAt,
		SentAt:         inv.SentAt,
		PaidAt:         inv.PaidAt,
		CancelledAt:    inv.CancelledAt,
		LineItems:      items,
		Installments:   installments,
		Metadata:       inv.Metadata,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
	if inv.ProviderServiceID != nil {
		id := inv.ProviderServiceID.String()
		resp.ProviderServiceID = &id
	}
	return resp
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
