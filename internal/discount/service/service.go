package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/internal/clock"
	"github.com/railzwaylabs/caremarket/internal/discount/domain"
	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/railzwaylabs/caremarket/internal/observability"
	"github.com/railzwaylabs/caremarket/internal/pricing"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *observability.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *observability.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("discount.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

// NormalizeCode upper-cases and trims a code; lookups are case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	code := NormalizeCode(req.Code)
	if code == "" || strings.ContainsAny(code, " \t\n") {
		return nil, domain.ErrInvalidCode
	}
	if err := pricing.ValidateDiscountValue(req.IsPercentage, req.Value); err != nil {
		return nil, err
	}
	if req.MinOrderAmount.IsNegative() {
		return nil, domain.ErrInvalidMinOrder
	}
	if req.StartsAt != nil && req.EndsAt != nil && req.EndsAt.Before(*req.StartsAt) {
		return nil, domain.ErrInvalidWindow
	}
	if req.MaxUses != nil && *req.MaxUses <= 0 {
		return nil, domain.ErrInvalidMaxUses
	}

	now := s.clock.Now(ctx)
	item := &domain.Discount{
		ID:            s.genID.Generate(),
		Code:          code,
		Description:   req.Description,
		IsPercentage:  req.IsPercentage,
		Value:         req.Value,
		MinOrderCents: money.ToCents(req.MinOrderAmount),
		StartsAt:      utcPtr(req.StartsAt),
		EndsAt:        utcPtr(req.EndsAt),
		MaxUses:       req.MaxUses,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, item); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrDuplicateCode
		}
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
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
		pageInfo = pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.Discount) string {
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
		resp = append(resp, toResponse(item))
	}
	out := domain.ListResponse{Discounts: resp}
	if pageInfo != nil {
		out.PageInfo = *pageInfo
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, code string) (*domain.Response, error) {
	item, err := s.load(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Deactivate(ctx context.Context, code string) (*domain.Response, error) {
	item, err := s.load(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if item.IsActive {
		if err := s.repo.Deactivate(ctx, s.db, item.ID); err != nil {
			return nil, err
		}
		item.IsActive = false
		item.UpdatedAt = s.clock.Now(ctx)
	}
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Check(ctx context.Context, code string, orderAmount decimal.Decimal) (*domain.CheckResponse, error) {
	item, amount, err := s.Evaluate(ctx, s.db, code, orderAmount)
	if err != nil {
		var reason *pricing.DiscountError
		if errors.As(err, &reason) {
			return &domain.CheckResponse{
				Code:           NormalizeCode(code),
				Valid:          false,
				DiscountAmount: decimal.Zero,
				Reason:         string(reason.Reason),
				Message:        reason.Message(),
			}, nil
		}
		return nil, err
	}
	return &domain.CheckResponse{
		Code:           item.Code,
		Valid:          true,
		DiscountAmount: amount,
	}, nil
}

func (s *Service) Evaluate(ctx context.Context, db *gorm.DB, code string, orderAmount decimal.Decimal) (*domain.Discount, decimal.Decimal, error) {
	if orderAmount.IsNegative() {
		return nil, decimal.Zero, pricing.ErrNegativeAmount
	}
	if db == nil {
		db = s.db
	}
	item, err := s.load(ctx, db, code)
	if err != nil {
		return nil, decimal.Zero, err
	}

	amount, err := pricing.EvaluateDiscount(item.ToPricing(), orderAmount, s.clock.Now(ctx))
	s.metrics.ObserveCalculation("discount", err)
	if err != nil {
		var reason *pricing.DiscountError
		if errors.As(err, &reason) && s.metrics != nil {
			s.metrics.DiscountRejections.WithLabelValues(string(reason.Reason)).Inc()
		}
		return item, decimal.Zero, err
	}
	return item, amount, nil
}

// Redeem counts one use. Losing the race for the last use surfaces as
// pricing.ErrDiscountUsageExhausted.
func (s *Service) Redeem(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if db == nil {
		db = s.db
	}
	ok, err := s.repo.IncrementUses(ctx, db, id)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Info("discount redemption rejected", zap.String("discount_id", id.String()))
		return pricing.ErrDiscountUsageExhausted
	}
	return nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, code string) (*domain.Discount, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, domain.ErrInvalidCode
	}
	item, err := s.repo.FindByCode(ctx, db, normalized)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func toResponse(item *domain.Discount) domain.Response {
	return domain.Response{
		ID:             item.ID.String(),
		Code:           item.Code,
		Description:    item.Description,
		IsPercentage:   item.IsPercentage,
		Value:          item.Value,
		MinOrderAmount: item.MinOrderCents,
		StartsAt:       item.StartsAt,
		EndsAt:         item.EndsAt,
		MaxUses:        item.MaxUses,
		UsesCount:      item.UsesCount,
		IsActive:       item.IsActive,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
