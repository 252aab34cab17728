package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/railzwaylabs/caremarket/internal/catalog/domain"
	"github.com/railzwaylabs/caremarket/internal/clock"
	"github.com/railzwaylabs/caremarket/internal/config"
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
	Cfg     config.Config
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

	currency           string
	defaultVATRate     decimal.Decimal
	platformCommission decimal.Decimal
}

func New(p Params) domain.Service {
	return &Service{
		db:                 p.DB,
		log:                p.Log.Named("catalog.service"),
		genID:              p.GenID,
		clock:              p.Clock,
		repo:               p.Repo,
		metrics:            p.Metrics,
		currency:           p.Cfg.Billing.Currency,
		defaultVATRate:     decimal.NewFromFloat(p.Cfg.Billing.VATRate),
		platformCommission: decimal.NewFromFloat(p.Cfg.Billing.PlatformCommissionRate),
	}
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CreateCategoryRequest) (*domain.CategoryResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = slug.Make(name)
	}
	if !slug.IsSlug(code) {
		return nil, domain.ErrInvalidCode
	}

	if req.CommissionRate != nil {
		if err := pricing.ValidateCommissionRate(*req.CommissionRate); err != nil {
			return nil, err
		}
	}
	vatRate := s.defaultVATRate
	if req.VATRate != nil {
		if err := pricing.ValidateVATRate(*req.VATRate); err != nil {
			return nil, err
		}
		vatRate = *req.VATRate
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now(ctx)
	category := &domain.Category{
		ID:             s.genID.Generate(),
		Code:           code,
		Name:           name,
		CommissionRate: req.CommissionRate,
		VATRate:        vatRate,
		Active:         active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.InsertCategory(ctx, s.db, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrDuplicateCategoryCode
		}
		return nil, err
	}

	resp := toCategoryResponse(category)
	return &resp, nil
}

func (s *Service) ListCategories(ctx context.Context, req domain.CategoryListRequest) (domain.CategoryListResponse, error) {
	pageSize := normalizePageSize(req.PageSize)
	items, err := s.repo.ListCategories(ctx, s.db, req, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.CategoryListResponse{}, err
	}

	var pageInfo *pagination.PageInfo
	if pageSize > 0 {
		pageInfo = pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.Category) string {
			return cursorToken(item.ID, item.CreatedAt)
		})
		if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
			items = items[:pageSize]
		}
	}

	resp := make([]domain.CategoryResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toCategoryResponse(item))
	}

	out := domain.CategoryListResponse{Categories: resp}
	if pageInfo != nil {
		out.PageInfo = *pageInfo
	}
	return out, nil
}

func (s *Service) GetCategory(ctx context.Context, id string) (*domain.CategoryResponse, error) {
	category, err := s.loadCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toCategoryResponse(category)
	return &resp, nil
}

func (s *Service) UpdateCategory(ctx context.Context, req domain.UpdateCategoryRequest) (*domain.CategoryResponse, error) {
	category, err := s.loadCategory(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		category.Name = name
	}
	switch {
	case req.ClearCommissionRate:
		category.CommissionRate = nil
	case req.CommissionRate != nil:
		if err := pricing.ValidateCommissionRate(*req.CommissionRate); err != nil {
			return nil, err
		}
		rate := *req.CommissionRate
		category.CommissionRate = &rate
	}
	if req.VATRate != nil {
		if err := pricing.ValidateVATRate(*req.VATRate); err != nil {
			return nil, err
		}
		category.VATRate = *req.VATRate
	}
	if req.Active != nil {
		category.Active = *req.Active
	}

	category.UpdatedAt = s.clock.Now(ctx)
	if err := s.repo.UpdateCategory(ctx, s.db, category); err != nil {
		return nil, err
	}

	resp := toCategoryResponse(category)
	return &resp, nil
}

func (s *Service) loadCategory(ctx context.Context, id string) (*domain.Category, error) {
	categoryID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	category, err := s.repo.FindCategoryByID(ctx, s.db, categoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, domain.ErrNotFound
	}
	return category, nil
}

func toCategoryResponse(c *domain.Category) domain.CategoryResponse {
	return domain.CategoryResponse{
		ID:             c.ID.String(),
		Code:           c.Code,
		Name:           c.Name,
		CommissionRate: c.CommissionRate,
		VATRate:        c.VATRate,
		Active:         c.Active,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func normalizePageSize(size int32) int32 {
	if size < 0 {
		return 0
	}
	if size == 0 {
		return 50
	}
	if size > pagination.MaxPageSize {
		return pagination.MaxPageSize
	}
	return size
}

func cursorToken(id snowflake.ID, createdAt time.Time) string {
	token, err := pagination.EncodeCursor(pagination.Cursor{
		ID:        id.String(),
		CreatedAt: createdAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return ""
	}
	return token
}

func displayPrice(cents int64, unit string) string {
	return money.FromCents(cents).StringFixed(money.MinorUnits) + pricing.PriceUnit(unit).Suffix()
}
