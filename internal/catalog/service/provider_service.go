package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/internal/catalog/domain"
	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/railzwaylabs/caremarket/internal/pricing"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) CreateProviderService(ctx context.Context, req domain.CreateProviderServiceRequest) (*domain.ProviderServiceResponse, error) {
	providerID, err := snowflake.ParseString(strings.TrimSpace(req.ProviderID))
	if err != nil || providerID == 0 {
		return nil, domain.ErrInvalidProvider
	}
	categoryID, err := snowflake.ParseString(strings.TrimSpace(req.CategoryID))
	if err != nil {
		return nil, domain.ErrInvalidCategory
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Price.IsNegative() || !req.Price.Equal(money.Round(req.Price)) {
		return nil, domain.ErrInvalidPrice
	}
	unit, err := pricing.ParsePriceUnit(req.PriceUnit)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}
	if len(currency) != 3 {
		return nil, domain.ErrInvalidCurrency
	}
	if req.CommissionRateOverride != nil {
		if err := pricing.ValidateCommissionRate(*req.CommissionRateOverride); err != nil {
			return nil, err
		}
	}

	category, err := s.repo.FindCategoryByID(ctx, s.db, categoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, domain.ErrInvalidCategory
	}
	if !category.Active {
		return nil, domain.ErrCategoryInactive
	}

	vatRate := category.VATRate
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
	item := &domain.ProviderService{
		ID:                     s.genID.Generate(),
		ProviderID:             providerID,
		CategoryID:             categoryID,
		Name:                   name,
		Description:            trimmedOrNil(req.Description),
		PriceCents:             money.ToCents(req.Price),
		Currency:               currency,
		PriceUnit:              string(unit),
		VATRate:                vatRate,
		CommissionRateOverride: req.CommissionRateOverride,
		Active:                 active,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.repo.InsertProviderService(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := toProviderServiceResponse(item)
	return &resp, nil
}

func (s *Service) ListProviderServices(ctx context.Context, req domain.ProviderServiceListRequest) (domain.ProviderServiceListResponse, error) {
	if req.ProviderID != "" {
		if _, err := snowflake.ParseString(strings.TrimSpace(req.ProviderID)); err != nil {
			return domain.ProviderServiceListResponse{}, domain.ErrInvalidProvider
		}
	}
	if req.CategoryID != "" {
		if _, err := snowflake.ParseString(strings.TrimSpace(req.CategoryID)); err != nil {
			return domain.ProviderServiceListResponse{}, domain.ErrInvalidCategory
		}
	}

	pageSize := normalizePageSize(req.PageSize)
	items, err := s.repo.ListProviderServices(ctx, s.db, req, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ProviderServiceListResponse{}, err
	}

	var pageInfo *pagination.PageInfo
	if pageSize > 0 {
		pageInfo = pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.ProviderService) string {
			return cursorToken(item.ID, item.CreatedAt)
		})
		if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
			items = items[:pageSize]
		}
	}

	resp := make([]domain.ProviderServiceResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toProviderServiceResponse(item))
	}

	out := domain.ProviderServiceListResponse{Services: resp}
	if pageInfo != nil {
		out.PageInfo = *pageInfo
	}
	return out, nil
}

func (s *Service) GetProviderService(ctx context.Context, id string) (*domain.ProviderServiceResponse, error) {
	item, err := s.loadProviderService(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toProviderServiceResponse(item)
	return &resp, nil
}

func (s *Service) UpdateProviderService(ctx context.Context, req domain.UpdateProviderServiceRequest) (*domain.ProviderServiceResponse, error) {
	item, err := s.loadProviderService(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Description != nil {
		item.Description = trimmedOrNil(req.Description)
	}
	if req.Price != nil {
		if req.Price.IsNegative() || !req.Price.Equal(money.Round(*req.Price)) {
			return nil, domain.ErrInvalidPrice
		}
		item.PriceCents = money.ToCents(*req.Price)
	}
	if req.PriceUnit != nil {
		unit, err := pricing.ParsePriceUnit(*req.PriceUnit)
		if err != nil {
			return nil, err
		}
		item.PriceUnit = string(unit)
	}
	if req.VATRate != nil {
		if err := pricing.ValidateVATRate(*req.VATRate); err != nil {
			return nil, err
		}
		item.VATRate = *req.VATRate
	}
	switch {
	case req.ClearOverride:
		item.CommissionRateOverride = nil
	case req.CommissionRateOverride != nil:
		if err := pricing.ValidateCommissionRate(*req.CommissionRateOverride); err != nil {
			return nil, err
		}
		rate := *req.CommissionRateOverride
		item.CommissionRateOverride = &rate
	}
	if req.Active != nil {
		item.Active = *req.Active
	}

	item.UpdatedAt = s.clock.Now(ctx)
	if err := s.repo.UpdateProviderService(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := toProviderServiceResponse(item)
	return &resp, nil
}

func (s *Service) ResolveCommissionRate(ctx context.Context, providerServiceID string) (decimal.Decimal, error) {
	item, err := s.loadProviderService(ctx, providerServiceID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.resolveRate(ctx, item)
}

func (s *Service) resolveRate(ctx context.Context, item *domain.ProviderService) (decimal.Decimal, error) {
	var categoryRate *decimal.Decimal
	if item.CommissionRateOverride == nil {
		category, err := s.repo.FindCategoryByID(ctx, s.db, item.CategoryID)
		if err != nil {
			return decimal.Zero, err
		}
		if category != nil {
			categoryRate = category.CommissionRate
		} else {
			s.log.Warn("provider service references missing category",
				zap.String("provider_service_id", item.ID.String()),
				zap.String("category_id", item.CategoryID.String()),
			)
		}
	}
	return pricing.ResolveCommissionRate(item.CommissionRateOverride, categoryRate, s.platformCommission)
}

func (s *Service) Quote(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteResponse, error) {
	item, err := s.loadProviderService(ctx, req.ProviderServiceID)
	if err != nil {
		return nil, err
	}
	if !item.Active {
		return nil, domain.ErrServiceInactive
	}

	rate, err := s.resolveRate(ctx, item)
	if err != nil {
		return nil, err
	}

	estimate, err := pricing.EstimatePrice(pricing.EstimateInput{
		Unit:       pricing.PriceUnit(item.PriceUnit),
		Price:      money.FromCents(item.PriceCents),
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Quantity:   req.Quantity,
		DistanceKm: req.DistanceKm,
	})
	s.metrics.ObserveCalculation("estimate", err)
	if err != nil {
		return nil, err
	}

	breakdown, err := pricing.Earnings(pricing.EarningsInput{
		SellingPrice:   estimate.Total,
		VATRate:        item.VATRate,
		CommissionRate: rate,
	})
	s.metrics.ObserveCalculation("earnings", err)
	if err != nil {
		return nil, err
	}

	return &domain.QuoteResponse{
		ProviderServiceID: item.ID.String(),
		Currency:          item.Currency,
		Estimate:          estimate,
		Breakdown:         breakdown,
	}, nil
}

func (s *Service) loadProviderService(ctx context.Context, id string) (*domain.ProviderService, error) {
	serviceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindProviderServiceByID(ctx, s.db, serviceID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func toProviderServiceResponse(item *domain.ProviderService) domain.ProviderServiceResponse {
	return domain.ProviderServiceResponse{
		ID:                     item.ID.String(),
		ProviderID:             item.ProviderID.String(),
		CategoryID:             item.CategoryID.String(),
		Name:                   item.Name,
		Description:            item.Description,
		PriceAmount:            item.PriceCents,
		Currency:               item.Currency,
		PriceUnit:              item.PriceUnit,
		DisplayPrice:           displayPrice(item.PriceCents, item.PriceUnit),
		VATRate:                item.VATRate,
		CommissionRateOverride: item.CommissionRateOverride,
		Active:                 item.Active,
		CreatedAt:              item.CreatedAt,
		UpdatedAt:              item.UpdatedAt,
	}
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
