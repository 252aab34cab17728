package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/railzwaylabs/caremarket/internal/audit/domain"
	catalogdomain "github.com/railzwaylabs/caremarket/internal/catalog/domain"
	"github.com/shopspring/decimal"
)

type createCategoryRequest struct {
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
	VATRate        *decimal.Decimal `json:"vat_rate"`
	Active         *bool            `json:"active"`
}

type updateCategoryRequest struct {
	Name                *string          `json:"name"`
	CommissionRate      *decimal.Decimal `json:"commission_rate"`
	ClearCommissionRate bool             `json:"clear_commission_rate"`
	VATRate             *decimal.Decimal `json:"vat_rate"`
	Active              *bool            `json:"active"`
}

type createProviderServiceRequest struct {
	ProviderID             string           `json:"provider_id"`
	CategoryID             string           `json:"category_id"`
	Name                   string           `json:"name"`
	Description            *string          `json:"description"`
	Price                  decimal.Decimal  `json:"price"`
	Currency               string           `json:"currency"`
	PriceUnit              string           `json:"price_unit"`
	VATRate                *decimal.Decimal `json:"vat_rate"`
	CommissionRateOverride *decimal.Decimal `json:"commission_rate_override"`
	Active                 *bool            `json:"active"`
}

type updateProviderServiceRequest struct {
	Name                   *string          `json:"name"`
	Description            *string          `json:"description"`
	Price                  *decimal.Decimal `json:"price"`
	PriceUnit              *string          `json:"price_unit"`
	VATRate                *decimal.Decimal `json:"vat_rate"`
	CommissionRateOverride *decimal.Decimal `json:"commission_rate_override"`
	ClearOverride          bool             `json:"clear_commission_rate_override"`
	Active                 *bool            `json:"active"`
}

// CreateCategory godoc
// @Summary      Create a service category
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        request  body      createCategoryRequest  true  "Category"
// @Success      201      {object}  DataResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Router       /v1/categories [post]
func (s *Server) CreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.CreateCategory(c.Request.Context(), catalogdomain.CreateCategoryRequest{
		Code:           req.Code,
		Name:           req.Name,
		CommissionRate: req.CommissionRate,
		VATRate:        req.VATRate,
		Active:         req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID
		_ = s.auditSvc.AuditLog(c.Request.Context(), auditdomain.ActorTypeAPI, nil, "category.create", "category", &targetID, map[string]any{
			"code":   resp.Code,
			"name":   resp.Name,
			"active": resp.Active,
		})
	}

	respondCreated(c, resp)
}

// ListCategories godoc
// @Summary      List service categories
// @Tags         catalog
// @Produce      json
// @Param        active      query     bool    false  "Filter by active flag"
// @Param        page_token  query     string  false  "Page token"
// @Param        page_size   query     int     false  "Page size"
// @Success      200         {object}  ListResponse
// @Failure      400         {object}  ErrorResponse
// @Router       /v1/categories [get]
func (s *Server) ListCategories(c *gin.Context) {
	active, err := parseOptionalBool(c.Query("active"))
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "active must be true or false."))
		return
	}
	pageSize, err := parsePageSize(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.catalogSvc.ListCategories(c.Request.Context(), catalogdomain.CategoryListRequest{
		Active:    active,
		PageToken: strings.TrimSpace(c.Query("page_token")),
		PageSize:  pageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, resp.Categories, resp.PageInfo)
}

// GetCategory godoc
// @Summary      Get a service category
// @Tags         catalog
// @Produce      json
// @Param        id   path      string  true  "Category ID"
// @Success      200  {object}  DataResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /v1/categories/{id} [get]
func (s *Server) GetCategory(c *gin.Context) {
	resp, err := s.catalogSvc.GetCategory(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// UpdateCategory godoc
// @Summary      Update a service category
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Category ID"
// @Param        request  body      updateCategoryRequest  true  "Changes"
// @Success      200      {object}  DataResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /v1/categories/{id} [patch]
func (s *Server) UpdateCategory(c *gin.Context) {
	var req updateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.UpdateCategory(c.Request.Context(), catalogdomain.UpdateCategoryRequest{
		ID:                  strings.TrimSpace(c.Param("id")),
		Name:                req.Name,
		CommissionRate:      req.CommissionRate,
		ClearCommissionRate: req.ClearCommissionRate,
		VATRate:             req.VATRate,
		Active:              req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID
		_ = s.auditSvc.AuditLog(c.Request.Context(), auditdomain.ActorTypeAPI, nil, "category.update", "category", &targetID, map[string]any{
			"code":            resp.Code,
			"commission_rate": resp.CommissionRate,
			"active":          resp.Active,
		})
	}

	respondData(c, resp)
}

// CreateProviderService godoc
// @Summary      Publish a provider service
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        request  body      createProviderServiceRequest  true  "Provider service"
// @Success      201      {object}  DataResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /v1/provider_services [post]
func (s *Server) CreateProviderService(c *gin.Context) {
	var req createProviderServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.CreateProviderService(c.Request.Context(), catalogdomain.CreateProviderServiceRequest{
		ProviderID:             req.ProviderID,
		CategoryID:             req.CategoryID,
		Name:                   req.Name,
		Description:            req.Description,
		Price:                  req.Price,
		Currency:               req.Currency,
		PriceUnit:              req.PriceUnit,
		VATRate:                req.VATRate,
		CommissionRateOverride: req.CommissionRateOverride,
		Active:                 req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID
		_ = s.auditSvc.AuditLog(c.Request.Context(), auditdomain.ActorTypeAPI, nil, "provider_service.create", "provider_service", &targetID, map[string]any{
			"provider_id":  resp.ProviderID,
			"category_id":  resp.CategoryID,
			"price_amount": resp.PriceAmount,
			"price_unit":   resp.PriceUnit,
		})
	}

	respondCreated(c, resp)
}

// ListProviderServices godoc
// @Summary      List provider services
// @Tags         catalog
// @Produce      json
// @Param        provider_id  query     string  false  "Provider ID"
// @Param        category_id  query     string  false  "Category ID"
// @Param        active       query     bool    false  "Filter by active flag"
// @Param        page_token   query     string  false  "Page token"
// @Param        page_size    query     int     false  "Page size"
// @Success      200          {object}  ListResponse
// @Failure      400          {object}  ErrorResponse
// @Router       /v1/provider_services [get]
func (s *Server) ListProviderServices(c *gin.Context) {
	active, err := parseOptionalBool(c.Query("active"))
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "active must be true or false."))
		return
	}
	pageSize, err := parsePageSize(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.catalogSvc.ListProviderServices(c.Request.Context(), catalogdomain.ProviderServiceListRequest{
		ProviderID: strings.TrimSpace(c.Query("provider_id")),
		CategoryID: strings.TrimSpace(c.Query("category_id")),
		Active:     active,
		PageToken:  strings.TrimSpace(c.Query("page_token")),
		PageSize:   pageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, resp.Services, resp.PageInfo)
}

// GetProviderService godoc
// @Summary      Get a provider service
// @Tags         catalog
// @Produce      json
// @Param        id   path      string  true  "Provider service ID"
// @Success      200  {object}  DataResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /v1/provider_services/{id} [get]
func (s *Server) GetProviderService(c *gin.Context) {
	resp, err := s.catalogSvc.GetProviderService(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// UpdateProviderService godoc
// @Summary      Update a provider service
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Provider service ID"
// @Param        request  body      updateProviderServiceRequest  true  "Changes"
// @Success      200      {object}  DataResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /v1/provider_services/{id} [patch]
func (s *Server) UpdateProviderService(c *gin.Context) {
	var req updateProviderServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.UpdateProviderService(c.Request.Context(), catalogdomain.UpdateProviderServiceRequest{
		ID:                     strings.TrimSpace(c.Param("id")),
		Name:                   req.Name,
		Description:            req.Description,
		Price:                  req.Price,
		PriceUnit:              req.PriceUnit,
		VATRate:                req.VATRate,
		CommissionRateOverride: req.CommissionRateOverride,
		ClearOverride:          req.ClearOverride,
		Active:                 req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID
		_ = s.auditSvc.AuditLog(c.Request.Context(), auditdomain.ActorTypeAPI, nil, "provider_service.update", "provider_service", &targetID, map[string]any{
			"price_amount":             resp.PriceAmount,
			"price_unit":               resp.PriceUnit,
			"commission_rate_override": resp.CommissionRateOverride,
			"active":                   resp.Active,
		})
	}

	respondData(c, resp)
}

// QuoteProviderService godoc
// @Summary      Quote a booking of a provider service
// @Description  Estimates the booking price and splits it into VAT, commission and provider earning.
// @Tags         catalog
// @Produce      json
// @Param        id           path      string  true   "Provider service ID"
// @Param        start_at     query     string  false  "Booking start (RFC3339)"
// @Param        end_at       query     string  false  "Booking end (RFC3339)"
// @Param        quantity     query     string  false  "Item count for per_item services"
// @Param        distance_km  query     string  false  "Distance for per_km services"
// @Success      200          {object}  DataResponse
// @Failure      400          {object}  ErrorResponse
// @Failure      404          {object}  ErrorResponse
// @Router       /v1/provider_services/{id}/quote [get]
func (s *Server) QuoteProviderService(c *gin.Context) {
	req := catalogdomain.QuoteRequest{ProviderServiceID: strings.TrimSpace(c.Param("id"))}

	if raw := strings.TrimSpace(c.Query("start_at")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("start_at", "invalid_start_at", "start_at must be an RFC3339 timestamp."))
			return
		}
		req.StartAt = t
	}
	if raw := strings.TrimSpace(c.Query("end_at")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("end_at", "invalid_end_at", "end_at must be an RFC3339 timestamp."))
			return
		}
		req.EndAt = &t
	}

	var err error
	if req.Quantity, err = parseOptionalDecimal(c.Query("quantity")); err != nil {
		AbortWithError(c, newValidationError("quantity", "invalid_quantity", "quantity must be a decimal number."))
		return
	}
	if req.DistanceKm, err = parseOptionalDecimal(c.Query("distance_km")); err != nil {
		AbortWithError(c, newValidationError("distance_km", "invalid_distance_km", "distance_km must be a decimal number."))
		return
	}

	resp, err := s.catalogSvc.Quote(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

func parseOptionalBool(raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseOptionalDecimal(raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parsePageSize(raw string) (int32, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v < 0 {
		return 0, newValidationError("page_size", "invalid_page_size", "page_size must be a non-negative integer.")
	}
	return int32(v), nil
}
