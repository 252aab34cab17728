package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/railzwaylabs/caremarket/internal/audit/domain"
	discountdomain "github.com/railzwaylabs/caremarket/internal/discount/domain"
	"github.com/shopspring/decimal"
)

type createDiscountRequest struct {
	Code           string          `json:"code"`
	Description    *string         `json:"description"`
	IsPercentage   bool            `json:"is_percentage"`
	Value          decimal.Decimal `json:"value"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	StartsAt       *time.Time      `json:"starts_at"`
	EndsAt         *time.Time      `json:"ends_at"`
	MaxUses        *int            `json:"max_uses"`
}

type checkDiscountRequest struct {
	OrderAmount decimal.Decimal `json:"order_amount"`
}

// CreateDiscount godoc
// @Summary      Create a discount code
// @Tags         discounts
// @Accept       json
// @Produce      json
// @Param        request  body      createDiscountRequest  true  "Discount"
// @Success      201      {object}  DataResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Router       /v1/discounts [post]
func (s *Server) CreateDiscount(c *gin.Context) {
	var req createDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.discountSvc.Create(c.Request.Context(), discountdomain.CreateRequest{
		Code:           req.Code,
		Description:    req.Description,
		IsPercentage:   req.IsPercentage,
		Value:          req.Value,
		MinOrderAmount: req.MinOrderAmount,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		MaxUses:        req.MaxUses,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID
		_ = s.auditSvc.AuditLog(c.Request.Context(), auditdomain.ActorTypeAPI, nil, "discount.create", "discount", &targetID, map[string]any{
			"code":          resp.Code,
			"is_percentage": resp.IsPercentage,
			"value":         resp.Value.String(),
			"max_uses":      resp.MaxUses,
		})
	}

	respondCreated(c, resp)
}

// ListDiscounts godoc
// @Summary      List discount codes
// @Tags         discounts
// @Produce      json
// @Param        active      query     bool    false  "Filter by active flag"
// @Param        page_token  query     string  false  "Page token"
// @Param        page_size   query     int     false  "Page size"
// @Success      200         {object}  ListResponse
// @Failure      400         {object}  ErrorResponse
// @Router       /v1/discounts [get]
func (s *Server) ListDiscounts(c *gin.Context) {
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

	resp, err := s.discountSvc.List(c.Request.Context(), discountdomain.ListRequest{
		Active:    active,
		PageToken: strings.TrimSpace(c.Query("page_token")),
		PageSize:  pageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, resp.Discounts, resp.PageInfo)
}

// GetDiscount godoc
// @Summary      Get a discount code
// @Tags         discounts
// @Produce      json
// @Param        code  path      string  true  "Discount code"
// @Success      200   {object}  DataResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /v1/discounts/{code} [get]
func (s *Server) GetDiscount(c *gin.Context) {
	resp, err := s.discountSvc.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// CheckDiscount godoc
// @Summary      Check a discount code against an order amount
// @Description  Does not redeem the code. A rejected code returns valid=false with the reason and a user-facing message.
// @Tags         discounts
// @Accept       json
// @Produce      json
// @Param        code     path      string                true  "Discount code"
// @Param        request  body      checkDiscountRequest  true  "Order amount"
// @Success      200      {object}  DataResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /v1/discounts/{code}/check [post]
func (s *Server) CheckDiscount(c *gin.Context) {
	var req checkDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.discountSvc.Check(c.Request.Context(), c.Param("code"), req.OrderAmount)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// DeactivateDiscount godoc
// @Summary      Deactivate a discount code
// @Tags         discounts
// @Produce      json
// @Param        code  path      string  true  "Discount code"
// @Success      200   {object}  DataResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /v1/discounts/{code}/deactivate [post]
func (s *Server) DeactivateDiscount(c *gin.Context) {
	resp, err := s.discountSvc.Deactivate(c.Request.Context(), c.Param("code"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := resp.ID
		_ = s.auditSvc.AuditLog(c.Request.Context(), auditdomain.ActorTypeAPI, nil, "discount.deactivate", "discount", &targetID, map[string]any{
			"code":       resp.Code,
			"uses_count": resp.UsesCount,
		})
	}

	respondData(c, resp)
}
