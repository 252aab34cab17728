package server

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	payoutdomain "github.com/railzwaylabs/caremarket/internal/payout/domain"
)

type generatePayoutsRequest struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	ProviderID  string    `json:"provider_id"`
}

type failPayoutRequest struct {
	Reason string `json:"reason"`
}

// GeneratePayouts godoc
// @Summary      Generate provider payouts for a period
// @Description  Creates one pending payout per provider and currency from invoices paid in [period_start, period_end). Invoices already covered by a payout are skipped.
// @Tags         payouts
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string                  false  "Idempotency key"
// @Param        request          body      generatePayoutsRequest  true   "Period"
// @Success      201              {object}  DataResponse
// @Failure      400              {object}  ErrorResponse
// @Router       /v1/payouts/generate [post]
func (s *Server) GeneratePayouts(c *gin.Context) {
	var req generatePayoutsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.payoutSvc.Generate(c.Request.Context(), payoutdomain.GenerateRequest{
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		ProviderID:  req.ProviderID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// ListPayouts godoc
// @Summary      List payouts
// @Tags         payouts
// @Produce      json
// @Param        provider_id  query     string  false  "Provider ID"
// @Param        status       query     string  false  "Status filter"
// @Param        page_token   query     string  false  "Page token"
// @Param        page_size    query     int     false  "Page size"
// @Success      200          {object}  ListResponse
// @Failure      400          {object}  ErrorResponse
// @Router       /v1/payouts [get]
func (s *Server) ListPayouts(c *gin.Context) {
	pageSize, err := parsePageSize(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.payoutSvc.List(c.Request.Context(), payoutdomain.ListRequest{
		ProviderID: strings.TrimSpace(c.Query("provider_id")),
		Status:     strings.TrimSpace(c.Query("status")),
		PageToken:  strings.TrimSpace(c.Query("page_token")),
		PageSize:   pageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, resp.Payouts, resp.PageInfo)
}

// GetPayout godoc
// @Summary      Get a payout with its lines
// @Tags         payouts
// @Produce      json
// @Param        id   path      string  true  "Payout ID"
// @Success      200  {object}  DataResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /v1/payouts/{id} [get]
func (s *Server) GetPayout(c *gin.Context) {
	resp, err := s.payoutSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// ProcessPayout godoc
// @Summary      Start processing a payout
// @Tags         payouts
// @Produce      json
// @Param        id   path      string  true  "Payout ID"
// @Success      200  {object}  DataResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /v1/payouts/{id}/process [post]
func (s *Server) ProcessPayout(c *gin.Context) {
	s.payoutTransition(c, s.payoutSvc.Process)
}

// MarkPayoutPaid godoc
// @Summary      Mark a payout paid
// @Tags         payouts
// @Produce      json
// @Param        id   path      string  true  "Payout ID"
// @Success      200  {object}  DataResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /v1/payouts/{id}/mark_paid [post]
func (s *Server) MarkPayoutPaid(c *gin.Context) {
	s.payoutTransition(c, s.payoutSvc.MarkPaid)
}

// FailPayout godoc
// @Summary      Mark a payout failed
// @Tags         payouts
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "Payout ID"
// @Param        request  body      failPayoutRequest  true  "Failure reason"
// @Success      200      {object}  DataResponse
// @Failure      409      {object}  ErrorResponse
// @Router       /v1/payouts/{id}/fail [post]
func (s *Server) FailPayout(c *gin.Context) {
	var req failPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	resp, err := s.payoutSvc.Fail(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// CancelPayout godoc
// @Summary      Cancel a payout
// @Description  The invoices of a cancelled payout become eligible for the next generation run.
// @Tags         payouts
// @Produce      json
// @Param        id   path      string  true  "Payout ID"
// @Success      200  {object}  DataResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /v1/payouts/{id}/cancel [post]
func (s *Server) CancelPayout(c *gin.Context) {
	s.payoutTransition(c, s.payoutSvc.Cancel)
}

func (s *Server) payoutTransition(c *gin.Context, fn func(ctx context.Context, id string) (*payoutdomain.Response, error)) {
	resp, err := fn(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}
