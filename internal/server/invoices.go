package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/railzwaylabs/caremarket/internal/invoice/domain"
	"github.com/shopspring/decimal"
)

type lineItemRequest struct {
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	VATRate     *decimal.Decimal `json:"vat_rate"`
}

func (r lineItemRequest) toInput() invoicedomain.LineItemInput {
	return invoicedomain.LineItemInput{
		Description: r.Description,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		VATRate:     r.VATRate,
	}
}

type createInvoiceRequest struct {
	ClientID          string            `json:"client_id"`
	ProviderID        string            `json:"provider_id"`
	ProviderServiceID string            `json:"provider_service_id"`
	Currency          string            `json:"currency"`
	CommissionRate    *decimal.Decimal  `json:"commission_rate"`
	DueAt             *time.Time        `json:"due_at"`
	LineItems         []lineItemRequest `json:"line_items"`
	Metadata          map[string]any    `json:"metadata"`
}

type updateLineItemRequest struct {
	Description *string          `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	VATRate     *decimal.Decimal `json:"vat_rate"`
}

type applyDiscountRequest struct {
	Code string `json:"code"`
}

type installmentRequest struct {
	Percentage decimal.Decimal `json:"percentage"`
	DueAt      *time.Time      `json:"due_at"`
}

type setInstallmentsRequest struct {
	Installments []installmentRequest `json:"installments"`
}

// CreateInvoice godoc
// @Summary      Create a draft invoice
// @Description  Totals are computed from the line items. A repeated Idempotency-Key returns the first invoice.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string                false  "Idempotency key"
// @Param        request          body      createInvoiceRequest  true   "Invoice"
// @Success      201              {object}  DataResponse
// @Failure      400              {object}  ErrorResponse
// @Failure      409              {object}  ErrorResponse
// @Router       /v1/invoices [post]
func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items := make([]invoicedomain.LineItemInput, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		items = append(items, item.toInput())
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateRequest{
		ClientID:          req.ClientID,
		ProviderID:        req.ProviderID,
		ProviderServiceID: req.ProviderServiceID,
		Currency:          req.Currency,
		CommissionRate:    req.CommissionRate,
		DueAt:             req.DueAt,
		LineItems:         items,
		Metadata:          req.Metadata,
		IdempotencyKey:    idempotencyKeyFromHeader(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

// ListInvoices godoc
// @Summary      List invoices
// @Tags         invoices
// @Produce      json
// @Param        status       query     string  false  "Status filter"
// @Param        client_id    query     string  false  "Client ID"
// @Param        provider_id  query     string  false  "Provider ID"
// @Param        page_token   query     string  false  "Page token"
// @Param        page_size    query     int     false  "Page size"
// @Success      200          {object}  ListResponse
// @Failure      400          {object}  ErrorResponse
// @Router       /v1/invoices [get]
func (s *Server) ListInvoices(c *gin.Context) {
	pageSize, err := parsePageSize(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListRequest{
		Status:     strings.TrimSpace(c.Query("status")),
		ClientID:   strings.TrimSpace(c.Query("client_id")),
		ProviderID: strings.TrimSpace(c.Query("provider_id")),
		PageToken:  strings.TrimSpace(c.Query("page_token")),
		PageSize:   pageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, resp.Invoices, resp.PageInfo)
}

// GetInvoice godoc
// @Summary      Get an invoice
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  DataResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /v1/invoices/{id} [get]
func (s *Server) GetInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// AddInvoiceLineItem godoc
// @Summary      Add a line to a draft invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path      string           true  "Invoice ID"
// @Param        request  body      lineItemRequest  true  "Line item"
// @Success      200      {object}  DataResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Router       /v1/invoices/{id}/line_items [post]
func (s *Server) AddInvoiceLineItem(c *gin.Context) {
	var req lineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.AddLineItem(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.toInput())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// UpdateInvoiceLineItem godoc
// @Summary      Change a line of a draft invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Invoice ID"
// @Param        item_id  path      string                 true  "Line item ID"
// @Param        request  body      updateLineItemRequest  true  "Changes"
// @Success      200      {object}  DataResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Router       /v1/invoices/{id}/line_items/{item_id} [patch]
func (s *Server) UpdateInvoiceLineItem(c *gin.Context) {
	var req updateLineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.UpdateLineItem(c.Request.Context(), invoicedomain.UpdateLineItemRequest{
		InvoiceID:   strings.TrimSpace(c.Param("id")),
		ItemID:      strings.TrimSpace(c.Param("item_id")),
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		VATRate:     req.VATRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// RemoveInvoiceLineItem godoc
// @Summary      Remove a line from a draft invoice
// @Tags         invoices
// @Produce      json
// @Param        id       path      string  true  "Invoice ID"
// @Param        item_id  path      string  true  "Line item ID"
// @Success      200      {object}  DataResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Router       /v1/invoices/{id}/line_items/{item_id} [delete]
func (s *Server) RemoveInvoiceLineItem(c *gin.Context) {
	resp, err := s.invoiceSvc.RemoveLineItem(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(c.Param("item_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// ApplyInvoiceDiscount godoc
// @Summary      Apply a discount code to a draft invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Invoice ID"
// @Param        request  body      applyDiscountRequest  true  "Discount code"
// @Success      200      {object}  DataResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Failure      422      {object}  ErrorResponse
// @Router       /v1/invoices/{id}/discount [post]
func (s *Server) ApplyInvoiceDiscount(c *gin.Context) {
	var req applyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		AbortWithError(c, newValidationError("code", "invalid_code", "code is required."))
		return
	}

	resp, err := s.invoiceSvc.ApplyDiscount(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Code)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// SetInvoiceInstallments godoc
// @Summary      Split a draft invoice into installments
// @Description  Percentages must add up to 100. Amounts are derived from the amount due.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Invoice ID"
// @Param        request  body      setInstallmentsRequest  true  "Installment plan"
// @Success      200      {object}  DataResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Router       /v1/invoices/{id}/installments [post]
func (s *Server) SetInvoiceInstallments(c *gin.Context) {
	var req setInstallmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	plan := make([]invoicedomain.InstallmentInput, 0, len(req.Installments))
	for _, in := range req.Installments {
		plan = append(plan, invoicedomain.InstallmentInput{Percentage: in.Percentage, DueAt: in.DueAt})
	}

	resp, err := s.invoiceSvc.SetInstallments(c.Request.Context(), strings.TrimSpace(c.Param("id")), plan)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// SendInvoice godoc
// @Summary      Send a draft invoice
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  DataResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /v1/invoices/{id}/send [post]
func (s *Server) SendInvoice(c *gin.Context) {
	s.invoiceTransition(c, s.invoiceSvc.Send)
}

// PayInvoice godoc
// @Summary      Mark an invoice paid
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  DataResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /v1/invoices/{id}/pay [post]
func (s *Server) PayInvoice(c *gin.Context) {
	s.invoiceTransition(c, s.invoiceSvc.MarkPaid)
}

// CancelInvoice godoc
// @Summary      Cancel an invoice
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  DataResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /v1/invoices/{id}/cancel [post]
func (s *Server) CancelInvoice(c *gin.Context) {
	s.invoiceTransition(c, s.invoiceSvc.Cancel)
}

func (s *Server) invoiceTransition(c *gin.Context, fn func(ctx context.Context, id string) (*invoicedomain.Response, error)) {
	resp, err := fn(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// VerifyInvoice godoc
// @Summary      Recompute and explain invoice totals
// @Description  Compares stored totals with a fresh aggregation of the lines and shows the exact and displayed VAT per line.
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  DataResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /v1/invoices/{id}/verify [get]
func (s *Server) VerifyInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.Verify(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, resp)
}

// InvoicePDF godoc
// @Summary      Download an invoice as PDF
// @Tags         invoices
// @Produce      application/pdf
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /v1/invoices/{id}/pdf [get]
func (s *Server) InvoicePDF(c *gin.Context) {
	data, filename, err := s.invoiceSvc.RenderPDF(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, "application/pdf", data)
}
