package server

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/railzwaylabs/caremarket/internal/pricing"
	"github.com/shopspring/decimal"
)

type earningsQuoteRequest struct {
	SellingPrice   decimal.Decimal  `json:"selling_price"`
	VATRate        *decimal.Decimal `json:"vat_rate"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
}

type invoiceTotalsLine struct {
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	VATRate     *decimal.Decimal `json:"vat_rate"`
}

type invoiceTotalsQuoteRequest struct {
	LineItems []invoiceTotalsLine `json:"line_items"`
}

type quotedLine struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	LineTotal   decimal.Decimal `json:"line_total"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
}

func (l quotedLine) MarshalJSON() ([]byte, error) {
	type alias quotedLine
	return json.Marshal(struct {
		alias
		UnitPrice string `json:"unit_price"`
		LineTotal string `json:"line_total"`
		VATAmount string `json:"vat_amount"`
	}{
		alias:     alias(l),
		UnitPrice: money.Fixed(l.UnitPrice),
		LineTotal: money.Fixed(l.LineTotal),
		VATAmount: money.Fixed(l.VATAmount),
	})
}

type invoiceTotalsQuoteResponse struct {
	Totals pricing.Totals `json:"totals"`
	Lines  []quotedLine   `json:"lines"`
}

type estimateQuoteRequest struct {
	Price      decimal.Decimal  `json:"price"`
	PriceUnit  string           `json:"price_unit"`
	StartAt    time.Time        `json:"start_at"`
	EndAt      *time.Time       `json:"end_at"`
	Quantity   *decimal.Decimal `json:"quantity"`
	DistanceKm *decimal.Decimal `json:"distance_km"`
}

type installmentsQuoteRequest struct {
	Total       decimal.Decimal   `json:"total"`
	Percentages []decimal.Decimal `json:"percentages"`
}

type payoutLineInput struct {
	Amount               decimal.Decimal `json:"amount"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
}

type payoutLineQuoteRequest struct {
	Lines []payoutLineInput `json:"lines"`
}

type payoutLineQuoteResponse struct {
	Lines []pricing.PayoutLine `json:"lines"`
	Total decimal.Decimal      `json:"total"`
}

func (r payoutLineQuoteResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Lines []pricing.PayoutLine `json:"lines"`
		Total string               `json:"total"`
	}{r.Lines, money.Fixed(r.Total)})
}

func (s *Server) defaultVATRate() decimal.Decimal {
	return decimal.NewFromFloat(s.cfg.Billing.VATRate)
}

func (s *Server) defaultCommissionRate() decimal.Decimal {
	return decimal.NewFromFloat(s.cfg.Billing.PlatformCommissionRate)
}

// QuoteEarnings godoc
// @Summary      Split a VAT-inclusive selling price
// @Description  Returns VAT, platform commission and provider earning for a selling price. Rates default to the configured billing rates.
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        request  body      earningsQuoteRequest  true  "Selling price"
// @Success      200      {object}  DataResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /v1/quotes/earnings [post]
func (s *Server) QuoteEarnings(c *gin.Context) {
	var req earningsQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	in := pricing.EarningsInput{
		SellingPrice:   req.SellingPrice,
		VATRate:        s.defaultVATRate(),
		CommissionRate: s.defaultCommissionRate(),
	}
	if req.VATRate != nil {
		in.VATRate = *req.VATRate
	}
	if req.CommissionRate != nil {
		in.CommissionRate = *req.CommissionRate
	}

	breakdown, err := pricing.Earnings(in)
	s.metrics.ObserveCalculation("earnings", err)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, breakdown)
}

// QuoteInvoiceTotals godoc
// @Summary      Aggregate invoice lines without persisting them
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        request  body      invoiceTotalsQuoteRequest  true  "Line items"
// @Success      200      {object}  DataResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /v1/quotes/invoice_totals [post]
func (s *Server) QuoteInvoiceTotals(c *gin.Context) {
	var req invoiceTotalsQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.LineItems) == 0 {
		AbortWithError(c, newValidationError("line_items", "empty_line_items", "At least one line item is required."))
		return
	}

	items := make([]pricing.LineItem, 0, len(req.LineItems))
	for _, l := range req.LineItems {
		vat := s.defaultVATRate()
		if l.VATRate != nil {
			vat = *l.VATRate
		}
		items = append(items, pricing.LineItem{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			VATRate:     vat,
		})
	}

	totals, lines, err := pricing.AggregateLineItems(items)
	s.metrics.ObserveCalculation("invoice_totals", err)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := invoiceTotalsQuoteResponse{Totals: totals, Lines: make([]quotedLine, 0, len(lines))}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, quotedLine{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			VATRate:     l.VATRate,
			LineTotal:   l.LineTotal,
			VATAmount:   l.DisplayVAT(),
		})
	}
	respondData(c, resp)
}

// QuoteEstimate godoc
// @Summary      Estimate a booking price
// @Description  Partial time units are charged as whole units.
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        request  body      estimateQuoteRequest  true  "Booking"
// @Success      200      {object}  DataResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /v1/quotes/estimate [post]
func (s *Server) QuoteEstimate(c *gin.Context) {
	var req estimateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	unit, err := pricing.ParsePriceUnit(req.PriceUnit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	estimate, err := pricing.EstimatePrice(pricing.EstimateInput{
		Unit:       unit,
		Price:      req.Price,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Quantity:   req.Quantity,
		DistanceKm: req.DistanceKm,
	})
	s.metrics.ObserveCalculation("estimate", err)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, estimate)
}

// QuoteInstallments godoc
// @Summary      Split a total into installments
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        request  body      installmentsQuoteRequest  true  "Total and percentages"
// @Success      200      {object}  DataResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /v1/quotes/installments [post]
func (s *Server) QuoteInstallments(c *gin.Context) {
	var req installmentsQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	installments, err := pricing.SplitInstallments(req.Total, req.Percentages)
	s.metrics.ObserveCalculation("installments", err)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, installments)
}

// QuotePayoutLines godoc
// @Summary      Compute payout lines and their total
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        request  body      payoutLineQuoteRequest  true  "Earning lines"
// @Success      200      {object}  DataResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /v1/quotes/payout_line [post]
func (s *Server) QuotePayoutLines(c *gin.Context) {
	var req payoutLineQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Lines) == 0 {
		AbortWithError(c, newValidationError("lines", "empty_lines", "At least one line is required."))
		return
	}

	lines := make([]pricing.PayoutLine, 0, len(req.Lines))
	for _, in := range req.Lines {
		line, err := pricing.ComputePayoutLine(in.Amount, in.CommissionPercentage)
		if err != nil {
			s.metrics.ObserveCalculation("payout_line", err)
			AbortWithError(c, err)
			return
		}
		lines = append(lines, line)
	}
	s.metrics.ObserveCalculation("payout_line", nil)
	respondData(c, payoutLineQuoteResponse{Lines: lines, Total: pricing.PayoutTotal(lines)})
}
