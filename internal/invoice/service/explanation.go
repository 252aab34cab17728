package service

import (
	"context"
	"errors"

	"github.com/railzwaylabs/caremarket/internal/invoice/domain"
	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/railzwaylabs/caremarket/internal/pricing"
	"go.uber.org/zap"
)

// Verify re-folds the stored line items and compares the result with the
// stored invoice totals. A drift of more than one minor unit is reported as
// inconsistent rather than returned as an error.
func (s *Service) Verify(ctx context.Context, id string) (*domain.VerifyResponse, error) {
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
	items, err := s.repo.ListLineItems(ctx, s.db, inv.ID)
	if err != nil {
		return nil, err
	}

	inputs := make([]pricing.LineItem, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, item.ToPricing())
	}

	resp := &domain.VerifyResponse{
		InvoiceID:  inv.ID.String(),
		Consistent: true,
		Stored:     inv.Totals(),
	}

	computed, err := pricing.ReconcileTotals(resp.Stored, inputs)
	s.metrics.ObserveCalculation("reconcile", err)
	switch {
	case errors.Is(err, pricing.ErrRoundingOverflow):
		resp.Consistent = false
		resp.Problem = err.Error()
		s.log.Warn("invoice totals drifted",
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err),
		)
	case err != nil:
		return nil, err
	}
	resp.Computed = computed

	_, priced, err := pricing.AggregateLineItems(inputs)
	if err != nil {
		return nil, err
	}
	resp.Lines = make([]domain.LineExplanation, 0, len(priced))
	for i, line := range priced {
		resp.Lines = append(resp.Lines, domain.LineExplanation{
			LineItemID:  items[i].ID.String(),
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			VATRate:     line.VATRate,
			LineTotal:   line.LineTotal,
			VATExact:    line.LineVAT.Round(6),
			VATDisplay:  line.DisplayVAT(),
		})
	}
	return resp, nil
}

func (s *Service) RenderPDF(ctx context.Context, id string) ([]byte, string, error) {
	if s.renderer == nil {
		return nil, "", domain.ErrRenderUnavailable
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, "", err
	}
	inv, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return nil, "", err
	}
	if inv == nil {
		return nil, "", domain.ErrNotFound
	}
	items, err := s.repo.ListLineItems(ctx, s.db, inv.ID)
	if err != nil {
		return nil, "", err
	}
	installments, err := s.repo.ListInstallments(ctx, s.db, inv.ID)
	if err != nil {
		return nil, "", err
	}

	data, err := s.renderer.Render(inv, items, installments)
	if err != nil {
		return nil, "", err
	}
	s.log.Debug("invoice rendered",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("amount_due", money.Format(inv.PayableCents(), inv.Currency)),
	)
	return data, inv.InvoiceNumber + ".pdf", nil
}
