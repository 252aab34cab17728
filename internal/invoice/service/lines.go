package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/caremarket/internal/invoice/domain"
	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/railzwaylabs/caremarket/internal/pricing"
	"gorm.io/gorm"
)

func (s *Service) AddLineItem(ctx context.Context, invoiceID string, input domain.LineItemInput) (*domain.Response, error) {
	return s.mutateDraft(ctx, invoiceID, "invoice.line_item.add", func(tx *gorm.DB, inv *domain.Invoice, now time.Time) error {
		items, err := s.repo.ListLineItems(ctx, tx, inv.ID)
		if err != nil {
			return err
		}
		position := 1
		for _, item := range items {
			if item.Position >= position {
				position = item.Position + 1
			}
		}
		line, err := s.buildLineItem(inv.ID, position, input, now)
		if err != nil {
			return err
		}
		return s.repo.InsertLineItems(ctx, tx, []domain.LineItem{line})
	})
}

func (s *Service) UpdateLineItem(ctx context.Context, req domain.UpdateLineItemRequest) (*domain.Response, error) {
	itemID, err := parseID(req.ItemID)
	if err != nil {
		return nil, err
	}
	return s.mutateDraft(ctx, req.InvoiceID, "invoice.line_item.update", func(tx *gorm.DB, inv *domain.Invoice, now time.Time) error {
		items, err := s.repo.ListLineItems(ctx, tx, inv.ID)
		if err != nil {
			return err
		}
		var current *domain.LineItem
		for i := range items {
			if items[i].ID == itemID {
				current = &items[i]
				break
			}
		}
		if current == nil {
			return domain.ErrLineItemNotFound
		}

		input := domain.LineItemInput{
			Description: current.Description,
			Quantity:    current.Quantity,
			UnitPrice:   money.FromCents(current.UnitPriceCents),
			VATRate:     &current.VATRate,
		}
		if req.Description != nil {
			input.Description = *req.Description
		}
		if req.Quantity != nil {
			input.Quantity = *req.Quantity
		}
		if req.UnitPrice != nil {
			input.UnitPrice = *req.UnitPrice
		}
		if req.VATRate != nil {
			input.VATRate = req.VATRate
		}

		updated, err := s.buildLineItem(inv.ID, current.Position, input, now)
		if err != nil {
			return err
		}
		updated.ID = current.ID
		updated.CreatedAt = current.CreatedAt
		return s.repo.UpdateLineItem(ctx, tx, &updated)
	})
}

func (s *Service) RemoveLineItem(ctx context.Context, invoiceID, itemID string) (*domain.Response, error) {
	lineID, err := parseID(itemID)
	if err != nil {
		return nil, err
	}
	return s.mutateDraft(ctx, invoiceID, "invoice.line_item.remove", func(tx *gorm.DB, inv *domain.Invoice, _ time.Time) error {
		deleted, err := s.repo.DeleteLineItem(ctx, tx, inv.ID, lineID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrLineItemNotFound
		}
		return nil
	})
}

// mutateDraft runs fn against a locked draft invoice and then recomputes
// every derived amount from the full line sequence in the same transaction.
func (s *Service) mutateDraft(ctx context.Context, invoiceID string, action string, fn func(tx *gorm.DB, inv *domain.Invoice, now time.Time) error) (*domain.Response, error) {
	id, err := parseID(invoiceID)
	if err != nil {
		return nil, err
	}

	var resp *domain.Response
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}
		if inv.Status != domain.InvoiceStatusDraft {
			return domain.ErrInvoiceNotDraft
		}

		now := s.clock.Now(ctx)
		if err := fn(tx, inv, now); err != nil {
			return err
		}

		items, installments, err := s.recompute(ctx, tx, inv)
		if err != nil {
			return err
		}
		inv.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, inv); err != nil {
			return err
		}
		if err := s.auditTx(ctx, tx, action, inv, nil); err != nil {
			return err
		}

		out := toResponse(inv, items, installments)
		resp = &out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) buildLineItem(invoiceID snowflake.ID, position int, input domain.LineItemInput, now time.Time) (domain.LineItem, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return domain.LineItem{}, domain.ErrInvalidDescription
	}
	if !input.Quantity.IsPositive() || !money.FitsScale(input.Quantity, domain.QuantityScale) {
		return domain.LineItem{}, domain.ErrInvalidQuantity
	}
	if input.UnitPrice.IsNegative() || !input.UnitPrice.Equal(money.Round(input.UnitPrice)) {
		return domain.LineItem{}, domain.ErrInvalidUnitPrice
	}
	vatRate := s.defaultVATRate
	if input.VATRate != nil {
		vatRate = *input.VATRate
	}

	priced, err := pricing.PriceLine(pricing.LineItem{
		Description: description,
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
		VATRate:     vatRate,
	})
	if err != nil {
		return domain.LineItem{}, err
	}

	return domain.LineItem{
		ID:             s.genID.Generate(),
		InvoiceID:      invoiceID,
		Position:       position,
		Description:    description,
		Quantity:       input.Quantity,
		UnitPriceCents: money.ToCents(input.UnitPrice),
		VATRate:        vatRate,
		LineTotalCents: money.ToCents(priced.LineTotal),
		VATCents:       money.ToCents(priced.DisplayVAT()),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
