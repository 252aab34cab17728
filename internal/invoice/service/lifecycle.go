package service

import (
	"context"
	"fmt"
	"time"

	"github.com/railzwaylabs/caremarket/internal/invoice/domain"
	"github.com/railzwaylabs/caremarket/internal/money"
	"github.com/railzwaylabs/caremarket/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var allowedTransitions = map[domain.InvoiceStatus][]domain.InvoiceStatus{
	domain.InvoiceStatusDraft:   {domain.InvoiceStatusSent, domain.InvoiceStatusCancelled},
	domain.InvoiceStatusSent:    {domain.InvoiceStatusPaid, domain.InvoiceStatusOverdue, domain.InvoiceStatusCancelled},
	domain.InvoiceStatusOverdue: {domain.InvoiceStatusPaid, domain.InvoiceStatusCancelled},
}

func isTransitionAllowed(from, to domain.InvoiceStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ApplyDiscount evaluates the code against the current total and redeems
// it in the same transaction, so a failed update never consumes a use.
func (s *Service) ApplyDiscount(ctx context.Context, invoiceID, code string) (*domain.Response, error) {
	return s.mutateDraft(ctx, invoiceID, "invoice.discount.apply", func(tx *gorm.DB, inv *domain.Invoice, _ time.Time) error {
		if inv.DiscountID != nil {
			return domain.ErrDiscountAlreadyApplied
		}

		discount, _, err := s.discounts.Evaluate(ctx, tx, code, money.FromCents(inv.TotalCents))
		if err != nil {
			return err
		}
		if err := s.discounts.Redeem(ctx, tx, discount.ID); err != nil {
			return err
		}

		id := discount.ID
		value := discount.Value
		codeValue := discount.Code
		inv.DiscountID = &id
		inv.DiscountCode = &codeValue
		inv.DiscountPercent = discount.IsPercentage
		inv.DiscountValue = &value
		return nil
	})
}

func (s *Service) SetInstallments(ctx context.Context, invoiceID string, plan []domain.InstallmentInput) (*domain.Response, error) {
	if len(plan) == 0 {
		return nil, pricing.ErrEmptyInstallments
	}
	return s.mutateDraft(ctx, invoiceID, "invoice.installments.set", func(tx *gorm.DB, inv *domain.Invoice, now time.Time) error {
		pcts := make([]decimal.Decimal, 0, len(plan))
		for _, p := range plan {
			pcts = append(pcts, p.Percentage)
		}
		// amounts are placeholders until recompute splits the final total
		split, err := pricing.SplitInstallments(money.FromCents(inv.PayableCents()), pcts)
		if err != nil {
			return err
		}

		rows := make([]domain.Installment, 0, len(split))
		for i, part := range split {
			rows = append(rows, domain.Installment{
				ID:             s.genID.Generate(),
				InvoiceID:      inv.ID,
				Sequence:       part.Sequence,
				PercentageDue:  part.Percentage,
				AmountDueCents: money.ToCents(part.Amount),
				DueAt:          utcPtr(plan[i].DueAt),
				CreatedAt:      now,
			})
		}
		if err := s.repo.ReplaceInstallments(ctx, tx, inv.ID, rows); err != nil {
			return err
		}
		inv.PaymentType = domain.PaymentTypeInstallment
		return nil
	})
}

func (s *Service) Send(ctx context.Context, id string) (*domain.Response, error) {
	return s.transition(ctx, id, domain.InvoiceStatusSent, func(tx *gorm.DB, inv *domain.Invoice, now time.Time) error {
		count, err := s.lineCount(ctx, tx, inv)
		if err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrEmptyLineItems
		}
		inv.SentAt = &now
		if inv.DueAt == nil {
			due := now.AddDate(0, 0, s.dueDays)
			inv.DueAt = &due
		}
		return nil
	})
}

func (s *Service) MarkPaid(ctx context.Context, id string) (*domain.Response, error) {
	return s.transition(ctx, id, domain.InvoiceStatusPaid, func(tx *gorm.DB, inv *domain.Invoice, now time.Time) error {
		inv.PaidAt = &now
		if inv.PaymentType != domain.PaymentTypeInstallment {
			return nil
		}
		installments, err := s.repo.ListInstallments(ctx, tx, inv.ID)
		if err != nil {
			return err
		}
		for i := range installments {
			if installments[i].PaidAt == nil {
				installments[i].PaidAt = &now
			}
		}
		return s.repo.ReplaceInstallments(ctx, tx, inv.ID, installments)
	})
}

func (s *Service) Cancel(ctx context.Context, id string) (*domain.Response, error) {
	return s.transition(ctx, id, domain.InvoiceStatusCancelled, func(_ *gorm.DB, inv *domain.Invoice, now time.Time) error {
		inv.CancelledAt = &now
		return nil
	})
}

func (s *Service) MarkOverdue(ctx context.Context) (int, error) {
	now := s.clock.Now(ctx)
	candidates, err := s.repo.ListOverdueCandidates(ctx, s.db, now, overdueBatchSize)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, candidate := range candidates {
		_, err := s.transition(ctx, candidate.ID.String(), domain.InvoiceStatusOverdue, nil)
		if err != nil {
			// paid or cancelled since the candidate query
			s.log.Warn("skip overdue transition",
				zap.String("invoice_id", candidate.ID.String()),
				zap.Error(err),
			)
			continue
		}
		moved++
	}
	if moved > 0 {
		s.log.Info("invoices marked overdue", zap.Int("count", moved))
	}
	return moved, nil
}

func (s *Service) transition(ctx context.Context, id string, target domain.InvoiceStatus, fn func(tx *gorm.DB, inv *domain.Invoice, now time.Time) error) (*domain.Response, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var resp *domain.Response
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.repo.FindByIDForUpdate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}
		if !isTransitionAllowed(inv.Status, target) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, inv.Status, target)
		}

		from := inv.Status
		now := s.clock.Now(ctx)
		if fn != nil {
			if err := fn(tx, inv, now); err != nil {
				return err
			}
		}
		inv.Status = target
		inv.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, inv); err != nil {
			return err
		}
		if err := s.auditTx(ctx, tx, "invoice."+string(target), inv, map[string]any{"from": string(from)}); err != nil {
			return err
		}

		loaded, err := s.load(ctx, tx, inv)
		if err != nil {
			return err
		}
		resp = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) lineCount(ctx context.Context, tx *gorm.DB, inv *domain.Invoice) (int, error) {
	items, err := s.repo.ListLineItems(ctx, tx, inv.ID)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
