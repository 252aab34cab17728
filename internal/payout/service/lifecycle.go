package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/railzwaylabs/caremarket/internal/payout/domain"
	"gorm.io/gorm"
)

var allowedTransitions = map[domain.PayoutStatus][]domain.PayoutStatus{
	domain.PayoutStatusPending:    {domain.PayoutStatusProcessing, domain.PayoutStatusPaid, domain.PayoutStatusCancelled},
	domain.PayoutStatusProcessing: {domain.PayoutStatusPaid, domain.PayoutStatusFailed},
	domain.PayoutStatusFailed:     {domain.PayoutStatusProcessing, domain.PayoutStatusCancelled},
}

func isTransitionAllowed(from, to domain.PayoutStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *Service) Process(ctx context.Context, id string) (*domain.Response, error) {
	return s.transition(ctx, id, domain.PayoutStatusProcessing, func(p *domain.Payout, now time.Time) {
		p.ProcessedAt = &now
		p.FailureReason = nil
		p.FailedAt = nil
	})
}

// MarkPaid settles a payout directly from pending or after processing.
func (s *Service) MarkPaid(ctx context.Context, id string) (*domain.Response, error) {
	return s.transition(ctx, id, domain.PayoutStatusPaid, func(p *domain.Payout, now time.Time) {
		p.PaidAt = &now
	})
}

func (s *Service) Fail(ctx context.Context, id string, reason string) (*domain.Response, error) {
	reason = strings.TrimSpace(reason)
	return s.transition(ctx, id, domain.PayoutStatusFailed, func(p *domain.Payout, now time.Time) {
		p.FailedAt = &now
		if reason != "" {
			p.FailureReason = &reason
		}
	})
}

// Cancel releases the covered invoices; the next generation run for the
// period picks them up again.
func (s *Service) Cancel(ctx context.Context, id string) (*domain.Response, error) {
	return s.transition(ctx, id, domain.PayoutStatusCancelled, func(p *domain.Payout, now time.Time) {
		p.CancelledAt = &now
	})
}

func (s *Service) transition(ctx context.Context, id string, target domain.PayoutStatus, fn func(p *domain.Payout, now time.Time)) (*domain.Response, error) {
	payoutID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var resp *domain.Response
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payout, err := s.repo.FindByIDForUpdate(ctx, tx, payoutID)
		if err != nil {
			return err
		}
		if payout == nil {
			return domain.ErrNotFound
		}
		if !isTransitionAllowed(payout.Status, target) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, payout.Status, target)
		}

		from := payout.Status
		now := s.clock.Now(ctx)
		fn(payout, now)
		payout.Status = target
		payout.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, payout); err != nil {
			return err
		}
		if err := s.auditTx(ctx, tx, "payout."+string(target), payout, map[string]any{"from": string(from)}); err != nil {
			return err
		}

		lines, err := s.repo.ListLineItems(ctx, tx, payout.ID)
		if err != nil {
			return err
		}
		out := toResponse(payout, lines)
		resp = &out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
