package service

import (
	"context"
	"fmt"
	"strings"

	"duakasir/backend/internal/domain"
	"duakasir/backend/internal/store"
)

func (s *Service) SupplementDebt(ctx context.Context) (*domain.SupplementDebt, error) {
	return s.repo.GetSupplementDebt(ctx)
}

// ApplyDebtTransaction moves the supplier balance. Debts add; payments
// subtract, clamped at zero. Every transaction lands on the append-only
// trail regardless of clamping.
func (s *Service) ApplyDebtTransaction(ctx context.Context, req domain.DebtTransactionRequest) (*domain.SupplementDebt, error) {
	if !req.Amount.IsPositive() {
		return nil, store.ErrInvalid
	}
	if req.Type != domain.DebtTransactionDebt && req.Type != domain.DebtTransactionPayment {
		return nil, store.ErrInvalid
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system"}
	}
	balance, err := s.repo.ApplySupplementDebtTransaction(ctx, domain.SupplementDebtTransaction{
		Type:      req.Type,
		Amount:    req.Amount,
		Note:      strings.TrimSpace(req.Note),
		CreatedBy: actor.Username,
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, domain.SectionSupplement, "supplier_debt_"+string(req.Type), "supplement_debt", fmt.Sprintf(
		"amount=%s,balance=%s", req.Amount.StringFixed(2), balance.Amount.StringFixed(2)))
	return balance, nil
}

func (s *Service) ListDebtTransactions(ctx context.Context, limit int) ([]domain.SupplementDebtTransaction, error) {
	return s.repo.ListSupplementDebtTransactions(ctx, limit)
}
