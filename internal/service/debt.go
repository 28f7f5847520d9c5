package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"duakasir/backend/internal/domain"
	"duakasir/backend/internal/store"
)

func (s *Service) UnpaidPurchases(ctx context.Context, section domain.Section) ([]domain.CustomerPurchase, error) {
	if section != "" && !section.Valid() {
		return nil, store.ErrInvalid
	}
	return s.repo.ListPurchases(ctx, store.PurchaseFilter{Section: section, UnpaidOnly: true})
}

// CustomerDebt sums a customer's outstanding purchases. Cost and profit are
// derived from current item cost prices and are informational only.
func (s *Service) CustomerDebt(ctx context.Context, customerID string) (*domain.CustomerDebt, error) {
	if customerID == "" {
		return nil, store.ErrInvalid
	}
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	purchases, err := s.repo.ListPurchases(ctx, store.PurchaseFilter{CustomerID: customerID, UnpaidOnly: true})
	if err != nil {
		return nil, err
	}

	debt := domain.CustomerDebt{
		CustomerID: customerID,
		Total:      decimal.Zero,
		Cost:       decimal.Zero,
		Purchases:  purchases,
	}
	for _, purchase := range purchases {
		debt.Total = debt.Total.Add(purchase.TotalAmount)
		for _, line := range purchase.Lines {
			item, err := s.repo.GetItem(ctx, line.ItemID)
			if err != nil {
				// Deleted items drop out of the cost figure.
				continue
			}
			debt.Cost = debt.Cost.Add(item.CostPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
	}
	debt.Profit = debt.Total.Sub(debt.Cost)
	return &debt, nil
}

// PayDebt allocates a payment across the customer's unpaid purchases, oldest
// first. Fully covered purchases are marked paid; the last purchase touched
// may be partially reduced. The payment cannot exceed the outstanding total,
// and the full amount lands in the active shift's drawer.
func (s *Service) PayDebt(ctx context.Context, req domain.PayDebtRequest) (*domain.PayDebtResult, error) {
	if req.CustomerID == "" || !req.Amount.IsPositive() {
		return nil, store.ErrInvalid
	}
	customer, err := s.repo.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	shift, err := s.GetActiveShift(ctx, customer.Section)
	if err != nil {
		return nil, err
	}

	purchases, err := s.repo.ListPurchases(ctx, store.PurchaseFilter{CustomerID: req.CustomerID, UnpaidOnly: true})
	if err != nil {
		return nil, err
	}
	outstanding := decimal.Zero
	for _, purchase := range purchases {
		outstanding = outstanding.Add(purchase.TotalAmount)
	}
	if req.Amount.GreaterThan(outstanding) {
		return nil, fmt.Errorf("payment exceeds outstanding debt %s: %w", outstanding.StringFixed(2), store.ErrInvalid)
	}

	result := domain.PayDebtResult{
		CustomerID: req.CustomerID,
		AmountPaid: req.Amount,
		ShiftID:    shift.ID,
	}
	remaining := req.Amount
	for _, purchase := range purchases {
		if !remaining.IsPositive() {
			break
		}
		if remaining.GreaterThanOrEqual(purchase.TotalAmount) {
			remaining = remaining.Sub(purchase.TotalAmount)
			purchase.IsPaid = true
			if _, err := s.repo.SavePurchase(ctx, purchase); err != nil {
				return nil, err
			}
			result.SettledIDs = append(result.SettledIDs, purchase.ID)
			continue
		}
		purchase.TotalAmount = purchase.TotalAmount.Sub(remaining)
		remaining = decimal.Zero
		if _, err := s.repo.SavePurchase(ctx, purchase); err != nil {
			return nil, err
		}
		result.ReducedID = purchase.ID
	}
	result.RemainingDebt = outstanding.Sub(req.Amount)

	if _, err := s.repo.ApplyShiftDelta(ctx, shift.ID, store.ShiftDelta{Drawer: req.Amount}); err != nil {
		return nil, err
	}

	s.logAudit(ctx, customer.Section, "debt_pay", "customer", fmt.Sprintf(
		"customer=%s,amount=%s,settled=%d", customer.ID, req.Amount.StringFixed(2), len(result.SettledIDs)))
	return &result, nil
}
