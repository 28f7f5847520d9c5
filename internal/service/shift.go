package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"duakasir/backend/internal/domain"
	"duakasir/backend/internal/store"
	"duakasir/backend/internal/xid"
)

// cashEpsilon is the tolerance for drawer reconciliation. Differences below
// it count as balanced.
var cashEpsilon = decimal.NewFromFloat(0.01)

func (s *Service) StartShift(ctx context.Context, section domain.Section, operator string) (*domain.Shift, error) {
	operator = strings.TrimSpace(operator)
	if !section.Valid() || operator == "" {
		return nil, store.ErrInvalid
	}

	shift, err := s.repo.CreateShift(ctx, domain.Shift{
		Section:   section,
		Operator:  operator,
		Sales:     []domain.SaleLine{},
		StartTime: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, section, "shift_start", "shift", fmt.Sprintf("id=%s,operator=%s", shift.ID, operator))
	return shift, nil
}

func (s *Service) GetActiveShift(ctx context.Context, section domain.Section) (*domain.Shift, error) {
	if !section.Valid() {
		return nil, store.ErrInvalid
	}
	shift, err := s.repo.GetActiveShift(ctx, section)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrNoActiveShift
		}
		return nil, err
	}
	return shift, nil
}

func (s *Service) ListShifts(ctx context.Context, section domain.Section) ([]domain.Shift, error) {
	return s.repo.ListShifts(ctx, section)
}

// RecordSale applies one sale against the active shift. Stock for every line
// is decremented atomically; any shortfall rejects the whole sale. Paid sales
// add to the drawer total; unpaid sales become a customer purchase and leave
// the drawer untouched.
func (s *Service) RecordSale(ctx context.Context, req domain.RecordSaleRequest) (*domain.RecordSaleResult, error) {
	if !req.Section.Valid() || len(req.Lines) == 0 {
		return nil, store.ErrInvalid
	}
	for _, line := range req.Lines {
		if line.ItemID == "" || line.Quantity < 1 {
			return nil, store.ErrInvalid
		}
	}
	if !req.IsPaid && req.CustomerID == "" {
		return nil, fmt.Errorf("credit sale requires a customer: %w", store.ErrInvalid)
	}

	shift, err := s.GetActiveShift(ctx, req.Section)
	if err != nil {
		return nil, err
	}

	var customer *domain.Customer
	if !req.IsPaid {
		customer, err = s.repo.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer.Section != req.Section {
			return nil, store.ErrInvalid
		}
	}

	now := time.Now().UTC()
	total := decimal.Zero
	saleLines := make([]domain.SaleLine, 0, len(req.Lines))
	purchaseLines := make([]domain.PurchaseLine, 0, len(req.Lines))
	deltas := make([]store.StockDelta, 0, len(req.Lines))

	for _, line := range req.Lines {
		item, err := s.repo.GetItem(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}
		if item.Section != req.Section {
			return nil, store.ErrInvalid
		}

		lineTotal := item.SellPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(lineTotal)
		saleLines = append(saleLines, domain.SaleLine{
			ItemID:     item.ID,
			ItemName:   item.Name,
			Quantity:   line.Quantity,
			UnitPrice:  item.SellPrice,
			Paid:       req.IsPaid,
			CustomerID: req.CustomerID,
			SoldAt:     now,
		})
		purchaseLines = append(purchaseLines, domain.PurchaseLine{
			ItemID:    item.ID,
			ItemName:  item.Name,
			Quantity:  line.Quantity,
			UnitPrice: item.SellPrice,
		})
		deltas = append(deltas, store.StockDelta{ItemID: line.ItemID, Delta: -line.Quantity})
	}

	if err := s.repo.AdjustItemStock(ctx, req.Section, deltas); err != nil {
		return nil, err
	}

	drawer := decimal.Zero
	if req.IsPaid {
		drawer = total
	}
	saved, err := s.repo.ApplyShiftDelta(ctx, shift.ID, store.ShiftDelta{Drawer: drawer, Lines: saleLines})
	if err != nil {
		return nil, err
	}

	result := &domain.RecordSaleResult{Shift: saved}
	if !req.IsPaid {
		purchase, err := s.repo.SavePurchase(ctx, domain.CustomerPurchase{
			ID:           xid.New("cp"),
			CustomerID:   customer.ID,
			CustomerName: customer.Name,
			Lines:        purchaseLines,
			TotalAmount:  total,
			Section:      req.Section,
			ShiftID:      saved.ID,
			CreatedAt:    now,
		})
		if err != nil {
			return nil, err
		}
		result.Purchase = purchase
	}

	s.logAudit(ctx, req.Section, "sale_record", "shift", fmt.Sprintf(
		"shift=%s,lines=%d,total=%s,paid=%t", saved.ID, len(req.Lines), total.StringFixed(2), req.IsPaid))
	return result, nil
}

func (s *Service) RecordExpense(ctx context.Context, req domain.CashEntryRequest) (*domain.Expense, error) {
	if !req.Section.Valid() || !req.Amount.IsPositive() {
		return nil, store.ErrInvalid
	}
	shift, err := s.GetActiveShift(ctx, req.Section)
	if err != nil {
		return nil, err
	}

	actor, _ := ActorFromContext(ctx)
	expense, err := s.repo.SaveExpense(ctx, domain.Expense{
		Amount:    req.Amount,
		Reason:    strings.TrimSpace(req.Reason),
		ShiftID:   shift.ID,
		Section:   req.Section,
		CreatedBy: actor.Username,
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, req.Section, "expense_record", "expense", fmt.Sprintf(
		"id=%s,amount=%s", expense.ID, expense.Amount.StringFixed(2)))
	return expense, nil
}

func (s *Service) EditExpense(ctx context.Context, id string, amount decimal.Decimal, reason string) (*domain.Expense, error) {
	if !amount.IsPositive() {
		return nil, store.ErrInvalid
	}
	expense, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireShiftActive(ctx, expense.Section, expense.ShiftID); err != nil {
		return nil, err
	}

	expense.Amount = amount
	expense.Reason = strings.TrimSpace(reason)
	saved, err := s.repo.SaveExpense(ctx, *expense)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, expense.Section, "expense_edit", "expense", fmt.Sprintf(
		"id=%s,amount=%s", saved.ID, saved.Amount.StringFixed(2)))
	return saved, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	expense, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireShiftActive(ctx, expense.Section, expense.ShiftID); err != nil {
		return err
	}
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, expense.Section, "expense_delete", "expense", "id="+id)
	return nil
}

// RecordExternalMoney adds cash to the drawer outside of sales. The shift's
// expected total moves immediately.
func (s *Service) RecordExternalMoney(ctx context.Context, req domain.CashEntryRequest) (*domain.ExternalMoney, error) {
	if !req.Section.Valid() || !req.Amount.IsPositive() {
		return nil, store.ErrInvalid
	}
	shift, err := s.GetActiveShift(ctx, req.Section)
	if err != nil {
		return nil, err
	}

	actor, _ := ActorFromContext(ctx)
	entry, err := s.repo.SaveExternalMoney(ctx, domain.ExternalMoney{
		Amount:    req.Amount,
		Reason:    strings.TrimSpace(req.Reason),
		ShiftID:   shift.ID,
		Section:   req.Section,
		CreatedBy: actor.Username,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.ApplyShiftDelta(ctx, shift.ID, store.ShiftDelta{Drawer: req.Amount}); err != nil {
		return nil, err
	}
	s.logAudit(ctx, req.Section, "external_money_record", "external_money", fmt.Sprintf(
		"id=%s,amount=%s", entry.ID, entry.Amount.StringFixed(2)))
	return entry, nil
}

func (s *Service) EditExternalMoney(ctx context.Context, id string, amount decimal.Decimal, reason string) (*domain.ExternalMoney, error) {
	if !amount.IsPositive() {
		return nil, store.ErrInvalid
	}
	entry, err := s.repo.GetExternalMoney(ctx, id)
	if err != nil {
		return nil, err
	}
	shift, err := s.GetActiveShift(ctx, entry.Section)
	if err != nil {
		return nil, err
	}
	if shift.ID != entry.ShiftID {
		return nil, fmt.Errorf("entry belongs to a closed shift: %w", store.ErrConflict)
	}

	delta := amount.Sub(entry.Amount)
	entry.Amount = amount
	entry.Reason = strings.TrimSpace(reason)
	saved, err := s.repo.SaveExternalMoney(ctx, *entry)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.ApplyShiftDelta(ctx, shift.ID, store.ShiftDelta{Drawer: delta}); err != nil {
		return nil, err
	}
	s.logAudit(ctx, entry.Section, "external_money_edit", "external_money", fmt.Sprintf(
		"id=%s,amount=%s", saved.ID, saved.Amount.StringFixed(2)))
	return saved, nil
}

func (s *Service) DeleteExternalMoney(ctx context.Context, id string) error {
	entry, err := s.repo.GetExternalMoney(ctx, id)
	if err != nil {
		return err
	}
	shift, err := s.GetActiveShift(ctx, entry.Section)
	if err != nil {
		return err
	}
	if shift.ID != entry.ShiftID {
		return fmt.Errorf("entry belongs to a closed shift: %w", store.ErrConflict)
	}

	if err := s.repo.DeleteExternalMoney(ctx, id); err != nil {
		return err
	}
	if _, err := s.repo.ApplyShiftDelta(ctx, shift.ID, store.ShiftDelta{Drawer: entry.Amount.Neg()}); err != nil {
		return err
	}
	s.logAudit(ctx, entry.Section, "external_money_delete", "external_money", "id="+id)
	return nil
}

// ApplySupply restocks items. The cost is tracked on the active shift (if
// any) for reconciliation reporting but never deducted from the drawer.
func (s *Service) ApplySupply(ctx context.Context, req domain.SupplyRequest) (*domain.Supply, error) {
	if !req.Section.Valid() || len(req.Items) == 0 || req.TotalCost.IsNegative() {
		return nil, store.ErrInvalid
	}
	deltas := make([]store.StockDelta, 0, len(req.Items))
	for itemID, qty := range req.Items {
		if qty < 1 {
			return nil, store.ErrInvalid
		}
		deltas = append(deltas, store.StockDelta{ItemID: itemID, Delta: qty})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].ItemID < deltas[j].ItemID })

	if err := s.repo.AdjustItemStock(ctx, req.Section, deltas); err != nil {
		return nil, err
	}

	shiftID := ""
	shift, err := s.repo.GetActiveShift(ctx, req.Section)
	if err == nil {
		shiftID = shift.ID
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	actor, _ := ActorFromContext(ctx)
	supply, err := s.repo.SaveSupply(ctx, domain.Supply{
		Section:   req.Section,
		Items:     req.Items,
		TotalCost: req.TotalCost,
		ShiftID:   shiftID,
		CreatedBy: actor.Username,
	})
	if err != nil {
		return nil, err
	}

	if shiftID != "" {
		if _, err := s.repo.ApplyShiftDelta(ctx, shiftID, store.ShiftDelta{SupplyCost: req.TotalCost}); err != nil {
			return nil, err
		}
	}
	s.logAudit(ctx, req.Section, "supply_apply", "supply", fmt.Sprintf(
		"id=%s,items=%d,cost=%s", supply.ID, len(req.Items), req.TotalCost.StringFixed(2)))
	return supply, nil
}

func (s *Service) ListSupplies(ctx context.Context, section domain.Section) ([]domain.Supply, error) {
	return s.repo.ListSupplies(ctx, section)
}

// CloseShift reconciles and closes the active shift. Expected cash is the
// drawer total minus recorded expenses; supply costs are reporting-only and
// never reduce the expectation. A discrepancy (cash or inventory) requires a
// reason; dry runs return the preview without committing anything.
func (s *Service) CloseShift(ctx context.Context, req domain.CloseShiftRequest) (*domain.Shift, *domain.ClosePreview, error) {
	if !req.Section.Valid() || req.FinalCash.IsNegative() {
		return nil, nil, store.ErrInvalid
	}
	shift, err := s.GetActiveShift(ctx, req.Section)
	if err != nil {
		return nil, nil, err
	}

	expenses, err := s.repo.ListExpensesByShift(ctx, shift.ID)
	if err != nil {
		return nil, nil, err
	}
	expected := shift.TotalAmount
	for _, expense := range expenses {
		expected = expected.Sub(expense.Amount)
	}

	preview := domain.ClosePreview{
		ExpectedCash:     expected,
		DeclaredCash:     req.FinalCash,
		CashDelta:        req.FinalCash.Sub(expected),
		ValidationStatus: domain.ValidationBalanced,
	}
	if preview.CashDelta.Abs().GreaterThanOrEqual(cashEpsilon) {
		preview.Discrepancies = append(preview.Discrepancies, fmt.Sprintf(
			"cash: expected %s, declared %s", expected.StringFixed(2), req.FinalCash.StringFixed(2)))
	}

	itemIDs := make([]string, 0, len(req.FinalInventory))
	for itemID := range req.FinalInventory {
		itemIDs = append(itemIDs, itemID)
	}
	sort.Strings(itemIDs)
	for _, itemID := range itemIDs {
		declared := req.FinalInventory[itemID]
		item, err := s.repo.GetItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				preview.Discrepancies = append(preview.Discrepancies, fmt.Sprintf("inventory: unknown item %s", itemID))
				continue
			}
			return nil, nil, err
		}
		if item.Section != req.Section {
			return nil, nil, store.ErrInvalid
		}
		if declared != item.CurrentAmount {
			preview.Discrepancies = append(preview.Discrepancies, fmt.Sprintf(
				"inventory: %s expected %d, counted %d", item.Name, item.CurrentAmount, declared))
		}
	}

	if len(preview.Discrepancies) > 0 {
		preview.ValidationStatus = domain.ValidationDiscrepancy
	}
	if req.DryRun {
		return nil, &preview, nil
	}
	if preview.ValidationStatus == domain.ValidationDiscrepancy && strings.TrimSpace(req.Reason) == "" {
		return nil, &preview, store.ErrReasonRequired
	}

	now := time.Now().UTC()
	finalCash := req.FinalCash
	shift.Status = domain.ShiftStatusClosed
	shift.EndTime = &now
	shift.FinalCash = &finalCash
	shift.FinalInventory = req.FinalInventory
	shift.Discrepancies = preview.Discrepancies
	shift.ValidationStatus = preview.ValidationStatus
	// A reason only accompanies a discrepancy; a balanced close carries none.
	shift.CloseReason = ""
	if preview.ValidationStatus == domain.ValidationDiscrepancy {
		shift.CloseReason = strings.TrimSpace(req.Reason)
	}

	saved, err := s.repo.CloseShift(ctx, *shift)
	if err != nil {
		return nil, nil, err
	}
	s.logAudit(ctx, req.Section, "shift_close", "shift", fmt.Sprintf(
		"id=%s,status=%s,delta=%s", saved.ID, saved.ValidationStatus, preview.CashDelta.StringFixed(2)))
	return saved, &preview, nil
}

// requireShiftActive checks that shiftID is still the section's active
// shift. Entries tied to closed shifts are immutable.
func (s *Service) requireShiftActive(ctx context.Context, section domain.Section, shiftID string) error {
	shift, err := s.GetActiveShift(ctx, section)
	if err != nil {
		return err
	}
	if shift.ID != shiftID {
		return fmt.Errorf("entry belongs to a closed shift: %w", store.ErrConflict)
	}
	return nil
}
