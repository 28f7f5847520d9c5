package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"duakasir/backend/internal/domain"
	"duakasir/backend/internal/store"
	"duakasir/backend/internal/xid"
)

// Store is the in-process durable-cache implementation of store.Repository.
// It backs the gateway's degraded mode and all unit tests.
type Store struct {
	mu                 sync.RWMutex
	itemsByID          map[string]domain.Item
	categoriesByID     map[string]domain.Category
	customersByID      map[string]domain.Customer
	purchasesByID      map[string]domain.CustomerPurchase
	shiftsByID         map[string]domain.Shift
	activeShiftBySec   map[domain.Section]string
	expensesByID       map[string]domain.Expense
	externalByID       map[string]domain.ExternalMoney
	suppliesByID       map[string]domain.Supply
	supplementDebt     domain.SupplementDebt
	debtTransactions   []domain.SupplementDebtTransaction
	adminLogs          []domain.AdminLog
	archivesByID       map[string]domain.MonthlyArchive
	usersByUsername    map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		itemsByID:        make(map[string]domain.Item),
		categoriesByID:   make(map[string]domain.Category),
		customersByID:    make(map[string]domain.Customer),
		purchasesByID:    make(map[string]domain.CustomerPurchase),
		shiftsByID:       make(map[string]domain.Shift),
		activeShiftBySec: make(map[domain.Section]string),
		expensesByID:     make(map[string]domain.Expense),
		externalByID:     make(map[string]domain.ExternalMoney),
		suppliesByID:     make(map[string]domain.Supply),
		supplementDebt:   domain.SupplementDebt{Amount: decimal.Zero},
		debtTransactions: make([]domain.SupplementDebtTransaction, 0, 64),
		adminLogs:        make([]domain.AdminLog, 0, 128),
		archivesByID:     make(map[string]domain.MonthlyArchive),
		usersByUsername:  make(map[string]domain.UserAccount),
	}
}

func (s *Store) SaveItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" || !item.Section.Valid() {
		return nil, store.ErrInvalid
	}
	if item.SellPrice.IsNegative() || item.CostPrice.IsNegative() || item.CurrentAmount < 0 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = xid.New("item")
	}
	if existing, ok := s.itemsByID[item.ID]; ok {
		item.CreatedAt = existing.CreatedAt
	} else if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	s.itemsByID[item.ID] = item
	saved := item
	return &saved, nil
}

func (s *Store) GetItem(_ context.Context, id string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.itemsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyItem := item
	return &copyItem, nil
}

func (s *Store) ListItems(_ context.Context, filter store.ItemFilter) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Item, 0, len(s.itemsByID))
	for _, item := range s.itemsByID {
		if filter.Section != "" && item.Section != filter.Section {
			continue
		}
		if filter.CategoryID != "" && item.CategoryID != filter.CategoryID {
			continue
		}
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b domain.Item) int {
		if a.Name == b.Name {
			return cmpString(a.ID, b.ID)
		}
		return cmpString(a.Name, b.Name)
	})
	return items, nil
}

func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.itemsByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.itemsByID, id)
	return nil
}

func (s *Store) AdjustItemStock(_ context.Context, section domain.Section, deltas []store.StockDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every delta before touching anything so the whole batch is
	// all-or-nothing.
	next := make(map[string]domain.Item, len(deltas))
	for _, d := range deltas {
		item, ok := s.itemsByID[d.ItemID]
		if !ok || item.Section != section {
			return store.ErrNotFound
		}
		if pending, ok := next[d.ItemID]; ok {
			item = pending
		}
		item.CurrentAmount += d.Delta
		if item.CurrentAmount < 0 {
			return store.ErrInsufficientStock
		}
		next[d.ItemID] = item
	}

	now := time.Now().UTC()
	for id, item := range next {
		item.UpdatedAt = now
		s.itemsByID[id] = item
	}
	return nil
}

func (s *Store) SaveCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" || !category.Section.Valid() {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	s.categoriesByID[category.ID] = category
	saved := category
	return &saved, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.categoriesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyCategory := category
	return &copyCategory, nil
}

func (s *Store) ListCategories(_ context.Context, section domain.Section) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categoriesByID))
	for _, category := range s.categoriesByID {
		if section != "" && category.Section != section {
			continue
		}
		categories = append(categories, category)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return cmpString(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categoriesByID[id]; !ok {
		return store.ErrNotFound
	}
	// Items keep their dangling category reference.
	delete(s.categoriesByID, id)
	return nil
}

func (s *Store) SaveCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" || !customer.Section.Valid() {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customersByID[customer.ID] = customer
	saved := customer
	return &saved, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) ListCustomers(_ context.Context, section domain.Section) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, customer := range s.customersByID {
		if section != "" && customer.Section != section {
			continue
		}
		customers = append(customers, customer)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customersByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.customersByID, id)
	return nil
}

func (s *Store) SavePurchase(_ context.Context, purchase domain.CustomerPurchase) (*domain.CustomerPurchase, error) {
	if purchase.CustomerID == "" || !purchase.Section.Valid() {
		return nil, store.ErrInvalid
	}
	if purchase.TotalAmount.IsNegative() {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if purchase.ID == "" {
		purchase.ID = xid.New("cp")
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	if existing, ok := s.purchasesByID[purchase.ID]; ok && existing.IsPaid {
		// Paid purchases are immutable.
		return nil, store.ErrConflict
	}
	s.purchasesByID[purchase.ID] = clonePurchase(purchase)
	saved := clonePurchase(purchase)
	return &saved, nil
}

func (s *Store) GetPurchase(_ context.Context, id string) (*domain.CustomerPurchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchase, ok := s.purchasesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyPurchase := clonePurchase(purchase)
	return &copyPurchase, nil
}

func (s *Store) ListPurchases(_ context.Context, filter store.PurchaseFilter) ([]domain.CustomerPurchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CustomerPurchase, 0, 32)
	for _, purchase := range s.purchasesByID {
		if filter.Section != "" && purchase.Section != filter.Section {
			continue
		}
		if filter.CustomerID != "" && purchase.CustomerID != filter.CustomerID {
			continue
		}
		if filter.UnpaidOnly && purchase.IsPaid {
			continue
		}
		result = append(result, clonePurchase(purchase))
	}
	// Oldest first: debt allocation depends on this order.
	slices.SortFunc(result, func(a, b domain.CustomerPurchase) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) CreateShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	if !shift.Section.Valid() || strings.TrimSpace(shift.Operator) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.activeShiftBySec[shift.Section]; exists {
		return nil, store.ErrShiftActive
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.StartTime.IsZero() {
		shift.StartTime = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusActive
	shift.TotalAmount = decimal.Zero
	shift.SupplyCost = decimal.Zero
	shift.EndTime = nil
	shift.FinalCash = nil

	s.shiftsByID[shift.ID] = cloneShift(shift)
	s.activeShiftBySec[shift.Section] = shift.ID
	saved := cloneShift(shift)
	return &saved, nil
}

func (s *Store) GetShift(_ context.Context, id string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shift, ok := s.shiftsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyShift := cloneShift(shift)
	return &copyShift, nil
}

func (s *Store) GetActiveShift(_ context.Context, section domain.Section) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shiftID, ok := s.activeShiftBySec[section]
	if !ok {
		return nil, store.ErrNotFound
	}
	shift, ok := s.shiftsByID[shiftID]
	if !ok || shift.Status != domain.ShiftStatusActive {
		return nil, store.ErrNotFound
	}
	copyShift := cloneShift(shift)
	return &copyShift, nil
}

func (s *Store) ApplyShiftDelta(_ context.Context, shiftID string, delta store.ShiftDelta) (*domain.Shift, error) {
	if shiftID == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.shiftsByID[shiftID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if existing.Status == domain.ShiftStatusClosed {
		return nil, store.ErrConflict
	}
	existing.TotalAmount = existing.TotalAmount.Add(delta.Drawer)
	existing.SupplyCost = existing.SupplyCost.Add(delta.SupplyCost)
	existing.Sales = append(existing.Sales, delta.Lines...)
	s.shiftsByID[shiftID] = cloneShift(existing)

	saved := cloneShift(existing)
	return &saved, nil
}

func (s *Store) CloseShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	if shift.ID == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.shiftsByID[shift.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if existing.Status == domain.ShiftStatusClosed {
		return nil, store.ErrConflict
	}
	// Only the reconciliation fields come from the caller; the running
	// totals stay as the store last saw them.
	existing.Status = domain.ShiftStatusClosed
	existing.EndTime = shift.EndTime
	existing.FinalCash = shift.FinalCash
	existing.FinalInventory = shift.FinalInventory
	existing.Discrepancies = shift.Discrepancies
	existing.CloseReason = shift.CloseReason
	existing.ValidationStatus = shift.ValidationStatus
	s.shiftsByID[existing.ID] = cloneShift(existing)
	delete(s.activeShiftBySec, existing.Section)

	saved := cloneShift(existing)
	return &saved, nil
}

func (s *Store) ListShifts(_ context.Context, section domain.Section) ([]domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shifts := make([]domain.Shift, 0, len(s.shiftsByID))
	for _, shift := range s.shiftsByID {
		if section != "" && shift.Section != section {
			continue
		}
		shifts = append(shifts, cloneShift(shift))
	}
	slices.SortFunc(shifts, func(a, b domain.Shift) int {
		if a.StartTime.Equal(b.StartTime) {
			return cmpString(a.ID, b.ID)
		}
		if a.StartTime.Before(b.StartTime) {
			return -1
		}
		return 1
	})
	return shifts, nil
}

func (s *Store) SaveExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.ShiftID == "" || !expense.Section.Valid() || !expense.Amount.IsPositive() {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	s.expensesByID[expense.ID] = expense
	saved := expense
	return &saved, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expense, ok := s.expensesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyExpense := expense
	return &copyExpense, nil
}

func (s *Store) ListExpensesByShift(_ context.Context, shiftID string) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, 16)
	for _, expense := range s.expensesByID {
		if expense.ShiftID != shiftID {
			continue
		}
		result = append(result, expense)
	}
	slices.SortFunc(result, func(a, b domain.Expense) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expensesByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.expensesByID, id)
	return nil
}

func (s *Store) SaveExternalMoney(_ context.Context, entry domain.ExternalMoney) (*domain.ExternalMoney, error) {
	if entry.ShiftID == "" || !entry.Section.Valid() || !entry.Amount.IsPositive() {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("ext")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.externalByID[entry.ID] = entry
	saved := entry
	return &saved, nil
}

func (s *Store) GetExternalMoney(_ context.Context, id string) (*domain.ExternalMoney, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.externalByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyEntry := entry
	return &copyEntry, nil
}

func (s *Store) ListExternalMoneyByShift(_ context.Context, shiftID string) ([]domain.ExternalMoney, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ExternalMoney, 0, 8)
	for _, entry := range s.externalByID {
		if entry.ShiftID != shiftID {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.ExternalMoney) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) DeleteExternalMoney(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.externalByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.externalByID, id)
	return nil
}

func (s *Store) SaveSupply(_ context.Context, supply domain.Supply) (*domain.Supply, error) {
	if !supply.Section.Valid() || len(supply.Items) == 0 || supply.TotalCost.IsNegative() {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if supply.ID == "" {
		supply.ID = xid.New("sup")
	}
	if supply.CreatedAt.IsZero() {
		supply.CreatedAt = time.Now().UTC()
	}
	s.suppliesByID[supply.ID] = cloneSupply(supply)
	saved := cloneSupply(supply)
	return &saved, nil
}

func (s *Store) ListSupplies(_ context.Context, section domain.Section) ([]domain.Supply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Supply, 0, len(s.suppliesByID))
	for _, supply := range s.suppliesByID {
		if section != "" && supply.Section != section {
			continue
		}
		result = append(result, cloneSupply(supply))
	}
	slices.SortFunc(result, func(a, b domain.Supply) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) GetSupplementDebt(_ context.Context) (*domain.SupplementDebt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	debt := s.supplementDebt
	return &debt, nil
}

func (s *Store) ApplySupplementDebtTransaction(_ context.Context, tx domain.SupplementDebtTransaction) (*domain.SupplementDebt, error) {
	if !tx.Amount.IsPositive() {
		return nil, store.ErrInvalid
	}
	if tx.Type != domain.DebtTransactionDebt && tx.Type != domain.DebtTransactionPayment {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = xid.New("sdt")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	balance := s.supplementDebt.Amount
	if tx.Type == domain.DebtTransactionDebt {
		balance = balance.Add(tx.Amount)
	} else {
		balance = balance.Sub(tx.Amount)
		if balance.IsNegative() {
			balance = decimal.Zero
		}
	}
	s.supplementDebt = domain.SupplementDebt{
		Amount:      balance,
		LastUpdated: tx.CreatedAt,
		UpdatedBy:   tx.CreatedBy,
	}
	s.debtTransactions = append(s.debtTransactions, tx)

	debt := s.supplementDebt
	return &debt, nil
}

func (s *Store) ListSupplementDebtTransactions(_ context.Context, limit int) ([]domain.SupplementDebtTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SupplementDebtTransaction, len(s.debtTransactions))
	copy(result, s.debtTransactions)
	slices.SortFunc(result, func(a, b domain.SupplementDebtTransaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) AppendAdminLog(_ context.Context, entry domain.AdminLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("log")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.adminLogs = append(s.adminLogs, entry)
	return nil
}

func (s *Store) ListAdminLogs(_ context.Context, filter store.AdminLogFilter) ([]domain.AdminLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AdminLog, 0, 64)
	for _, entry := range s.adminLogs {
		if filter.Section != "" && entry.Section != filter.Section {
			continue
		}
		if !filter.From.IsZero() && entry.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !entry.CreatedAt.Before(filter.To) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AdminLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) ArchivePeriod(_ context.Context, archive domain.MonthlyArchive) (*domain.MonthlyArchive, error) {
	if !archive.Section.Valid() {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if archive.ID == "" {
		archive.ID = xid.New("arc")
	}
	if archive.ArchivedAt.IsZero() {
		archive.ArchivedAt = time.Now().UTC()
	}

	// Archive first, purge second, all under one lock: a reader never sees
	// purged data without the archive present.
	s.archivesByID[archive.ID] = cloneArchive(archive)

	for id, shift := range s.shiftsByID {
		if shift.Section == archive.Section {
			delete(s.shiftsByID, id)
		}
	}
	delete(s.activeShiftBySec, archive.Section)
	for id, purchase := range s.purchasesByID {
		if purchase.Section == archive.Section {
			delete(s.purchasesByID, id)
		}
	}
	for id, expense := range s.expensesByID {
		if expense.Section == archive.Section {
			delete(s.expensesByID, id)
		}
	}
	for id, entry := range s.externalByID {
		if entry.Section == archive.Section {
			delete(s.externalByID, id)
		}
	}
	for id, supply := range s.suppliesByID {
		if supply.Section == archive.Section {
			delete(s.suppliesByID, id)
		}
	}
	saved := cloneArchive(archive)
	return &saved, nil
}

func (s *Store) ListArchives(_ context.Context, section domain.Section) ([]domain.MonthlyArchive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.MonthlyArchive, 0, len(s.archivesByID))
	for _, archive := range s.archivesByID {
		if section != "" && archive.Section != section {
			continue
		}
		result = append(result, cloneArchive(archive))
	}
	slices.SortFunc(result, func(a, b domain.MonthlyArchive) int {
		if a.ArchivedAt.Equal(b.ArchivedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.ArchivedAt.After(b.ArchivedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func clonePurchase(src domain.CustomerPurchase) domain.CustomerPurchase {
	dup := src
	lines := make([]domain.PurchaseLine, len(src.Lines))
	copy(lines, src.Lines)
	dup.Lines = lines
	return dup
}

func cloneShift(src domain.Shift) domain.Shift {
	dup := src
	sales := make([]domain.SaleLine, len(src.Sales))
	copy(sales, src.Sales)
	dup.Sales = sales
	if src.FinalInventory != nil {
		inv := make(map[string]int, len(src.FinalInventory))
		for k, v := range src.FinalInventory {
			inv[k] = v
		}
		dup.FinalInventory = inv
	}
	if src.Discrepancies != nil {
		disc := make([]string, len(src.Discrepancies))
		copy(disc, src.Discrepancies)
		dup.Discrepancies = disc
	}
	if src.FinalCash != nil {
		cash := *src.FinalCash
		dup.FinalCash = &cash
	}
	if src.EndTime != nil {
		end := *src.EndTime
		dup.EndTime = &end
	}
	return dup
}

func cloneSupply(src domain.Supply) domain.Supply {
	dup := src
	items := make(map[string]int, len(src.Items))
	for k, v := range src.Items {
		items[k] = v
	}
	dup.Items = items
	return dup
}

func cloneArchive(src domain.MonthlyArchive) domain.MonthlyArchive {
	dup := src
	sold := make([]domain.ArchiveItemTotal, len(src.ItemsSold))
	copy(sold, src.ItemsSold)
	dup.ItemsSold = sold
	return dup
}
