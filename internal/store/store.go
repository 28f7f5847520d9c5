package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"duakasir/backend/internal/domain"
)

var (
	// ErrNotFound is the absence value: reads return it instead of failing.
	ErrNotFound = errors.New("not found")
	// ErrInvalid marks malformed or out-of-range input, rejected before any
	// mutation.
	ErrInvalid = errors.New("invalid input")
	// ErrConflict marks an operation that would violate an invariant. No
	// partial effect is applied.
	ErrConflict = errors.New("conflict")
	// ErrInsufficientStock is returned when a sale would drive an item's
	// stock negative. The whole sale is rejected, no line is applied.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrShiftActive is returned when starting a shift while one is already
	// active for the section.
	ErrShiftActive = errors.New("shift already active")
	// ErrNoActiveShift is returned by operations that require an open drawer.
	ErrNoActiveShift = errors.New("no active shift")
	// ErrReasonRequired is returned when a close detects a discrepancy and
	// no reason was supplied.
	ErrReasonRequired = errors.New("close reason required")
)

// IsDomainErr reports whether err is one of the store sentinels, i.e. a
// deliberate rejection rather than an infrastructure failure.
func IsDomainErr(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalid) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrShiftActive) ||
		errors.Is(err, ErrNoActiveShift) ||
		errors.Is(err, ErrReasonRequired)
}

// StockDelta adjusts one item's stock. Negative Delta values are floored at
// zero stock by the store.
type StockDelta struct {
	ItemID string
	Delta  int
}

// ShiftDelta amends the active shift row in place: Drawer and SupplyCost are
// added to the running totals, Lines are appended to the sale log. Stores
// apply the whole delta atomically so concurrent terminals never overwrite
// each other's money.
type ShiftDelta struct {
	Drawer     decimal.Decimal
	SupplyCost decimal.Decimal
	Lines      []domain.SaleLine
}

type ItemFilter struct {
	Section    domain.Section
	CategoryID string
}

type PurchaseFilter struct {
	Section    domain.Section
	CustomerID string
	UnpaidOnly bool
}

type AdminLogFilter struct {
	Section domain.Section
	From    time.Time
	To      time.Time
	Limit   int
}

// Repository is the persistence contract. Every Save is an upsert keyed by
// the entity's identifier: replaying the same payload leaves identical state.
// Reads return ErrNotFound for absent rows, never an empty struct.
type Repository interface {
	SaveItem(ctx context.Context, item domain.Item) (*domain.Item, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]domain.Item, error)
	DeleteItem(ctx context.Context, id string) error
	// AdjustItemStock applies all deltas atomically: if any adjustment would
	// drive stock negative, nothing is applied and ErrInsufficientStock is
	// returned.
	AdjustItemStock(ctx context.Context, section domain.Section, deltas []StockDelta) error

	SaveCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	ListCategories(ctx context.Context, section domain.Section) ([]domain.Category, error)
	// DeleteCategory does not cascade: items keep a dangling reference.
	DeleteCategory(ctx context.Context, id string) error

	SaveCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context, section domain.Section) ([]domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error

	SavePurchase(ctx context.Context, purchase domain.CustomerPurchase) (*domain.CustomerPurchase, error)
	GetPurchase(ctx context.Context, id string) (*domain.CustomerPurchase, error)
	ListPurchases(ctx context.Context, filter PurchaseFilter) ([]domain.CustomerPurchase, error)

	// CreateShift rejects with ErrShiftActive when the section already has an
	// active shift. The check and insert are atomic.
	CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	GetShift(ctx context.Context, id string) (*domain.Shift, error)
	GetActiveShift(ctx context.Context, section domain.Section) (*domain.Shift, error)
	// ApplyShiftDelta atomically adds to the shift's totals and appends sale
	// lines. Only active shifts accept deltas; ErrConflict for closed ones.
	ApplyShiftDelta(ctx context.Context, shiftID string, delta ShiftDelta) (*domain.Shift, error)
	// CloseShift stamps the reconciliation fields and flips the shift to
	// closed. It never touches the running totals, so a sale landing between
	// the caller's read and the close is not overwritten. Closed shifts are
	// immutable: ErrConflict on a second close.
	CloseShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	ListShifts(ctx context.Context, section domain.Section) ([]domain.Shift, error)

	SaveExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	GetExpense(ctx context.Context, id string) (*domain.Expense, error)
	ListExpensesByShift(ctx context.Context, shiftID string) ([]domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	SaveExternalMoney(ctx context.Context, entry domain.ExternalMoney) (*domain.ExternalMoney, error)
	GetExternalMoney(ctx context.Context, id string) (*domain.ExternalMoney, error)
	ListExternalMoneyByShift(ctx context.Context, shiftID string) ([]domain.ExternalMoney, error)
	DeleteExternalMoney(ctx context.Context, id string) error

	SaveSupply(ctx context.Context, supply domain.Supply) (*domain.Supply, error)
	ListSupplies(ctx context.Context, section domain.Section) ([]domain.Supply, error)

	GetSupplementDebt(ctx context.Context) (*domain.SupplementDebt, error)
	// ApplySupplementDebtTransaction atomically appends the transaction and
	// moves the running balance, clamping payments at zero.
	ApplySupplementDebtTransaction(ctx context.Context, tx domain.SupplementDebtTransaction) (*domain.SupplementDebt, error)
	ListSupplementDebtTransactions(ctx context.Context, limit int) ([]domain.SupplementDebtTransaction, error)

	AppendAdminLog(ctx context.Context, entry domain.AdminLog) error
	ListAdminLogs(ctx context.Context, filter AdminLogFilter) ([]domain.AdminLog, error)

	// ArchivePeriod writes the archive and purges the section's shifts,
	// customer purchases, expenses, external money and supplies in one
	// atomic step. Items, categories, customers and the other section are
	// untouched.
	ArchivePeriod(ctx context.Context, archive domain.MonthlyArchive) (*domain.MonthlyArchive, error)
	ListArchives(ctx context.Context, section domain.Section) ([]domain.MonthlyArchive, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUser(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}
