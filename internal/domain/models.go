package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Section identifies one of the two independent retail contexts. Items,
// customers and shifts never cross sections.
type Section string

const (
	SectionStore      Section = "store"
	SectionSupplement Section = "supplement"
)

func (s Section) Valid() bool {
	return s == SectionStore || s == SectionSupplement
}

type Item struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	SellPrice     decimal.Decimal `json:"sell_price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	CurrentAmount int             `json:"current_amount"`
	CategoryID    string          `json:"category_id,omitempty"`
	Section       Section         `json:"section"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Section   Section   `json:"section"`
	CreatedAt time.Time `json:"created_at"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Section   Section   `json:"section"`
	CreatedAt time.Time `json:"created_at"`
}

// PurchaseLine is a denormalized sale line: the item name and unit price are
// snapshotted at sale time so later item edits do not rewrite history.
type PurchaseLine struct {
	ItemID    string          `json:"item_id"`
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CustomerPurchase is an unpaid (credit) sale owed by a customer. It is
// mutable (amount reduction) while unpaid and immutable once IsPaid is set.
type CustomerPurchase struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Lines        []PurchaseLine  `json:"lines"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Section      Section         `json:"section"`
	ShiftID      string          `json:"shift_id,omitempty"`
	IsPaid       bool            `json:"is_paid"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Expense struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	ShiftID   string          `json:"shift_id"`
	Section   Section         `json:"section"`
	CreatedAt time.Time       `json:"created_at"`
	CreatedBy string          `json:"created_by"`
}

// ExternalMoney is cash physically added to the drawer outside of sales,
// e.g. a change float top-up.
type ExternalMoney struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	ShiftID   string          `json:"shift_id"`
	Section   Section         `json:"section"`
	CreatedAt time.Time       `json:"created_at"`
	CreatedBy string          `json:"created_by"`
}

type ShiftStatus string

const (
	ShiftStatusActive ShiftStatus = "active"
	ShiftStatusClosed ShiftStatus = "closed"
)

type ValidationStatus string

const (
	ValidationBalanced    ValidationStatus = "balanced"
	ValidationDiscrepancy ValidationStatus = "discrepancy"
)

// SaleLine is one sold line recorded on a shift. Paid marks whether the cash
// entered the drawer (false means the sale went to a customer's debt).
type SaleLine struct {
	ItemID     string          `json:"item_id"`
	ItemName   string          `json:"item_name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Paid       bool            `json:"paid"`
	CustomerID string          `json:"customer_id,omitempty"`
	SoldAt     time.Time       `json:"sold_at"`
}

// Shift is one operator's continuous cash-drawer session for a section.
// TotalAmount is the cash expected in the drawer: it grows with paid sales,
// external money and debt payments, and is never reduced while the shift is
// active. Expenses and supply costs are subtracted only at reconciliation.
type Shift struct {
	ID               string           `json:"id"`
	Section          Section          `json:"section"`
	Operator         string           `json:"operator"`
	Status           ShiftStatus      `json:"status"`
	Sales            []SaleLine       `json:"sales"`
	TotalAmount      decimal.Decimal  `json:"total_amount"`
	SupplyCost       decimal.Decimal  `json:"supply_cost"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          *time.Time       `json:"end_time,omitempty"`
	FinalCash        *decimal.Decimal `json:"final_cash,omitempty"`
	FinalInventory   map[string]int   `json:"final_inventory,omitempty"`
	Discrepancies    []string         `json:"discrepancies,omitempty"`
	CloseReason      string           `json:"close_reason,omitempty"`
	ValidationStatus ValidationStatus `json:"validation_status,omitempty"`
}

type Supply struct {
	ID        string          `json:"id"`
	Section   Section         `json:"section"`
	Items     map[string]int  `json:"items"`
	TotalCost decimal.Decimal `json:"total_cost"`
	ShiftID   string          `json:"shift_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	CreatedBy string          `json:"created_by"`
}

// SupplementDebt is the single running supplier balance for the supplement
// section. It never goes negative: payments larger than the balance clamp it
// at zero.
type SupplementDebt struct {
	Amount      decimal.Decimal `json:"amount"`
	LastUpdated time.Time       `json:"last_updated"`
	UpdatedBy   string          `json:"updated_by"`
}

type DebtTransactionType string

const (
	DebtTransactionDebt    DebtTransactionType = "debt"
	DebtTransactionPayment DebtTransactionType = "payment"
)

type SupplementDebtTransaction struct {
	ID        string              `json:"id"`
	Type      DebtTransactionType `json:"type"`
	Amount    decimal.Decimal     `json:"amount"`
	Note      string              `json:"note"`
	CreatedAt time.Time           `json:"created_at"`
	CreatedBy string              `json:"created_by"`
}

type AdminLog struct {
	ID         string    `json:"id"`
	ActionType string    `json:"action_type"`
	Entity     string    `json:"entity"`
	Details    string    `json:"details"`
	Section    Section   `json:"section,omitempty"`
	Actor      string    `json:"actor"`
	CreatedAt  time.Time `json:"created_at"`
}

type ArchiveItemTotal struct {
	ItemID   string          `json:"item_id"`
	ItemName string          `json:"item_name"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// MonthlyArchive is the immutable snapshot written by a period reset. It is
// never mutated after creation.
type MonthlyArchive struct {
	ID         string             `json:"id"`
	Section    Section            `json:"section"`
	Month      time.Month         `json:"month"`
	Year       int                `json:"year"`
	Revenue    decimal.Decimal    `json:"revenue"`
	Cost       decimal.Decimal    `json:"cost"`
	Profit     decimal.Decimal    `json:"profit"`
	ShiftCount int                `json:"shift_count"`
	ItemsSold  []ArchiveItemTotal `json:"items_sold"`
	ArchivedAt time.Time          `json:"archived_at"`
	ArchivedBy string             `json:"archived_by"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// Request payloads consumed by the ledger service.

type SaleLineRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type RecordSaleRequest struct {
	Section    Section           `json:"section"`
	Lines      []SaleLineRequest `json:"lines"`
	IsPaid     bool              `json:"is_paid"`
	CustomerID string            `json:"customer_id,omitempty"`
}

// RecordSaleResult carries the updated shift and, for credit sales, the
// customer purchase the sale became.
type RecordSaleResult struct {
	Shift    *Shift            `json:"shift"`
	Purchase *CustomerPurchase `json:"purchase,omitempty"`
}

type CashEntryRequest struct {
	Section Section         `json:"section"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason"`
}

type CloseShiftRequest struct {
	Section        Section         `json:"section"`
	FinalCash      decimal.Decimal `json:"final_cash"`
	FinalInventory map[string]int  `json:"final_inventory"`
	Reason         string          `json:"reason,omitempty"`
	DryRun         bool            `json:"dry_run,omitempty"`
}

// ClosePreview describes the reconciliation a close would commit. Returned
// as-is for dry runs.
type ClosePreview struct {
	ExpectedCash     decimal.Decimal  `json:"expected_cash"`
	DeclaredCash     decimal.Decimal  `json:"declared_cash"`
	CashDelta        decimal.Decimal  `json:"cash_delta"`
	Discrepancies    []string         `json:"discrepancies"`
	ValidationStatus ValidationStatus `json:"validation_status"`
}

type SupplyRequest struct {
	Section   Section         `json:"section"`
	Items     map[string]int  `json:"items"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

type PayDebtRequest struct {
	CustomerID string          `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// PayDebtResult reports which purchases a payment touched, in allocation
// order (oldest first).
type PayDebtResult struct {
	CustomerID    string          `json:"customer_id"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	SettledIDs    []string        `json:"settled_ids"`
	ReducedID     string          `json:"reduced_id,omitempty"`
	RemainingDebt decimal.Decimal `json:"remaining_debt"`
	ShiftID       string          `json:"shift_id"`
}

// CustomerDebt is the informational debt summary for one customer. Cost and
// profit are derived from current item cost prices and are reporting-only.
type CustomerDebt struct {
	CustomerID string             `json:"customer_id"`
	Total      decimal.Decimal    `json:"total"`
	Cost       decimal.Decimal    `json:"cost"`
	Profit     decimal.Decimal    `json:"profit"`
	Purchases  []CustomerPurchase `json:"purchases"`
}

type DebtTransactionRequest struct {
	Type   DebtTransactionType `json:"type"`
	Amount decimal.Decimal     `json:"amount"`
	Note   string              `json:"note"`
}
