package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"duakasir/backend/internal/domain"
	"duakasir/backend/internal/store"
	"duakasir/backend/internal/xid"
)

// Store is the central Postgres implementation of store.Repository. All
// multi-row invariants (one active shift, non-negative stock, archive-then-
// purge) are enforced inside database transactions so concurrent terminals
// cannot interleave partial writes.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" || !item.Section.Valid() {
		return nil, store.ErrInvalid
	}
	if item.SellPrice.IsNegative() || item.CostPrice.IsNegative() || item.CurrentAmount < 0 {
		return nil, store.ErrInvalid
	}
	if item.ID == "" {
		item.ID = xid.New("item")
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, sell_price, cost_price, current_amount, category_id, section, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			sell_price = EXCLUDED.sell_price,
			cost_price = EXCLUDED.cost_price,
			current_amount = EXCLUDED.current_amount,
			category_id = EXCLUDED.category_id,
			section = EXCLUDED.section,
			updated_at = EXCLUDED.updated_at
	`, item.ID, item.Name, item.SellPrice, item.CostPrice, item.CurrentAmount,
		nullString(item.CategoryID), item.Section, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	saved := item
	return &saved, nil
}

func (s *Store) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	var categoryID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, sell_price, cost_price, current_amount, category_id, section, created_at, updated_at
		FROM items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.SellPrice, &item.CostPrice, &item.CurrentAmount,
		&categoryID, &item.Section, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.CategoryID = categoryID.String
	return &item, nil
}

func (s *Store) ListItems(ctx context.Context, filter store.ItemFilter) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sell_price, cost_price, current_amount, category_id, section, created_at, updated_at
		FROM items
		WHERE ($1 = '' OR section = $1)
		  AND ($2 = '' OR category_id = $2)
		ORDER BY name, id
	`, string(filter.Section), filter.CategoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 64)
	for rows.Next() {
		var item domain.Item
		var categoryID sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &item.SellPrice, &item.CostPrice, &item.CurrentAmount,
			&categoryID, &item.Section, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.CategoryID = categoryID.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AdjustItemStock(ctx context.Context, section domain.Section, deltas []store.StockDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range deltas {
		res, err := tx.ExecContext(ctx, `
			UPDATE items
			SET current_amount = current_amount + $3, updated_at = now()
			WHERE id = $1 AND section = $2 AND current_amount + $3 >= 0
		`, d.ItemID, section, d.Delta)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Distinguish a missing item from a stock floor hit.
			var exists bool
			if err := tx.QueryRowContext(ctx, `
				SELECT true FROM items WHERE id = $1 AND section = $2
			`, d.ItemID, section).Scan(&exists); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return store.ErrNotFound
				}
				return err
			}
			return store.ErrInsufficientStock
		}
	}

	return tx.Commit()
}

func (s *Store) SaveCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" || !category.Section.Valid() {
		return nil, store.ErrInvalid
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, section, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, section = EXCLUDED.section
	`, category.ID, category.Name, category.Section, category.CreatedAt)
	if err != nil {
		return nil, err
	}
	saved := category
	return &saved, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var category domain.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, section, created_at FROM categories WHERE id = $1
	`, id).Scan(&category.ID, &category.Name, &category.Section, &category.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (s *Store) ListCategories(ctx context.Context, section domain.Section) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, section, created_at
		FROM categories
		WHERE ($1 = '' OR section = $1)
		ORDER BY name
	`, string(section))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Section, &category.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SaveCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" || !customer.Section.Valid() {
		return nil, store.ErrInvalid
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, section, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, section = EXCLUDED.section
	`, customer.ID, customer.Name, customer.Section, customer.CreatedAt)
	if err != nil {
		return nil, err
	}
	saved := customer
	return &saved, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var customer domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, section, created_at FROM customers WHERE id = $1
	`, id).Scan(&customer.ID, &customer.Name, &customer.Section, &customer.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (s *Store) ListCustomers(ctx context.Context, section domain.Section) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, section, created_at
		FROM customers
		WHERE ($1 = '' OR section = $1)
		ORDER BY name
	`, string(section))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var customer domain.Customer
		if err := rows.Scan(&customer.ID, &customer.Name, &customer.Section, &customer.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SavePurchase(ctx context.Context, purchase domain.CustomerPurchase) (*domain.CustomerPurchase, error) {
	if purchase.CustomerID == "" || !purchase.Section.Valid() || purchase.TotalAmount.IsNegative() {
		return nil, store.ErrInvalid
	}
	if purchase.ID == "" {
		purchase.ID = xid.New("cp")
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	linesJSON, err := json.Marshal(purchase.Lines)
	if err != nil {
		return nil, err
	}

	// Paid purchases are immutable: the upsert only replaces unpaid rows.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO customer_purchases (id, customer_id, customer_name, lines, total_amount, section, shift_id, is_paid, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			lines = EXCLUDED.lines,
			total_amount = EXCLUDED.total_amount,
			is_paid = EXCLUDED.is_paid
		WHERE customer_purchases.is_paid = false
	`, purchase.ID, purchase.CustomerID, purchase.CustomerName, linesJSON, purchase.TotalAmount,
		purchase.Section, nullString(purchase.ShiftID), purchase.IsPaid, purchase.CreatedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrConflict
	}
	saved := purchase
	return &saved, nil
}

func (s *Store) GetPurchase(ctx context.Context, id string) (*domain.CustomerPurchase, error) {
	var purchase domain.CustomerPurchase
	var linesRaw []byte
	var shiftID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, customer_name, lines, total_amount, section, shift_id, is_paid, created_at
		FROM customer_purchases
		WHERE id = $1
	`, id).Scan(&purchase.ID, &purchase.CustomerID, &purchase.CustomerName, &linesRaw,
		&purchase.TotalAmount, &purchase.Section, &shiftID, &purchase.IsPaid, &purchase.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(linesRaw, &purchase.Lines); err != nil {
		return nil, err
	}
	purchase.ShiftID = shiftID.String
	return &purchase, nil
}

func (s *Store) ListPurchases(ctx context.Context, filter store.PurchaseFilter) ([]domain.CustomerPurchase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, customer_name, lines, total_amount, section, shift_id, is_paid, created_at
		FROM customer_purchases
		WHERE ($1 = '' OR section = $1)
		  AND ($2 = '' OR customer_id = $2)
		  AND ($3 = false OR is_paid = false)
		ORDER BY created_at ASC, id ASC
	`, string(filter.Section), filter.CustomerID, filter.UnpaidOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]domain.CustomerPurchase, 0, 32)
	for rows.Next() {
		var purchase domain.CustomerPurchase
		var linesRaw []byte
		var shiftID sql.NullString
		if err := rows.Scan(&purchase.ID, &purchase.CustomerID, &purchase.CustomerName, &linesRaw,
			&purchase.TotalAmount, &purchase.Section, &shiftID, &purchase.IsPaid, &purchase.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(linesRaw, &purchase.Lines); err != nil {
			return nil, err
		}
		purchase.ShiftID = shiftID.String
		purchases = append(purchases, purchase)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return purchases, nil
}

func (s *Store) CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if !shift.Section.Valid() || strings.TrimSpace(shift.Operator) == "" {
		return nil, store.ErrInvalid
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

	salesJSON, err := json.Marshal(shift.Sales)
	if err != nil {
		return nil, err
	}

	// Insert guarded by the absence of another active shift. A partial
	// unique index on (section) WHERE status = 'active' backs the race
	// where two terminals pass the WHERE NOT EXISTS simultaneously.
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (id, section, operator, status, sales, total_amount, supply_cost, start_time)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE NOT EXISTS (
			SELECT 1 FROM shifts WHERE section = $2 AND status = 'active'
		)
	`, shift.ID, shift.Section, shift.Operator, shift.Status, salesJSON,
		shift.TotalAmount, shift.SupplyCost, shift.StartTime)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrShiftActive
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrShiftActive
	}
	saved := shift
	return &saved, nil
}

const shiftColumns = `id, section, operator, status, sales, total_amount, supply_cost,
	start_time, end_time, final_cash, final_inventory, discrepancies, close_reason, validation_status`

func (s *Store) GetShift(ctx context.Context, id string) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+` FROM shifts WHERE id = $1
	`, id)
	shift, err := scanShift(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return shift, nil
}

func (s *Store) GetActiveShift(ctx context.Context, section domain.Section) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE section = $1 AND status = 'active'
		ORDER BY start_time DESC
		LIMIT 1
	`, section)
	shift, err := scanShift(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return shift, nil
}

// ApplyShiftDelta amends the shift row in one UPDATE, so concurrent
// terminals adding to the drawer never overwrite each other.
func (s *Store) ApplyShiftDelta(ctx context.Context, shiftID string, delta store.ShiftDelta) (*domain.Shift, error) {
	if shiftID == "" {
		return nil, store.ErrInvalid
	}

	lines := delta.Lines
	if lines == nil {
		lines = []domain.SaleLine{}
	}
	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE shifts SET
			total_amount = total_amount + $2,
			supply_cost = supply_cost + $3,
			sales = sales || $4::jsonb
		WHERE id = $1 AND status = 'active'
		RETURNING `+shiftColumns+`
	`, shiftID, delta.Drawer, delta.SupplyCost, linesJSON)
	shift, err := scanShift(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.shiftWriteRefusal(ctx, shiftID)
		}
		return nil, err
	}
	return shift, nil
}

func (s *Store) CloseShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if shift.ID == "" {
		return nil, store.ErrInvalid
	}

	var inventoryJSON []byte
	var err error
	if shift.FinalInventory != nil {
		if inventoryJSON, err = json.Marshal(shift.FinalInventory); err != nil {
			return nil, err
		}
	}
	var discrepanciesJSON []byte
	if shift.Discrepancies != nil {
		if discrepanciesJSON, err = json.Marshal(shift.Discrepancies); err != nil {
			return nil, err
		}
	}

	// Only the reconciliation columns are written: the running totals stay
	// whatever the row accumulated, and closed shifts are immutable.
	row := s.db.QueryRowContext(ctx, `
		UPDATE shifts SET
			status = 'closed',
			end_time = $2,
			final_cash = $3,
			final_inventory = $4,
			discrepancies = $5,
			close_reason = $6,
			validation_status = $7
		WHERE id = $1 AND status = 'active'
		RETURNING `+shiftColumns+`
	`, shift.ID, nullTime(shift.EndTime), nullDecimal(shift.FinalCash),
		nullBytes(inventoryJSON), nullBytes(discrepanciesJSON),
		shift.CloseReason, string(shift.ValidationStatus))
	saved, err := scanShift(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.shiftWriteRefusal(ctx, shift.ID)
		}
		return nil, err
	}
	return saved, nil
}

// shiftWriteRefusal distinguishes a missing shift from a closed one after a
// conditional write matched no row.
func (s *Store) shiftWriteRefusal(ctx context.Context, shiftID string) error {
	var status domain.ShiftStatus
	err := s.db.QueryRowContext(ctx, `SELECT status FROM shifts WHERE id = $1`, shiftID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrConflict
}

func (s *Store) ListShifts(ctx context.Context, section domain.Section) ([]domain.Shift, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE ($1 = '' OR section = $1)
		ORDER BY start_time ASC, id ASC
	`, string(section))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := make([]domain.Shift, 0, 32)
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, *shift)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shifts, nil
}

func (s *Store) SaveExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.ShiftID == "" || !expense.Section.Valid() || !expense.Amount.IsPositive() {
		return nil, store.ErrInvalid
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, amount, reason, shift_id, section, created_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET amount = EXCLUDED.amount, reason = EXCLUDED.reason
	`, expense.ID, expense.Amount, expense.Reason, expense.ShiftID, expense.Section,
		expense.CreatedAt, expense.CreatedBy)
	if err != nil {
		return nil, err
	}
	saved := expense
	return &saved, nil
}

func (s *Store) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	var expense domain.Expense
	err := s.db.QueryRowContext(ctx, `
		SELECT id, amount, reason, shift_id, section, created_at, created_by
		FROM expenses WHERE id = $1
	`, id).Scan(&expense.ID, &expense.Amount, &expense.Reason, &expense.ShiftID,
		&expense.Section, &expense.CreatedAt, &expense.CreatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &expense, nil
}

func (s *Store) ListExpensesByShift(ctx context.Context, shiftID string) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, reason, shift_id, section, created_at, created_by
		FROM expenses
		WHERE shift_id = $1
		ORDER BY created_at ASC, id ASC
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 16)
	for rows.Next() {
		var expense domain.Expense
		if err := rows.Scan(&expense.ID, &expense.Amount, &expense.Reason, &expense.ShiftID,
			&expense.Section, &expense.CreatedAt, &expense.CreatedBy); err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SaveExternalMoney(ctx context.Context, entry domain.ExternalMoney) (*domain.ExternalMoney, error) {
	if entry.ShiftID == "" || !entry.Section.Valid() || !entry.Amount.IsPositive() {
		return nil, store.ErrInvalid
	}
	if entry.ID == "" {
		entry.ID = xid.New("ext")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO external_money (id, amount, reason, shift_id, section, created_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET amount = EXCLUDED.amount, reason = EXCLUDED.reason
	`, entry.ID, entry.Amount, entry.Reason, entry.ShiftID, entry.Section,
		entry.CreatedAt, entry.CreatedBy)
	if err != nil {
		return nil, err
	}
	saved := entry
	return &saved, nil
}

func (s *Store) GetExternalMoney(ctx context.Context, id string) (*domain.ExternalMoney, error) {
	var entry domain.ExternalMoney
	err := s.db.QueryRowContext(ctx, `
		SELECT id, amount, reason, shift_id, section, created_at, created_by
		FROM external_money WHERE id = $1
	`, id).Scan(&entry.ID, &entry.Amount, &entry.Reason, &entry.ShiftID,
		&entry.Section, &entry.CreatedAt, &entry.CreatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (s *Store) ListExternalMoneyByShift(ctx context.Context, shiftID string) ([]domain.ExternalMoney, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, reason, shift_id, section, created_at, created_by
		FROM external_money
		WHERE shift_id = $1
		ORDER BY created_at ASC, id ASC
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.ExternalMoney, 0, 8)
	for rows.Next() {
		var entry domain.ExternalMoney
		if err := rows.Scan(&entry.ID, &entry.Amount, &entry.Reason, &entry.ShiftID,
			&entry.Section, &entry.CreatedAt, &entry.CreatedBy); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) DeleteExternalMoney(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM external_money WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SaveSupply(ctx context.Context, supply domain.Supply) (*domain.Supply, error) {
	if !supply.Section.Valid() || len(supply.Items) == 0 || supply.TotalCost.IsNegative() {
		return nil, store.ErrInvalid
	}
	if supply.ID == "" {
		supply.ID = xid.New("sup")
	}
	if supply.CreatedAt.IsZero() {
		supply.CreatedAt = time.Now().UTC()
	}
	itemsJSON, err := json.Marshal(supply.Items)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO supplies (id, section, items, total_cost, shift_id, created_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING
	`, supply.ID, supply.Section, itemsJSON, supply.TotalCost,
		nullString(supply.ShiftID), supply.CreatedAt, supply.CreatedBy)
	if err != nil {
		return nil, err
	}
	saved := supply
	return &saved, nil
}

func (s *Store) ListSupplies(ctx context.Context, section domain.Section) ([]domain.Supply, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, section, items, total_cost, shift_id, created_at, created_by
		FROM supplies
		WHERE ($1 = '' OR section = $1)
		ORDER BY created_at ASC, id ASC
	`, string(section))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	supplies := make([]domain.Supply, 0, 16)
	for rows.Next() {
		var supply domain.Supply
		var itemsRaw []byte
		var shiftID sql.NullString
		if err := rows.Scan(&supply.ID, &supply.Section, &itemsRaw, &supply.TotalCost,
			&shiftID, &supply.CreatedAt, &supply.CreatedBy); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(itemsRaw, &supply.Items); err != nil {
			return nil, err
		}
		supply.ShiftID = shiftID.String
		supplies = append(supplies, supply)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return supplies, nil
}

func (s *Store) GetSupplementDebt(ctx context.Context) (*domain.SupplementDebt, error) {
	var debt domain.SupplementDebt
	var lastUpdated sql.NullTime
	var updatedBy sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT amount, last_updated, updated_by FROM supplement_debt WHERE id = 1
	`).Scan(&debt.Amount, &lastUpdated, &updatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The singleton row is seeded lazily.
			return &domain.SupplementDebt{Amount: decimal.Zero}, nil
		}
		return nil, err
	}
	if lastUpdated.Valid {
		debt.LastUpdated = lastUpdated.Time.UTC()
	}
	debt.UpdatedBy = updatedBy.String
	return &debt, nil
}

func (s *Store) ApplySupplementDebtTransaction(ctx context.Context, dtx domain.SupplementDebtTransaction) (*domain.SupplementDebt, error) {
	if !dtx.Amount.IsPositive() {
		return nil, store.ErrInvalid
	}
	if dtx.Type != domain.DebtTransactionDebt && dtx.Type != domain.DebtTransactionPayment {
		return nil, store.ErrInvalid
	}
	if dtx.ID == "" {
		dtx.ID = xid.New("sdt")
	}
	if dtx.CreatedAt.IsZero() {
		dtx.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO supplement_debt (id, amount, last_updated, updated_by)
		VALUES (1, 0, now(), '')
		ON CONFLICT (id) DO NOTHING
	`); err != nil {
		return nil, err
	}

	var balance decimal.Decimal
	if err := tx.QueryRowContext(ctx, `
		SELECT amount FROM supplement_debt WHERE id = 1 FOR UPDATE
	`).Scan(&balance); err != nil {
		return nil, err
	}

	if dtx.Type == domain.DebtTransactionDebt {
		balance = balance.Add(dtx.Amount)
	} else {
		balance = balance.Sub(dtx.Amount)
		if balance.IsNegative() {
			balance = decimal.Zero
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE supplement_debt SET amount = $1, last_updated = $2, updated_by = $3 WHERE id = 1
	`, balance, dtx.CreatedAt, dtx.CreatedBy); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO supplement_debt_transactions (id, type, amount, note, created_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, dtx.ID, dtx.Type, dtx.Amount, dtx.Note, dtx.CreatedAt, dtx.CreatedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &domain.SupplementDebt{Amount: balance, LastUpdated: dtx.CreatedAt, UpdatedBy: dtx.CreatedBy}, nil
}

func (s *Store) ListSupplementDebtTransactions(ctx context.Context, limit int) ([]domain.SupplementDebtTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, amount, note, created_at, created_by
		FROM supplement_debt_transactions
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.SupplementDebtTransaction, 0, limit)
	for rows.Next() {
		var dtx domain.SupplementDebtTransaction
		if err := rows.Scan(&dtx.ID, &dtx.Type, &dtx.Amount, &dtx.Note, &dtx.CreatedAt, &dtx.CreatedBy); err != nil {
			return nil, err
		}
		transactions = append(transactions, dtx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (s *Store) AppendAdminLog(ctx context.Context, entry domain.AdminLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("log")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_logs (id, action_type, entity, details, section, actor, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING
	`, entry.ID, entry.ActionType, entry.Entity, entry.Details, string(entry.Section),
		entry.Actor, entry.CreatedAt)
	return err
}

func (s *Store) ListAdminLogs(ctx context.Context, filter store.AdminLogFilter) ([]domain.AdminLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action_type, entity, details, section, actor, created_at
		FROM admin_logs
		WHERE ($1 = '' OR section = $1)
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, string(filter.Section), nullZeroTime(filter.From), nullZeroTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AdminLog, 0, limit)
	for rows.Next() {
		var entry domain.AdminLog
		var section string
		if err := rows.Scan(&entry.ID, &entry.ActionType, &entry.Entity, &entry.Details,
			&section, &entry.Actor, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Section = domain.Section(section)
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) ArchivePeriod(ctx context.Context, archive domain.MonthlyArchive) (*domain.MonthlyArchive, error) {
	if !archive.Section.Valid() {
		return nil, store.ErrInvalid
	}
	if archive.ID == "" {
		archive.ID = xid.New("arc")
	}
	if archive.ArchivedAt.IsZero() {
		archive.ArchivedAt = time.Now().UTC()
	}
	soldJSON, err := json.Marshal(archive.ItemsSold)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO monthly_archives (id, section, month, year, revenue, cost, profit, shift_count, items_sold, archived_at, archived_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, archive.ID, archive.Section, int(archive.Month), archive.Year, archive.Revenue,
		archive.Cost, archive.Profit, archive.ShiftCount, soldJSON, archive.ArchivedAt, archive.ArchivedBy); err != nil {
		return nil, err
	}

	// Purge in the same transaction: the archive row and the emptied period
	// become visible together.
	for _, table := range []string{"shifts", "customer_purchases", "expenses", "external_money", "supplies"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE section = $1`, archive.Section); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	saved := archive
	return &saved, nil
}

func (s *Store) ListArchives(ctx context.Context, section domain.Section) ([]domain.MonthlyArchive, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, section, month, year, revenue, cost, profit, shift_count, items_sold, archived_at, archived_by
		FROM monthly_archives
		WHERE ($1 = '' OR section = $1)
		ORDER BY archived_at DESC, id DESC
	`, string(section))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	archives := make([]domain.MonthlyArchive, 0, 12)
	for rows.Next() {
		var archive domain.MonthlyArchive
		var month int
		var soldRaw []byte
		if err := rows.Scan(&archive.ID, &archive.Section, &month, &archive.Year,
			&archive.Revenue, &archive.Cost, &archive.Profit, &archive.ShiftCount,
			&soldRaw, &archive.ArchivedAt, &archive.ArchivedBy); err != nil {
			return nil, err
		}
		archive.Month = time.Month(month)
		if err := json.Unmarshal(soldRaw, &archive.ItemsSold); err != nil {
			return nil, err
		}
		archives = append(archives, archive)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return archives, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalid
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,true,$4)
	`, user.Username, user.Password, user.Role, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(
		&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShift(row rowScanner) (*domain.Shift, error) {
	var shift domain.Shift
	var salesRaw []byte
	var endTime sql.NullTime
	var finalCash decimal.NullDecimal
	var inventoryRaw []byte
	var discrepanciesRaw []byte
	var closeReason sql.NullString
	var validation sql.NullString

	if err := row.Scan(&shift.ID, &shift.Section, &shift.Operator, &shift.Status, &salesRaw,
		&shift.TotalAmount, &shift.SupplyCost, &shift.StartTime, &endTime, &finalCash,
		&inventoryRaw, &discrepanciesRaw, &closeReason, &validation); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(salesRaw, &shift.Sales); err != nil {
		return nil, err
	}
	shift.StartTime = shift.StartTime.UTC()
	if endTime.Valid {
		at := endTime.Time.UTC()
		shift.EndTime = &at
	}
	if finalCash.Valid {
		cash := finalCash.Decimal
		shift.FinalCash = &cash
	}
	if len(inventoryRaw) > 0 {
		if err := json.Unmarshal(inventoryRaw, &shift.FinalInventory); err != nil {
			return nil, err
		}
	}
	if len(discrepanciesRaw) > 0 {
		if err := json.Unmarshal(discrepanciesRaw, &shift.Discrepancies); err != nil {
			return nil, err
		}
	}
	shift.CloseReason = closeReason.String
	shift.ValidationStatus = domain.ValidationStatus(validation.String)
	return &shift, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullString(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullZeroTime(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val
}

func nullDecimal(val *decimal.Decimal) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullBytes(val []byte) any {
	if len(val) == 0 {
		return nil
	}
	return val
}
