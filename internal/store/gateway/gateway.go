// Package gateway fronts the central store with a local fallback. Operations
// go to the remote repository first; the first infrastructure failure flips a
// sticky degraded flag and every subsequent operation is served by the local
// store until the process restarts. Domain rejections (store sentinels) pass
// through untouched and never trigger the flip.
package gateway

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"duakasir/backend/internal/bus"
	"duakasir/backend/internal/domain"
	"duakasir/backend/internal/store"
)

const (
	ModeOnline   = "online"
	ModeDegraded = "degraded"
)

type Gateway struct {
	remote store.Repository
	local  store.Repository
	events *bus.Bus
	log    *logrus.Logger

	// standalone is set when remote and local are the same store; mirroring
	// would double-apply writes, stock deltas in particular.
	standalone bool
	degraded   atomic.Bool
}

func New(remote store.Repository, local store.Repository, events *bus.Bus, log *logrus.Logger) *Gateway {
	return &Gateway{
		remote:     remote,
		local:      local,
		events:     events,
		log:        log,
		standalone: remote == local,
	}
}

// Degraded reports whether the gateway has fallen back to the local store.
func (g *Gateway) Degraded() bool {
	return g.degraded.Load()
}

func (g *Gateway) Mode() string {
	if g.degraded.Load() {
		return ModeDegraded
	}
	return ModeOnline
}

func (g *Gateway) degrade(op string, err error) {
	if g.degraded.CompareAndSwap(false, true) {
		g.log.WithError(err).WithField("op", op).
			Warn("central store unreachable, switching to local store")
	}
}

// call runs op against the remote first. Infrastructure failures degrade the
// gateway and replay op against the local store; sentinel rejections are
// returned as-is.
func call[T any](g *Gateway, op string, remote func(store.Repository) (T, error)) (T, error) {
	if g.degraded.Load() {
		return remote(g.local)
	}
	out, err := remote(g.remote)
	if err != nil && !store.IsDomainErr(err) {
		g.degrade(op, err)
		return remote(g.local)
	}
	return out, err
}

func callErr(g *Gateway, op string, remote func(store.Repository) error) error {
	_, err := call(g, op, func(r store.Repository) (struct{}, error) {
		return struct{}{}, remote(r)
	})
	return err
}

// mirror replays a successful remote write against the local store so the
// working set survives a later degrade. Failures are logged and swallowed.
func mirror(g *Gateway, op string, fn func(store.Repository) error) {
	if g.standalone || g.degraded.Load() {
		return
	}
	if err := fn(g.local); err != nil {
		g.log.WithError(err).WithField("op", op).Debug("local mirror failed")
	}
}

func (g *Gateway) publish(eventType string, section domain.Section, payload any) {
	if g.events == nil {
		return
	}
	g.events.Publish(eventType, section, payload)
}

func (g *Gateway) SaveItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	saved, err := call(g, "SaveItem", func(r store.Repository) (*domain.Item, error) {
		return r.SaveItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	mirror(g, "SaveItem", func(r store.Repository) error {
		_, err := r.SaveItem(ctx, *saved)
		return err
	})
	g.publish(bus.EventItemChanged, saved.Section, saved)
	return saved, nil
}

func (g *Gateway) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	return call(g, "GetItem", func(r store.Repository) (*domain.Item, error) {
		return r.GetItem(ctx, id)
	})
}

func (g *Gateway) ListItems(ctx context.Context, filter store.ItemFilter) ([]domain.Item, error) {
	return call(g, "ListItems", func(r store.Repository) ([]domain.Item, error) {
		return r.ListItems(ctx, filter)
	})
}

func (g *Gateway) DeleteItem(ctx context.Context, id string) error {
	if err := callErr(g, "DeleteItem", func(r store.Repository) error {
		return r.DeleteItem(ctx, id)
	}); err != nil {
		return err
	}
	mirror(g, "DeleteItem", func(r store.Repository) error {
		err := r.DeleteItem(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	g.publish(bus.EventItemChanged, "", map[string]string{"id": id, "deleted": "true"})
	return nil
}

func (g *Gateway) AdjustItemStock(ctx context.Context, section domain.Section, deltas []store.StockDelta) error {
	if err := callErr(g, "AdjustItemStock", func(r store.Repository) error {
		return r.AdjustItemStock(ctx, section, deltas)
	}); err != nil {
		return err
	}
	mirror(g, "AdjustItemStock", func(r store.Repository) error {
		return r.AdjustItemStock(ctx, section, deltas)
	})
	g.publish(bus.EventItemChanged, section, deltas)
	return nil
}

func (g *Gateway) SaveCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	saved, err := call(g, "SaveCategory", func(r store.Repository) (*domain.Category, error) {
		return r.SaveCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	mirror(g, "SaveCategory", func(r store.Repository) error {
		_, err := r.SaveCategory(ctx, *saved)
		return err
	})
	return saved, nil
}

func (g *Gateway) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return call(g, "GetCategory", func(r store.Repository) (*domain.Category, error) {
		return r.GetCategory(ctx, id)
	})
}

func (g *Gateway) ListCategories(ctx context.Context, section domain.Section) ([]domain.Category, error) {
	return call(g, "ListCategories", func(r store.Repository) ([]domain.Category, error) {
		return r.ListCategories(ctx, section)
	})
}

func (g *Gateway) DeleteCategory(ctx context.Context, id string) error {
	if err := callErr(g, "DeleteCategory", func(r store.Repository) error {
		return r.DeleteCategory(ctx, id)
	}); err != nil {
		return err
	}
	mirror(g, "DeleteCategory", func(r store.Repository) error {
		err := r.DeleteCategory(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	return nil
}

func (g *Gateway) SaveCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	saved, err := call(g, "SaveCustomer", func(r store.Repository) (*domain.Customer, error) {
		return r.SaveCustomer(ctx, customer)
	})
	if err != nil {
		return nil, err
	}
	mirror(g, "SaveCustomer", func(r store.Repository) error {
		_, err := r.SaveCustomer(ctx, *saved)
		return err
	})
	g.publish(bus.EventCustomerChanged, saved.Section, saved)
	return saved, nil
}

func (g *Gateway) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return call(g, "GetCustomer", func(r store.Repository) (*domain.Customer, error) {
		return r.GetCustomer(ctx, id)
	})
}

func (g *Gateway) ListCustomers(ctx context.Context, section domain.Section) ([]domain.Customer, error) {
	return call(g, "ListCustomers", func(r store.Repository) ([]domain.Customer, error) {
		return r.ListCustomers(ctx, section)
	})
}

func (g *Gateway) DeleteCustomer(ctx context.Context, id string) error {
	if err := callErr(g, "DeleteCustomer", func(r store.Repository) error {
		return r.DeleteCustomer(ctx, id)
	}); err != nil {
		return err
	}
	mirror(g, "DeleteCustomer", func(r store.Repository) error {
		err := r.DeleteCustomer(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	g.publish(bus.EventCustomerChanged, "", map[string]string{"id": id, "deleted": "true"})
	return nil
}

func (g *Gateway) SavePurchase(ctx context.Context, purchase domain.CustomerPurchase) (*domain.CustomerPurchase, error) {
	saved, err := call(g, "SavePurchase", func(r store.Repository) (*domain.CustomerPurchase, error) {
		return r.SavePurchase(ctx, purchase)
	})
	if err != nil {
		return nil, err
	}
	mirror(g, "SavePurchase", func(r store.Repository) error {
		_, err := r.SavePurchase(ctx, *saved)
		return err
	})
	g.publish(bus.EventDebtChanged, saved.Section, saved)
	return saved, nil
}

func (g *Gateway) GetPurchase(ctx context.Context, id string) (*domain.CustomerPurchase, error) {
	return call(g, "GetPurchase", func(r store.Repository) (*domain.CustomerPurchase, error) {
		return r.GetPurchase(ctx, id)
	})
}

func (g *Gateway) ListPurchases(ctx context.Context, filter store.PurchaseFilter) ([]domain.CustomerPurchase, error) {
	return call(g, "ListPurchases", func(r store.Repository) ([]domain.CustomerPurchase, error) {
		return r.ListPurchases(ctx, filter)
	})
}

func (g *Gateway) CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	saved, err := call(g, "CreateShift", func(r store.Repository) (*domain.Shift, error) {
		return r.CreateShift(ctx, shift)
	})
	if err != nil {
		return nil, err
	}
	mirror(g, "CreateShift", func(r store.Repository) error {
		_, err := r.CreateShift(ctx, *saved)
		if errors.Is(err, store.ErrShiftActive) {
			return nil
		}
		return err
	})
	g.publish(bus.EventShiftChanged, saved.Section, saved)
	return saved, nil
}

func (g *Gateway) GetShift(ctx context.Context, id string) (*domain.Shift, error) {
	return call(g, "GetShift", func(r store.Repository) (*domain.Shift, error) {
		return r.GetShift(ctx, id)
	})
}

func (g *Gateway) GetActiveShift(ctx context.Context, section domain.Section) (*domain.Shift, error) {
	return call(g, "GetActiveShift", func(r store.Repository) (*domain.Shift, error) {
		return r.GetActiveShift(ctx, section)
	})
}

func (g *Gateway) ApplyShiftDelta(ctx context.Context, shiftID string, delta store.ShiftDelta) (*domain.Shift, error) {
	saved, err := call(g, "ApplyShiftDelta", func(r store.Repository) (*domain.Shift, error) {
		return r.ApplyShiftDelta(ctx, shiftID, delta)
	})
	if err != nil {
		return nil, err
	}
	mirror(g, "ApplyShiftDelta", func(r store.Repository) error {
		_, err := r.ApplyShiftDelta(ctx, shiftID, delta)
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) {
			return nil
		}
		return err
	})
	g.publish(bus.EventShiftChanged, saved.Section, saved)
	return saved, nil
}

func (g *Gateway) CloseShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	saved, err := call(g, "CloseShift", func(r store.Repository) (*domain.Shift, error) {
		return r.CloseShift(ctx, shift)
	})
	if err != nil {
		return nil, err
	}
	mirror(g, "CloseShift", func(r store.Repository) error {
		_, err := r.CloseShift(ctx, *saved)
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) {
			return nil
		}
		return err
	})
	g.publish(bus.EventShiftChanged, saved.Section, saved)
	return saved, nil
}

func (g *Gateway) ListShifts(ctx context.Context, section domain.Section) ([]domain.Shift, error) {
	return call(g, "ListShifts", func(r store.Repository) ([]domain.Shift, error) {
		return r.ListShifts(ctx, section)
	})
}

func (g *Gateway) SaveExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	saved, err := call(g, "SaveExpense", func(r store.Repository) (*domain.Expense, error) {
		return r.SaveExpense(ctx, expense)
	})
	if err != nil {
		return nil, err
	}
	mirror(g, "SaveExpense", func(r store.Repository) error {
		_, err := r.SaveExpense(ctx, *saved)
		return err
	})
	g.publish(bus.EventExpenseAdded, saved.Section, saved)
	return saved, nil
}

func (g *Gateway) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	return call(g, "GetExpense", func(r store.Repository) (*domain.Expense, error) {
		return r.GetExpense(ctx, id)
	})
}

func (g *Gateway) ListExpensesByShift(ctx context.Context, shiftID string) ([]domain.Expense, error) {
	return call(g, "ListExpensesByShift", func(r store.Repository) ([]domain.Expense, error) {
		return r.ListExpensesByShift(ctx, shiftID)
	})
}

func (g *Gateway) DeleteExpense(ctx context.Context, id string) error {
	if err := callErr(g, "DeleteExpense", func(r store.Repository) error {
		return r.DeleteExpense(ctx, id)
	}); err != nil {
		return err
	}
	mirror(g, "DeleteExpense", func(r store.Repository) error {
		err := r.DeleteExpense(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	g.publish(bus.EventExpenseAdded, "", map[string]string{"id": id, "deleted": "true"})
	return nil
}

func (g *Gateway) SaveExternalMoney(ctx context.Context, entry domain.ExternalMoney) (*domain.ExternalMoney, error) {
	saved, err := call(g, "SaveExternalMoney", func(r store.Repository) (*domain.ExternalMoney, error) {
		return r.SaveExternalMoney(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	mirror(g, "SaveExternalMoney", func(r store.Repository) error {
		_, err := r.SaveExternalMoney(ctx, *saved)
		return err
	})
	g.publish(bus.EventShiftChanged, saved.Section, saved)
	return saved, nil
}

func (g *Gateway) GetExternalMoney(ctx context.Context, id string) (*domain.ExternalMoney, error) {
	return call(g, "GetExternalMoney", func(r store.Repository) (*domain.ExternalMoney, error) {
		return r.GetExternalMoney(ctx, id)
	})
}

func (g *Gateway) ListExternalMoneyByShift(ctx context.Context, shiftID string) ([]domain.ExternalMoney, error) {
	return call(g, "ListExternalMoneyByShift", func(r store.Repository) ([]domain.ExternalMoney, error) {
		return r.ListExternalMoneyByShift(ctx, shiftID)
	})
}

func (g *Gateway) DeleteExternalMoney(ctx context.Context, id string) error {
	if err := callErr(g, "DeleteExternalMoney", func(r store.Repository) error {
		return r.DeleteExternalMoney(ctx, id)
	}); err != nil {
		return err
	}
	mirror(g, "DeleteExternalMoney", func(r store.Repository) error {
		err := r.DeleteExternalMoney(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	return nil
}

func (g *Gateway) SaveSupply(ctx context.Context, supply domain.Supply) (*domain.Supply, error) {
	saved, err := call(g, "SaveSupply", func(r store.Repository) (*domain.Supply, error) {
		return r.SaveSupply(ctx, supply)
	})
	if err != nil {
		return nil, err
	}
	mirror(g, "SaveSupply", func(r store.Repository) error {
		_, err := r.SaveSupply(ctx, *saved)
		return err
	})
	g.publish(bus.EventSupplyAdded, saved.Section, saved)
	return saved, nil
}

func (g *Gateway) ListSupplies(ctx context.Context, section domain.Section) ([]domain.Supply, error) {
	return call(g, "ListSupplies", func(r store.Repository) ([]domain.Supply, error) {
		return r.ListSupplies(ctx, section)
	})
}

func (g *Gateway) GetSupplementDebt(ctx context.Context) (*domain.SupplementDebt, error) {
	return call(g, "GetSupplementDebt", func(r store.Repository) (*domain.SupplementDebt, error) {
		return r.GetSupplementDebt(ctx)
	})
}

func (g *Gateway) ApplySupplementDebtTransaction(ctx context.Context, tx domain.SupplementDebtTransaction) (*domain.SupplementDebt, error) {
	balance, err := call(g, "ApplySupplementDebtTransaction", func(r store.Repository) (*domain.SupplementDebt, error) {
		return r.ApplySupplementDebtTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	mirror(g, "ApplySupplementDebtTransaction", func(r store.Repository) error {
		_, err := r.ApplySupplementDebtTransaction(ctx, tx)
		return err
	})
	g.publish(bus.EventDebtChanged, domain.SectionSupplement, balance)
	return balance, nil
}

func (g *Gateway) ListSupplementDebtTransactions(ctx context.Context, limit int) ([]domain.SupplementDebtTransaction, error) {
	return call(g, "ListSupplementDebtTransactions", func(r store.Repository) ([]domain.SupplementDebtTransaction, error) {
		return r.ListSupplementDebtTransactions(ctx, limit)
	})
}

func (g *Gateway) AppendAdminLog(ctx context.Context, entry domain.AdminLog) error {
	if err := callErr(g, "AppendAdminLog", func(r store.Repository) error {
		return r.AppendAdminLog(ctx, entry)
	}); err != nil {
		return err
	}
	mirror(g, "AppendAdminLog", func(r store.Repository) error {
		return r.AppendAdminLog(ctx, entry)
	})
	g.publish(bus.EventAdminLogAdded, entry.Section, entry)
	return nil
}

func (g *Gateway) ListAdminLogs(ctx context.Context, filter store.AdminLogFilter) ([]domain.AdminLog, error) {
	return call(g, "ListAdminLogs", func(r store.Repository) ([]domain.AdminLog, error) {
		return r.ListAdminLogs(ctx, filter)
	})
}

func (g *Gateway) ArchivePeriod(ctx context.Context, archive domain.MonthlyArchive) (*domain.MonthlyArchive, error) {
	saved, err := call(g, "ArchivePeriod", func(r store.Repository) (*domain.MonthlyArchive, error) {
		return r.ArchivePeriod(ctx, archive)
	})
	if err != nil {
		return nil, err
	}
	mirror(g, "ArchivePeriod", func(r store.Repository) error {
		_, err := r.ArchivePeriod(ctx, *saved)
		return err
	})
	g.publish(bus.EventShiftChanged, saved.Section, map[string]string{"archive_id": saved.ID})
	return saved, nil
}

func (g *Gateway) ListArchives(ctx context.Context, section domain.Section) ([]domain.MonthlyArchive, error) {
	return call(g, "ListArchives", func(r store.Repository) ([]domain.MonthlyArchive, error) {
		return r.ListArchives(ctx, section)
	})
}

func (g *Gateway) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if err := callErr(g, "CreateUser", func(r store.Repository) error {
		return r.CreateUser(ctx, user)
	}); err != nil {
		return err
	}
	mirror(g, "CreateUser", func(r store.Repository) error {
		err := r.CreateUser(ctx, user)
		if errors.Is(err, store.ErrConflict) {
			return nil
		}
		return err
	})
	return nil
}

func (g *Gateway) GetUser(ctx context.Context, username string) (*domain.UserAccount, error) {
	return call(g, "GetUser", func(r store.Repository) (*domain.UserAccount, error) {
		return r.GetUser(ctx, username)
	})
}

func (g *Gateway) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	return call(g, "ListUsers", func(r store.Repository) ([]domain.UserAccount, error) {
		return r.ListUsers(ctx)
	})
}
