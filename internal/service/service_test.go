package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"duakasir/backend/internal/domain"
	"duakasir/backend/internal/store"
	"duakasir/backend/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.New()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(repo, log), repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "kasir-a", Role: "cashier"})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedItem(t *testing.T, repo *memory.Store, name string, sell string, cost string, amount int, section domain.Section) domain.Item {
	t.Helper()
	item, err := repo.SaveItem(context.Background(), domain.Item{
		Name:          name,
		SellPrice:     dec(sell),
		CostPrice:     dec(cost),
		CurrentAmount: amount,
		Section:       section,
	})
	if err != nil {
		t.Fatalf("seed item %s: %v", name, err)
	}
	return *item
}

func seedCustomer(t *testing.T, repo *memory.Store, name string, section domain.Section) domain.Customer {
	t.Helper()
	customer, err := repo.SaveCustomer(context.Background(), domain.Customer{Name: name, Section: section})
	if err != nil {
		t.Fatalf("seed customer %s: %v", name, err)
	}
	return *customer
}

func TestStartShiftRejectsSecondActive(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	if _, err := svc.StartShift(ctx, domain.SectionStore, "Kasir A"); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	_, err := svc.StartShift(ctx, domain.SectionStore, "Kasir B")
	if !errors.Is(err, store.ErrShiftActive) {
		t.Fatalf("expected ErrShiftActive, got %v", err)
	}

	// The other section is independent.
	if _, err := svc.StartShift(ctx, domain.SectionSupplement, "Kasir C"); err != nil {
		t.Fatalf("supplement start failed: %v", err)
	}
}

func TestRecordSaleRequiresActiveShift(t *testing.T) {
	svc, repo := newTestService()
	item := seedItem(t, repo, "Rice 1kg", "12.50", "10.00", 20, domain.SectionStore)

	_, err := svc.RecordSale(cashierCtx(), domain.RecordSaleRequest{
		Section: domain.SectionStore,
		Lines:   []domain.SaleLineRequest{{ItemID: item.ID, Quantity: 1}},
		IsPaid:  true,
	})
	if !errors.Is(err, store.ErrNoActiveShift) {
		t.Fatalf("expected ErrNoActiveShift, got %v", err)
	}
}

func TestPaidSaleMovesDrawerAndStock(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()
	item := seedItem(t, repo, "Rice 1kg", "12.50", "10.00", 20, domain.SectionStore)

	if _, err := svc.StartShift(ctx, domain.SectionStore, "Kasir A"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	result, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		Section: domain.SectionStore,
		Lines:   []domain.SaleLineRequest{{ItemID: item.ID, Quantity: 3}},
		IsPaid:  true,
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if !result.Shift.TotalAmount.Equal(dec("37.50")) {
		t.Fatalf("expected drawer 37.50, got %s", result.Shift.TotalAmount)
	}
	if result.Purchase != nil {
		t.Fatalf("paid sale must not create a purchase")
	}

	saved, err := repo.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if saved.CurrentAmount != 17 {
		t.Fatalf("expected stock 17, got %d", saved.CurrentAmount)
	}
}

func TestConcurrentPaidSalesAllReachTheDrawer(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()
	item := seedItem(t, repo, "Rice 1kg", "10.00", "8.00", 500, domain.SectionStore)

	if _, err := svc.StartShift(ctx, domain.SectionStore, "Kasir A"); err != nil {
		t.Fatalf("start shift: %v", err)
	}

	const sales = 50
	var wg sync.WaitGroup
	errs := make(chan error, sales)
	for i := 0; i < sales; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
				Section: domain.SectionStore,
				Lines:   []domain.SaleLineRequest{{ItemID: item.ID, Quantity: 1}},
				IsPaid:  true,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent sale: %v", err)
		}
	}

	// Every sale's money and lines must survive the interleaving.
	shift, err := svc.GetActiveShift(ctx, domain.SectionStore)
	if err != nil {
		t.Fatalf("active shift: %v", err)
	}
	if !shift.TotalAmount.Equal(dec("500.00")) {
		t.Fatalf("expected drawer 500.00, got %s", shift.TotalAmount)
	}
	if len(shift.Sales) != sales {
		t.Fatalf("expected %d sale lines, got %d", sales, len(shift.Sales))
	}
	left, _ := repo.GetItem(ctx, item.ID)
	if left.CurrentAmount != 450 {
		t.Fatalf("expected stock 450, got %d", left.CurrentAmount)
	}
}

func TestSaleRejectedWhenAnyLineShort(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()
	plenty := seedItem(t, repo, "Sugar", "5.00", "4.00", 50, domain.SectionStore)
	scarce := seedItem(t, repo, "Coffee", "8.00", "6.00", 2, domain.SectionStore)

	if _, err := svc.StartShift(ctx, domain.SectionStore, "Kasir A"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	_, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		Section: domain.SectionStore,
		Lines: []domain.SaleLineRequest{
			{ItemID: plenty.ID, Quantity: 5},
			{ItemID: scarce.ID, Quantity: 3},
		},
		IsPaid: true,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// No line was applied.
	left, _ := repo.GetItem(ctx, plenty.ID)
	if left.CurrentAmount != 50 {
		t.Fatalf("expected stock 50 untouched, got %d", left.CurrentAmount)
	}
	shift, _ := svc.GetActiveShift(ctx, domain.SectionStore)
	if !shift.TotalAmount.IsZero() {
		t.Fatalf("drawer must stay zero after rejected sale, got %s", shift.TotalAmount)
	}
}

func TestCreditSaleCreatesPurchaseAndLeavesDrawer(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()
	item := seedItem(t, repo, "Rice 1kg", "10.00", "8.00", 20, domain.SectionStore)
	customer := seedCustomer(t, repo, "Budi", domain.SectionStore)

	if _, err := svc.StartShift(ctx, domain.SectionStore, "Kasir A"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	result, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		Section:    domain.SectionStore,
		Lines:      []domain.SaleLineRequest{{ItemID: item.ID, Quantity: 2}},
		IsPaid:     false,
		CustomerID: customer.ID,
	})
	if err != nil {
		t.Fatalf("credit sale: %v", err)
	}
	if result.Purchase == nil {
		t.Fatal("expected a customer purchase")
	}
	if !result.Purchase.TotalAmount.Equal(dec("20.00")) {
		t.Fatalf("expected purchase 20.00, got %s", result.Purchase.TotalAmount)
	}
	if !result.Shift.TotalAmount.IsZero() {
		t.Fatalf("credit sale must not move the drawer, got %s", result.Shift.TotalAmount)
	}

	// Stock still decremented.
	saved, _ := repo.GetItem(ctx, item.ID)
	if saved.CurrentAmount != 18 {
		t.Fatalf("expected stock 18, got %d", saved.CurrentAmount)
	}
}

func TestCreditSaleWithoutCustomerRejected(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()
	item := seedItem(t, repo, "Rice 1kg", "10.00", "8.00", 20, domain.SectionStore)

	if _, err := svc.StartShift(ctx, domain.SectionStore, "Kasir A"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	_, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		Section: domain.SectionStore,
		Lines:   []domain.SaleLineRequest{{ItemID: item.ID, Quantity: 1}},
		IsPaid:  false,
	})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestExternalMoneyMovesDrawerImmediately(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	if _, err := svc.StartShift(ctx, domain.SectionStore, "Kasir A"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	entry, err := svc.RecordExternalMoney(ctx, domain.CashEntryRequest{
		Section: domain.SectionStore,
		Amount:  dec("50.00"),
		Reason:  "change float",
	})
	if err != nil {
		t.Fatalf("record external money: %v", err)
	}

	shift, _ := svc.GetActiveShift(ctx, domain.SectionStore)
	if !shift.TotalAmount.Equal(dec("50.00")) {
		t.Fatalf("expected drawer 50.00, got %s", shift.TotalAmount)
	}

	if _, err := svc.EditExternalMoney(ctx, entry.ID, dec("30.00"), "corrected"); err != nil {
		t.Fatalf("edit external money: %v", err)
	}
	shift, _ = svc.GetActiveShift(ctx, domain.SectionStore)
	if !shift.TotalAmount.Equal(dec("30.00")) {
		t.Fatalf("expected drawer 30.00 after edit, got %s", shift.TotalAmount)
	}

	if err := svc.DeleteExternalMoney(ctx, entry.ID); err != nil {
		t.Fatalf("delete external money: %v", err)
	}
	shift, _ = svc.GetActiveShift(ctx, domain.SectionStore)
	if !shift.TotalAmount.IsZero() {
		t.Fatalf("expected drawer back to zero, got %s", shift.TotalAmount)
	}
}

func TestExpenseLeavesDrawerUntilClose(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	if _, err := svc.StartShift(ctx, domain.SectionStore, "Kasir A"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.RecordExternalMoney(ctx, domain.CashEntryRequest{
		Section: domain.SectionStore, Amount: dec("100.00"), Reason: "float",
	}); err != nil {
		t.Fatalf("external money: %v", err)
	}
	if _, err := svc.RecordExpense(ctx, domain.CashEntryRequest{
		Section: domain.SectionStore, Amount: dec("25.00"), Reason: "ice",
	}); err != nil {
		t.Fatalf("expense: %v", err)
	}

	shift, _ := svc.GetActiveShift(ctx, domain.SectionStore)
	if !shift.TotalAmount.Equal(dec("100.00")) {
		t.Fatalf("expense must not move the drawer, got %s", shift.TotalAmount)
	}

	// Close expects total minus expenses.
	_, preview, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		Section:   domain.SectionStore,
		FinalCash: dec("75.00"),
		DryRun:    true,
	})
	if err != nil {
		t.Fatalf("dry run close: %v", err)
	}
	if !preview.ExpectedCash.Equal(dec("75.00")) {
		t.Fatalf("expected cash 75.00, got %s", preview.ExpectedCash)
	}
	if preview.ValidationStatus != domain.ValidationBalanced {
		t.Fatalf("expected balanced preview, got %s (%v)", preview.ValidationStatus, preview.Discrepancies)
	}
}

func TestCloseShiftDiscrepancyRequiresReason(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()
	item := seedItem(t, repo, "Rice 1kg", "10.00", "8.00", 10, domain.SectionStore)

	if _, err := svc.StartShift(ctx, domain.SectionStore, "Kasir A"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		Section: domain.SectionStore,
		Lines:   []domain.SaleLineRequest{{ItemID: item.ID, Quantity: 2}},
		IsPaid:  true,
	}); err != nil {
		t.Fatalf("sale: %v", err)
	}

	// Declared cash short by 5, declared count off by one.
	req := domain.CloseShiftRequest{
		Section:        domain.SectionStore,
		FinalCash:      dec("15.00"),
		FinalInventory: map[string]int{item.ID: 7},
	}
	_, preview, err := svc.CloseShift(ctx, req)
	if !errors.Is(err, store.ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	if len(preview.Discrepancies) != 2 {
		t.Fatalf("expected 2 discrepancies, got %v", preview.Discrepancies)
	}

	// Nothing was committed.
	shift, activeErr := svc.GetActiveShift(ctx, domain.SectionStore)
	if activeErr != nil {
		t.Fatalf("shift must still be active: %v", activeErr)
	}
	if shift.Status != domain.ShiftStatusActive {
		t.Fatalf("expected active status, got %s", shift.Status)
	}

	req.Reason = "counting error during rush"
	closed, _, err := svc.CloseShift(ctx, req)
	if err != nil {
		t.Fatalf("close with reason: %v", err)
	}
	if closed.ValidationStatus != domain.ValidationDiscrepancy {
		t.Fatalf("expected discrepancy status, got %s", closed.ValidationStatus)
	}
	if closed.CloseReason == "" || closed.EndTime == nil || closed.FinalCash == nil {
		t.Fatal("closed shift missing reconciliation fields")
	}

	if _, err := svc.GetActiveShift(ctx, domain.SectionStore); !errors.Is(err, store.ErrNoActiveShift) {
		t.Fatalf("expected no active shift after close, got %v", err)
	}
}

func TestBalancedCloseCarriesNoReason(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	if _, err := svc.StartShift(ctx, domain.SectionStore, "Kasir A"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	closed, _, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		Section:   domain.SectionStore,
		FinalCash: decimal.Zero,
		Reason:    "just in case",
	})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.ValidationStatus != domain.ValidationBalanced {
		t.Fatalf("expected balanced close, got %s", closed.ValidationStatus)
	}
	if closed.CloseReason != "" {
		t.Fatalf("balanced close must not record a reason, got %q", closed.CloseReason)
	}
}

func TestCloseShiftDryRunCommitsNothing(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	if _, err := svc.StartShift(ctx, domain.SectionStore, "Kasir A"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	shift, preview, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		Section:   domain.SectionStore,
		FinalCash: dec("99.00"),
		DryRun:    true,
	})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if shift != nil {
		t.Fatal("dry run must not return a committed shift")
	}
	if preview.ValidationStatus != domain.ValidationDiscrepancy {
		t.Fatalf("expected discrepancy preview, got %s", preview.ValidationStatus)
	}
	if _, err := svc.GetActiveShift(ctx, domain.SectionStore); err != nil {
		t.Fatalf("shift must still be active after dry run: %v", err)
	}
}

func TestPayDebtAllocatesOldestFirst(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()
	item := seedItem(t, repo, "Rice 1kg", "5.00", "4.00", 100, domain.SectionStore)
	customer := seedCustomer(t, repo, "Budi", domain.SectionStore)

	if _, err := svc.StartShift(ctx, domain.SectionStore, "Kasir A"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	// Two credit sales: 10.00 then 15.00.
	first, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		Section: domain.SectionStore, IsPaid: false, CustomerID: customer.ID,
		Lines: []domain.SaleLineRequest{{ItemID: item.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("first credit sale: %v", err)
	}
	second, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		Section: domain.SectionStore, IsPaid: false, CustomerID: customer.ID,
		Lines: []domain.SaleLineRequest{{ItemID: item.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("second credit sale: %v", err)
	}

	result, err := svc.PayDebt(ctx, domain.PayDebtRequest{CustomerID: customer.ID, Amount: dec("12.00")})
	if err != nil {
		t.Fatalf("pay debt: %v", err)
	}
	if len(result.SettledIDs) != 1 || result.SettledIDs[0] != first.Purchase.ID {
		t.Fatalf("expected oldest purchase settled, got %v", result.SettledIDs)
	}
	if result.ReducedID != second.Purchase.ID {
		t.Fatalf("expected second purchase reduced, got %s", result.ReducedID)
	}
	if !result.RemainingDebt.Equal(dec("13.00")) {
		t.Fatalf("expected remaining 13.00, got %s", result.RemainingDebt)
	}

	// The payment landed in the drawer.
	shift, _ := svc.GetActiveShift(ctx, domain.SectionStore)
	if !shift.TotalAmount.Equal(dec("12.00")) {
		t.Fatalf("expected drawer 12.00, got %s", shift.TotalAmount)
	}

	// Overpaying the remaining debt is rejected outright.
	if _, err := svc.PayDebt(ctx, domain.PayDebtRequest{CustomerID: customer.ID, Amount: dec("25.00")}); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for overpayment, got %v", err)
	}

	// Settling the rest clears the ledger.
	final, err := svc.PayDebt(ctx, domain.PayDebtRequest{CustomerID: customer.ID, Amount: dec("13.00")})
	if err != nil {
		t.Fatalf("final payment: %v", err)
	}
	if !final.RemainingDebt.IsZero() {
		t.Fatalf("expected zero remaining, got %s", final.RemainingDebt)
	}
	debt, err := svc.CustomerDebt(ctx, customer.ID)
	if err != nil {
		t.Fatalf("customer debt: %v", err)
	}
	if !debt.Total.IsZero() || len(debt.Purchases) != 0 {
		t.Fatalf("expected settled ledger, got total %s with %d purchases", debt.Total, len(debt.Purchases))
	}
}

func TestPayDebtRequiresActiveShift(t *testing.T) {
	svc, repo := newTestService()
	customer := seedCustomer(t, repo, "Budi", domain.SectionStore)

	_, err := svc.PayDebt(cashierCtx(), domain.PayDebtRequest{CustomerID: customer.ID, Amount: dec("5.00")})
	if !errors.Is(err, store.ErrNoActiveShift) {
		t.Fatalf("expected ErrNoActiveShift, got %v", err)
	}
}

func TestSupplementDebtClampsAtZero(t *testing.T) {
	svc, _ := newTestService()
	ctx := cashierCtx()

	if _, err := svc.ApplyDebtTransaction(ctx, domain.DebtTransactionRequest{
		Type: domain.DebtTransactionDebt, Amount: dec("100.00"), Note: "initial stock",
	}); err != nil {
		t.Fatalf("debt: %v", err)
	}
	balance, err := svc.ApplyDebtTransaction(ctx, domain.DebtTransactionRequest{
		Type: domain.DebtTransactionPayment, Amount: dec("150.00"), Note: "overpay",
	})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if !balance.Amount.IsZero() {
		t.Fatalf("expected clamped zero balance, got %s", balance.Amount)
	}

	transactions, err := svc.ListDebtTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(transactions) != 2 {
		t.Fatalf("expected both transactions on the trail, got %d", len(transactions))
	}
}

func TestApplySupplyBumpsStockAndTracksCost(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()
	item := seedItem(t, repo, "Protein Bar", "3.00", "2.00", 5, domain.SectionSupplement)

	if _, err := svc.StartShift(ctx, domain.SectionSupplement, "Kasir B"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.ApplySupply(ctx, domain.SupplyRequest{
		Section:   domain.SectionSupplement,
		Items:     map[string]int{item.ID: 10},
		TotalCost: dec("20.00"),
	}); err != nil {
		t.Fatalf("apply supply: %v", err)
	}

	saved, _ := repo.GetItem(ctx, item.ID)
	if saved.CurrentAmount != 15 {
		t.Fatalf("expected stock 15, got %d", saved.CurrentAmount)
	}
	shift, _ := svc.GetActiveShift(ctx, domain.SectionSupplement)
	if !shift.SupplyCost.Equal(dec("20.00")) {
		t.Fatalf("expected supply cost 20.00, got %s", shift.SupplyCost)
	}
	if !shift.TotalAmount.IsZero() {
		t.Fatalf("supply must not touch the drawer, got %s", shift.TotalAmount)
	}
}

func TestResetPeriodArchivesAndPurges(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()
	item := seedItem(t, repo, "Rice 1kg", "10.00", "8.00", 50, domain.SectionStore)
	keepItem := seedItem(t, repo, "Protein Bar", "3.00", "2.00", 5, domain.SectionSupplement)
	customer := seedCustomer(t, repo, "Budi", domain.SectionStore)

	if _, err := svc.StartShift(ctx, domain.SectionStore, "Kasir A"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	if _, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		Section: domain.SectionStore, IsPaid: true,
		Lines: []domain.SaleLineRequest{{ItemID: item.ID, Quantity: 4}},
	}); err != nil {
		t.Fatalf("sale: %v", err)
	}

	// An active shift blocks the reset.
	if _, err := svc.ResetPeriod(adminCtx(), domain.SectionStore); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict with active shift, got %v", err)
	}

	if _, _, err := svc.CloseShift(ctx, domain.CloseShiftRequest{
		Section:   domain.SectionStore,
		FinalCash: dec("40.00"),
	}); err != nil {
		t.Fatalf("close shift: %v", err)
	}

	archive, err := svc.ResetPeriod(adminCtx(), domain.SectionStore)
	if err != nil {
		t.Fatalf("reset period: %v", err)
	}
	if !archive.Revenue.Equal(dec("40.00")) {
		t.Fatalf("expected revenue 40.00, got %s", archive.Revenue)
	}
	if archive.ShiftCount != 1 {
		t.Fatalf("expected 1 shift archived, got %d", archive.ShiftCount)
	}
	if len(archive.ItemsSold) != 1 || archive.ItemsSold[0].Quantity != 4 {
		t.Fatalf("unexpected items sold: %v", archive.ItemsSold)
	}

	// Transactional records are gone; master data survives.
	shifts, _ := svc.ListShifts(ctx, domain.SectionStore)
	if len(shifts) != 0 {
		t.Fatalf("expected shifts purged, got %d", len(shifts))
	}
	if _, err := repo.GetItem(ctx, item.ID); err != nil {
		t.Fatalf("item must survive the reset: %v", err)
	}
	if _, err := repo.GetCustomer(ctx, customer.ID); err != nil {
		t.Fatalf("customer must survive the reset: %v", err)
	}
	if _, err := repo.GetItem(ctx, keepItem.ID); err != nil {
		t.Fatalf("other section item must survive: %v", err)
	}
}

func TestResetPeriodRequiresAdmin(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.ResetPeriod(cashierCtx(), domain.SectionStore); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected role rejection, got %v", err)
	}
}

func TestSaleIsolatedBetweenSections(t *testing.T) {
	svc, repo := newTestService()
	ctx := cashierCtx()
	supplementItem := seedItem(t, repo, "Protein Bar", "3.00", "2.00", 5, domain.SectionSupplement)

	if _, err := svc.StartShift(ctx, domain.SectionStore, "Kasir A"); err != nil {
		t.Fatalf("start shift: %v", err)
	}
	// Selling a supplement item through the store section is invalid.
	_, err := svc.RecordSale(ctx, domain.RecordSaleRequest{
		Section: domain.SectionStore, IsPaid: true,
		Lines: []domain.SaleLineRequest{{ItemID: supplementItem.ID, Quantity: 1}},
	})
	if !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for cross-section sale, got %v", err)
	}
}
