package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"duakasir/backend/internal/domain"
	"duakasir/backend/internal/store"
)

// ResetPeriod closes out a section's accounting period: it aggregates every
// shift since the last reset into one MonthlyArchive and purges the period's
// transactional records in the same store operation. Items, categories,
// customers and the other section are untouched. An active shift blocks the
// reset.
func (s *Service) ResetPeriod(ctx context.Context, section domain.Section) (*domain.MonthlyArchive, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !section.Valid() {
		return nil, store.ErrInvalid
	}

	if _, err := s.repo.GetActiveShift(ctx, section); err == nil {
		return nil, fmt.Errorf("close the active shift before resetting: %w", store.ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	shifts, err := s.repo.ListShifts(ctx, section)
	if err != nil {
		return nil, err
	}

	revenue := decimal.Zero
	cost := decimal.Zero
	soldByItem := make(map[string]*domain.ArchiveItemTotal)
	for _, shift := range shifts {
		revenue = revenue.Add(shift.TotalAmount)
		cost = cost.Add(shift.SupplyCost)

		expenses, err := s.repo.ListExpensesByShift(ctx, shift.ID)
		if err != nil {
			return nil, err
		}
		for _, expense := range expenses {
			cost = cost.Add(expense.Amount)
		}

		for _, sale := range shift.Sales {
			total, ok := soldByItem[sale.ItemID]
			if !ok {
				total = &domain.ArchiveItemTotal{ItemID: sale.ItemID, ItemName: sale.ItemName, Revenue: decimal.Zero}
				soldByItem[sale.ItemID] = total
			}
			total.Quantity += sale.Quantity
			total.Revenue = total.Revenue.Add(sale.UnitPrice.Mul(decimal.NewFromInt(int64(sale.Quantity))))
		}
	}

	// Supplies taken outside any shift carry no SupplyCost on a shift row,
	// so they are added here.
	supplies, err := s.repo.ListSupplies(ctx, section)
	if err != nil {
		return nil, err
	}
	for _, supply := range supplies {
		if supply.ShiftID == "" {
			cost = cost.Add(supply.TotalCost)
		}
	}

	itemsSold := make([]domain.ArchiveItemTotal, 0, len(soldByItem))
	for _, total := range soldByItem {
		itemsSold = append(itemsSold, *total)
	}
	sort.Slice(itemsSold, func(i, j int) bool { return itemsSold[i].ItemName < itemsSold[j].ItemName })

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system"}
	}
	now := time.Now().UTC()
	archive, err := s.repo.ArchivePeriod(ctx, domain.MonthlyArchive{
		Section:    section,
		Month:      now.Month(),
		Year:       now.Year(),
		Revenue:    revenue,
		Cost:       cost,
		Profit:     revenue.Sub(cost),
		ShiftCount: len(shifts),
		ItemsSold:  itemsSold,
		ArchivedAt: now,
		ArchivedBy: actor.Username,
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, section, "period_reset", "archive", fmt.Sprintf(
		"id=%s,shifts=%d,revenue=%s", archive.ID, archive.ShiftCount, archive.Revenue.StringFixed(2)))
	return archive, nil
}

func (s *Service) ListArchives(ctx context.Context, section domain.Section) ([]domain.MonthlyArchive, error) {
	return s.repo.ListArchives(ctx, section)
}
