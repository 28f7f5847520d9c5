package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"duakasir/backend/internal/domain"
	"duakasir/backend/internal/store"
	"duakasir/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service implements the ledger operations on top of a Repository. The
// repository is normally the persistence gateway, but tests hand it a memory
// store directly.
type Service struct {
	repo store.Repository
	log  *logrus.Logger
}

func New(repo store.Repository, log *logrus.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required: %w", store.ErrConflict)
	}
	return nil
}

// logAudit appends an admin log entry best-effort. A failed append never
// fails the operation that produced it.
func (s *Service) logAudit(ctx context.Context, section domain.Section, action string, entity string, details string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.AppendAdminLog(ctx, domain.AdminLog{
		ID:         xid.New("log"),
		ActionType: action,
		Entity:     entity,
		Details:    details,
		Section:    section,
		Actor:      actor.Username,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"action": action, "entity": entity,
		}).Warn("audit log append failed")
	}
}

func (s *Service) ListAdminLogs(ctx context.Context, filter store.AdminLogFilter) ([]domain.AdminLog, error) {
	return s.repo.ListAdminLogs(ctx, filter)
}

func (s *Service) SaveItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" || !item.Section.Valid() {
		return nil, store.ErrInvalid
	}
	if item.SellPrice.IsNegative() || item.CostPrice.IsNegative() || item.CurrentAmount < 0 {
		return nil, store.ErrInvalid
	}
	if item.CategoryID != "" {
		category, err := s.repo.GetCategory(ctx, item.CategoryID)
		if err != nil {
			return nil, err
		}
		if category.Section != item.Section {
			return nil, store.ErrInvalid
		}
	}

	saved, err := s.repo.SaveItem(ctx, item)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, saved.Section, "item_save", "item", fmt.Sprintf("id=%s,name=%s", saved.ID, saved.Name))
	return saved, nil
}

func (s *Service) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *Service) ListItems(ctx context.Context, filter store.ItemFilter) ([]domain.Item, error) {
	return s.repo.ListItems(ctx, filter)
}

func (s *Service) DeleteItem(ctx context.Context, id string) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "", "item_delete", "item", "id="+id)
	return nil
}

func (s *Service) SaveCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	saved, err := s.repo.SaveCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, saved.Section, "category_save", "category", fmt.Sprintf("id=%s,name=%s", saved.ID, saved.Name))
	return saved, nil
}

func (s *Service) ListCategories(ctx context.Context, section domain.Section) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx, section)
}

// DeleteCategory removes the category only. Items referencing it keep their
// now-dangling category id.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "", "category_delete", "category", "id="+id)
	return nil
}

func (s *Service) SaveCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	saved, err := s.repo.SaveCustomer(ctx, customer)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, saved.Section, "customer_save", "customer", fmt.Sprintf("id=%s,name=%s", saved.ID, saved.Name))
	return saved, nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context, section domain.Section) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, section)
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	unpaid, err := s.repo.ListPurchases(ctx, store.PurchaseFilter{CustomerID: id, UnpaidOnly: true})
	if err != nil {
		return err
	}
	if len(unpaid) > 0 {
		return fmt.Errorf("customer has outstanding debt: %w", store.ErrConflict)
	}
	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "", "customer_delete", "customer", "id="+id)
	return nil
}
