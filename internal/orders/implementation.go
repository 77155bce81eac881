// internal/orders/implementation.go
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookstore/internal/domain"
	"bookstore/internal/notify"
	"bookstore/internal/storage"
)

// service implements the Service interface.
type service struct {
	store    storage.Store
	notifier notify.Notifier
	logger   *slog.Logger
	eng      engine
}

// NewService creates a new order service instance.
func NewService(store storage.Store, notifier notify.Notifier, logger *slog.Logger) Service {
	return &service{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateOrder creates a new empty order, idempotent on a client-supplied id.
func (s *service) CreateOrder(ctx context.Context, id *uuid.UUID, address string) (*domain.Order, error) {
	if id != nil {
		existing, err := s.store.Orders().GetByID(ctx, *id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.logger.DebugContext(ctx, "returning existing order for idempotent create", "order_id", existing.ID)
			return existing, nil
		}
	}

	order := &domain.Order{
		ID:           uuid.New(),
		Address:      address,
		CreationDate: time.Now().UTC(),
		TotalCost:    decimal.Zero,
	}
	if id != nil {
		order.ID = *id
	}

	err := s.store.Orders().Insert(ctx, order)
	if errors.Is(err, storage.ErrDuplicate) {
		// A concurrent request with the same id won the insert.
		return s.store.Orders().GetByID(ctx, order.ID)
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order created", "order_id", order.ID)
	return order, nil
}

func (s *service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.store.Orders().List(ctx)
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrOrderNotFound)
	}
	return order, nil
}

func (s *service) GetOrderLines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	order, err := s.store.Orders().GetWithLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrOrderNotFound)
	}
	return order.Lines, nil
}

func (s *service) AddBookToOrder(ctx context.Context, orderID, bookID uuid.UUID, quantity int) error {
	err := s.store.WithinTx(ctx, func(tx storage.Store) error {
		return s.eng.addLine(ctx, tx, orderID, bookID, quantity)
	})
	if err != nil {
		return classifyStorage(err)
	}

	s.logger.InfoContext(ctx, "book added to order",
		"order_id", orderID, "book_id", bookID, "quantity", quantity)
	s.notifier.OrderChanged(ctx, orderID)
	return nil
}

func (s *service) RemoveBookFromOrder(ctx context.Context, orderID, bookID uuid.UUID) error {
	err := s.store.WithinTx(ctx, func(tx storage.Store) error {
		return s.eng.removeLine(ctx, tx, orderID, bookID)
	})
	if err != nil {
		return classifyStorage(err)
	}

	s.logger.InfoContext(ctx, "book removed from order", "order_id", orderID, "book_id", bookID)
	s.notifier.OrderChanged(ctx, orderID)
	return nil
}

func (s *service) DeleteOrder(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := s.store.WithinTx(ctx, func(tx storage.Store) error {
		var err error
		deleted, err = s.eng.releaseAll(ctx, tx, id)
		return err
	})
	if err != nil {
		return false, classifyStorage(err)
	}

	if deleted {
		s.logger.InfoContext(ctx, "order deleted", "order_id", id)
		s.notifier.OrderChanged(ctx, id)
	}
	return deleted, nil
}

// classifyStorage lifts storage-level concurrency failures into the domain
// taxonomy so callers see a retryable conflict.
func classifyStorage(err error) error {
	if errors.Is(err, storage.ErrVersionConflict) || errors.Is(err, storage.ErrDuplicate) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}
