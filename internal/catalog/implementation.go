// internal/catalog/implementation.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

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
}

// NewService creates a new catalog service instance.
func NewService(store storage.Store, notifier notify.Notifier, logger *slog.Logger) Service {
	return &service{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *service) ListBooks(ctx context.Context) ([]domain.Book, error) {
	return s.store.Books().List(ctx)
}

func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	book, err := s.store.Books().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, fmt.Errorf("book %s: %w", id, domain.ErrBookNotFound)
	}
	return book, nil
}

func (s *service) UpdateNumberOfCopies(ctx context.Context, id uuid.UUID, copies int) error {
	if err := domain.ValidateCopies(copies); err != nil {
		return err
	}

	err := s.store.WithinTx(ctx, func(tx storage.Store) error {
		book, err := tx.Books().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if book == nil {
			return fmt.Errorf("book %s: %w", id, domain.ErrBookNotFound)
		}
		book.NumberOfCopies = copies
		return tx.Books().Update(ctx, book)
	})
	if err != nil {
		return classifyStorage(err)
	}

	s.logger.InfoContext(ctx, "book copies updated", "book_id", id, "copies", copies)
	s.notifier.BooksUpdated(ctx, 1)
	return nil
}

// UpdatePrice changes a book's live price. Price snapshots held by existing
// order lines are unaffected.
func (s *service) UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	if err := domain.ValidatePrice(price); err != nil {
		return err
	}

	err := s.store.WithinTx(ctx, func(tx storage.Store) error {
		book, err := tx.Books().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if book == nil {
			return fmt.Errorf("book %s: %w", id, domain.ErrBookNotFound)
		}
		book.Price = price
		return tx.Books().Update(ctx, book)
	})
	if err != nil {
		return classifyStorage(err)
	}

	s.logger.InfoContext(ctx, "book price updated", "book_id", id, "price", price)
	s.notifier.BooksUpdated(ctx, 1)
	return nil
}

func (s *service) DeleteBook(ctx context.Context, id uuid.UUID) (bool, error) {
	var affected []uuid.UUID
	var deleted bool

	err := s.store.WithinTx(ctx, func(tx storage.Store) error {
		book, err := tx.Books().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if book == nil {
			return nil
		}

		lines, err := tx.Orders().LinesForBook(ctx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Orders().DeleteLinesForBook(ctx, id); err != nil {
			return err
		}

		// Detached orders keep the remaining lines; rewrite their totals so the
		// denormalized sum stays consistent with what is left.
		seen := make(map[uuid.UUID]bool)
		for _, line := range lines {
			if seen[line.OrderID] {
				continue
			}
			seen[line.OrderID] = true

			order, err := tx.Orders().GetWithLines(ctx, line.OrderID)
			if err != nil {
				return err
			}
			if order == nil {
				continue
			}
			order.RecomputeTotal()
			if err := tx.Orders().Update(ctx, order); err != nil {
				return err
			}
			affected = append(affected, order.ID)
		}

		deleted, err = tx.Books().Delete(ctx, id)
		return err
	})
	if err != nil {
		return false, classifyStorage(err)
	}

	if deleted {
		s.logger.InfoContext(ctx, "book deleted", "book_id", id, "orders_detached", len(affected))
		s.notifier.BooksUpdated(ctx, 1)
		for _, orderID := range affected {
			s.notifier.OrderChanged(ctx, orderID)
		}
	}
	return deleted, nil
}

func (s *service) DeleteAllBooks(ctx context.Context) error {
	err := s.store.WithinTx(ctx, func(tx storage.Store) error {
		return tx.Books().DeleteAll(ctx)
	})
	if err != nil {
		return err
	}

	s.logger.WarnContext(ctx, "all books deleted")
	s.notifier.BooksUpdated(ctx, 0)
	return nil
}

func (s *service) ImportBooks(ctx context.Context, books []domain.Book) (int, error) {
	var added int
	err := s.store.WithinTx(ctx, func(tx storage.Store) error {
		added = 0
		numbers, err := tx.Books().Numbers(ctx)
		if err != nil {
			return err
		}
		existing := make(map[int]bool, len(numbers))
		for _, n := range numbers {
			existing[n] = true
		}

		var fresh []domain.Book
		for _, b := range books {
			if existing[b.Number] {
				continue
			}
			existing[b.Number] = true
			if b.ID == uuid.Nil {
				b.ID = uuid.New()
			}
			fresh = append(fresh, b)
		}
		if len(fresh) == 0 {
			return nil
		}

		if err := tx.Books().InsertBatch(ctx, fresh); err != nil {
			return err
		}
		added = len(fresh)
		return nil
	})
	if err != nil {
		return 0, classifyStorage(err)
	}

	if added > 0 {
		s.logger.InfoContext(ctx, "books imported", "added", added)
		s.notifier.BooksUpdated(ctx, added)
	}
	return added, nil
}

func classifyStorage(err error) error {
	if errors.Is(err, storage.ErrVersionConflict) || errors.Is(err, storage.ErrDuplicate) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}
