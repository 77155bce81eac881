// internal/orders/engine.go
package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"bookstore/internal/domain"
	"bookstore/internal/storage"
)

// engine applies line-level mutations to an order while keeping book stock and
// the order total consistent. Every method runs against a transaction-bound
// store and either fully applies its change or returns an error that rolls the
// transaction back; there are no intermediate persisted states.
//
// Write order within a transaction is fixed: book stock, then line, then order
// total.
type engine struct{}

func (engine) addLine(ctx context.Context, st storage.Store, orderID, bookID uuid.UUID, qty int) error {
	order, err := st.Orders().GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("order %s: %w", orderID, domain.ErrOrderNotFound)
	}

	book, err := st.Books().GetByID(ctx, bookID)
	if err != nil {
		return err
	}
	if book == nil {
		return fmt.Errorf("book %s: %w", bookID, domain.ErrBookNotFound)
	}

	line, err := st.Orders().GetLine(ctx, orderID, bookID)
	if err != nil {
		return err
	}
	if line != nil && line.Quantity+qty > domain.MaxLineQuantity {
		return domain.Validationf("adding %d copies would exceed the per-line limit of %d (current quantity %d)",
			qty, domain.MaxLineQuantity, line.Quantity)
	}

	// The sufficiency check bounds the requested delta against live available
	// stock only; copies already reserved by this line are not counted twice.
	if err := book.Reserve(qty); err != nil {
		return err
	}
	if err := st.Books().Update(ctx, book); err != nil {
		return err
	}

	if line != nil {
		// Price snapshot of the existing line is preserved, not refreshed.
		line.Quantity += qty
		if err := st.Orders().UpdateLine(ctx, line); err != nil {
			return err
		}
	} else {
		line = &domain.OrderLine{
			OrderID:         orderID,
			BookID:          bookID,
			Quantity:        qty,
			PriceAtPurchase: book.Price,
		}
		if err := st.Orders().InsertLine(ctx, line); err != nil {
			return err
		}
	}

	return engine{}.recomputeTotal(ctx, st, order)
}

func (engine) removeLine(ctx context.Context, st storage.Store, orderID, bookID uuid.UUID) error {
	order, err := st.Orders().GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("order %s: %w", orderID, domain.ErrOrderNotFound)
	}

	line, err := st.Orders().GetLine(ctx, orderID, bookID)
	if err != nil {
		return err
	}
	if line == nil {
		return fmt.Errorf("order %s has no line for book %s: %w", orderID, bookID, domain.ErrLineNotFound)
	}

	book, err := st.Books().GetByID(ctx, bookID)
	if err != nil {
		return err
	}
	if book != nil {
		if err := book.Release(line.Quantity); err != nil {
			return err
		}
		if err := st.Books().Update(ctx, book); err != nil {
			return err
		}
	}

	if err := st.Orders().DeleteLine(ctx, orderID, bookID); err != nil {
		return err
	}

	return engine{}.recomputeTotal(ctx, st, order)
}

// releaseAll returns every line's copies to their books and removes the order.
func (engine) releaseAll(ctx context.Context, st storage.Store, orderID uuid.UUID) (bool, error) {
	order, err := st.Orders().GetWithLines(ctx, orderID)
	if err != nil {
		return false, err
	}
	if order == nil {
		return false, nil
	}

	for _, line := range order.Lines {
		book, err := st.Books().GetByID(ctx, line.BookID)
		if err != nil {
			return false, err
		}
		if book == nil {
			continue
		}
		if err := book.Release(line.Quantity); err != nil {
			return false, err
		}
		if err := st.Books().Update(ctx, book); err != nil {
			return false, err
		}
	}

	return st.Orders().Delete(ctx, orderID)
}

// recomputeTotal rereads the order's lines and rewrites the denormalized total
// from the stored price snapshots.
func (engine) recomputeTotal(ctx context.Context, st storage.Store, order *domain.Order) error {
	full, err := st.Orders().GetWithLines(ctx, order.ID)
	if err != nil {
		return err
	}
	if full == nil {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrOrderNotFound)
	}
	order.Lines = full.Lines
	order.RecomputeTotal()
	return st.Orders().Update(ctx, order)
}
