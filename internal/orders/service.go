// internal/orders/service.go
package orders

import (
	"context"

	"github.com/google/uuid"

	"bookstore/internal/domain"
)

// Service defines the interface for the order service.
type Service interface {
	// CreateOrder creates an empty order. When id is supplied and an order with
	// that id already exists, the existing order is returned unchanged.
	CreateOrder(ctx context.Context, id *uuid.UUID, address string) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderLines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error)

	// AddBookToOrder reserves quantity copies of the book into the order,
	// creating or growing the order line and recomputing the order total, all
	// in one transaction.
	AddBookToOrder(ctx context.Context, orderID, bookID uuid.UUID, quantity int) error
	// RemoveBookFromOrder releases the line's full quantity back to the book
	// and deletes the line.
	RemoveBookFromOrder(ctx context.Context, orderID, bookID uuid.UUID) error
	// DeleteOrder releases every line's copies back to their books and removes
	// the order. Returns false when the order does not exist.
	DeleteOrder(ctx context.Context, id uuid.UUID) (bool, error)
}
