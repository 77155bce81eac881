// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookstore/internal/domain"
)

// Service defines the interface for the book catalog service.
type Service interface {
	ListBooks(ctx context.Context) ([]domain.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*domain.Book, error)
	UpdateNumberOfCopies(ctx context.Context, id uuid.UUID, copies int) error
	UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error

	// DeleteBook detaches the book from every order line that references it,
	// recomputes the affected orders' totals, then deletes the book. Detached
	// copies are not released; the book leaves circulation entirely. Returns
	// false when the book does not exist.
	DeleteBook(ctx context.Context, id uuid.UUID) (bool, error)
	// DeleteAllBooks removes every book and order line. Debugging aid.
	DeleteAllBooks(ctx context.Context) error

	// ImportBooks inserts books whose external catalog numbers are not yet
	// stored, skipping the rest. Returns how many were added.
	ImportBooks(ctx context.Context, books []domain.Book) (int, error)
}
