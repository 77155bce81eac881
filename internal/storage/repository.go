// internal/storage/repository.go
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"bookstore/internal/domain"
)

var (
	// ErrVersionConflict is returned by Update methods when the row's version
	// no longer matches the entity's, i.e. a concurrent writer won.
	ErrVersionConflict = errors.New("storage: version conflict")
	// ErrDuplicate is returned by Insert methods on a unique-key violation.
	ErrDuplicate = errors.New("storage: duplicate key")
)

// Store is the persistence boundary. Repositories obtained inside WithinTx
// read and write through a single database transaction; reads within the
// transaction always observe its own uncommitted writes.
type Store interface {
	Books() BookRepository
	Orders() OrderRepository

	// WithinTx runs fn against a transaction-bound Store. The transaction
	// commits if fn returns nil and rolls back otherwise; no partial state is
	// ever visible to other transactions.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// BookRepository persists books. Lookups return (nil, nil) when no row exists.
type BookRepository interface {
	List(ctx context.Context) ([]domain.Book, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error)
	GetByNumber(ctx context.Context, number int) (*domain.Book, error)
	// Numbers returns every external catalog number currently stored.
	Numbers(ctx context.Context) ([]int, error)
	Insert(ctx context.Context, book *domain.Book) error
	InsertBatch(ctx context.Context, books []domain.Book) error
	// Update writes the book compare-and-swapped on its Version, bumping the
	// version on success.
	Update(ctx context.Context, book *domain.Book) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteAll(ctx context.Context) error
}

// OrderRepository persists orders and their lines. Lookups return (nil, nil)
// when no row exists. Delete removes the order's lines with the order.
type OrderRepository interface {
	List(ctx context.Context) ([]domain.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// GetWithLines eagerly loads the order's lines including book titles.
	GetWithLines(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Insert(ctx context.Context, order *domain.Order) error
	// Update writes the order compare-and-swapped on its Version.
	Update(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	GetLine(ctx context.Context, orderID, bookID uuid.UUID) (*domain.OrderLine, error)
	InsertLine(ctx context.Context, line *domain.OrderLine) error
	UpdateLine(ctx context.Context, line *domain.OrderLine) error
	DeleteLine(ctx context.Context, orderID, bookID uuid.UUID) error
	// LinesForBook returns every line referencing the book across all orders.
	LinesForBook(ctx context.Context, bookID uuid.UUID) ([]domain.OrderLine, error)
	DeleteLinesForBook(ctx context.Context, bookID uuid.UUID) (int64, error)
}
