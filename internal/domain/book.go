// internal/domain/book.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store-enforced bounds, duplicated here so invariants fail fast before a write.
const (
	MaxLineQuantity   = 10000
	MaxNumberOfCopies = 100000
)

// MaxPrice is the upper bound for a book price.
var MaxPrice = decimal.RequireFromString("9999.99")

// Book represents a book in the store inventory. NumberOfCopies is the
// available stock and is mutated only through Reserve and Release.
type Book struct {
	ID             uuid.UUID       `json:"id"`
	Number         int             `json:"number"`
	Title          string          `json:"title"`
	OriginalTitle  string          `json:"original_title,omitempty"`
	ReleaseDate    *time.Time      `json:"release_date,omitempty"`
	Description    string          `json:"description,omitempty"`
	Pages          int             `json:"pages,omitempty"`
	Cover          string          `json:"cover,omitempty"`
	Index          int             `json:"index,omitempty"`
	NumberOfCopies int             `json:"number_of_copies"`
	Price          decimal.Decimal `json:"price"`
	Version        int             `json:"version"`
}

// Reserve allocates qty copies to an order line, decrementing available stock.
// The check runs against the live available count, which already excludes
// prior reservations.
func (b *Book) Reserve(qty int) error {
	if qty <= 0 {
		return Validationf("quantity must be positive, got %d", qty)
	}
	if b.NumberOfCopies <= 0 {
		return Validationf("book %q has no copies available", b.Title)
	}
	if qty > b.NumberOfCopies {
		return Validationf("requested quantity (%d) exceeds available copies (%d) for book %q",
			qty, b.NumberOfCopies, b.Title)
	}
	b.NumberOfCopies -= qty
	return nil
}

// Release returns qty copies to available stock.
func (b *Book) Release(qty int) error {
	if qty <= 0 {
		return Validationf("quantity must be positive, got %d", qty)
	}
	if b.NumberOfCopies+qty > MaxNumberOfCopies {
		return Validationf("releasing %d copies would exceed the %d copy limit for book %q",
			qty, MaxNumberOfCopies, b.Title)
	}
	b.NumberOfCopies += qty
	return nil
}

// ValidatePrice checks a price against the store bounds.
func ValidatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return Validationf("price must not be negative, got %s", price)
	}
	if price.GreaterThan(MaxPrice) {
		return Validationf("price %s exceeds the maximum of %s", price, MaxPrice)
	}
	return nil
}

// ValidateCopies checks a stock count against the store bounds.
func ValidateCopies(copies int) error {
	if copies < 0 {
		return Validationf("number of copies must not be negative, got %d", copies)
	}
	if copies > MaxNumberOfCopies {
		return Validationf("number of copies %d exceeds the maximum of %d", copies, MaxNumberOfCopies)
	}
	return nil
}
