// internal/domain/order.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a customer order. TotalCost is derived: it always equals the sum
// of quantity * price-at-purchase over the order's lines and is recomputed
// transactionally on every line mutation.
type Order struct {
	ID           uuid.UUID       `json:"id"`
	Address      string          `json:"address"`
	CreationDate time.Time       `json:"creation_date"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Version      int             `json:"version"`
	Lines        []OrderLine     `json:"lines,omitempty"`
}

// OrderLine is the junction between an order and a book. At most one line
// exists per (order, book) pair. PriceAtPurchase is a snapshot of the book
// price at reservation time and never changes afterwards.
type OrderLine struct {
	OrderID         uuid.UUID       `json:"order_id"`
	BookID          uuid.UUID       `json:"book_id"`
	BookTitle       string          `json:"book_title,omitempty"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// Subtotal returns quantity * price-at-purchase for this line.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.PriceAtPurchase.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// RecomputeTotal rederives TotalCost from the order's lines.
func (o *Order) RecomputeTotal() {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	o.TotalCost = total
}
