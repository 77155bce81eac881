// internal/orders/property_test.go
package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"bookstore/internal/storage"
)

// Random sequences of add and remove operations must never create or
// destroy stock: for every book, copies on the shelf plus copies held
// by order lines always equals the seeded amount, and the order total
// always equals the sum of its line subtotals.
func TestStockConservationUnderRandomOps(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		st := storage.NewMemory()
		svc := newTestService(st)

		type seeded struct {
			id      uuid.UUID
			initial int
		}

		n := rapid.IntRange(1, 3).Draw(rt, "books")
		books := make([]seeded, 0, n)
		for i := 0; i < n; i++ {
			stock := rapid.IntRange(0, 20).Draw(rt, "stock")
			price := decimal.NewFromInt(int64(rapid.IntRange(1, 50).Draw(rt, "price")))
			b := seedBook(t, st, "property book", stock, price.String())
			books = append(books, seeded{id: b.ID, initial: stock})
		}

		order, err := svc.CreateOrder(ctx, nil, "12 property lane")
		require.NoError(rt, err)

		pick := func(rt *rapid.T) uuid.UUID {
			return books[rapid.IntRange(0, len(books)-1).Draw(rt, "book")].id
		}

		rt.Repeat(map[string]func(*rapid.T){
			"add": func(rt *rapid.T) {
				qty := rapid.IntRange(1, 12).Draw(rt, "qty")
				// Rejected adds (insufficient stock, cap) are fine;
				// they must simply leave state untouched.
				_ = svc.AddBookToOrder(ctx, order.ID, pick(rt), qty)
			},
			"remove": func(rt *rapid.T) {
				_ = svc.RemoveBookFromOrder(ctx, order.ID, pick(rt))
			},
			"": func(rt *rapid.T) {
				got, err := st.Orders().GetWithLines(ctx, order.ID)
				require.NoError(rt, err)
				require.NotNil(rt, got)

				total := decimal.Zero
				held := make(map[uuid.UUID]int)
				for _, line := range got.Lines {
					held[line.BookID] += line.Quantity
					total = total.Add(line.Subtotal())
				}
				require.True(rt, got.TotalCost.Equal(total),
					"total %s != sum of subtotals %s", got.TotalCost, total)

				for _, b := range books {
					book := getBook(t, st, b.id)
					require.Equal(rt, b.initial, book.NumberOfCopies+held[b.id],
						"stock not conserved for book %s", b.id)
				}
			},
		})
	})
}
