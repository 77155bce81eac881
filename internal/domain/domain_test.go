// internal/domain/domain_test.go
package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookReserve(t *testing.T) {
	b := &Book{Title: "Dune", NumberOfCopies: 5}

	require.NoError(t, b.Reserve(3))
	assert.Equal(t, 2, b.NumberOfCopies)

	// Exactly the remaining stock drives copies to zero.
	require.NoError(t, b.Reserve(2))
	assert.Equal(t, 0, b.NumberOfCopies)
}

func TestBookReserveZeroStock(t *testing.T) {
	b := &Book{Title: "Dune", NumberOfCopies: 0}

	err := b.Reserve(1)
	require.Error(t, err)
	assert.Equal(t, ClassValidation, Classify(err))
	assert.Contains(t, err.Error(), "no copies available")
	assert.Equal(t, 0, b.NumberOfCopies)
}

func TestBookReserveInsufficientStock(t *testing.T) {
	b := &Book{Title: "Dune", NumberOfCopies: 4}

	err := b.Reserve(5)
	require.Error(t, err)
	assert.Equal(t, ClassValidation, Classify(err))
	assert.Contains(t, err.Error(), "(5)")
	assert.Contains(t, err.Error(), "(4)")
	assert.Equal(t, 4, b.NumberOfCopies, "failed reserve must not change stock")
}

func TestBookReserveNonPositive(t *testing.T) {
	b := &Book{Title: "Dune", NumberOfCopies: 4}

	assert.Error(t, b.Reserve(0))
	assert.Error(t, b.Reserve(-2))
	assert.Equal(t, 4, b.NumberOfCopies)
}

func TestBookRelease(t *testing.T) {
	b := &Book{Title: "Dune", NumberOfCopies: 2}

	require.NoError(t, b.Release(3))
	assert.Equal(t, 5, b.NumberOfCopies)

	err := b.Release(MaxNumberOfCopies)
	require.Error(t, err)
	assert.Equal(t, 5, b.NumberOfCopies)
}

func TestOrderRecomputeTotal(t *testing.T) {
	o := &Order{
		Lines: []OrderLine{
			{Quantity: 3, PriceAtPurchase: decimal.RequireFromString("15.00")},
			{Quantity: 2, PriceAtPurchase: decimal.RequireFromString("7.50")},
		},
	}
	o.RecomputeTotal()
	assert.True(t, o.TotalCost.Equal(decimal.RequireFromString("60.00")),
		"got total %s", o.TotalCost)

	o.Lines = nil
	o.RecomputeTotal()
	assert.True(t, o.TotalCost.IsZero())
}

func TestOrderLineSubtotal(t *testing.T) {
	l := OrderLine{Quantity: 4, PriceAtPurchase: decimal.RequireFromString("9.99")}
	assert.True(t, l.Subtotal().Equal(decimal.RequireFromString("39.96")))
}

func TestValidatePrice(t *testing.T) {
	assert.NoError(t, ValidatePrice(decimal.Zero))
	assert.NoError(t, ValidatePrice(MaxPrice))
	assert.Error(t, ValidatePrice(decimal.RequireFromString("-0.01")))
	assert.Error(t, ValidatePrice(decimal.RequireFromString("10000.00")))
}

func TestValidateCopies(t *testing.T) {
	assert.NoError(t, ValidateCopies(0))
	assert.NoError(t, ValidateCopies(MaxNumberOfCopies))
	assert.Error(t, ValidateCopies(-1))
	assert.Error(t, ValidateCopies(MaxNumberOfCopies+1))
}

func TestClassify(t *testing.T) {
	id := uuid.New()

	assert.Equal(t, ClassNotFound, Classify(fmt.Errorf("order %s: %w", id, ErrOrderNotFound)))
	assert.Equal(t, ClassNotFound, Classify(ErrBookNotFound))
	assert.Equal(t, ClassNotFound, Classify(ErrLineNotFound))
	assert.Equal(t, ClassValidation, Classify(Validationf("bad quantity %d", 0)))
	assert.Equal(t, ClassConflict, Classify(fmt.Errorf("%w: book version moved", ErrConflict)))
	assert.Equal(t, ClassInternal, Classify(errors.New("connection reset")))
}
