// internal/storage/postgres_test.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstore/internal/domain"
)

// setupTestDB attempts to connect to a PostgreSQL database for testing.
// It skips the test if the connection cannot be established.
func setupTestDB(t testing.TB) *Postgres {
	t.Helper()

	pgUser := os.Getenv("PGUSER")
	pgPassword := os.Getenv("PGPASSWORD")
	pgHost := os.Getenv("PGHOST")
	pgPort := os.Getenv("PGPORT")
	pgDB := os.Getenv("PGDATABASE")

	if pgUser == "" {
		pgUser = "user"
	}
	if pgPassword == "" {
		pgPassword = "password"
	}
	if pgHost == "" {
		pgHost = "localhost"
	}
	if pgPort == "" {
		pgPort = "5432"
	}
	if pgDB == "" {
		pgDB = "testdb"
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pgHost, pgPort, pgUser, pgPassword, pgDB)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("skipping postgres tests: could not connect: %v", err)
	}

	store := NewPostgres(db)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	ctx := context.Background()
	_, err = db.ExecContext(ctx, "TRUNCATE TABLE order_lines, orders, books CASCADE")
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return store
}

func pgBook(number int) *domain.Book {
	release := time.Date(2003, time.June, 21, 0, 0, 0, 0, time.UTC)
	return &domain.Book{
		ID:             uuid.New(),
		Number:         number,
		Title:          "postgres test book",
		OriginalTitle:  "postgres test book, first edition",
		ReleaseDate:    &release,
		Description:    "roundtrip fixture",
		Pages:          320,
		Cover:          "http://covers.example/1.jpg",
		Index:          1,
		NumberOfCopies: 10,
		Price:          decimal.RequireFromString("15.00"),
	}
}

func TestPostgresBookRoundtrip(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	book := pgBook(1)
	require.NoError(t, store.Books().Insert(ctx, book))

	got, err := store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, book.Title, got.Title)
	assert.Equal(t, 10, got.NumberOfCopies)
	assert.True(t, got.Price.Equal(book.Price))
	require.NotNil(t, got.ReleaseDate)
	assert.Equal(t, "2003-06-21", got.ReleaseDate.Format("2006-01-02"))
	assert.Equal(t, 1, got.Version)

	byNumber, err := store.Books().GetByNumber(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, byNumber)
	assert.Equal(t, book.ID, byNumber.ID)

	got.NumberOfCopies = 7
	require.NoError(t, store.Books().Update(ctx, got))
	assert.Equal(t, 2, got.Version)

	deleted, err := store.Books().Delete(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	gone, err := store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestPostgresBookVersionConflict(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	book := pgBook(2)
	require.NoError(t, store.Books().Insert(ctx, book))

	stale, err := store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	fresh, err := store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)

	fresh.NumberOfCopies = 9
	require.NoError(t, store.Books().Update(ctx, fresh))

	stale.NumberOfCopies = 8
	err = store.Books().Update(ctx, stale)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestPostgresBookDuplicateNumber(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.Books().Insert(ctx, pgBook(3)))
	err := store.Books().Insert(ctx, pgBook(3))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPostgresOrderWithLines(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	book := pgBook(4)
	require.NoError(t, store.Books().Insert(ctx, book))

	order := &domain.Order{
		ID:           uuid.New(),
		Address:      "9 postgres avenue",
		CreationDate: time.Now().UTC(),
		TotalCost:    decimal.RequireFromString("30.00"),
	}
	require.NoError(t, store.Orders().Insert(ctx, order))
	require.NoError(t, store.Orders().InsertLine(ctx, &domain.OrderLine{
		OrderID:         order.ID,
		BookID:          book.ID,
		BookTitle:       book.Title,
		Quantity:        2,
		PriceAtPurchase: book.Price,
	}))

	got, err := store.Orders().GetWithLines(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, book.Title, got.Lines[0].BookTitle)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.True(t, got.Lines[0].PriceAtPurchase.Equal(book.Price))

	// Deleting the order removes its lines with it.
	deleted, err := store.Orders().Delete(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	lines, err := store.Orders().LinesForBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestPostgresWithinTxRollsBackOnError(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	book := pgBook(5)
	require.NoError(t, store.Books().Insert(ctx, book))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx Store) error {
		loaded, err := tx.Books().GetByID(ctx, book.ID)
		if err != nil {
			return err
		}
		loaded.NumberOfCopies = 0
		if err := tx.Books().Update(ctx, loaded); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.NumberOfCopies)
	assert.Equal(t, 1, got.Version)
}

func TestPostgresConcurrentUpdateSingleWinner(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	book := pgBook(6)
	book.NumberOfCopies = 1
	require.NoError(t, store.Books().Insert(ctx, book))

	// Every goroutine reads the same version and tries to claim the last
	// copy. The version check must let exactly one through.
	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithinTx(ctx, func(tx Store) error {
				loaded, err := tx.Books().GetByID(ctx, book.ID)
				if err != nil {
					return err
				}
				if err := loaded.Reserve(1); err != nil {
					return err
				}
				return tx.Books().Update(ctx, loaded)
			})
			if err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successCount, "only one concurrent reservation should succeed")

	got, err := store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumberOfCopies)
}
