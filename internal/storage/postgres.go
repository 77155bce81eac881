// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookstore/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres implements Store on PostgreSQL with optimistic concurrency via
// per-row version columns.
type Postgres struct {
	db     *sql.DB
	q      querier
	tracer trace.Tracer
}

// NewPostgres creates a Store backed by the given database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db:     db,
		q:      db,
		tracer: otel.Tracer("bookstore/storage"),
	}
}

// Migrate applies the embedded schema.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (p *Postgres) Books() BookRepository   { return &pgBooks{p} }
func (p *Postgres) Orders() OrderRepository { return &pgOrders{p} }

// WithinTx runs fn against a transaction-bound copy of the store. Nested calls
// reuse the ambient transaction.
func (p *Postgres) WithinTx(ctx context.Context, fn func(Store) error) error {
	if _, ok := p.q.(*sql.Tx); ok {
		return fn(p)
	}

	ctx, span := p.tracer.Start(ctx, "storage.tx")
	defer span.End()

	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	bound := &Postgres{db: p.db, q: tx, tracer: p.tracer}
	if err := fn(bound); err != nil {
		span.SetAttributes(attribute.Bool("tx.rolled_back", true))
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-key violation.
func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

type pgBooks struct {
	p *Postgres
}

const bookColumns = `id, number, title, original_title, release_date, description, pages, cover, idx, number_of_copies, price, version`

func scanBook(row interface{ Scan(...any) error }) (*domain.Book, error) {
	var b domain.Book
	var release sql.NullTime
	err := row.Scan(
		&b.ID, &b.Number, &b.Title, &b.OriginalTitle, &release,
		&b.Description, &b.Pages, &b.Cover, &b.Index,
		&b.NumberOfCopies, &b.Price, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	if release.Valid {
		t := release.Time
		b.ReleaseDate = &t
	}
	return &b, nil
}

func releaseDateArg(b *domain.Book) any {
	if b.ReleaseDate == nil {
		return nil
	}
	return *b.ReleaseDate
}

func (r *pgBooks) List(ctx context.Context) ([]domain.Book, error) {
	rows, err := r.p.q.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

func (r *pgBooks) GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	b, err := scanBook(r.p.q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (r *pgBooks) GetByNumber(ctx context.Context, number int) (*domain.Book, error) {
	b, err := scanBook(r.p.q.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE number = $1`, number))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book by number: %w", err)
	}
	return b, nil
}

func (r *pgBooks) Numbers(ctx context.Context) ([]int, error) {
	rows, err := r.p.q.QueryContext(ctx, `SELECT number FROM books`)
	if err != nil {
		return nil, fmt.Errorf("query book numbers: %w", err)
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan book number: %w", err)
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

func (r *pgBooks) Insert(ctx context.Context, book *domain.Book) error {
	_, err := r.p.q.ExecContext(ctx, `
		INSERT INTO books (id, number, title, original_title, release_date, description, pages, cover, idx, number_of_copies, price, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, book.ID, book.Number, book.Title, book.OriginalTitle, releaseDateArg(book),
		book.Description, book.Pages, book.Cover, book.Index,
		book.NumberOfCopies, book.Price, 1)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	book.Version = 1
	return nil
}

func (r *pgBooks) InsertBatch(ctx context.Context, books []domain.Book) error {
	for i := range books {
		if err := r.Insert(ctx, &books[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgBooks) Update(ctx context.Context, book *domain.Book) error {
	ctx, span := r.p.tracer.Start(ctx, "storage.books.update",
		trace.WithAttributes(
			attribute.String("book.id", book.ID.String()),
			attribute.Int("book.version", book.Version),
		),
	)
	defer span.End()

	res, err := r.p.q.ExecContext(ctx, `
		UPDATE books
		SET title = $2, original_title = $3, release_date = $4, description = $5,
		    pages = $6, cover = $7, idx = $8, number_of_copies = $9, price = $10,
		    version = version + 1
		WHERE id = $1 AND version = $11
	`, book.ID, book.Title, book.OriginalTitle, releaseDateArg(book), book.Description,
		book.Pages, book.Cover, book.Index, book.NumberOfCopies, book.Price,
		book.Version)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		span.SetAttributes(attribute.Bool("conflict.detected", true))
		return ErrVersionConflict
	}
	book.Version++
	return nil
}

func (r *pgBooks) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.p.q.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete book: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *pgBooks) DeleteAll(ctx context.Context) error {
	if _, err := r.p.q.ExecContext(ctx, `DELETE FROM order_lines`); err != nil {
		return fmt.Errorf("delete order lines: %w", err)
	}
	if _, err := r.p.q.ExecContext(ctx, `DELETE FROM books`); err != nil {
		return fmt.Errorf("delete books: %w", err)
	}
	return nil
}

type pgOrders struct {
	p *Postgres
}

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.Address, &o.CreationDate, &o.TotalCost, &o.Version)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *pgOrders) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.p.q.QueryContext(ctx, `
		SELECT id, address, creation_date, total_cost, version
		FROM orders ORDER BY creation_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *pgOrders) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := scanOrder(r.p.q.QueryRowContext(ctx, `
		SELECT id, address, creation_date, total_cost, version
		FROM orders WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *pgOrders) GetWithLines(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := r.GetByID(ctx, id)
	if err != nil || o == nil {
		return o, err
	}

	rows, err := r.p.q.QueryContext(ctx, `
		SELECT l.order_id, l.book_id, b.title, l.quantity, l.price_at_purchase
		FROM order_lines l
		JOIN books b ON b.id = l.book_id
		WHERE l.order_id = $1
		ORDER BY b.title
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.OrderID, &l.BookID, &l.BookTitle, &l.Quantity, &l.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	return o, rows.Err()
}

func (r *pgOrders) Insert(ctx context.Context, order *domain.Order) error {
	_, err := r.p.q.ExecContext(ctx, `
		INSERT INTO orders (id, address, creation_date, total_cost, version)
		VALUES ($1, $2, $3, $4, $5)
	`, order.ID, order.Address, order.CreationDate, order.TotalCost, 1)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	order.Version = 1
	return nil
}

func (r *pgOrders) Update(ctx context.Context, order *domain.Order) error {
	ctx, span := r.p.tracer.Start(ctx, "storage.orders.update",
		trace.WithAttributes(
			attribute.String("order.id", order.ID.String()),
			attribute.Int("order.version", order.Version),
		),
	)
	defer span.End()

	res, err := r.p.q.ExecContext(ctx, `
		UPDATE orders SET address = $2, total_cost = $3, version = version + 1
		WHERE id = $1 AND version = $4
	`, order.ID, order.Address, order.TotalCost, order.Version)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		span.SetAttributes(attribute.Bool("conflict.detected", true))
		return ErrVersionConflict
	}
	order.Version++
	return nil
}

func (r *pgOrders) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	// order_lines rows go with the order via ON DELETE CASCADE.
	res, err := r.p.q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete order: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *pgOrders) GetLine(ctx context.Context, orderID, bookID uuid.UUID) (*domain.OrderLine, error) {
	var l domain.OrderLine
	err := r.p.q.QueryRowContext(ctx, `
		SELECT order_id, book_id, quantity, price_at_purchase
		FROM order_lines WHERE order_id = $1 AND book_id = $2
	`, orderID, bookID).Scan(&l.OrderID, &l.BookID, &l.Quantity, &l.PriceAtPurchase)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order line: %w", err)
	}
	return &l, nil
}

func (r *pgOrders) InsertLine(ctx context.Context, line *domain.OrderLine) error {
	_, err := r.p.q.ExecContext(ctx, `
		INSERT INTO order_lines (order_id, book_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4)
	`, line.OrderID, line.BookID, line.Quantity, line.PriceAtPurchase)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert order line: %w", err)
	}
	return nil
}

func (r *pgOrders) UpdateLine(ctx context.Context, line *domain.OrderLine) error {
	res, err := r.p.q.ExecContext(ctx, `
		UPDATE order_lines SET quantity = $3
		WHERE order_id = $1 AND book_id = $2
	`, line.OrderID, line.BookID, line.Quantity)
	if err != nil {
		return fmt.Errorf("update order line: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *pgOrders) DeleteLine(ctx context.Context, orderID, bookID uuid.UUID) error {
	_, err := r.p.q.ExecContext(ctx, `
		DELETE FROM order_lines WHERE order_id = $1 AND book_id = $2
	`, orderID, bookID)
	if err != nil {
		return fmt.Errorf("delete order line: %w", err)
	}
	return nil
}

func (r *pgOrders) LinesForBook(ctx context.Context, bookID uuid.UUID) ([]domain.OrderLine, error) {
	rows, err := r.p.q.QueryContext(ctx, `
		SELECT order_id, book_id, quantity, price_at_purchase
		FROM order_lines WHERE book_id = $1
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("query lines for book: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.OrderID, &l.BookID, &l.Quantity, &l.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *pgOrders) DeleteLinesForBook(ctx context.Context, bookID uuid.UUID) (int64, error) {
	res, err := r.p.q.ExecContext(ctx, `DELETE FROM order_lines WHERE book_id = $1`, bookID)
	if err != nil {
		return 0, fmt.Errorf("delete lines for book: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
