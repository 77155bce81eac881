// internal/storage/memory.go
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"bookstore/internal/domain"
)

// Memory is an in-memory Store with the same contracts as Postgres: version
// compare-and-swap, duplicate-key detection, transactional rollback. It backs
// unit tests and local runs without a database.
type Memory struct {
	mu sync.Mutex
	lk sync.Locker
	s  *memState
}

type lineKey struct {
	orderID uuid.UUID
	bookID  uuid.UUID
}

type memState struct {
	books  map[uuid.UUID]domain.Book
	orders map[uuid.UUID]domain.Order
	lines  map[lineKey]domain.OrderLine
}

func (s *memState) clone() *memState {
	c := &memState{
		books:  make(map[uuid.UUID]domain.Book, len(s.books)),
		orders: make(map[uuid.UUID]domain.Order, len(s.orders)),
		lines:  make(map[lineKey]domain.OrderLine, len(s.lines)),
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.orders {
		v.Lines = nil
		c.orders[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = v
	}
	return c
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	m := &Memory{
		s: &memState{
			books:  make(map[uuid.UUID]domain.Book),
			orders: make(map[uuid.UUID]domain.Order),
			lines:  make(map[lineKey]domain.OrderLine),
		},
	}
	m.lk = &m.mu
	return m
}

func (m *Memory) Books() BookRepository   { return &memBooks{m} }
func (m *Memory) Orders() OrderRepository { return &memOrders{m} }

type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

// WithinTx serializes the whole transaction under the store mutex and restores
// a snapshot of the state when fn fails.
func (m *Memory) WithinTx(ctx context.Context, fn func(Store) error) error {
	if _, ok := m.lk.(nopLocker); ok {
		return fn(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.s.clone()
	bound := &Memory{lk: nopLocker{}, s: m.s}
	if err := fn(bound); err != nil {
		*m.s = *snapshot
		return err
	}
	return nil
}

type memBooks struct {
	m *Memory
}

func (r *memBooks) List(ctx context.Context) ([]domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	books := make([]domain.Book, 0, len(r.m.s.books))
	for _, b := range r.m.s.books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Number < books[j].Number })
	return books, nil
}

func (r *memBooks) GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	b, ok := r.m.s.books[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *memBooks) GetByNumber(ctx context.Context, number int) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	for _, b := range r.m.s.books {
		if b.Number == number {
			return &b, nil
		}
	}
	return nil, nil
}

func (r *memBooks) Numbers(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	numbers := make([]int, 0, len(r.m.s.books))
	for _, b := range r.m.s.books {
		numbers = append(numbers, b.Number)
	}
	return numbers, nil
}

func (r *memBooks) Insert(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	if _, ok := r.m.s.books[book.ID]; ok {
		return ErrDuplicate
	}
	for _, b := range r.m.s.books {
		if b.Number == book.Number {
			return ErrDuplicate
		}
	}
	book.Version = 1
	r.m.s.books[book.ID] = *book
	return nil
}

func (r *memBooks) InsertBatch(ctx context.Context, books []domain.Book) error {
	for i := range books {
		if err := r.Insert(ctx, &books[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *memBooks) Update(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	current, ok := r.m.s.books[book.ID]
	if !ok || current.Version != book.Version {
		return ErrVersionConflict
	}
	book.Version++
	r.m.s.books[book.ID] = *book
	return nil
}

func (r *memBooks) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	if _, ok := r.m.s.books[id]; !ok {
		return false, nil
	}
	delete(r.m.s.books, id)
	return true, nil
}

func (r *memBooks) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	r.m.s.books = make(map[uuid.UUID]domain.Book)
	r.m.s.lines = make(map[lineKey]domain.OrderLine)
	return nil
}

type memOrders struct {
	m *Memory
}

func (r *memOrders) List(ctx context.Context) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	orders := make([]domain.Order, 0, len(r.m.s.orders))
	for _, o := range r.m.s.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreationDate.After(orders[j].CreationDate)
	})
	return orders, nil
}

func (r *memOrders) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	o, ok := r.m.s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *memOrders) GetWithLines(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := r.GetByID(ctx, id)
	if err != nil || o == nil {
		return o, err
	}

	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	for k, l := range r.m.s.lines {
		if k.orderID != id {
			continue
		}
		if b, ok := r.m.s.books[l.BookID]; ok {
			l.BookTitle = b.Title
		}
		o.Lines = append(o.Lines, l)
	}
	sort.Slice(o.Lines, func(i, j int) bool { return o.Lines[i].BookTitle < o.Lines[j].BookTitle })
	return o, nil
}

func (r *memOrders) Insert(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	if _, ok := r.m.s.orders[order.ID]; ok {
		return ErrDuplicate
	}
	order.Version = 1
	stored := *order
	stored.Lines = nil
	r.m.s.orders[order.ID] = stored
	return nil
}

func (r *memOrders) Update(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	current, ok := r.m.s.orders[order.ID]
	if !ok || current.Version != order.Version {
		return ErrVersionConflict
	}
	order.Version++
	stored := *order
	stored.Lines = nil
	r.m.s.orders[order.ID] = stored
	return nil
}

func (r *memOrders) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	if _, ok := r.m.s.orders[id]; !ok {
		return false, nil
	}
	delete(r.m.s.orders, id)
	for k := range r.m.s.lines {
		if k.orderID == id {
			delete(r.m.s.lines, k)
		}
	}
	return true, nil
}

func (r *memOrders) GetLine(ctx context.Context, orderID, bookID uuid.UUID) (*domain.OrderLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	l, ok := r.m.s.lines[lineKey{orderID, bookID}]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (r *memOrders) InsertLine(ctx context.Context, line *domain.OrderLine) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	k := lineKey{line.OrderID, line.BookID}
	if _, ok := r.m.s.lines[k]; ok {
		return ErrDuplicate
	}
	r.m.s.lines[k] = *line
	return nil
}

func (r *memOrders) UpdateLine(ctx context.Context, line *domain.OrderLine) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	k := lineKey{line.OrderID, line.BookID}
	if _, ok := r.m.s.lines[k]; !ok {
		return ErrVersionConflict
	}
	r.m.s.lines[k] = *line
	return nil
}

func (r *memOrders) DeleteLine(ctx context.Context, orderID, bookID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	delete(r.m.s.lines, lineKey{orderID, bookID})
	return nil
}

func (r *memOrders) LinesForBook(ctx context.Context, bookID uuid.UUID) ([]domain.OrderLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	var lines []domain.OrderLine
	for k, l := range r.m.s.lines {
		if k.bookID == bookID {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (r *memOrders) DeleteLinesForBook(ctx context.Context, bookID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.m.lk.Lock()
	defer r.m.lk.Unlock()

	var n int64
	for k := range r.m.s.lines {
		if k.bookID == bookID {
			delete(r.m.s.lines, k)
			n++
		}
	}
	return n, nil
}
