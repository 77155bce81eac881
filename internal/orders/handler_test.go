// internal/orders/handler_test.go
package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstore/internal/cache"
	"bookstore/internal/catalog"
	"bookstore/internal/domain"
	"bookstore/internal/notify"
	"bookstore/internal/storage"
)

func newTestServer(t *testing.T, st storage.Store) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	catalog.NewHandler(catalog.NewService(st, notify.Noop{}, discardLogger()), cache.Noop{}).Register(r)
	NewHandler(NewService(st, notify.Noop{}, discardLogger()), cache.Noop{}).Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestOrderFlowOverHTTP(t *testing.T) {
	st := storage.NewMemory()
	srv := newTestServer(t, st)
	book := seedBook(t, st, "Pride and Prejudice", 5, "9.99")

	// Create an order.
	order := &domain.Order{}
	resp := postJSON(t, srv.URL+"/orders", map[string]string{"address": "4 Park Lane"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, order)

	// Add two copies of the book.
	resp = postJSON(t, srv.URL+"/orders/"+order.ID.String()+"/books",
		map[string]any{"book_id": book.ID, "quantity": 2})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// Stock dropped on the book endpoint.
	resp, err := http.Get(srv.URL + "/books/" + book.ID.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated domain.Book
	decodeBody(t, resp, &updated)
	assert.Equal(t, 3, updated.NumberOfCopies)

	// The order shows the line with a price snapshot and subtotal.
	resp, err = http.Get(srv.URL + "/orders/" + order.ID.String() + "/books")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lines []orderLineResponse
	decodeBody(t, resp, &lines)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, lines[0].Subtotal.Equal(updated.Price.Mul(decimal.NewFromInt(2))))

	// Remove the book; stock comes back.
	req, err := http.NewRequest(http.MethodDelete,
		srv.URL+"/orders/"+order.ID.String()+"/books/"+book.ID.String(), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	gotBook := getBook(t, st, book.ID)
	assert.Equal(t, 5, gotBook.NumberOfCopies)
}

func TestAddBookHTTPErrorMapping(t *testing.T) {
	st := storage.NewMemory()
	srv := newTestServer(t, st)
	book := seedBook(t, st, "Emma", 1, "9.99")

	order := &domain.Order{}
	resp := postJSON(t, srv.URL+"/orders", map[string]string{"address": "4 Park Lane"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, order)

	// Unknown order id maps to 404.
	resp = postJSON(t, srv.URL+"/orders/"+uuid.NewString()+"/books",
		map[string]any{"book_id": book.ID, "quantity": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Zero quantity maps to 400.
	resp = postJSON(t, srv.URL+"/orders/"+order.ID.String()+"/books",
		map[string]any{"book_id": book.ID, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// More than available maps to 400.
	resp = postJSON(t, srv.URL+"/orders/"+order.ID.String()+"/books",
		map[string]any{"book_id": book.ID, "quantity": 2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestConcurrentAddPreventsOverselling(t *testing.T) {
	st := storage.NewMemory()
	srv := newTestServer(t, st)
	book := seedBook(t, st, "The Great Gatsby", 1, "12.00")

	// Ten orders race for the single copy.
	var orderIDs []uuid.UUID
	for i := 0; i < 10; i++ {
		order := &domain.Order{}
		resp := postJSON(t, srv.URL+"/orders", map[string]string{"address": fmt.Sprintf("%d Race Street", i)})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		decodeBody(t, resp, order)
		orderIDs = append(orderIDs, order.ID)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0

	for _, id := range orderIDs {
		wg.Add(1)
		go func(orderID uuid.UUID) {
			defer wg.Done()
			body, _ := json.Marshal(map[string]any{"book_id": book.ID, "quantity": 1})
			resp, err := http.Post(srv.URL+"/orders/"+orderID.String()+"/books", "application/json", bytes.NewReader(body))
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusNoContent {
					mu.Lock()
					successCount++
					mu.Unlock()
				}
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, successCount, "only one concurrent add should succeed")
	assert.Equal(t, 0, getBook(t, st, book.ID).NumberOfCopies)
}
