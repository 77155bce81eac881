// internal/orders/handler.go
package orders

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookstore/internal/cache"
	"bookstore/internal/domain"
	"bookstore/internal/httpx"
)

type Handler struct {
	service Service
	cache   cache.Cache
}

func NewHandler(service Service, c cache.Cache) *Handler {
	return &Handler{service: service, cache: c}
}

// Register mounts the order routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.handleListOrders)
		r.Post("/", h.handleCreateOrder)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.handleGetOrder)
			r.Delete("/", h.handleDeleteOrder)
			r.Get("/books", h.handleGetOrderBooks)
			r.Post("/books", h.handleAddBook)
			r.Delete("/books/{bookID}", h.handleRemoveBook)
		})
	})
}

type orderLineResponse struct {
	BookID          uuid.UUID       `json:"book_id"`
	BookTitle       string          `json:"book_title"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	if cached, err := h.cache.Get(r.Context(), cache.KeyAllOrders); err == nil && cached != "" {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(cached))
		return
	}

	list, err := h.service.ListOrders(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if list == nil {
		list = []domain.Order{}
	}

	body, err := json.Marshal(list)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	h.cache.Set(r.Context(), cache.KeyAllOrders, string(body), cache.DefaultTTL)
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID      *uuid.UUID `json:"id,omitempty"`
		Address string     `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, domain.Validationf("invalid request body: %v", err))
		return
	}
	if req.Address == "" {
		httpx.Error(w, domain.Validationf("address is required"))
		return
	}

	order, err := h.service.CreateOrder(r.Context(), req.ID, req.Address)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	h.invalidate(r.Context())
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.Error(w, domain.Validationf("invalid order ID"))
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) handleGetOrderBooks(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.Error(w, domain.Validationf("invalid order ID"))
		return
	}

	lines, err := h.service.GetOrderLines(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	resp := make([]orderLineResponse, 0, len(lines))
	for _, l := range lines {
		resp = append(resp, orderLineResponse{
			BookID:          l.BookID,
			BookTitle:       l.BookTitle,
			Quantity:        l.Quantity,
			PriceAtPurchase: l.PriceAtPurchase,
			Subtotal:        l.Subtotal(),
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAddBook(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.Error(w, domain.Validationf("invalid order ID"))
		return
	}

	var req struct {
		BookID   uuid.UUID `json:"book_id"`
		Quantity int       `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, domain.Validationf("invalid request body: %v", err))
		return
	}
	if req.Quantity < 1 || req.Quantity > domain.MaxLineQuantity {
		httpx.Error(w, domain.Validationf("quantity must be between 1 and %d, got %d", domain.MaxLineQuantity, req.Quantity))
		return
	}

	if err := h.service.AddBookToOrder(r.Context(), orderID, req.BookID, req.Quantity); err != nil {
		httpx.Error(w, err)
		return
	}

	h.invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveBook(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.Error(w, domain.Validationf("invalid order ID"))
		return
	}
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.Error(w, domain.Validationf("invalid book ID"))
		return
	}

	if err := h.service.RemoveBookFromOrder(r.Context(), orderID, bookID); err != nil {
		httpx.Error(w, err)
		return
	}

	h.invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.Error(w, domain.Validationf("invalid order ID"))
		return
	}

	deleted, err := h.service.DeleteOrder(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if !deleted {
		httpx.Error(w, domain.ErrOrderNotFound)
		return
	}

	h.invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidate(ctx context.Context) {
	h.cache.Delete(ctx, cache.KeyAllOrders, cache.KeyAllBooks)
}
