// internal/catalog/handler.go
package catalog

import (
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

// Register mounts the book routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/books", func(r chi.Router) {
		r.Get("/", h.handleListBooks)
		r.Delete("/", h.handleDeleteAllBooks)
		r.Route("/{bookID}", func(r chi.Router) {
			r.Get("/", h.handleGetBook)
			r.Delete("/", h.handleDeleteBook)
			r.Put("/copies", h.handleUpdateCopies)
			r.Put("/price", h.handleUpdatePrice)
		})
	})
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	if cached, err := h.cache.Get(r.Context(), cache.KeyAllBooks); err == nil && cached != "" {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(cached))
		return
	}

	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if books == nil {
		books = []domain.Book{}
	}

	body, err := json.Marshal(books)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	h.cache.Set(r.Context(), cache.KeyAllBooks, string(body), cache.DefaultTTL)
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.Error(w, domain.Validationf("invalid book ID"))
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

func (h *Handler) handleUpdateCopies(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.Error(w, domain.Validationf("invalid book ID"))
		return
	}

	var req struct {
		NumberOfCopies int `json:"number_of_copies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, domain.Validationf("invalid request body: %v", err))
		return
	}

	if err := h.service.UpdateNumberOfCopies(r.Context(), id, req.NumberOfCopies); err != nil {
		httpx.Error(w, err)
		return
	}

	h.cache.Delete(r.Context(), cache.KeyAllBooks)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.Error(w, domain.Validationf("invalid book ID"))
		return
	}

	var req struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, domain.Validationf("invalid request body: %v", err))
		return
	}

	if err := h.service.UpdatePrice(r.Context(), id, req.Price); err != nil {
		httpx.Error(w, err)
		return
	}

	h.cache.Delete(r.Context(), cache.KeyAllBooks)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.Error(w, domain.Validationf("invalid book ID"))
		return
	}

	deleted, err := h.service.DeleteBook(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if !deleted {
		httpx.Error(w, domain.ErrBookNotFound)
		return
	}

	h.cache.Delete(r.Context(), cache.KeyAllBooks, cache.KeyAllOrders)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteAllBooks(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAllBooks(r.Context()); err != nil {
		httpx.Error(w, err)
		return
	}

	h.cache.Delete(r.Context(), cache.KeyAllBooks, cache.KeyAllOrders)
	w.WriteHeader(http.StatusNoContent)
}
