// internal/fetch/handler.go
package fetch

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bookstore/internal/httpx"
)

type Handler struct {
	job *Job
}

func NewHandler(job *Job) *Handler {
	return &Handler{job: job}
}

// Register mounts the sync routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sync/fetch", h.handleFetch)
	r.Get("/sync/status", h.handleStatus)
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	added, err := h.job.RunOnce(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"added": added})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.job.Status())
}
