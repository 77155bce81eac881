// internal/httpx/httpx.go
package httpx

import (
	"encoding/json"
	"net/http"

	"bookstore/internal/domain"
)

type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error maps a service error onto an HTTP status via the domain taxonomy.
// Internal errors are surfaced as an opaque message.
func Error(w http.ResponseWriter, err error) {
	switch domain.Classify(err) {
	case domain.ClassNotFound:
		JSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case domain.ClassValidation:
		JSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case domain.ClassConflict:
		JSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		JSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}
