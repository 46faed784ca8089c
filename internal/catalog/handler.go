// internal/catalog/handler.go
package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Routes returns the catalog API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/titles", h.HandleAddTitle)
	r.Get("/titles/{isbn}", h.HandleGetTitle)
	r.Delete("/titles/{isbn}", h.HandleRemoveTitle)
	r.Get("/titles", h.HandleSearch)
	return r
}

func (h *Handler) HandleAddTitle(w http.ResponseWriter, r *http.Request) {
	var t Title
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if t.ISBN == "" || t.Name == "" {
		http.Error(w, "isbn and name are required", http.StatusBadRequest)
		return
	}

	added, err := h.store.AddTitle(r.Context(), &t)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(added)
}

func (h *Handler) HandleGetTitle(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetTitle(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func (h *Handler) HandleRemoveTitle(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveTitle(r.Context(), chi.URLParam(r, "isbn")); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "missing query parameter q", http.StatusBadRequest)
		return
	}

	titles, err := h.store.Search(r.Context(), query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(titles)
}
