// internal/circulation/handler.go
package circulation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libris/internal/loan"
	"libris/internal/reports"
)

// Handler exposes the circulation engine over HTTP.
type Handler struct {
	service Service
	reports *reports.Aggregator
}

func NewHandler(service Service, aggregator *reports.Aggregator) *Handler {
	return &Handler{service: service, reports: aggregator}
}

// Routes returns the circulation API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/checkout", h.HandleCheckout)
	r.Post("/loans/{loanID}/return", h.HandleReturn)
	r.Post("/loans/{loanID}/renew", h.HandleRenew)
	r.Post("/loans/{loanID}/lost", h.HandleMarkLost)
	r.Get("/loans/overdue", h.HandleOverdue)
	r.Get("/reports/popular-titles", h.HandlePopularTitles)
	r.Get("/reports/active-patrons", h.HandleActivePatrons)
	r.Get("/reports/outstanding-fines", h.HandleOutstandingFines)
	return r
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TitleKey  string `json:"title_key"`
		PatronKey string `json:"patron_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	l, err := h.service.Checkout(r.Context(), req.TitleKey, req.PatronKey)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, l)
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	h.loanAction(w, r, h.service.Return)
}

func (h *Handler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	h.loanAction(w, r, h.service.Renew)
}

func (h *Handler) HandleMarkLost(w http.ResponseWriter, r *http.Request) {
	h.loanAction(w, r, h.service.MarkLost)
}

func (h *Handler) loanAction(w http.ResponseWriter, r *http.Request, action func(context.Context, uuid.UUID) (*loan.Loan, error)) {
	loanID, err := uuid.Parse(chi.URLParam(r, "loanID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	l, err := action(r.Context(), loanID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, l)
}

func (h *Handler) HandleOverdue(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.OverdueLoans(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *Handler) HandlePopularTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := h.reports.PopularTitles(r.Context(), queryLimit(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, titles)
}

func (h *Handler) HandleActivePatrons(w http.ResponseWriter, r *http.Request) {
	patrons, err := h.reports.MostActivePatrons(r.Context(), queryLimit(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patrons)
}

func (h *Handler) HandleOutstandingFines(w http.ResponseWriter, r *http.Request) {
	total, err := h.reports.TotalOutstandingFines(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"total": total})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeEngineError maps the engine's error taxonomy onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	var policyErr *PolicyViolationError
	switch {
	case errors.Is(err, ErrTitleNotFound),
		errors.Is(err, ErrPatronNotFound),
		errors.Is(err, ErrLoanNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &policyErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":  err.Error(),
			"reason": policyErr.Reason,
		})
	case errors.Is(err, ErrNotAvailable),
		errors.Is(err, ErrDuplicateLoan),
		errors.Is(err, ErrAlreadyClosed),
		errors.Is(err, ErrNotRenewable),
		errors.Is(err, ErrRenewalLimitReached),
		errors.Is(err, ErrTitleRequested):
		writeError(w, http.StatusConflict, err)
	case Retryable(err):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func queryLimit(r *http.Request) int {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	return limit
}
