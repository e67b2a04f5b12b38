package customers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rutero-app/rutero/internal/platform/httpx"
	"github.com/rutero-app/rutero/internal/shared"
)

// Handler manages customer read endpoints.
type Handler struct {
	logger *slog.Logger
	repo   Repository
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers", h.listCustomers)
	r.Get("/customers/{id}", h.showCustomer)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	distributorID, err := strconv.ParseInt(q.Get("distributor_id"), 10, 64)
	if err != nil || distributorID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "distributor_id is required")
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit := 20
	offset := (page - 1) * limit

	results, total, err := h.repo.ListByDistributor(r.Context(), distributorID, limit, offset)
	if err != nil {
		h.logger.Error("customer list failure", "error", err)
		httpx.RespondError(w, err)
		return
	}
	if results == nil {
		results = []Customer{}
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"customers":  results,
		"pagination": shared.NewPagination(page, limit, total),
	})
}

func (h *Handler) showCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer id")
		return
	}

	customer, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("customer lookup failure", "error", err)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, customer)
}
