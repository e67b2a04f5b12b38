package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rutero-app/rutero/internal/platform/httpx"
	"github.com/rutero-app/rutero/internal/shared"
)

// Handler manages order endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.showOrder)
	r.Post("/orders/{id}/approve", h.approveOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrCannotApprove), errors.Is(err, ErrCannotCancel):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid State", err.Error())
	case errors.Is(err, ErrDistributorMismatch):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		h.logger.Error("order handler failure", "error", err)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	distributorID, err := strconv.ParseInt(q.Get("distributor_id"), 10, 64)
	if err != nil || distributorID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "distributor_id is required")
		return
	}

	req := ListRequest{DistributorID: distributorID, Limit: 20}

	if raw := q.Get("customer_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			req.CustomerID = &id
		}
	}
	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		if !status.IsValid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown status filter")
			return
		}
		req.Status = &status
	}
	if raw := q.Get("payment_status"); raw != "" {
		ps := PaymentStatus(raw)
		if !ps.IsValid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown payment status filter")
			return
		}
		req.PaymentStatus = &ps
	}
	if raw := q.Get("date_from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			req.DateFrom = &t
		}
	}
	if raw := q.Get("date_to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			req.DateTo = &t
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			req.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			req.Offset = n
		}
	}

	results, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, ListResponse{
		Orders: results,
		Total:  total,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
}

func (h *Handler) showOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}

	order, err := h.service.GetWithCustomer(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) approveOrder(w http.ResponseWriter, r *http.Request) {
	actorID := shared.ActorFromContext(r.Context())
	if actorID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor header missing")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}

	var req ApproveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.Approve(r.Context(), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.logger.Info("order approved", "order_id", id, "actor_id", actorID)
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	actorID := shared.ActorFromContext(r.Context())
	if actorID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor header missing")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}

	var req CancelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.Cancel(r.Context(), id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.logger.Info("order cancelled", "order_id", id, "reason", req.Reason, "actor_id", actorID)
	httpx.JSON(w, http.StatusOK, order)
}
