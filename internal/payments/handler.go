package payments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rutero-app/rutero/internal/platform/httpx"
	"github.com/rutero-app/rutero/internal/shared"
)

// Handler manages payment ledger endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orders/{id}/balance", h.showBalance)
	r.Get("/orders/{id}/payments", h.listPayments)
	r.Post("/orders/{id}/payments", h.recordPayment)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidMethod):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrOrderCancelled), errors.Is(err, ErrRouteFinished):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid State", err.Error())
	default:
		h.logger.Error("payment handler failure", "error", err)
		httpx.RespondError(w, err)
	}
}

func orderIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) showBalance(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}

	balance, err := h.service.Balance(r.Context(), orderID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}

	entries, err := h.service.ListByOrder(r.Context(), orderID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if entries == nil {
		entries = []Payment{}
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"payments": entries})
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	actorID := shared.ActorFromContext(r.Context())
	if actorID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor header missing")
		return
	}

	orderID, err := orderIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}

	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	payment, err := h.service.RecordPayment(r.Context(), orderID, req, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.logger.Info("payment recorded",
		"order_id", orderID,
		"payment_id", payment.ID,
		"amount", payment.Amount.String(),
		"method", payment.Method,
		"actor_id", actorID,
	)
	httpx.JSON(w, http.StatusCreated, payment)
}
