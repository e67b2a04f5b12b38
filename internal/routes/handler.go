package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/rutero-app/rutero/internal/observability"
	"github.com/rutero-app/rutero/internal/platform/httpx"
	"github.com/rutero-app/rutero/internal/shared"
)

// Handler manages route lifecycle endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	metrics  *observability.Metrics
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// SetMetrics installs optional outcome counters.
func (h *Handler) SetMetrics(m *observability.Metrics) {
	h.metrics = m
}

// MountRoutes registers route lifecycle routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/routes", h.listRoutes)
	r.Post("/routes", h.createRoute)
	r.Get("/routes/{id}", h.showRoute)
	r.Post("/routes/{id}/finish", h.finishRoute)
	r.Get("/routes/{id}/settlement", h.showSettlement)
	r.Get("/routes/{id}/settlement.csv", h.exportSettlement)

	r.Post("/stops/{id}/complete", h.completeStop)
	r.Post("/stops/{id}/fail", h.failStop)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRouteNotFound), errors.Is(err, ErrStopNotFound),
		errors.Is(err, ErrOrderNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrStopAlreadyClosed), errors.Is(err, ErrRouteFinished):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrRouteNotCompleted), errors.Is(err, ErrRouteNotFinished),
		errors.Is(err, ErrOrderNotRoutable):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid State", err.Error())
	case errors.Is(err, ErrNoOrders), errors.Is(err, ErrDuplicateOrder),
		errors.Is(err, ErrMissingCoordinates), errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrReasonRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("route handler failure", "error", err)
		httpx.RespondError(w, err)
	}
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) listRoutes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	distributorID, err := strconv.ParseInt(q.Get("distributor_id"), 10, 64)
	if err != nil || distributorID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "distributor_id is required")
		return
	}

	req := ListRequest{DistributorID: distributorID, Limit: 20}

	if raw := q.Get("driver_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			req.DriverID = &id
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
		Routes: results,
		Total:  total,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
}

func (h *Handler) createRoute(w http.ResponseWriter, r *http.Request) {
	actorID := shared.ActorFromContext(r.Context())
	if actorID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor header missing")
		return
	}

	var req CreateRouteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	routeID, err := h.service.CreateRoute(r.Context(), req, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	detail, stops, err := h.fetchDetail(r.Context(), routeID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.logger.Info("route created",
		"route_id", routeID,
		"distributor_id", req.DistributorID,
		"driver_id", req.DriverID,
		"stops", len(stops),
		"actor_id", actorID,
	)
	httpx.JSON(w, http.StatusCreated, DetailResponse{Route: *detail, Stops: stops})
}

func (h *Handler) showRoute(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid route id")
		return
	}

	detail, stops, err := h.fetchDetail(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, DetailResponse{Route: *detail, Stops: stops})
}

// fetchDetail loads the route header and its stop rows concurrently.
func (h *Handler) fetchDetail(ctx context.Context, routeID int64) (*WithDetails, []StopWithOrder, error) {
	var (
		detail *WithDetails
		stops  []StopWithOrder
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail, err = h.service.GetWithDetails(ctx, routeID)
		return err
	})
	g.Go(func() error {
		var err error
		stops, err = h.service.GetStopsWithOrders(ctx, routeID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return detail, stops, nil
}

func (h *Handler) completeStop(w http.ResponseWriter, r *http.Request) {
	actorID := shared.ActorFromContext(r.Context())
	if actorID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor header missing")
		return
	}

	stopID, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid stop id")
		return
	}

	var req CompleteStopRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.CompleteDelivery(r.Context(), stopID, req, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.CountStopOutcome("completed")
	}
	h.logger.Info("stop completed",
		"stop_id", stopID,
		"route_id", result.Stop.RouteID,
		"amount", req.AmountCollected.String(),
		"route_completed", result.RouteCompleted,
		"actor_id", actorID,
	)
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) failStop(w http.ResponseWriter, r *http.Request) {
	actorID := shared.ActorFromContext(r.Context())
	if actorID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor header missing")
		return
	}

	stopID, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid stop id")
		return
	}

	var req FailStopRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.MarkFailed(r.Context(), stopID, req, actorID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.CountStopOutcome("failed")
	}
	h.logger.Info("stop failed",
		"stop_id", stopID,
		"route_id", result.Stop.RouteID,
		"reason", req.Reason,
		"route_completed", result.RouteCompleted,
		"actor_id", actorID,
	)
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) finishRoute(w http.ResponseWriter, r *http.Request) {
	actorID := shared.ActorFromContext(r.Context())
	if actorID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor header missing")
		return
	}

	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid route id")
		return
	}

	settlement, err := h.service.FinishRoute(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.logger.Info("route liquidated",
		"route_id", id,
		"expected", settlement.TotalExpected.String(),
		"collected", settlement.TotalCollected.String(),
		"difference", settlement.Difference.String(),
		"actor_id", actorID,
	)
	httpx.JSON(w, http.StatusOK, settlementResponse(settlement))
}

func (h *Handler) showSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid route id")
		return
	}

	settlement, err := h.service.GetSettlement(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, settlementResponse(settlement))
}

func (h *Handler) exportSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid route id")
		return
	}

	settlement, err := h.service.GetSettlement(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "settlement-"+settlement.RouteNumber+".csv"))
	if err := WriteSettlementCSV(w, settlement); err != nil {
		h.logger.Error("settlement csv export failed", "route_id", id, "error", err)
	}
}

func settlementResponse(s *Settlement) SettlementResponse {
	return SettlementResponse{
		RouteID:        s.RouteID,
		RouteNumber:    s.RouteNumber,
		Status:         s.Status,
		FinishedAt:     s.FinishedAt,
		TotalExpected:  s.TotalExpected,
		TotalCollected: s.TotalCollected,
		Difference:     s.Difference,
	}
}
