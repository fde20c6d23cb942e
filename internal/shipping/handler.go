package shipping

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/harborline/harborline/internal/platform/httpx"
	"github.com/harborline/harborline/internal/shared"
)

// HeaderIdempotencyKey deduplicates create requests.
const HeaderIdempotencyKey = "Idempotency-Key"

// Handler serves the shipping JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new shipping handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ============================================================================
// SHIPMENT CYCLE HANDLERS
// ============================================================================

func (h *Handler) listShipments(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	q := r.URL.Query()

	filter := ListFilter{InstituteID: scope.InstituteID, Search: q.Get("q")}
	if v := q.Get("status"); v != "" {
		status := ShipmentStatus(strings.ToUpper(v))
		if !status.IsValid() {
			httpx.ValidationProblem(w, map[string]string{"status": "unknown status"})
			return
		}
		filter.Status = &status
	}
	for param, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		v := q.Get(param)
		if v == "" {
			continue
		}
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			httpx.ValidationProblem(w, map[string]string{param: "expected YYYY-MM-DD"})
			return
		}
		*dst = &d
	}
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	result, err := h.service.List(r.Context(), filter, page, perPage)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      ToListResponse(result.Cycles),
		"pagination": result.Pagination,
	})
}

func (h *Handler) createShipment(w http.ResponseWriter, r *http.Request) {
	var req CreateShipmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	c, err := h.service.Create(r.Context(), scope, req, r.Header.Get(HeaderIdempotencyKey))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.logger.Info("shipment created",
		slog.String("shipment_id", c.ID.String()),
		slog.Int64("institute_id", scope.InstituteID),
		slog.Int("lighters", len(c.Lighters)),
		slog.Int("trucks", c.TruckCount()),
	)
	httpx.JSON(w, http.StatusCreated, ToShipmentResponse(c))
}

func (h *Handler) getShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	c, err := h.service.Get(r.Context(), scope, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToShipmentResponse(c))
}

func (h *Handler) updateShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateShipmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	c, err := h.service.Update(r.Context(), scope, id, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToShipmentResponse(c))
}

func (h *Handler) deleteShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	if err := h.service.Delete(r.Context(), scope, id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) validateShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	report, err := h.service.Validate(r.Context(), scope, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToValidationResponse(report))
}

// ============================================================================
// STRUCTURAL HANDLERS
// ============================================================================

func (h *Handler) addLighter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req LighterRequest
	if !h.decode(w, r, &req) {
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	l, err := h.service.AddLighter(r.Context(), scope, id, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ToLighterResponse(l))
}

func (h *Handler) removeLighter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	lighterID, ok := pathUUID(w, r, "lighterID")
	if !ok {
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	if err := h.service.RemoveLighter(r.Context(), scope, id, lighterID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateLighterStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateLighterStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	l, err := h.service.UpdateLighterStatus(r.Context(), scope, id, req.Status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToLighterResponse(l))
}

func (h *Handler) addTruck(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req TruckRequest
	if !h.decode(w, r, &req) {
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	t, parent, err := h.service.AddTruck(r.Context(), scope, id, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ToTruckResponse(t, parent))
}

func (h *Handler) removeTruck(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	truckID, ok := pathUUID(w, r, "truckID")
	if !ok {
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	if err := h.service.RemoveTruck(r.Context(), scope, id, truckID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	scope, _ := shared.ScopeFromContext(r.Context())
	p, err := h.service.AddProduct(r.Context(), scope, id, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ToProductResponse(p))
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	scope, _ := shared.ScopeFromContext(r.Context())
	resp, err := h.service.Dashboard(r.Context(), scope.InstituteID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// ============================================================================
// HELPERS
// ============================================================================

// decode reads and validates the body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fieldErr := range verrs {
			fields[fieldPath(fieldErr.Namespace())] = fieldErr.Tag()
		}
		httpx.ValidationProblem(w, fields)
		return false
	}
	return true
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{param: "must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrCapacityExceeded):
		httpx.Problem(w, http.StatusConflict, "Capacity Exceeded", err.Error())
	case errors.Is(err, ErrInvalidNumericValue), errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrAlreadyAttached):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Value", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	default:
		h.logger.Error("shipping request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
	}
}
