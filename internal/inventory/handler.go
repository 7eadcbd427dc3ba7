package inventory

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/printflow-erp/printflow-erp/internal/platform/httpx"
	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// Handler wires HTTP endpoints for the inventory ledger.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers inventory routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/items", h.listItems)
	r.Post("/items", h.createItem)
	r.Get("/items/{id}", h.showItem)
	r.Get("/items/{id}/transactions", h.listTransactions)
	r.Post("/check", h.checkAvailability)
	r.Post("/consume", h.consume)
	r.Post("/return", h.returnStock)
}

type itemPayload struct {
	Name        string  `json:"name" validate:"required"`
	Category    string  `json:"category"`
	Department  string  `json:"department" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	MinQuantity float64 `json:"minQuantity" validate:"gte=0"`
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var payload itemPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.ValidationProblem(w, validationFields(err))
		return
	}
	dept := shared.Department(payload.Department)
	if !dept.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown department")
		return
	}

	id, err := h.service.CreateItem(r.Context(), Item{
		Name:        payload.Name,
		Category:    payload.Category,
		Department:  dept,
		Quantity:    payload.Quantity,
		MinQuantity: payload.MinQuantity,
	})
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	filter := ItemFilter{
		Department: shared.Department(r.URL.Query().Get("department")),
		Status:     StockStatus(r.URL.Query().Get("status")),
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		filter.Offset = offset
	}

	items, err := h.service.ListItems(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) showItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item id")
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := h.service.ListTransactions(r.Context(), id, limit)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

type linePayload struct {
	ItemID   int64   `json:"itemId" validate:"required"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
}

type movementPayload struct {
	Lines       []linePayload `json:"lines" validate:"required,min=1,dive"`
	OrderID     int64         `json:"orderId"`
	OrderNumber string        `json:"orderNumber"`
}

func (p movementPayload) materials() []MaterialLine {
	lines := make([]MaterialLine, 0, len(p.Lines))
	for _, l := range p.Lines {
		lines = append(lines, MaterialLine{ItemID: l.ItemID, Name: l.Name, Quantity: l.Quantity})
	}
	return lines
}

func (h *Handler) checkAvailability(w http.ResponseWriter, r *http.Request) {
	var payload movementPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.ValidationProblem(w, validationFields(err))
		return
	}

	shortfalls, err := h.service.CheckAvailability(r.Context(), payload.materials())
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"available":  len(shortfalls) == 0,
		"shortfalls": shortfalls,
	})
}

func (h *Handler) consume(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.service.Consume)
}

func (h *Handler) returnStock(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.service.Return)
}

type moveFn func(ctx context.Context, lines []MaterialLine, ref OrderRef, actor shared.Actor) (ApplyResult, error)

func (h *Handler) move(w http.ResponseWriter, r *http.Request, fn moveFn) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var payload movementPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.ValidationProblem(w, validationFields(err))
		return
	}

	ref := OrderRef{OrderID: payload.OrderID, OrderNumber: payload.OrderNumber}
	result, err := fn(r.Context(), payload.materials(), ref, actor)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	status := http.StatusOK
	if !result.Success {
		status = http.StatusMultiStatus
	}
	httpx.JSON(w, status, applyResultPayload(result))
}

func applyResultPayload(result ApplyResult) map[string]any {
	lineErrors := make([]map[string]any, 0, len(result.Errors))
	for _, lineErr := range result.Errors {
		entry := map[string]any{
			"itemId":    lineErr.ItemID,
			"name":      lineErr.Name,
			"requested": lineErr.Requested,
			"available": lineErr.Available,
		}
		if lineErr.Reason != nil {
			entry["reason"] = lineErr.Reason.Error()
		}
		lineErrors = append(lineErrors, entry)
	}
	return map[string]any{
		"success": result.Success,
		"applied": result.Applied,
		"errors":  lineErrors,
	}
}

func validationFields(err error) map[string]string {
	fields := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range verrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
	}
	return fields
}
