package procurement

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

// Handler wires HTTP endpoints for the purchase request flow.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers purchase request routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.raise)
	r.Get("/{id}", h.show)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
	r.Post("/{id}/order", h.markOrdered)
	r.Post("/{id}/receive", h.receive)
}

type linePayload struct {
	ItemID        int64   `json:"itemId" validate:"required"`
	ItemName      string  `json:"itemName" validate:"required"`
	Category      string  `json:"category"`
	Quantity      float64 `json:"quantity" validate:"gt=0"`
	Unit          string  `json:"unit"`
	EstimatedCost float64 `json:"estimatedCost" validate:"gte=0"`
}

type raisePayload struct {
	Reason   string        `json:"reason"`
	Priority string        `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	OrderID  *int64        `json:"orderId"`
	Lines    []linePayload `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) raise(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var payload raisePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.ValidationProblem(w, validationFields(err))
		return
	}

	input := RaiseInput{
		Reason:   payload.Reason,
		Priority: shared.Priority(payload.Priority),
		OrderID:  payload.OrderID,
	}
	for _, l := range payload.Lines {
		input.Lines = append(input.Lines, Line{
			ItemID:        l.ItemID,
			ItemName:      l.ItemName,
			Category:      l.Category,
			Quantity:      l.Quantity,
			Unit:          l.Unit,
			EstimatedCost: l.EstimatedCost,
		})
	}

	pr, err := h.service.Raise(r.Context(), input, actor)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, pr)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := Filter{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Statuses = []Status{Status(status)}
	}
	if requestedBy, err := strconv.ParseInt(r.URL.Query().Get("requestedBy"), 10, 64); err == nil {
		filter.RequestedBy = requestedBy
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		filter.Offset = offset
	}

	requests, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchaseRequests": requests})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid purchase request id")
		return
	}
	pr, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pr)
}

type decisionPayload struct {
	Note string `json:"note"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64, note string, actor shared.Actor) (*PurchaseRequest, error)) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid purchase request id")
		return
	}
	var payload decisionPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	pr, err := fn(r.Context(), id, payload.Note, actor)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pr)
}

func (h *Handler) markOrdered(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid purchase request id")
		return
	}
	pr, err := h.service.MarkOrdered(r.Context(), id, actor)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pr)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid purchase request id")
		return
	}
	pr, result, err := h.service.Receive(r.Context(), id, actor)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"purchaseRequest": pr,
		"restock":         result,
	})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
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
