package orders

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

// Viewer scopes order listings to what the actor may see.
type Viewer interface {
	VisibleOrders(ctx context.Context, actor shared.Actor, page shared.Pagination) ([]Order, error)
	DepartmentQueue(ctx context.Context, dept shared.Department, actor shared.Actor, page shared.Pagination) ([]Order, error)
}

// Handler wires HTTP endpoints for the order workflow.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	viewer    Viewer
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, viewer Viewer) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		viewer:    viewer,
		validator: validator.New(),
	}
}

// MountRoutes registers order routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/queue/{department}", h.departmentQueue)
	r.Get("/{id}", h.show)
	r.Post("/{id}/transition", h.transition)
	r.Post("/{id}/comments", h.addComment)
	r.Post("/{id}/assignments", h.assign)
	r.Post("/{id}/assignments/{department}/start", h.startTask)
	r.Post("/{id}/assignments/{department}/complete", h.completeTask)
}

type materialPayload struct {
	ItemID   int64   `json:"itemId" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
}

type createPayload struct {
	CustomerName  string            `json:"customerName" validate:"required"`
	CustomerPhone string            `json:"customerPhone"`
	CustomerEmail string            `json:"customerEmail" validate:"omitempty,email"`
	PrintType     string            `json:"printType" validate:"required"`
	PrintQuantity int               `json:"printQuantity" validate:"gte=0"`
	EstimatedCost float64           `json:"estimatedCost" validate:"gte=0"`
	Priority      string            `json:"priority"`
	IsQuotation   bool              `json:"isQuotation"`
	IsUrgent      bool              `json:"isUrgent"`
	Submit        bool              `json:"submit"`
	Materials     []materialPayload `json:"materials" validate:"dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	var payload createPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.ValidationProblem(w, validationFields(err))
		return
	}

	input := CreateInput{
		CustomerName:  payload.CustomerName,
		CustomerPhone: payload.CustomerPhone,
		CustomerEmail: payload.CustomerEmail,
		PrintType:     payload.PrintType,
		PrintQuantity: payload.PrintQuantity,
		EstimatedCost: payload.EstimatedCost,
		Priority:      shared.Priority(payload.Priority),
		IsQuotation:   payload.IsQuotation,
		IsUrgent:      payload.IsUrgent,
		Submit:        payload.Submit,
	}
	for _, m := range payload.Materials {
		input.Materials = append(input.Materials, Material{
			ItemID:   m.ItemID,
			Name:     m.Name,
			Quantity: m.Quantity,
		})
	}

	order, err := h.service.Create(r.Context(), input, actor)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	result, err := h.viewer.VisibleOrders(r.Context(), actor, pageFromQuery(r))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": result})
}

func (h *Handler) departmentQueue(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	dept := shared.Department(chi.URLParam(r, "department"))
	if !dept.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown department")
		return
	}
	result, err := h.viewer.DepartmentQueue(r.Context(), dept, actor, pageFromQuery(r))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": result})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type transitionPayload struct {
	To   string `json:"to" validate:"required"`
	Note string `json:"note"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	var payload transitionPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.ValidationProblem(w, validationFields(err))
		return
	}

	order, err := h.service.Transition(r.Context(), id, Status(payload.To), payload.Note, actor)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type commentPayload struct {
	Body string `json:"body" validate:"required"`
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	var payload commentPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.ValidationProblem(w, validationFields(err))
		return
	}
	if err := h.service.AddComment(r.Context(), id, payload.Body, actor); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignPayload struct {
	Department     string  `json:"department" validate:"required"`
	AssigneeID     int64   `json:"assigneeId" validate:"required"`
	EstimatedHours float64 `json:"estimatedHours" validate:"gte=0"`
	Notes          string  `json:"notes"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	var payload assignPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.ValidationProblem(w, validationFields(err))
		return
	}

	order, err := h.service.Assign(r.Context(), id, shared.Department(payload.Department), payload.AssigneeID, payload.EstimatedHours, payload.Notes, actor)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) startTask(w http.ResponseWriter, r *http.Request) {
	h.taskAction(w, r, h.service.Start)
}

func (h *Handler) completeTask(w http.ResponseWriter, r *http.Request) {
	h.taskAction(w, r, h.service.Complete)
}

func (h *Handler) taskAction(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64, shared.Department, shared.Actor) (*Order, error)) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	dept := shared.Department(chi.URLParam(r, "department"))
	if !dept.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown department")
		return
	}
	order, err := fn(r.Context(), id, dept, actor)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func pageFromQuery(r *http.Request) shared.Pagination {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
	return shared.NewPagination(page, perPage, 0)
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
