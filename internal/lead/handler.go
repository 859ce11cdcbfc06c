// AngelaMos | 2026
// handler.go

package lead

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atelierline/portal/internal/core"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes registers the public intake endpoints. intakeLimit guards
// lead submission separately from the global limiter.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	intakeLimit func(http.Handler) http.Handler,
) {
	r.With(intakeLimit).Post("/leads", h.Submit)
	r.Post("/recommendations", h.Preview)
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/leads", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.List)
		r.Get("/{leadID}", h.Get)
		r.Put("/{leadID}", h.UpdateIntake)
		r.Put("/{leadID}/override", h.SetOverride)
		r.Post("/{leadID}/approve", h.Approve)
		r.Post("/{leadID}/close", h.Close)
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	l, err := h.service.Submit(r.Context(), req)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToSubmitResponse(l))
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req IntakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	core.OK(w, h.service.Preview(r.Context(), req))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))          //nolint:errcheck // defaults on bad input
	pageSize, _ := strconv.Atoi(q.Get("page_size")) //nolint:errcheck // defaults on bad input

	params := ListParams{
		Page:     page,
		PageSize: pageSize,
		Status:   Status(q.Get("status")),
		Search:   q.Get("search"),
	}
	params.Normalize()

	leads, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]LeadResponse, 0, len(leads))
	for i := range leads {
		out = append(out, ToLeadResponse(&leads[i]))
	}

	core.Paginated(w, out, params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.Get(r.Context(), leadID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToLeadResponse(l))
}

func (h *Handler) UpdateIntake(w http.ResponseWriter, r *http.Request) {
	var req UpdateIntakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	l, err := h.service.UpdateIntake(r.Context(), leadID(r), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToLeadResponse(l))
}

func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	l, err := h.service.SetOverride(r.Context(), leadID(r), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToLeadResponse(l))
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.Approve(r.Context(), leadID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToLeadResponse(l))
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.Close(r.Context(), leadID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToLeadResponse(l))
}

// leadID maps malformed ids onto a lookup that cannot match, so they read
// as not found instead of a database error.
func leadID(r *http.Request) string {
	id := chi.URLParam(r, "leadID")
	if _, err := uuid.Parse(id); err != nil {
		return uuid.Nil.String()
	}
	return id
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "lead")
	case errors.Is(err, ErrOverrideReason):
		core.BadRequest(w, "override reason is required when a tier override is set")
	case errors.Is(err, ErrOverrideTier):
		core.BadRequest(w, "override tier must be between 1 and 4")
	case errors.Is(err, ErrInvalidTransition):
		core.Conflict(w, err.Error())
	default:
		core.InternalServerError(w, err)
	}
}
