// AngelaMos | 2026
// handler.go

package project

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atelierline/portal/internal/core"
	"github.com/atelierline/portal/internal/middleware"
)

type Response struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Tier           int       `json:"tier"`
	Status         string    `json:"status"`
	PaymentStatus  string    `json:"payment_status"`
	AccessCode     string    `json:"access_code"`
	ProjectAddress string    `json:"project_address"`
	CreatedAt      time.Time `json:"created_at"`
}

func ToResponse(p *Project) Response {
	return Response{
		ID:             p.ID,
		Name:           p.Name,
		Tier:           p.Tier,
		Status:         p.Status,
		PaymentStatus:  p.PaymentStatus,
		AccessCode:     p.AccessCode,
		ProjectAddress: p.ProjectAddress,
		CreatedAt:      p.CreatedAt,
	}
}

// Handler serves the client portal. Every lookup is scoped to the
// authenticated account.
type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/portal/projects", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Get("/{accessCode}", h.Get)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	if accountID == "" {
		core.Unauthorized(w, "")
		return
	}

	projects, err := h.repo.ListByAccount(r.Context(), accountID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]Response, 0, len(projects))
	for i := range projects {
		out = append(out, ToResponse(&projects[i]))
	}

	core.OK(w, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	if accountID == "" {
		core.Unauthorized(w, "")
		return
	}

	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "accessCode")))

	p, err := h.repo.GetForAccount(r.Context(), accountID, code)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "project")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToResponse(p))
}
