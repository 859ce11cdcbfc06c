// AngelaMos | 2026
// handler.go

package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atelierline/portal/internal/core"
	"github.com/atelierline/portal/internal/provision"
)

const maxPayloadBytes = 1 << 20

const (
	resultProvisioned        = "provisioned"
	resultDuplicate          = "duplicate"
	resultIgnored            = "ignored"
	resultInvalidSignature   = "invalid_signature"
	resultMisconfigured      = "misconfigured"
	resultInvalid            = "invalid"
	resultFailed             = "failed"
	resultNotificationFailed = "notification_failed"
)

// Converter is the provisioning side of the webhook.
type Converter interface {
	Convert(ctx context.Context, ev provision.PaymentEvent) (*provision.Result, error)
}

// SeenStore remembers processed event ids so redeliveries skip the
// database. It is an optimization only; the payment intent constraint
// is what guarantees idempotency.
type SeenStore interface {
	Has(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type HandlerConfig struct {
	Verifier  *Verifier
	Converter Converter
	Seen      SeenStore
	Metrics   *core.Metrics
	Logger    *slog.Logger
}

type Handler struct {
	verifier  *Verifier
	converter Converter
	seen      SeenStore
	metrics   *core.Metrics
	logger    *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		verifier:  cfg.Verifier,
		converter: cfg.Converter,
		seen:      cfg.Seen,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/payments", h.Receive)
}

type ReceiveResponse struct {
	Received           bool   `json:"received"`
	Result             string `json:"result"`
	EventID            string `json:"event_id,omitempty"`
	ProjectID          string `json:"project_id,omitempty"`
	NotificationFailed bool   `json:"notification_failed,omitempty"`
}

func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		core.BadRequest(w, "could not read request body")
		return
	}

	ev, err := h.verifier.Verify(payload, r.Header.Get(SignatureHeader))
	switch {
	case errors.Is(err, ErrMisconfigured):
		h.count("unknown", resultMisconfigured)
		h.logger.ErrorContext(ctx, "payment webhook received without a configured secret")
		core.JSONError(w, core.NewAppError(
			err,
			"webhook not configured",
			http.StatusInternalServerError,
			"MISCONFIGURED",
		))
		return
	case errors.Is(err, ErrInvalidSignature):
		h.count("unknown", resultInvalidSignature)
		h.logger.WarnContext(ctx, "payment webhook signature rejected",
			"event", "security",
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
		core.JSONError(w, core.NewAppError(
			err,
			"invalid signature",
			http.StatusBadRequest,
			"INVALID_SIGNATURE",
		))
		return
	case err != nil:
		h.count("unknown", resultInvalid)
		core.BadRequest(w, "malformed event payload")
		return
	}

	if !ev.Confirmed() {
		h.count(kindLabel(ev.Type), resultIgnored)
		h.logger.DebugContext(ctx, "payment webhook ignored",
			"event_id", ev.ID,
			"type", ev.Type,
		)
		core.OK(w, ReceiveResponse{Received: true, Result: resultIgnored, EventID: ev.ID})
		return
	}

	if h.alreadySeen(ctx, ev.ID) {
		h.count(kindLabel(ev.Type), resultDuplicate)
		core.OK(w, ReceiveResponse{Received: true, Result: resultDuplicate, EventID: ev.ID})
		return
	}

	res, err := h.converter.Convert(ctx, ev.ToPaymentEvent())
	switch {
	case errors.Is(err, provision.ErrValidation):
		h.count(kindLabel(ev.Type), resultInvalid)
		h.logger.WarnContext(ctx, "payment event rejected",
			"event_id", ev.ID,
			"error", err,
		)
		core.BadRequest(w, err.Error())
		return
	case provision.IsNotificationError(err):
		h.count(kindLabel(ev.Type), resultNotificationFailed)
		h.markSeen(ctx, ev.ID)
		core.OK(w, ReceiveResponse{
			Received:           true,
			Result:             resultProvisioned,
			EventID:            ev.ID,
			ProjectID:          res.Project.ID,
			NotificationFailed: true,
		})
		return
	case err != nil:
		h.count(kindLabel(ev.Type), resultFailed)
		h.logger.ErrorContext(ctx, "payment event not provisioned",
			"event_id", ev.ID,
			"error", err,
		)
		core.InternalServerError(w, err)
		return
	}

	h.markSeen(ctx, ev.ID)

	result := resultProvisioned
	if res.AlreadyProcessed {
		result = resultDuplicate
	}
	h.count(kindLabel(ev.Type), result)

	core.OK(w, ReceiveResponse{
		Received:  true,
		Result:    result,
		EventID:   ev.ID,
		ProjectID: res.Project.ID,
	})
}

func (h *Handler) alreadySeen(ctx context.Context, eventID string) bool {
	if h.seen == nil || eventID == "" {
		return false
	}
	seen, err := h.seen.Has(ctx, eventID)
	if err != nil {
		h.logger.WarnContext(ctx, "replay cache unavailable", "error", err)
		return false
	}
	return seen
}

func (h *Handler) markSeen(ctx context.Context, eventID string) {
	if h.seen == nil || eventID == "" {
		return
	}
	if err := h.seen.Mark(ctx, eventID); err != nil {
		h.logger.WarnContext(ctx, "replay cache write failed",
			"event_id", eventID,
			"error", err,
		)
	}
}

// kindLabel keeps the metric's kind label bounded.
func kindLabel(kind string) string {
	switch kind {
	case KindCheckoutCompleted, KindPaymentConfirmed:
		return kind
	default:
		return "other"
	}
}

func (h *Handler) count(kind, result string) {
	if h.metrics != nil {
		h.metrics.WebhookEvents.WithLabelValues(kind, result).Inc()
	}
}
