// AngelaMos | 2026
// entity.go

package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// Entry is an append-only record of a provisioning action.
type Entry struct {
	ID           string         `db:"id"`
	Actor        string         `db:"actor"`
	Action       string         `db:"action"`
	ResourceType string         `db:"resource_type"`
	ResourceID   string         `db:"resource_id"`
	Details      types.JSONText `db:"details"`
	CreatedAt    time.Time      `db:"created_at"`
}

const (
	ActionPaymentProvisioned = "payment.provisioned"
	ActionNotificationFailed = "notification.failed"
	ActionNotificationResent = "notification.resent"
)

const (
	ActorSystem         = "system"
	ActorPaymentWebhook = "payment-webhook"
)

const (
	ResourcePayment = "payment"
	ResourceProject = "project"
)

// NewEntry builds an entry with details encoded as JSON.
func NewEntry(
	actor, action, resourceType, resourceID string,
	details map[string]any,
) (*Entry, error) {
	raw := types.JSONText("{}")
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("encode audit details: %w", err)
		}
		raw = types.JSONText(b)
	}

	return &Entry{
		ID:           uuid.NewString(),
		Actor:        actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      raw,
	}, nil
}

type ListParams struct {
	Page         int
	PageSize     int
	Action       string
	ResourceType string
	ResourceID   string
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}
