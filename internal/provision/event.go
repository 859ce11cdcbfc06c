// AngelaMos | 2026
// event.go

package provision

import (
	"strconv"
	"strings"

	"github.com/atelierline/portal/internal/account"
)

// Metadata keys carried on a checkout and echoed back on the payment event.
const (
	MetaTier           = "tier"
	MetaProjectAddress = "project_address"
	MetaProjectName    = "project_name"
	MetaLeadID         = "lead_id"
)

// PaymentEvent is a verified payment confirmation, independent of the
// provider that sent it.
type PaymentEvent struct {
	EventID         string
	CustomerEmail   string
	CustomerName    string
	CustomerID      string
	PaymentIntentID string
	Amount          int64
	Currency        string
	Status          string
	Metadata        map[string]string
}

func (e PaymentEvent) meta(key string) string {
	return strings.TrimSpace(e.Metadata[key])
}

// validate normalizes the fields conversion keys on and rejects events
// missing either of them.
func (e PaymentEvent) validate() (PaymentEvent, error) {
	e.CustomerEmail = account.NormalizeEmail(e.CustomerEmail)
	e.PaymentIntentID = strings.TrimSpace(e.PaymentIntentID)
	e.CustomerName = strings.TrimSpace(e.CustomerName)
	e.Currency = strings.ToLower(strings.TrimSpace(e.Currency))

	switch {
	case e.CustomerEmail == "":
		return e, validationError("customer email is required")
	case !strings.Contains(e.CustomerEmail, "@"):
		return e, validationError("customer email is malformed")
	case e.PaymentIntentID == "":
		return e, validationError("payment intent id is required")
	case e.Amount < 0:
		return e, validationError("amount cannot be negative")
	}

	return e, nil
}

// parseTier accepts "3", "tier 3" and "tier_3". ok is false for anything
// else, including numbers outside the tier range.
func parseTier(raw string, minTier, maxTier int) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "tier")
	s = strings.TrimLeft(s, " _-")

	n, err := strconv.Atoi(s)
	if err != nil || n < minTier || n > maxTier {
		return 0, false
	}
	return n, true
}
