// AngelaMos | 2026
// verify.go

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atelierline/portal/internal/provision"
)

const SignatureHeader = "Payment-Signature"

const (
	KindCheckoutCompleted = "checkout.session.completed"
	KindPaymentConfirmed  = "payment.confirmed"
)

const paidStatus = "paid"

var (
	ErrMisconfigured    = errors.New("webhook secret not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// Event is the provider envelope. Only the fields conversion needs are
// decoded.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object Object `json:"object"`
	} `json:"data"`
}

type Object struct {
	Customer        string            `json:"customer"`
	CustomerDetails CustomerDetails   `json:"customer_details"`
	CustomerEmail   string            `json:"customer_email"`
	PaymentIntent   string            `json:"payment_intent"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	PaymentStatus   string            `json:"payment_status"`
	Metadata        map[string]string `json:"metadata"`
}

type CustomerDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Confirmed reports whether the event is a completed payment that should be
// provisioned.
func (e *Event) Confirmed() bool {
	switch e.Type {
	case KindCheckoutCompleted:
		return e.Data.Object.PaymentStatus == paidStatus
	case KindPaymentConfirmed:
		return true
	default:
		return false
	}
}

func (e *Event) ToPaymentEvent() provision.PaymentEvent {
	obj := e.Data.Object

	email := obj.CustomerDetails.Email
	if email == "" {
		email = obj.CustomerEmail
	}

	return provision.PaymentEvent{
		EventID:         e.ID,
		CustomerEmail:   email,
		CustomerName:    obj.CustomerDetails.Name,
		CustomerID:      obj.Customer,
		PaymentIntentID: obj.PaymentIntent,
		Amount:          obj.AmountTotal,
		Currency:        obj.Currency,
		Status:          obj.PaymentStatus,
		Metadata:        obj.Metadata,
	}
}

type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier accepts an empty secret. Verify then fails with
// ErrMisconfigured instead of the service refusing to start.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{
		secret:    []byte(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Verify checks header against payload and decodes the envelope. The
// header has the form "t=<unix>,v1=<hex>[,v1=<hex>...]" where each v1 is
// HMAC-SHA256 over "<t>.<payload>".
func (v *Verifier) Verify(payload []byte, header string) (*Event, error) {
	if len(v.secret) == 0 {
		return nil, ErrMisconfigured
	}

	ts, sigs, err := parseSignatureHeader(header)
	if err != nil {
		return nil, err
	}

	if v.tolerance > 0 {
		age := v.now().Sub(time.Unix(ts, 0))
		if age > v.tolerance || age < -v.tolerance {
			return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
		}
	}

	expected := v.sign(ts, payload)
	matched := false
	for _, sig := range sigs {
		if hmac.Equal(expected, sig) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, fmt.Errorf("%w: no matching signature", ErrInvalidSignature)
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedPayload)
	}

	return &ev, nil
}

// Sign returns a header value for payload at t. Used by tests and by
// local tooling that replays events.
func (v *Verifier) Sign(payload []byte, t time.Time) string {
	ts := t.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(v.sign(ts, payload)))
}

func (v *Verifier) sign(ts int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return mac.Sum(nil)
}

func parseSignatureHeader(header string) (int64, [][]byte, error) {
	if strings.TrimSpace(header) == "" {
		return 0, nil, fmt.Errorf("%w: missing %s header", ErrInvalidSignature, SignatureHeader)
	}

	var (
		ts    int64
		hasTS bool
		sigs  [][]byte
	)

	for part := range strings.SplitSeq(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
			}
			ts, hasTS = n, true
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			sigs = append(sigs, sig)
		}
	}

	if !hasTS || len(sigs) == 0 {
		return 0, nil, fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}
	return ts, sigs, nil
}
