// AngelaMos | 2026
// handler_test.go

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/atelierline/portal/internal/core"
	"github.com/atelierline/portal/internal/project"
	"github.com/atelierline/portal/internal/provision"
)

type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) Convert(ctx context.Context, ev provision.PaymentEvent) (*provision.Result, error) {
	args := m.Called(ctx, ev)
	var res *provision.Result
	if v := args.Get(0); v != nil {
		res = v.(*provision.Result)
	}
	return res, args.Error(1)
}

type memorySeen struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (s *memorySeen) Has(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memorySeen) Mark(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = true
	return nil
}

type testServer struct {
	router    chi.Router
	verifier  *Verifier
	converter *MockConverter
	seen      *memorySeen
}

func newTestServer(secret string) *testServer {
	ts := &testServer{
		verifier:  newTestVerifier(secret),
		converter: new(MockConverter),
		seen:      &memorySeen{keys: map[string]bool{}},
	}
	h := NewHandler(HandlerConfig{
		Verifier:  ts.verifier,
		Converter: ts.converter,
		Seen:      ts.seen,
		Metrics:   core.NopMetrics(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ts.router = chi.NewRouter()
	h.RegisterRoutes(ts.router)
	return ts
}

func (ts *testServer) post(payload, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(payload))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) signed(payload string) string {
	return ts.verifier.Sign([]byte(payload), fixedNow)
}

func decodeReceive(t *testing.T, rec *httptest.ResponseRecorder) ReceiveResponse {
	t.Helper()
	var body struct {
		Success bool            `json:"success"`
		Data    ReceiveResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.True(t, body.Success)
	return body.Data
}

func provisioned(projectID string, alreadyProcessed bool) *provision.Result {
	return &provision.Result{
		Project:          &project.Project{ID: projectID},
		AlreadyProcessed: alreadyProcessed,
	}
}

func TestReceiveProvisionsConfirmedPayment(t *testing.T) {
	ts := newTestServer(testSecret)
	ts.converter.On("Convert", mock.Anything, mock.MatchedBy(func(ev provision.PaymentEvent) bool {
		return ev.PaymentIntentID == "pi_9" && ev.CustomerEmail == "dana@example.com"
	})).Return(provisioned("proj-1", false), nil).Once()

	rec := ts.post(checkoutPayload, ts.signed(checkoutPayload))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeReceive(t, rec)
	assert.Equal(t, resultProvisioned, body.Result)
	assert.Equal(t, "proj-1", body.ProjectID)
	assert.False(t, body.NotificationFailed)
	assert.True(t, ts.seen.keys["evt_1"])
	ts.converter.AssertExpectations(t)
}

func TestReceiveRejectsBadSignature(t *testing.T) {
	ts := newTestServer(testSecret)

	rec := ts.post(checkoutPayload, "t=1773480600,v1=00ff")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_SIGNATURE")
	ts.converter.AssertNotCalled(t, "Convert", mock.Anything, mock.Anything)
}

func TestReceiveWithoutSecretIsServerError(t *testing.T) {
	ts := newTestServer("")

	rec := ts.post(checkoutPayload, "t=1773480600,v1=00ff")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISCONFIGURED")
	ts.converter.AssertNotCalled(t, "Convert", mock.Anything, mock.Anything)
}

func TestReceiveIgnoresOtherKinds(t *testing.T) {
	ts := newTestServer(testSecret)
	payload := `{"id":"evt_5","type":"customer.updated","data":{"object":{}}}`

	rec := ts.post(payload, ts.signed(payload))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resultIgnored, decodeReceive(t, rec).Result)
	ts.converter.AssertNotCalled(t, "Convert", mock.Anything, mock.Anything)
}

func TestReceiveSkipsSeenEvent(t *testing.T) {
	ts := newTestServer(testSecret)
	ts.seen.keys["evt_1"] = true

	rec := ts.post(checkoutPayload, ts.signed(checkoutPayload))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resultDuplicate, decodeReceive(t, rec).Result)
	ts.converter.AssertNotCalled(t, "Convert", mock.Anything, mock.Anything)
}

func TestReceiveReportsAlreadyProcessed(t *testing.T) {
	ts := newTestServer(testSecret)
	ts.converter.On("Convert", mock.Anything, mock.Anything).
		Return(provisioned("proj-1", true), nil)

	rec := ts.post(checkoutPayload, ts.signed(checkoutPayload))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeReceive(t, rec)
	assert.Equal(t, resultDuplicate, body.Result)
	assert.Equal(t, "proj-1", body.ProjectID)
}

func TestReceiveValidationFailure(t *testing.T) {
	ts := newTestServer(testSecret)
	ts.converter.On("Convert", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: customer email is required", provision.ErrValidation))

	rec := ts.post(checkoutPayload, ts.signed(checkoutPayload))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, ts.seen.keys["evt_1"])
}

func TestReceiveTransactionFailureAsksForRetry(t *testing.T) {
	ts := newTestServer(testSecret)
	ts.converter.On("Convert", mock.Anything, mock.Anything).
		Return(nil, &provision.TransactionError{PaymentIntentID: "pi_9", Err: errors.New("deadlock")})

	rec := ts.post(checkoutPayload, ts.signed(checkoutPayload))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, ts.seen.keys["evt_1"], "failed events must stay retryable")
}

func TestReceiveNotificationFailureIsAcknowledged(t *testing.T) {
	ts := newTestServer(testSecret)
	ts.converter.On("Convert", mock.Anything, mock.Anything).
		Return(provisioned("proj-1", false), &provision.NotificationError{
			Email:     "dana@example.com",
			ProjectID: "proj-1",
			Err:       errors.New("smtp down"),
		})

	rec := ts.post(checkoutPayload, ts.signed(checkoutPayload))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeReceive(t, rec)
	assert.Equal(t, resultProvisioned, body.Result)
	assert.True(t, body.NotificationFailed)
	assert.True(t, ts.seen.keys["evt_1"])
}
