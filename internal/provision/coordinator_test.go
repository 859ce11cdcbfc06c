// AngelaMos | 2026
// coordinator_test.go

package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierline/portal/internal/account"
	"github.com/atelierline/portal/internal/audit"
	"github.com/atelierline/portal/internal/client"
	"github.com/atelierline/portal/internal/core"
	"github.com/atelierline/portal/internal/lead"
	"github.com/atelierline/portal/internal/payment"
	"github.com/atelierline/portal/internal/project"
)

const unknownAddress = "Address not provided"

type harness struct {
	c         *Coordinator
	store     *memStore
	notifier  *recordingNotifier
	workspace *recordingWorkspace
}

func newHarness(t *testing.T, defaultTier int) *harness {
	t.Helper()

	h := &harness{
		store:     newMemStore(),
		notifier:  &recordingNotifier{},
		workspace: &recordingWorkspace{},
	}
	h.c = NewCoordinator(Deps{
		UnitOfWork: h.store,
		Notifier:   h.notifier,
		Workspace:  h.workspace,
		Metrics:    core.NopMetrics(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: Config{
			DefaultTier:    defaultTier,
			UnknownAddress: unknownAddress,
			PortalURL:      "https://portal.example.com",
		},
		Issue: fastIssuer(),
	})
	return h
}

func event(intent, email string, meta map[string]string) PaymentEvent {
	return PaymentEvent{
		EventID:         "evt_" + intent,
		CustomerEmail:   email,
		CustomerName:    "Dana Owner",
		CustomerID:      "cus_123",
		PaymentIntentID: intent,
		Amount:          450000,
		Currency:        "USD",
		Status:          "paid",
		Metadata:        meta,
	}
}

func TestConvertProvisionsEverything(t *testing.T) {
	h := newHarness(t, 1)

	res, err := h.c.Convert(context.Background(), event("pi_1", "Dana@Example.com", map[string]string{
		MetaTier:           "3",
		MetaProjectAddress: "12 Harbour Road",
		MetaProjectName:    "Harbour Road extension",
	}))

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.AlreadyProcessed)
	assert.True(t, res.AccountCreated)
	assert.Equal(t, 3, res.Tier)
	assert.Equal(t, TierFromMetadata, res.TierSource)

	assert.Equal(t, "dana@example.com", res.Account.Email)
	assert.Equal(t, account.TypeClient, res.Account.Type)
	assert.Equal(t, 3, res.Account.Tier)
	assert.Equal(t, client.StatusOnboarding, res.Client.Status)
	assert.Equal(t, "12 Harbour Road", res.Client.ProjectAddress)
	assert.Equal(t, "Harbour Road extension", res.Project.Name)
	assert.Equal(t, project.PaymentStatusPaid, res.Project.PaymentStatus)
	assert.Equal(t, res.Project.AccessCode, res.AccessCode)
	assert.Equal(t, "pi_1", res.Payment.PaymentIntentID)
	assert.Equal(t, "usd", res.Payment.Currency)
	assert.Equal(t, int64(450000), res.Payment.Amount)
	assert.Equal(t, res.Project.ID, res.Payment.ProjectID)

	accounts, clients, projects, payments, audits := h.store.counts()
	assert.Equal(t, []int{1, 1, 1, 1, 1}, []int{accounts, clients, projects, payments, audits})
	assert.Equal(t, []string{audit.ActionPaymentProvisioned}, h.store.auditActions())

	sent := h.notifier.calls()
	require.Len(t, sent, 1)
	assert.Equal(t, "dana@example.com", sent[0].email)
	assert.Equal(t, res.AccessCode, sent[0].notice.AccessCode)
	assert.Equal(t, 3, sent[0].notice.Tier)
	assert.Equal(t, "Harbour Road extension", sent[0].notice.ProjectName)
	assert.Equal(t, "12 Harbour Road", sent[0].notice.ProjectAddress)
	assert.NotEmpty(t, sent[0].notice.TempPassword)
	assert.NotEqual(t, sent[0].notice.TempPassword, res.Account.PasswordHash)

	require.Len(t, h.workspace.pages, 1)
	assert.Equal(t, res.Project.ID, h.workspace.pages[0].ProjectID)
}

func TestConvertValidationBeforeWrites(t *testing.T) {
	tests := []struct {
		name string
		ev   PaymentEvent
	}{
		{"missing email", event("pi_1", "  ", nil)},
		{"malformed email", event("pi_1", "dana.example.com", nil)},
		{"missing payment intent", event(" ", "dana@example.com", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 1)

			res, err := h.c.Convert(context.Background(), tt.ev)

			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, core.ErrInvalidInput)

			accounts, clients, projects, payments, audits := h.store.counts()
			assert.Zero(t, accounts+clients+projects+payments+audits)
			assert.Empty(t, h.notifier.calls())
		})
	}
}

func TestConvertSameIntentTwice(t *testing.T) {
	h := newHarness(t, 1)
	ev := event("pi_dup", "dana@example.com", map[string]string{MetaTier: "2"})

	first, err := h.c.Convert(context.Background(), ev)
	require.NoError(t, err)

	second, err := h.c.Convert(context.Background(), ev)
	require.NoError(t, err)

	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, first.Project.ID, second.Project.ID)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
	assert.Equal(t, first.Account.ID, second.Account.ID)
	assert.Equal(t, first.AccessCode, second.AccessCode)
	assert.Equal(t, 2, second.Tier)

	_, _, projects, payments, audits := h.store.counts()
	assert.Equal(t, 1, projects)
	assert.Equal(t, 1, payments)
	assert.Equal(t, 1, audits)
	assert.Len(t, h.notifier.calls(), 1)
}

func TestConvertExistingAccountGetsNewProject(t *testing.T) {
	h := newHarness(t, 1)

	first, err := h.c.Convert(context.Background(), event("pi_a", "dana@example.com", map[string]string{
		MetaProjectAddress: "12 Harbour Road",
	}))
	require.NoError(t, err)

	second, err := h.c.Convert(context.Background(), event("pi_b", " DANA@example.com ", map[string]string{
		MetaProjectAddress: "4 Mill Lane",
	}))
	require.NoError(t, err)

	assert.False(t, second.AccountCreated)
	assert.Equal(t, first.Account.ID, second.Account.ID)
	assert.Equal(t, first.Client.ID, second.Client.ID)
	assert.NotEqual(t, first.Project.ID, second.Project.ID)
	assert.NotEqual(t, first.AccessCode, second.AccessCode)
	assert.Equal(t, "4 Mill Lane", second.Project.ProjectAddress)

	accounts, clients, projects, payments, _ := h.store.counts()
	assert.Equal(t, 1, accounts)
	assert.Equal(t, 1, clients)
	assert.Equal(t, 2, projects)
	assert.Equal(t, 2, payments)

	sent := h.notifier.calls()
	require.Len(t, sent, 2)
	assert.NotEmpty(t, sent[0].notice.TempPassword)
	assert.Empty(t, sent[1].notice.TempPassword, "existing accounts keep their password")
}

func TestConvertRollsBack(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*memStore)
	}{
		{"audit append fails", func(s *memStore) { s.failAuditAction = audit.ActionPaymentProvisioned }},
		{"payment insert fails", func(s *memStore) { s.failPayment = errors.New("connection reset") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 1)
			tt.setup(h.store)

			res, err := h.c.Convert(context.Background(), event("pi_1", "dana@example.com", nil))

			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, IsTransactionError(err))

			accounts, clients, projects, payments, audits := h.store.counts()
			assert.Zero(t, accounts+clients+projects+payments+audits)
			assert.Empty(t, h.notifier.calls())
			assert.Empty(t, h.workspace.pages)
		})
	}
}

func TestConvertRetryAfterRollbackSucceeds(t *testing.T) {
	h := newHarness(t, 1)
	h.store.failAuditAction = audit.ActionPaymentProvisioned
	ev := event("pi_retry", "dana@example.com", nil)

	_, err := h.c.Convert(context.Background(), ev)
	require.Error(t, err)

	h.store.failAuditAction = ""
	res, err := h.c.Convert(context.Background(), ev)

	require.NoError(t, err)
	assert.False(t, res.AlreadyProcessed)
	assert.True(t, res.AccountCreated)
	_, _, projects, payments, _ := h.store.counts()
	assert.Equal(t, 1, projects)
	assert.Equal(t, 1, payments)
}

func TestConvertLosesRaceOnUniqueIntent(t *testing.T) {
	h := newHarness(t, 1)

	winner := struct {
		account account.Account
		client  client.Client
		project project.Project
		payment payment.Payment
	}{
		account: account.Account{ID: uuid.NewString(), Email: "dana@example.com", Type: account.TypeClient, Tier: 2},
		client:  client.Client{ID: uuid.NewString(), Status: client.StatusOnboarding},
		project: project.Project{ID: uuid.NewString(), Name: "winner", AccessCode: "WINNER01", Tier: 2},
		payment: payment.Payment{ID: uuid.NewString(), PaymentIntentID: "pi_race", Tier: 2},
	}
	winner.client.AccountID = winner.account.ID
	winner.project.ClientID = winner.client.ID
	winner.payment.ProjectID = winner.project.ID

	h.store.failPayment = fmt.Errorf("create payment: %w", payment.ErrDuplicateIntent)
	h.store.afterRollback = func(t *tables) {
		h.store.failPayment = nil
		t.accounts[winner.account.ID] = winner.account
		t.clients[winner.client.ID] = winner.client
		t.projects[winner.project.ID] = winner.project
		t.payments[winner.payment.ID] = winner.payment
	}

	res, err := h.c.Convert(context.Background(), event("pi_race", "dana@example.com", nil))

	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.Equal(t, winner.project.ID, res.Project.ID)
	assert.Equal(t, "WINNER01", res.AccessCode)
	assert.Equal(t, winner.account.ID, res.Account.ID)

	_, _, projects, payments, _ := h.store.counts()
	assert.Equal(t, 1, projects)
	assert.Equal(t, 1, payments)
	assert.Empty(t, h.notifier.calls())
}

func TestConvertConcurrentSameIntent(t *testing.T) {
	h := newHarness(t, 1)
	ev := event("pi_concurrent", "dana@example.com", nil)

	const workers = 8
	results := make([]*Result, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = h.c.Convert(context.Background(), ev)
		}()
	}
	wg.Wait()

	fresh := 0
	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Project.ID, results[i].Project.ID)
		if !results[i].AlreadyProcessed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)

	accounts, _, projects, payments, _ := h.store.counts()
	assert.Equal(t, 1, accounts)
	assert.Equal(t, 1, projects)
	assert.Equal(t, 1, payments)
	assert.Len(t, h.notifier.calls(), 1)
}

func TestConvertConcurrentDifferentIntents(t *testing.T) {
	h := newHarness(t, 1)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.c.Convert(context.Background(), event(
				fmt.Sprintf("pi_%d", i),
				fmt.Sprintf("client%d@example.com", i),
				nil,
			))
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	accounts, _, projects, payments, _ := h.store.counts()
	assert.Equal(t, workers, accounts)
	assert.Equal(t, workers, projects)
	assert.Equal(t, workers, payments)
}

func TestConvertNotificationFailureKeepsRecords(t *testing.T) {
	h := newHarness(t, 1)
	sendErr := errors.New("smtp: 421 service not available")
	h.notifier.err = sendErr

	res, err := h.c.Convert(context.Background(), event("pi_1", "dana@example.com", nil))

	require.Error(t, err)
	require.NotNil(t, res, "committed result is returned with the notification error")
	assert.True(t, IsNotificationError(err))
	assert.False(t, IsTransactionError(err))
	assert.ErrorIs(t, err, sendErr)

	var ne *NotificationError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, res.Project.ID, ne.ProjectID)
	assert.Equal(t, "dana@example.com", ne.Email)

	accounts, clients, projects, payments, _ := h.store.counts()
	assert.Equal(t, []int{1, 1, 1, 1}, []int{accounts, clients, projects, payments})
	assert.Equal(t,
		[]string{audit.ActionPaymentProvisioned, audit.ActionNotificationFailed},
		h.store.auditActions(),
	)
	assert.Len(t, h.workspace.pages, 1)
}

func TestConvertNotificationAuditFailureStillReportsNotice(t *testing.T) {
	h := newHarness(t, 1)
	h.notifier.err = errors.New("smtp down")
	h.store.failAuditAction = audit.ActionNotificationFailed

	res, err := h.c.Convert(context.Background(), event("pi_1", "dana@example.com", nil))

	require.NotNil(t, res)
	assert.True(t, IsNotificationError(err))
	_, _, _, payments, _ := h.store.counts()
	assert.Equal(t, 1, payments)
}

func TestConvertWorkspaceFailureIsIgnored(t *testing.T) {
	h := newHarness(t, 1)
	h.workspace.err = errors.New("notion unavailable")

	res, err := h.c.Convert(context.Background(), event("pi_1", "dana@example.com", nil))

	require.NoError(t, err)
	assert.NotNil(t, res)
}

func intPtr(v int) *int { return &v }

func TestConvertTierResolution(t *testing.T) {
	overrideLead := lead.Lead{
		ID:              uuid.NewString(),
		Email:           "dana@example.com",
		Status:          lead.StatusQualified,
		RecommendedTier: 2,
		TierOverride:    intPtr(4),
		OverrideReason:  func() *string { s := "full service requested"; return &s }(),
	}
	recommendedLead := lead.Lead{
		ID:              uuid.NewString(),
		Email:           "dana@example.com",
		Status:          lead.StatusNeedsReview,
		RecommendedTier: 3,
	}
	closedLead := lead.Lead{
		ID:              uuid.NewString(),
		Email:           "dana@example.com",
		Status:          lead.StatusClosed,
		RecommendedTier: 1,
	}

	tests := []struct {
		name       string
		meta       map[string]string
		wantTier   int
		wantSource TierSource
	}{
		{"lead override wins", map[string]string{MetaLeadID: overrideLead.ID, MetaTier: "1"}, 4, TierFromOverride},
		{"lead recommendation", map[string]string{MetaLeadID: recommendedLead.ID, MetaTier: "1"}, 3, TierFromRecommendation},
		{"unknown lead falls back to metadata", map[string]string{MetaLeadID: uuid.NewString(), MetaTier: "4"}, 4, TierFromMetadata},
		{"malformed lead id falls back to metadata", map[string]string{MetaLeadID: "lead-7", MetaTier: "tier_3"}, 3, TierFromMetadata},
		{"metadata tier", map[string]string{MetaTier: " 1 "}, 1, TierFromMetadata},
		{"out of range metadata uses default", map[string]string{MetaTier: "9"}, 2, TierFromDefault},
		{"unparsable metadata uses default", map[string]string{MetaTier: "premium"}, 2, TierFromDefault},
		{"no metadata uses default", nil, 2, TierFromDefault},
		{"closed lead still supplies tier", map[string]string{MetaLeadID: closedLead.ID}, 1, TierFromRecommendation},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 2)
			for _, l := range []lead.Lead{overrideLead, recommendedLead, closedLead} {
				h.store.t.leads[l.ID] = l
			}

			res, err := h.c.Convert(context.Background(), event(fmt.Sprintf("pi_%d", i), "dana@example.com", tt.meta))

			require.NoError(t, err)
			assert.Equal(t, tt.wantTier, res.Tier)
			assert.Equal(t, tt.wantSource, res.TierSource)
			assert.Equal(t, tt.wantTier, res.Payment.Tier)
			assert.Equal(t, tt.wantTier, res.Project.Tier)
		})
	}
}

func TestConvertMarksLeadConverted(t *testing.T) {
	h := newHarness(t, 1)
	l := lead.Lead{ID: uuid.NewString(), Status: lead.StatusQualified, RecommendedTier: 2}
	closed := lead.Lead{ID: uuid.NewString(), Status: lead.StatusClosed, RecommendedTier: 2}
	h.store.t.leads[l.ID] = l
	h.store.t.leads[closed.ID] = closed

	_, err := h.c.Convert(context.Background(), event("pi_1", "a@example.com", map[string]string{MetaLeadID: l.ID}))
	require.NoError(t, err)
	_, err = h.c.Convert(context.Background(), event("pi_2", "b@example.com", map[string]string{MetaLeadID: closed.ID}))
	require.NoError(t, err)

	assert.Equal(t, lead.StatusConverted, h.store.t.leads[l.ID].Status)
	assert.Equal(t, lead.StatusClosed, h.store.t.leads[closed.ID].Status)
}

func TestConvertDefaultsMissingAddress(t *testing.T) {
	h := newHarness(t, 1)

	res, err := h.c.Convert(context.Background(), event("pi_1", "dana@example.com", nil))

	require.NoError(t, err)
	assert.Equal(t, unknownAddress, res.Client.ProjectAddress)
	assert.Equal(t, unknownAddress, res.Project.ProjectAddress)
	assert.Equal(t, "Tier 1 project", res.Project.Name)
}

func TestResendAccessNotice(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()

	res, err := h.c.Convert(ctx, event("pi_1", "dana@example.com", nil))
	require.NoError(t, err)
	originalHash := res.Account.PasswordHash

	resent, err := h.c.ResendAccessNotice(ctx, res.Project.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, res.AccessCode, resent.AccessCode)

	stored := h.store.t.accounts[res.Account.ID]
	assert.NotEqual(t, originalHash, stored.PasswordHash)
	assert.Equal(t, 1, stored.TokenVersion)

	sent := h.notifier.calls()
	require.Len(t, sent, 2)
	assert.Equal(t, res.AccessCode, sent[1].notice.AccessCode)
	assert.NotEmpty(t, sent[1].notice.TempPassword)
	assert.NotEqual(t, sent[0].notice.TempPassword, sent[1].notice.TempPassword)

	assert.Equal(t,
		[]string{audit.ActionPaymentProvisioned, audit.ActionNotificationResent},
		h.store.auditActions(),
	)
}

func TestResendAccessNoticeUnknownProject(t *testing.T) {
	h := newHarness(t, 1)

	_, err := h.c.ResendAccessNotice(context.Background(), uuid.NewString(), "admin-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, h.notifier.calls())
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1", 1, true},
		{" 4 ", 4, true},
		{"tier_2", 2, true},
		{"Tier 3", 3, true},
		{"tier-1", 1, true},
		{"0", 0, false},
		{"5", 0, false},
		{"", 0, false},
		{"gold", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseTier(tt.in, 1, 4)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
