// AngelaMos | 2026
// coordinator.go

package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atelierline/portal/internal/account"
	"github.com/atelierline/portal/internal/audit"
	"github.com/atelierline/portal/internal/client"
	"github.com/atelierline/portal/internal/core"
	"github.com/atelierline/portal/internal/credential"
	"github.com/atelierline/portal/internal/lead"
	"github.com/atelierline/portal/internal/notify"
	"github.com/atelierline/portal/internal/payment"
	"github.com/atelierline/portal/internal/project"
	"github.com/atelierline/portal/internal/recommend"
	"github.com/atelierline/portal/internal/workspace"
)

const tracerName = "provision"

type TierSource string

const (
	TierFromOverride       TierSource = "lead_override"
	TierFromRecommendation TierSource = "lead_recommendation"
	TierFromMetadata       TierSource = "metadata"
	TierFromDefault        TierSource = "default"
)

const (
	outcomeProvisioned        = "provisioned"
	outcomeAlreadyProcessed   = "already_processed"
	outcomeInvalid            = "invalid"
	outcomeFailed             = "failed"
	outcomeNotificationFailed = "notification_failed"
)

// Result is the persisted outcome of a conversion. AccessCode is the
// project's code and is the same on every replay of the same intent.
type Result struct {
	Account          *account.Account
	Client           *client.Client
	Project          *project.Project
	Payment          *payment.Payment
	AccessCode       string
	Tier             int
	TierSource       TierSource
	AccountCreated   bool
	AlreadyProcessed bool
}

type Config struct {
	DefaultTier    int
	UnknownAddress string
	PortalURL      string
}

type Deps struct {
	UnitOfWork UnitOfWork
	Notifier   notify.Dispatcher
	Workspace  workspace.Provisioner
	Metrics    *core.Metrics
	Logger     *slog.Logger
	Config     Config
	// Issue defaults to credential.Issue.
	Issue func() (*credential.Credential, error)
}

type Coordinator struct {
	uow       UnitOfWork
	notifier  notify.Dispatcher
	workspace workspace.Provisioner
	metrics   *core.Metrics
	logger    *slog.Logger
	cfg       Config
	issue     func() (*credential.Credential, error)
}

func NewCoordinator(deps Deps) *Coordinator {
	c := &Coordinator{
		uow:       deps.UnitOfWork,
		notifier:  deps.Notifier,
		workspace: deps.Workspace,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		cfg:       deps.Config,
		issue:     deps.Issue,
	}

	if c.issue == nil {
		c.issue = credential.Issue
	}
	if c.workspace == nil {
		c.workspace = workspace.Noop{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.notifier == nil {
		c.notifier = notify.NewLogDispatcher(c.logger)
	}
	if c.cfg.DefaultTier < recommend.MinTier || c.cfg.DefaultTier > recommend.MaxTier {
		c.cfg.DefaultTier = recommend.MinTier
	}
	if c.cfg.UnknownAddress == "" {
		c.cfg.UnknownAddress = "Address not provided"
	}

	return c
}

// Convert provisions the account, client, project and payment for a
// confirmed payment in one transaction and then sends the access notice.
//
// Redelivering an event whose payment intent is already recorded returns
// the stored result with AlreadyProcessed set and sends nothing. A failed
// notice returns the committed Result together with a *NotificationError.
func (c *Coordinator) Convert(ctx context.Context, ev PaymentEvent) (res *Result, err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "provision.convert",
		attribute.String("payment_intent_id", ev.PaymentIntentID),
		attribute.String("event_id", ev.EventID),
	)
	defer func() { core.EndSpan(span, err) }()

	ev, err = ev.validate()
	if err != nil {
		c.countOutcome(outcomeInvalid)
		return nil, err
	}

	cred, err := c.issue()
	if err != nil {
		c.countOutcome(outcomeFailed)
		return nil, &TransactionError{PaymentIntentID: ev.PaymentIntentID, Err: err}
	}

	start := time.Now()
	err = c.uow.Do(ctx, func(r Repos) error {
		var txErr error
		res, txErr = c.provision(ctx, r, ev, cred)
		return txErr
	})
	c.observeDuration(time.Since(start))

	if errors.Is(err, payment.ErrDuplicateIntent) {
		// Another delivery of the same intent committed first.
		res, err = c.loadByIntent(ctx, ev.PaymentIntentID)
		if err != nil {
			c.countOutcome(outcomeFailed)
			return nil, &TransactionError{PaymentIntentID: ev.PaymentIntentID, Err: err}
		}
		c.countOutcome(outcomeAlreadyProcessed)
		c.logger.InfoContext(ctx, "payment intent provisioned concurrently",
			"payment_intent_id", ev.PaymentIntentID,
			"project_id", res.Project.ID,
		)
		return res, nil
	}
	if err != nil {
		c.countOutcome(outcomeFailed)
		return nil, &TransactionError{PaymentIntentID: ev.PaymentIntentID, Err: err}
	}

	span.SetAttributes(
		attribute.Int("tier", res.Tier),
		attribute.Bool("already_processed", res.AlreadyProcessed),
	)

	if res.AlreadyProcessed {
		c.countOutcome(outcomeAlreadyProcessed)
		c.logger.InfoContext(ctx, "payment intent already provisioned",
			"payment_intent_id", ev.PaymentIntentID,
			"project_id", res.Project.ID,
		)
		return res, nil
	}

	c.logger.InfoContext(ctx, "payment provisioned",
		"payment_intent_id", ev.PaymentIntentID,
		"account_id", res.Account.ID,
		"project_id", res.Project.ID,
		"tier", res.Tier,
		"tier_source", res.TierSource,
		"account_created", res.AccountCreated,
	)

	password := ""
	if res.AccountCreated {
		password = cred.Password
	}

	notifyErr := c.sendNotice(ctx, res, password, audit.ActorPaymentWebhook)
	c.mirrorToWorkspace(ctx, res)

	if notifyErr != nil {
		c.countOutcome(outcomeNotificationFailed)
		return res, notifyErr
	}

	c.countOutcome(outcomeProvisioned)
	return res, nil
}

func (c *Coordinator) provision(
	ctx context.Context,
	r Repos,
	ev PaymentEvent,
	cred *credential.Credential,
) (*Result, error) {
	existing, err := r.Payments.GetByIntentID(ctx, ev.PaymentIntentID)
	switch {
	case err == nil:
		return c.loadFromPayment(ctx, r, existing)
	case !errors.Is(err, core.ErrNotFound):
		return nil, err
	}

	tier, source, linked, err := c.resolveTier(ctx, r, ev)
	if err != nil {
		return nil, err
	}

	acct := &account.Account{
		ID:           uuid.New().String(),
		Email:        ev.CustomerEmail,
		PasswordHash: cred.PasswordHash,
		Name:         ev.CustomerName,
		Type:         account.TypeClient,
		Tier:         tier,
	}
	accountCreated, err := r.Accounts.CreateIfAbsent(ctx, acct)
	if err != nil {
		return nil, err
	}

	address := ev.meta(MetaProjectAddress)
	if address == "" {
		address = c.cfg.UnknownAddress
	}

	cl := &client.Client{
		ID:             uuid.New().String(),
		AccountID:      acct.ID,
		Tier:           tier,
		Status:         client.StatusOnboarding,
		ProjectAddress: address,
	}
	if _, err := r.Clients.CreateIfAbsent(ctx, cl); err != nil {
		return nil, err
	}

	proj := &project.Project{
		ID:             uuid.New().String(),
		ClientID:       cl.ID,
		Name:           c.projectName(ev, address, tier),
		Tier:           tier,
		Status:         project.StatusOnboarding,
		PaymentStatus:  project.PaymentStatusPaid,
		AccessCode:     cred.AccessCode,
		ProjectAddress: address,
	}
	if err := r.Projects.Create(ctx, proj); err != nil {
		return nil, err
	}

	pay := &payment.Payment{
		ID:              uuid.New().String(),
		ProjectID:       proj.ID,
		PaymentIntentID: ev.PaymentIntentID,
		CustomerID:      ev.CustomerID,
		Amount:          ev.Amount,
		Currency:        ev.Currency,
		Status:          payment.StatusSucceeded,
		Tier:            tier,
	}
	if err := r.Payments.Create(ctx, pay); err != nil {
		return nil, err
	}

	entry, err := audit.NewEntry(
		audit.ActorPaymentWebhook,
		audit.ActionPaymentProvisioned,
		audit.ResourcePayment,
		pay.ID,
		map[string]any{
			"event_id":        ev.EventID,
			"account_id":      acct.ID,
			"client_id":       cl.ID,
			"project_id":      proj.ID,
			"tier":            tier,
			"tier_source":     source,
			"amount":          ev.Amount,
			"currency":        ev.Currency,
			"account_created": accountCreated,
		},
	)
	if err != nil {
		return nil, err
	}
	if err := r.Audit.Append(ctx, entry); err != nil {
		return nil, err
	}

	if linked != nil {
		if err := c.markConverted(ctx, r, linked); err != nil {
			return nil, err
		}
	}

	return &Result{
		Account:        acct,
		Client:         cl,
		Project:        proj,
		Payment:        pay,
		AccessCode:     proj.AccessCode,
		Tier:           tier,
		TierSource:     source,
		AccountCreated: accountCreated,
	}, nil
}

// resolveTier picks the tier in priority order: admin override on the
// linked lead, the lead's recommendation, the event's tier metadata, and
// finally the configured default.
func (c *Coordinator) resolveTier(
	ctx context.Context,
	r Repos,
	ev PaymentEvent,
) (int, TierSource, *lead.Lead, error) {
	var linked *lead.Lead

	if id := ev.meta(MetaLeadID); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			l, err := r.Leads.GetByID(ctx, id)
			switch {
			case err == nil:
				linked = l
			case !errors.Is(err, core.ErrNotFound):
				return 0, "", nil, err
			}
		}
		if linked == nil {
			c.logger.WarnContext(ctx, "payment references unknown lead",
				"lead_id", id,
				"payment_intent_id", ev.PaymentIntentID,
			)
		}
	}

	if linked != nil {
		if linked.TierOverride != nil && validTier(*linked.TierOverride) {
			return *linked.TierOverride, TierFromOverride, linked, nil
		}
		if validTier(linked.RecommendedTier) {
			return linked.RecommendedTier, TierFromRecommendation, linked, nil
		}
	}

	if tier, ok := parseTier(ev.meta(MetaTier), recommend.MinTier, recommend.MaxTier); ok {
		return tier, TierFromMetadata, linked, nil
	}

	return c.cfg.DefaultTier, TierFromDefault, linked, nil
}

func validTier(t int) bool {
	return t >= recommend.MinTier && t <= recommend.MaxTier
}

func (c *Coordinator) markConverted(ctx context.Context, r Repos, l *lead.Lead) error {
	if !l.Status.CanTransition(lead.StatusConverted) {
		c.logger.WarnContext(ctx, "linked lead not converted",
			"lead_id", l.ID,
			"status", l.Status,
		)
		return nil
	}
	return r.Leads.UpdateStatus(ctx, l.ID, lead.StatusConverted)
}

func (c *Coordinator) projectName(ev PaymentEvent, address string, tier int) string {
	if name := ev.meta(MetaProjectName); name != "" {
		return name
	}
	if address != c.cfg.UnknownAddress {
		return address
	}
	return fmt.Sprintf("Tier %d project", tier)
}

func (c *Coordinator) loadByIntent(ctx context.Context, intentID string) (*Result, error) {
	var res *Result
	err := c.uow.Do(ctx, func(r Repos) error {
		p, err := r.Payments.GetByIntentID(ctx, intentID)
		if err != nil {
			return err
		}
		res, err = c.loadFromPayment(ctx, r, p)
		return err
	})
	return res, err
}

func (c *Coordinator) loadFromPayment(
	ctx context.Context,
	r Repos,
	p *payment.Payment,
) (*Result, error) {
	res, err := loadProject(ctx, r, p.ProjectID)
	if err != nil {
		return nil, err
	}

	res.Payment = p
	res.Tier = p.Tier
	res.AlreadyProcessed = true
	return res, nil
}

func loadProject(ctx context.Context, r Repos, projectID string) (*Result, error) {
	proj, err := r.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	cl, err := r.Clients.GetByID(ctx, proj.ClientID)
	if err != nil {
		return nil, err
	}
	acct, err := r.Accounts.GetByID(ctx, cl.AccountID)
	if err != nil {
		return nil, err
	}

	return &Result{
		Account:    acct,
		Client:     cl,
		Project:    proj,
		AccessCode: proj.AccessCode,
		Tier:       proj.Tier,
	}, nil
}

// ResendAccessNotice re-sends a project's access notice. A client account
// gets a fresh temporary password, which invalidates its existing tokens.
func (c *Coordinator) ResendAccessNotice(
	ctx context.Context,
	projectID string,
	actor string,
) (res *Result, err error) {
	ctx, span := core.StartSpan(ctx, tracerName, "provision.resend_notice",
		attribute.String("project_id", projectID),
	)
	defer func() { core.EndSpan(span, err) }()

	cred, err := c.issue()
	if err != nil {
		return nil, fmt.Errorf("resend access notice: %w", err)
	}

	var rotated bool
	err = c.uow.Do(ctx, func(r Repos) error {
		var txErr error
		res, txErr = loadProject(ctx, r, projectID)
		if txErr != nil {
			return txErr
		}

		if res.Account.Type == account.TypeClient {
			if txErr = r.Accounts.UpdatePassword(ctx, res.Account.ID, cred.PasswordHash); txErr != nil {
				return txErr
			}
			rotated = true
		}

		entry, txErr := audit.NewEntry(
			actor,
			audit.ActionNotificationResent,
			audit.ResourceProject,
			projectID,
			map[string]any{
				"account_id":       res.Account.ID,
				"password_rotated": rotated,
			},
		)
		if txErr != nil {
			return txErr
		}
		return r.Audit.Append(ctx, entry)
	})
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("resend access notice: %w", err)
	}
	if err != nil {
		return nil, &TransactionError{Err: err}
	}

	password := ""
	if rotated {
		password = cred.Password
	}

	if err := c.sendNotice(ctx, res, password, actor); err != nil {
		return res, err
	}
	return res, nil
}

func (c *Coordinator) sendNotice(
	ctx context.Context,
	res *Result,
	password string,
	actor string,
) error {
	notice := notify.AccessNotice{
		RecipientName:  res.Account.Name,
		AccessCode:     res.AccessCode,
		ProjectAddress: res.Project.ProjectAddress,
		ProjectName:    res.Project.Name,
		Tier:           res.Tier,
		TempPassword:   password,
		PortalURL:      c.cfg.PortalURL,
	}

	sendErr := c.notifier.SendAccessNotice(ctx, res.Account.Email, notice)
	if sendErr == nil {
		c.countNotification("sent")
		return nil
	}

	c.countNotification("failed")
	c.logger.ErrorContext(ctx, "access notice failed",
		"email", res.Account.Email,
		"project_id", res.Project.ID,
		"error", sendErr,
	)
	c.recordNotificationFailure(ctx, res, actor, sendErr)

	return &NotificationError{
		Email:     res.Account.Email,
		ProjectID: res.Project.ID,
		Err:       sendErr,
	}
}

// recordNotificationFailure is best effort. The provisioning it refers to
// is already committed.
func (c *Coordinator) recordNotificationFailure(
	ctx context.Context,
	res *Result,
	actor string,
	cause error,
) {
	entry, err := audit.NewEntry(
		actor,
		audit.ActionNotificationFailed,
		audit.ResourceProject,
		res.Project.ID,
		map[string]any{
			"email": res.Account.Email,
			"error": cause.Error(),
		},
	)
	if err == nil {
		err = c.uow.Do(ctx, func(r Repos) error {
			return r.Audit.Append(ctx, entry)
		})
	}
	if err != nil {
		c.logger.WarnContext(ctx, "could not audit notification failure",
			"project_id", res.Project.ID,
			"error", err,
		)
	}
}

func (c *Coordinator) mirrorToWorkspace(ctx context.Context, res *Result) {
	err := c.workspace.CreateProjectPage(ctx, workspace.ProjectPage{
		ProjectID:      res.Project.ID,
		Name:           res.Project.Name,
		ClientEmail:    res.Account.Email,
		ProjectAddress: res.Project.ProjectAddress,
		AccessCode:     res.AccessCode,
		Tier:           res.Tier,
		AmountMinor:    res.Payment.Amount,
		Currency:       res.Payment.Currency,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "workspace page not created",
			"project_id", res.Project.ID,
			"error", err,
		)
	}
}

func (c *Coordinator) countOutcome(outcome string) {
	if c.metrics != nil {
		c.metrics.Conversions.WithLabelValues(outcome).Inc()
	}
}

func (c *Coordinator) countNotification(result string) {
	if c.metrics != nil {
		c.metrics.Notifications.WithLabelValues(result).Inc()
	}
}

func (c *Coordinator) observeDuration(d time.Duration) {
	if c.metrics != nil {
		c.metrics.ConvertDuration.Observe(d.Seconds())
	}
}
