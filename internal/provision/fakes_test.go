// AngelaMos | 2026
// fakes_test.go

package provision

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atelierline/portal/internal/account"
	"github.com/atelierline/portal/internal/audit"
	"github.com/atelierline/portal/internal/client"
	"github.com/atelierline/portal/internal/core"
	"github.com/atelierline/portal/internal/credential"
	"github.com/atelierline/portal/internal/lead"
	"github.com/atelierline/portal/internal/notify"
	"github.com/atelierline/portal/internal/payment"
	"github.com/atelierline/portal/internal/project"
	"github.com/atelierline/portal/internal/workspace"
)

type tables struct {
	accounts map[string]account.Account
	clients  map[string]client.Client
	projects map[string]project.Project
	payments map[string]payment.Payment
	leads    map[string]lead.Lead
	audit    []audit.Entry
}

func (t tables) clone() tables {
	return tables{
		accounts: maps.Clone(t.accounts),
		clients:  maps.Clone(t.clients),
		projects: maps.Clone(t.projects),
		payments: maps.Clone(t.payments),
		leads:    maps.Clone(t.leads),
		audit:    slices.Clone(t.audit),
	}
}

// memStore is a serializing in-memory unit of work. A failed Do restores
// the snapshot taken when it started.
type memStore struct {
	mu sync.Mutex
	t  tables

	failAuditAction string
	failPayment     error
	// afterRollback runs once, after the next rollback, outside the
	// rolled-back snapshot. It stands in for a concurrent committer.
	afterRollback func(*tables)
}

func newMemStore() *memStore {
	return &memStore{t: tables{
		accounts: map[string]account.Account{},
		clients:  map[string]client.Client{},
		projects: map[string]project.Project{},
		payments: map[string]payment.Payment{},
		leads:    map[string]lead.Lead{},
	}}
}

func (s *memStore) Do(_ context.Context, fn func(Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.t.clone()
	err := fn(Repos{
		Accounts: memAccounts{s},
		Clients:  memClients{s},
		Projects: memProjects{s},
		Payments: memPayments{s},
		Audit:    memAudit{s},
		Leads:    memLeads{s},
	})
	if err != nil {
		s.t = snapshot
		if hook := s.afterRollback; hook != nil {
			s.afterRollback = nil
			hook(&s.t)
		}
	}
	return err
}

func (s *memStore) counts() (accounts, clients, projects, payments, audits int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.t.accounts), len(s.t.clients), len(s.t.projects), len(s.t.payments), len(s.t.audit)
}

func (s *memStore) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.t.audit))
	for _, e := range s.t.audit {
		out = append(out, e.Action)
	}
	return out
}

type memAccounts struct{ s *memStore }

func (m memAccounts) GetByID(_ context.Context, id string) (*account.Account, error) {
	a, ok := m.s.t.accounts[id]
	if !ok {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	return &a, nil
}

func (m memAccounts) GetByEmail(_ context.Context, email string) (*account.Account, error) {
	for _, a := range m.s.t.accounts {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("get account by email: %w", core.ErrNotFound)
}

func (m memAccounts) CreateIfAbsent(ctx context.Context, a *account.Account) (bool, error) {
	if existing, err := m.GetByEmail(ctx, a.Email); err == nil {
		*a = *existing
		return false, nil
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.s.t.accounts[a.ID] = *a
	return true, nil
}

func (m memAccounts) UpdatePassword(_ context.Context, id, hash string) error {
	a, ok := m.s.t.accounts[id]
	if !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	a.PasswordHash = hash
	a.TokenVersion++
	m.s.t.accounts[id] = a
	return nil
}

type memClients struct{ s *memStore }

func (m memClients) GetByID(_ context.Context, id string) (*client.Client, error) {
	c, ok := m.s.t.clients[id]
	if !ok {
		return nil, fmt.Errorf("get client: %w", core.ErrNotFound)
	}
	return &c, nil
}

func (m memClients) GetByAccountID(_ context.Context, accountID string) (*client.Client, error) {
	for _, c := range m.s.t.clients {
		if c.AccountID == accountID {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("get client by account: %w", core.ErrNotFound)
}

func (m memClients) CreateIfAbsent(ctx context.Context, c *client.Client) (bool, error) {
	if existing, err := m.GetByAccountID(ctx, c.AccountID); err == nil {
		*c = *existing
		return false, nil
	}
	m.s.t.clients[c.ID] = *c
	return true, nil
}

type memProjects struct{ s *memStore }

func (m memProjects) Create(_ context.Context, p *project.Project) error {
	for _, existing := range m.s.t.projects {
		if existing.AccessCode == p.AccessCode {
			return fmt.Errorf("create project: %w", core.ErrDuplicateKey)
		}
	}
	m.s.t.projects[p.ID] = *p
	return nil
}

func (m memProjects) GetByID(_ context.Context, id string) (*project.Project, error) {
	p, ok := m.s.t.projects[id]
	if !ok {
		return nil, fmt.Errorf("get project: %w", core.ErrNotFound)
	}
	return &p, nil
}

func (m memProjects) GetByAccessCode(_ context.Context, code string) (*project.Project, error) {
	for _, p := range m.s.t.projects {
		if p.AccessCode == code {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("get project by access code: %w", core.ErrNotFound)
}

func (m memProjects) ListByAccount(_ context.Context, accountID string) ([]project.Project, error) {
	var out []project.Project
	for _, p := range m.s.t.projects {
		if c, ok := m.s.t.clients[p.ClientID]; ok && c.AccountID == accountID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m memProjects) GetForAccount(_ context.Context, accountID, code string) (*project.Project, error) {
	for _, p := range m.s.t.projects {
		if c, ok := m.s.t.clients[p.ClientID]; ok && c.AccountID == accountID && p.AccessCode == code {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("get project for account: %w", core.ErrNotFound)
}

func (m memProjects) Count(_ context.Context) (int, error) {
	return len(m.s.t.projects), nil
}

type memPayments struct{ s *memStore }

func (m memPayments) Create(_ context.Context, p *payment.Payment) error {
	if m.s.failPayment != nil {
		return m.s.failPayment
	}
	for _, existing := range m.s.t.payments {
		if existing.PaymentIntentID == p.PaymentIntentID {
			return fmt.Errorf("create payment: %w", payment.ErrDuplicateIntent)
		}
	}
	p.CreatedAt = time.Now()
	m.s.t.payments[p.ID] = *p
	return nil
}

func (m memPayments) GetByIntentID(_ context.Context, intentID string) (*payment.Payment, error) {
	for _, p := range m.s.t.payments {
		if p.PaymentIntentID == intentID {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("get payment: %w", core.ErrNotFound)
}

func (m memPayments) SumSucceeded(_ context.Context) (int64, error) {
	var total int64
	for _, p := range m.s.t.payments {
		total += p.Amount
	}
	return total, nil
}

type memAudit struct{ s *memStore }

func (m memAudit) Append(_ context.Context, e *audit.Entry) error {
	if m.s.failAuditAction != "" && e.Action == m.s.failAuditAction {
		return fmt.Errorf("append audit entry: %w", core.ErrUnavailable)
	}
	e.CreatedAt = time.Now()
	m.s.t.audit = append(m.s.t.audit, *e)
	return nil
}

func (m memAudit) List(_ context.Context, _ audit.ListParams) ([]audit.Entry, int, error) {
	return slices.Clone(m.s.t.audit), len(m.s.t.audit), nil
}

type memLeads struct{ s *memStore }

func (m memLeads) Create(_ context.Context, l *lead.Lead) error {
	m.s.t.leads[l.ID] = *l
	return nil
}

func (m memLeads) GetByID(_ context.Context, id string) (*lead.Lead, error) {
	l, ok := m.s.t.leads[id]
	if !ok {
		return nil, fmt.Errorf("get lead: %w", core.ErrNotFound)
	}
	return &l, nil
}

func (m memLeads) List(_ context.Context, _ lead.ListParams) ([]lead.Lead, int, error) {
	out := slices.Collect(maps.Values(m.s.t.leads))
	return out, len(out), nil
}

func (m memLeads) Update(_ context.Context, l *lead.Lead) error {
	m.s.t.leads[l.ID] = *l
	return nil
}

func (m memLeads) UpdateStatus(_ context.Context, id string, status lead.Status) error {
	l, ok := m.s.t.leads[id]
	if !ok {
		return fmt.Errorf("update lead status: %w", core.ErrNotFound)
	}
	l.Status = status
	m.s.t.leads[id] = l
	return nil
}

func (m memLeads) CountByStatus(_ context.Context) (map[lead.Status]int, error) {
	counts := map[lead.Status]int{}
	for _, l := range m.s.t.leads {
		counts[l.Status]++
	}
	return counts, nil
}

type sentNotice struct {
	email  string
	notice notify.AccessNotice
}

type recordingNotifier struct {
	mu   sync.Mutex
	err  error
	sent []sentNotice
}

func (n *recordingNotifier) SendAccessNotice(_ context.Context, email string, notice notify.AccessNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotice{email: email, notice: notice})
	return n.err
}

func (n *recordingNotifier) calls() []sentNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.sent)
}

type recordingWorkspace struct {
	mu    sync.Mutex
	err   error
	pages []workspace.ProjectPage
}

func (w *recordingWorkspace) CreateProjectPage(_ context.Context, page workspace.ProjectPage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages = append(w.pages, page)
	return w.err
}

// fastIssuer skips argon2 so tests stay quick. Access codes are unique per
// issuer.
func fastIssuer() func() (*credential.Credential, error) {
	var n atomic.Int64
	return func() (*credential.Credential, error) {
		i := n.Add(1)
		pw := fmt.Sprintf("Temp-pass-%04d!", i)
		return &credential.Credential{
			AccessCode:   fmt.Sprintf("CODE%04d", i),
			Password:     pw,
			PasswordHash: "hash:" + pw,
		}, nil
	}
}
