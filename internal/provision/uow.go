// AngelaMos | 2026
// uow.go

package provision

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/atelierline/portal/internal/account"
	"github.com/atelierline/portal/internal/audit"
	"github.com/atelierline/portal/internal/client"
	"github.com/atelierline/portal/internal/core"
	"github.com/atelierline/portal/internal/lead"
	"github.com/atelierline/portal/internal/payment"
	"github.com/atelierline/portal/internal/project"
)

// Repos are the repositories bound to one transaction.
type Repos struct {
	Accounts account.Repository
	Clients  client.Repository
	Projects project.Repository
	Payments payment.Repository
	Audit    audit.Repository
	Leads    lead.Repository
}

// UnitOfWork runs fn atomically. Any error returned by fn rolls back every
// write made through the Repos it was given.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(Repos) error) error
}

type sqlUnitOfWork struct {
	db *sqlx.DB
}

func NewUnitOfWork(db *sqlx.DB) UnitOfWork {
	return &sqlUnitOfWork{db: db}
}

func (u *sqlUnitOfWork) Do(ctx context.Context, fn func(Repos) error) error {
	return core.InTxWithOptions(ctx, u.db, core.ReadCommitted, func(tx *sqlx.Tx) error {
		return fn(ReposFor(tx))
	})
}

func ReposFor(db core.DBTX) Repos {
	return Repos{
		Accounts: account.NewRepository(db),
		Clients:  client.NewRepository(db),
		Projects: project.NewRepository(db),
		Payments: payment.NewRepository(db),
		Audit:    audit.NewRepository(db),
		Leads:    lead.NewRepository(db),
	}
}
