// Package store defines the persistence boundary of the marketplace. The
// lifecycle engine only sees these interfaces; filestore (JSON files) and
// repository (PostgreSQL) are the two engines behind them.
package store

import (
	"context"
	"errors"

	"github.com/mandadito/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	// List returns the page selected by f.Limit/f.Offset and the total match count.
	List(ctx context.Context, f TaskFilter) ([]*models.Task, int, error)
}

type RequestStore interface {
	Create(ctx context.Context, r *models.TaskRequest) error
	GetByID(ctx context.Context, id int64) (*models.TaskRequest, error)
	Update(ctx context.Context, r *models.TaskRequest) error
	Find(ctx context.Context, f RequestFilter) ([]*models.TaskRequest, error)
}

type RatingStore interface {
	Create(ctx context.Context, r *models.Rating) error
	Update(ctx context.Context, r *models.Rating) error
	Find(ctx context.Context, f RatingFilter) ([]*models.Rating, error)
}

type ClientStore interface {
	Create(ctx context.Context, c *models.Client) error
	GetByID(ctx context.Context, id int64) (*models.Client, error)
	GetByEmail(ctx context.Context, email string) (*models.Client, error)
	Update(ctx context.Context, c *models.Client) error
}

type TaskerStore interface {
	Create(ctx context.Context, t *models.Tasker) error
	GetByID(ctx context.Context, id int64) (*models.Tasker, error)
	GetByEmail(ctx context.Context, email string) (*models.Tasker, error)
	Update(ctx context.Context, t *models.Tasker) error
	// List returns all taskers, or only those whose approval matches approved.
	List(ctx context.Context, approved *bool) ([]*models.Tasker, error)
}

type AdminStore interface {
	Create(ctx context.Context, a *models.Admin) error
	GetByID(ctx context.Context, id int64) (*models.Admin, error)
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
}

type ResetTokenStore interface {
	Create(ctx context.Context, p *models.PasswordResetToken) error
	GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	Update(ctx context.Context, p *models.PasswordResetToken) error
}

type LedgerStore interface {
	Create(ctx context.Context, e *models.LedgerEntry) error
	Find(ctx context.Context, f LedgerFilter) ([]*models.LedgerEntry, error)
}

// Stores bundles every collection of one engine. Inside WithinTx the same
// struct is bound to the unit of work.
type Stores struct {
	Tasks       TaskStore
	Requests    RequestStore
	Ratings     RatingStore
	Clients     ClientStore
	Taskers     TaskerStore
	Admins      AdminStore
	ResetTokens ResetTokenStore
	Ledger      LedgerStore
}

// TxRunner runs fn as one unit of work: either every write made through the
// provided Stores persists, or none does.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// Backend is a storage engine.
type Backend interface {
	TxRunner
	Stores() Stores
	Close() error
}
