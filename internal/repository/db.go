// Package repository is the PostgreSQL storage engine, built on pgx.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mandadito/backend/internal/store"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repo works
// inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Postgres struct {
	pool *pgxpool.Pool
}

var _ store.Backend = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Pool() *pgxpool.Pool { return p.pool }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Stores() store.Stores {
	return bind(p.pool)
}

func (p *Postgres) WithinTx(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(ctx, bind(tx))
	})
}

func bind(db DBTX) store.Stores {
	return store.Stores{
		Tasks:       NewTaskRepo(db),
		Requests:    NewRequestRepo(db),
		Ratings:     NewRatingRepo(db),
		Clients:     NewClientRepo(db),
		Taskers:     NewTaskerRepo(db),
		Admins:      NewAdminRepo(db),
		ResetTokens: NewResetTokenRepo(db),
		Ledger:      NewLedgerRepo(db),
	}
}

// Migrate applies the embedded schema files in name order. Each file runs
// once; applied names are kept in schema_migrations.
func (p *Postgres) Migrate(ctx context.Context) ([]string, error) {
	if _, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	var applied []string
	for _, name := range names {
		var done bool
		if err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&done); err != nil {
			return applied, fmt.Errorf("check migration %s: %w", name, err)
		}
		if done {
			continue
		}
		body, err := migrationFS.ReadFile(name)
		if err != nil {
			return applied, err
		}
		err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(body)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", name, err)
		}
		applied = append(applied, name)
	}
	return applied, nil
}

// mapErr translates driver errors into the store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
