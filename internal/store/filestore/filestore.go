// Package filestore is the zero-dependency storage engine: one JSON file per
// collection under a data directory, with all-or-nothing units of work.
package filestore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

// DB serializes every read and write behind one mutex. A unit of work holds
// the mutex for its whole duration.
type DB struct {
	mu  sync.Mutex
	now func() time.Time

	tasks       *collection[models.Task, *models.Task]
	requests    *collection[models.TaskRequest, *models.TaskRequest]
	ratings     *collection[models.Rating, *models.Rating]
	clients     *collection[models.Client, *models.Client]
	taskers     *collection[models.Tasker, *models.Tasker]
	admins      *collection[models.Admin, *models.Admin]
	resetTokens *collection[models.PasswordResetToken, *models.PasswordResetToken]
	ledger      *collection[models.LedgerEntry, *models.LedgerEntry]
}

var _ store.Backend = (*DB)(nil)

// Open loads (or creates) the collections under dir.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db := &DB{now: func() time.Time { return time.Now().UTC() }}
	var err error
	if db.tasks, err = loadCollection[models.Task](dir, "tasks", nil); err != nil {
		return nil, err
	}
	if db.requests, err = loadCollection[models.TaskRequest](dir, "task_requests", func(a, b *models.TaskRequest) bool {
		return a.TaskID == b.TaskID && a.TaskerID == b.TaskerID && a.Kind == b.Kind
	}); err != nil {
		return nil, err
	}
	if db.ratings, err = loadCollection[models.Rating](dir, "ratings", func(a, b *models.Rating) bool {
		return a.TaskID == b.TaskID && a.RaterID == b.RaterID && a.RaterRole == b.RaterRole
	}); err != nil {
		return nil, err
	}
	if db.clients, err = loadCollection[models.Client](dir, "clients", func(a, b *models.Client) bool {
		return sameEmail(a.Email, b.Email)
	}); err != nil {
		return nil, err
	}
	if db.taskers, err = loadCollection[models.Tasker](dir, "taskers", func(a, b *models.Tasker) bool {
		return sameEmail(a.Email, b.Email)
	}); err != nil {
		return nil, err
	}
	if db.admins, err = loadCollection[models.Admin](dir, "admins", func(a, b *models.Admin) bool {
		return sameEmail(a.Email, b.Email)
	}); err != nil {
		return nil, err
	}
	if db.resetTokens, err = loadCollection[models.PasswordResetToken](dir, "password_reset_tokens", func(a, b *models.PasswordResetToken) bool {
		return a.Token == b.Token
	}); err != nil {
		return nil, err
	}
	if db.ledger, err = loadCollection[models.LedgerEntry](dir, "ledger_entries", func(a, b *models.LedgerEntry) bool {
		return a.TaskID == b.TaskID && a.EntryType == b.EntryType
	}); err != nil {
		return nil, err
	}
	return db, nil
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func (db *DB) Close() error { return nil }

// SetClock replaces the clock used for created_at/updated_at.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

// Stores returns collections where every write commits on its own.
func (db *DB) Stores() store.Stores {
	return db.bind(&session{db: db})
}

// WithinTx runs fn with the lock held. Writes are flushed to disk only when fn
// returns nil; otherwise every in-memory change fn made is undone.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	sess := &session{db: db, tx: &journal{}}
	if err := fn(ctx, db.bind(sess)); err != nil {
		sess.tx.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		sess.tx.rollback()
		return err
	}
	return sess.tx.commit()
}

func (db *DB) bind(s *session) store.Stores {
	return store.Stores{
		Tasks:       &taskStore{s},
		Requests:    &requestStore{s},
		Ratings:     &ratingStore{s},
		Clients:     &clientStore{s},
		Taskers:     &taskerStore{s},
		Admins:      &adminStore{s},
		ResetTokens: &resetTokenStore{s},
		Ledger:      &ledgerStore{s},
	}
}

// session is either autocommit (tx == nil) or bound to a running unit of work
// that already holds db.mu.
type session struct {
	db *DB
	tx *journal
}

func (s *session) read(fn func() error) error {
	if s.tx == nil {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
	}
	return fn()
}

func (s *session) write(fn func(j *journal, now time.Time) error) error {
	if s.tx != nil {
		return fn(s.tx, s.db.now())
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	j := &journal{}
	if err := fn(j, s.db.now()); err != nil {
		j.rollback()
		return err
	}
	return j.commit()
}
