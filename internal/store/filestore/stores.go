package filestore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

type taskStore struct{ s *session }

func (t *taskStore) Create(ctx context.Context, task *models.Task) error {
	return t.s.write(func(j *journal, now time.Time) error {
		return t.s.db.tasks.insert(j, task, now)
	})
}

func (t *taskStore) GetByID(ctx context.Context, id int64) (out *models.Task, err error) {
	err = t.s.read(func() error {
		out, err = t.s.db.tasks.get(id)
		return err
	})
	return out, err
}

func (t *taskStore) Update(ctx context.Context, task *models.Task) error {
	return t.s.write(func(j *journal, now time.Time) error {
		return t.s.db.tasks.update(j, task, now)
	})
}

// List orders newest first, matching the SQL engine.
func (t *taskStore) List(ctx context.Context, f store.TaskFilter) ([]*models.Task, int, error) {
	var all []*models.Task
	err := t.s.read(func() error {
		var err error
		all, err = t.s.db.tasks.find(f.Match)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(all, func(i, k int) bool {
		if !all[i].CreatedAt.Equal(all[k].CreatedAt) {
			return all[i].CreatedAt.After(all[k].CreatedAt)
		}
		return all[i].ID > all[k].ID
	})
	total := len(all)
	if f.Offset > 0 {
		if f.Offset >= len(all) {
			return []*models.Task{}, total, nil
		}
		all = all[f.Offset:]
	}
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, total, nil
}

type requestStore struct{ s *session }

func (r *requestStore) Create(ctx context.Context, req *models.TaskRequest) error {
	return r.s.write(func(j *journal, now time.Time) error {
		return r.s.db.requests.insert(j, req, now)
	})
}

func (r *requestStore) GetByID(ctx context.Context, id int64) (out *models.TaskRequest, err error) {
	err = r.s.read(func() error {
		out, err = r.s.db.requests.get(id)
		return err
	})
	return out, err
}

func (r *requestStore) Update(ctx context.Context, req *models.TaskRequest) error {
	return r.s.write(func(j *journal, now time.Time) error {
		return r.s.db.requests.update(j, req, now)
	})
}

func (r *requestStore) Find(ctx context.Context, f store.RequestFilter) (out []*models.TaskRequest, err error) {
	err = r.s.read(func() error {
		out, err = r.s.db.requests.find(f.Match)
		return err
	})
	return out, err
}

type ratingStore struct{ s *session }

func (r *ratingStore) Create(ctx context.Context, rating *models.Rating) error {
	return r.s.write(func(j *journal, now time.Time) error {
		return r.s.db.ratings.insert(j, rating, now)
	})
}

func (r *ratingStore) Update(ctx context.Context, rating *models.Rating) error {
	return r.s.write(func(j *journal, now time.Time) error {
		return r.s.db.ratings.update(j, rating, now)
	})
}

func (r *ratingStore) Find(ctx context.Context, f store.RatingFilter) (out []*models.Rating, err error) {
	err = r.s.read(func() error {
		out, err = r.s.db.ratings.find(f.Match)
		return err
	})
	return out, err
}

type clientStore struct{ s *session }

func (c *clientStore) Create(ctx context.Context, client *models.Client) error {
	return c.s.write(func(j *journal, now time.Time) error {
		return c.s.db.clients.insert(j, client, now)
	})
}

func (c *clientStore) GetByID(ctx context.Context, id int64) (out *models.Client, err error) {
	err = c.s.read(func() error {
		out, err = c.s.db.clients.get(id)
		return err
	})
	return out, err
}

func (c *clientStore) GetByEmail(ctx context.Context, email string) (out *models.Client, err error) {
	err = c.s.read(func() error {
		out, err = c.s.db.clients.first(func(x *models.Client) bool { return sameEmail(x.Email, email) })
		return err
	})
	return out, err
}

func (c *clientStore) Update(ctx context.Context, client *models.Client) error {
	return c.s.write(func(j *journal, now time.Time) error {
		return c.s.db.clients.update(j, client, now)
	})
}

type taskerStore struct{ s *session }

func (t *taskerStore) Create(ctx context.Context, tasker *models.Tasker) error {
	return t.s.write(func(j *journal, now time.Time) error {
		return t.s.db.taskers.insert(j, tasker, now)
	})
}

func (t *taskerStore) GetByID(ctx context.Context, id int64) (out *models.Tasker, err error) {
	err = t.s.read(func() error {
		out, err = t.s.db.taskers.get(id)
		return err
	})
	return out, err
}

func (t *taskerStore) GetByEmail(ctx context.Context, email string) (out *models.Tasker, err error) {
	err = t.s.read(func() error {
		out, err = t.s.db.taskers.first(func(x *models.Tasker) bool { return sameEmail(x.Email, email) })
		return err
	})
	return out, err
}

func (t *taskerStore) Update(ctx context.Context, tasker *models.Tasker) error {
	return t.s.write(func(j *journal, now time.Time) error {
		return t.s.db.taskers.update(j, tasker, now)
	})
}

func (t *taskerStore) List(ctx context.Context, approved *bool) (out []*models.Tasker, err error) {
	err = t.s.read(func() error {
		out, err = t.s.db.taskers.find(func(x *models.Tasker) bool {
			return approved == nil || x.Approved == *approved
		})
		return err
	})
	return out, err
}

type adminStore struct{ s *session }

func (a *adminStore) Create(ctx context.Context, admin *models.Admin) error {
	return a.s.write(func(j *journal, now time.Time) error {
		return a.s.db.admins.insert(j, admin, now)
	})
}

func (a *adminStore) GetByID(ctx context.Context, id int64) (out *models.Admin, err error) {
	err = a.s.read(func() error {
		out, err = a.s.db.admins.get(id)
		return err
	})
	return out, err
}

func (a *adminStore) GetByEmail(ctx context.Context, email string) (out *models.Admin, err error) {
	err = a.s.read(func() error {
		out, err = a.s.db.admins.first(func(x *models.Admin) bool { return sameEmail(x.Email, email) })
		return err
	})
	return out, err
}

type resetTokenStore struct{ s *session }

func (r *resetTokenStore) Create(ctx context.Context, p *models.PasswordResetToken) error {
	return r.s.write(func(j *journal, now time.Time) error {
		return r.s.db.resetTokens.insert(j, p, now)
	})
}

func (r *resetTokenStore) GetByToken(ctx context.Context, token string) (out *models.PasswordResetToken, err error) {
	token = strings.TrimSpace(token)
	err = r.s.read(func() error {
		out, err = r.s.db.resetTokens.first(func(x *models.PasswordResetToken) bool { return x.Token == token })
		return err
	})
	return out, err
}

func (r *resetTokenStore) Update(ctx context.Context, p *models.PasswordResetToken) error {
	return r.s.write(func(j *journal, now time.Time) error {
		return r.s.db.resetTokens.update(j, p, now)
	})
}

type ledgerStore struct{ s *session }

func (l *ledgerStore) Create(ctx context.Context, e *models.LedgerEntry) error {
	return l.s.write(func(j *journal, now time.Time) error {
		return l.s.db.ledger.insert(j, e, now)
	})
}

func (l *ledgerStore) Find(ctx context.Context, f store.LedgerFilter) (out []*models.LedgerEntry, err error) {
	err = l.s.read(func() error {
		out, err = l.s.db.ledger.find(f.Match)
		return err
	})
	return out, err
}
