package ratings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store/filestore"
)

type recordingObserver struct {
	created, updated int
}

func (o *recordingObserver) RatingSaved(created bool, _ string) {
	if created {
		o.created++
	} else {
		o.updated++
	}
}

type fixture struct {
	db     *filestore.DB
	svc    *service
	obs    *recordingObserver
	now    time.Time
	client models.Identity
	tasker models.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := filestore.Open(t.TempDir())
	require.NoError(t, err)
	f := &fixture{db: db, obs: &recordingObserver{}, now: time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)}
	db.SetClock(func() time.Time { return f.now })
	f.svc = NewService(db, 0, f.obs, nil).(*service)
	f.svc.now = func() time.Time { return f.now }

	ctx := context.Background()
	c := &models.Client{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, db.Stores().Clients.Create(ctx, c))
	tk := &models.Tasker{Name: "Bruno", Email: "bruno@example.com", Approved: true}
	require.NoError(t, db.Stores().Taskers.Create(ctx, tk))
	f.client = models.Identity{ClientID: models.Int64Ptr(c.ID), ActiveRole: models.RoleClient}
	f.tasker = models.Identity{TaskerID: models.Int64Ptr(tk.ID), ActiveRole: models.RoleTasker}
	return f
}

// completedTask stores a task whose work finished `ago` before now.
func (f *fixture) completedTask(t *testing.T, ago time.Duration) *models.Task {
	t.Helper()
	done := f.now.Add(-ago)
	task := &models.Task{
		ClientID:                 *f.client.ClientID,
		TaskerID:                 f.tasker.TaskerID,
		ServiceType:              models.ServiceTypeExpress,
		Description:              "Walk the dog",
		AgreedAmount:             decimal.NewFromInt(40),
		PlatformFeeRate:          models.DefaultPlatformFeeRate,
		State:                    models.TaskStateCompleted,
		WorkStartedAt:            models.TimePtr(done.Add(-time.Hour)),
		WorkCompletedAt:          models.TimePtr(done),
		ClientPaymentConfirmedAt: models.TimePtr(done),
		TaskerPaymentReceived:    true,
		TaskerPaymentReceivedAt:  models.TimePtr(done),
		AdminApproved:            true,
	}
	require.NoError(t, f.db.Stores().Tasks.Create(context.Background(), task))
	return task
}

func TestRatingWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	late := f.completedTask(t, 8*24*time.Hour)
	_, _, err := f.svc.Rate(ctx, f.client, late.ID, Input{Stars: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRatingWindowExpired))
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	recent := f.completedTask(t, 6*24*time.Hour)
	r, created, err := f.svc.Rate(ctx, f.client, recent.ID, Input{Stars: 4})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, *f.tasker.TaskerID, r.RatedID)
	assert.Equal(t, models.RoleTasker, r.RatedRole)
	assert.Equal(t, models.RoleClient, r.RaterRole)
}

func TestSecondRatingIsAnEdit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task := f.completedTask(t, time.Hour)

	first, created, err := f.svc.Rate(ctx, f.tasker, task.ID, Input{Stars: 2})
	require.NoError(t, err)
	require.True(t, created)

	f.now = f.now.Add(24 * time.Hour)
	comment := "  paid on time  "
	second, created, err := f.svc.Rate(ctx, f.tasker, task.ID, Input{Stars: 5, Comment: &comment})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Stars)
	assert.Equal(t, "paid on time", *second.Comment)

	all, err := f.svc.ListForTask(ctx, f.client, task.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, 1, f.obs.created)
	assert.Equal(t, 1, f.obs.updated)
}

func TestEditWindowCountsFromRatingCreation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	// Rated on the last eligible day: edits stay open for 7 more days.
	task := f.completedTask(t, 6*24*time.Hour)
	_, _, err := f.svc.Rate(ctx, f.client, task.ID, Input{Stars: 3})
	require.NoError(t, err)

	f.now = f.now.Add(5 * 24 * time.Hour)
	_, created, err := f.svc.Rate(ctx, f.client, task.ID, Input{Stars: 4})
	require.NoError(t, err)
	assert.False(t, created)

	f.now = f.now.Add(3 * 24 * time.Hour)
	_, _, err = f.svc.Rate(ctx, f.client, task.ID, Input{Stars: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEditWindowExpired))
}

func TestRateGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("task not completed", func(t *testing.T) {
		task := f.completedTask(t, time.Hour)
		task.State = models.TaskStateAwaitingPaymentConfirmation
		require.NoError(t, f.db.Stores().Tasks.Update(ctx, task))
		_, _, err := f.svc.Rate(ctx, f.client, task.ID, Input{Stars: 5})
		assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	})

	t.Run("never started", func(t *testing.T) {
		task := f.completedTask(t, time.Hour)
		task.WorkStartedAt = nil
		require.NoError(t, f.db.Stores().Tasks.Update(ctx, task))
		_, _, err := f.svc.Rate(ctx, f.client, task.ID, Input{Stars: 5})
		assert.True(t, errors.Is(err, ErrTaskNeverStarted))
	})

	t.Run("outsider", func(t *testing.T) {
		task := f.completedTask(t, time.Hour)
		other := models.Identity{ClientID: models.Int64Ptr(999), ActiveRole: models.RoleClient}
		_, _, err := f.svc.Rate(ctx, other, task.ID, Input{Stars: 5})
		assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))
	})

	t.Run("unknown task", func(t *testing.T) {
		_, _, err := f.svc.Rate(ctx, f.client, 999, Input{Stars: 5})
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("invalid input", func(t *testing.T) {
		task := f.completedTask(t, time.Hour)
		bad := 6
		for _, in := range []Input{{Stars: 0}, {Stars: 6}, {Stars: 3, Quality: &bad}} {
			_, _, err := f.svc.Rate(ctx, f.client, task.ID, in)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		}
	})
}

func TestReceivedSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, stars := range []int{5, 4, 4} {
		task := f.completedTask(t, time.Hour)
		_, _, err := f.svc.Rate(ctx, f.client, task.ID, Input{Stars: stars})
		require.NoError(t, err)
	}

	list, sum, err := f.svc.Received(ctx, *f.tasker.TaskerID, models.RoleTasker)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, 4.33, sum.AverageStars)

	sum, err = f.svc.TaskerSummary(ctx, *f.tasker.TaskerID)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Count)

	sum, err = f.svc.Summary(ctx, *f.client.ClientID, models.RoleClient)
	require.NoError(t, err)
	assert.Zero(t, sum.Count)
	assert.Zero(t, sum.AverageStars)
}
