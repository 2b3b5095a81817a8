package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

func newTask(clientID int64, amount string) *models.Task {
	return &models.Task{
		ClientID:        clientID,
		ServiceType:     models.ServiceTypeExpress,
		Description:     "Fix the kitchen sink",
		Location:        models.Location{Lat: 4.65, Lon: -74.05, Address: "Calle 1", City: "Bogota"},
		RequestedAt:     time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		AgreedAmount:    decimal.RequireFromString(amount),
		PlatformFeeRate: models.DefaultPlatformFeeRate,
		State:           models.TaskStatePending,
	}
}

func TestCreateAssignsIDsAndPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	db, err := Open(dir)
	require.NoError(t, err)

	s := db.Stores()
	first := newTask(1, "150")
	second := newTask(1, "80")
	require.NoError(t, s.Tasks.Create(ctx, first))
	require.NoError(t, s.Tasks.Create(ctx, second))
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.False(t, first.CreatedAt.IsZero())

	reopened, err := Open(dir)
	require.NoError(t, err)
	got, err := reopened.Stores().Tasks.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.AgreedAmount.Equal(decimal.RequireFromString("150")))
	assert.Equal(t, models.TaskStatePending, got.State)

	third := newTask(2, "10")
	require.NoError(t, reopened.Stores().Tasks.Create(ctx, third))
	assert.Equal(t, int64(3), third.ID, "ids continue after reopen")
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	_, err = db.Stores().Tasks.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = db.Stores().Tasks.Update(context.Background(), &models.Task{ID: 42})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	task := newTask(1, "150")
	require.NoError(t, db.Stores().Tasks.Create(ctx, task))

	got, err := db.Stores().Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	got.State = models.TaskStateCompleted
	got.TaskerID = models.Int64Ptr(9)

	again, err := db.Stores().Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatePending, again.State)
	assert.Nil(t, again.TaskerID)
}

func TestWithinTxRollsBackEveryWriteOnError(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	db, err := Open(dir)
	require.NoError(t, err)

	task := newTask(1, "150")
	require.NoError(t, db.Stores().Tasks.Create(ctx, task))

	boom := errors.New("boom")
	err = db.WithinTx(ctx, func(ctx context.Context, s store.Stores) error {
		got, err := s.Tasks.GetByID(ctx, task.ID)
		if err != nil {
			return err
		}
		got.State = models.TaskStateAssigned
		got.TaskerID = models.Int64Ptr(7)
		if err := s.Tasks.Update(ctx, got); err != nil {
			return err
		}
		if err := s.Requests.Create(ctx, &models.TaskRequest{
			TaskID: task.ID, TaskerID: 7, ClientID: 1,
			Kind: models.RequestKindApplication, Status: models.RequestStatusAccepted,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := db.Stores().Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatePending, got.State)
	assert.Nil(t, got.TaskerID)

	reqs, err := db.Stores().Requests.Find(ctx, store.RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, reqs)

	_, err = os.Stat(filepath.Join(dir, "task_requests.json"))
	assert.True(t, os.IsNotExist(err), "nothing flushed for a rolled back unit of work")

	next := &models.TaskRequest{TaskID: task.ID, TaskerID: 8, ClientID: 1, Kind: models.RequestKindApplication, Status: models.RequestStatusPending}
	require.NoError(t, db.Stores().Requests.Create(ctx, next))
	assert.Equal(t, int64(1), next.ID, "id counter restored by rollback")
}

func TestWithinTxCommitsAllWrites(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	db, err := Open(dir)
	require.NoError(t, err)
	task := newTask(1, "150")
	require.NoError(t, db.Stores().Tasks.Create(ctx, task))

	err = db.WithinTx(ctx, func(ctx context.Context, s store.Stores) error {
		got, err := s.Tasks.GetByID(ctx, task.ID)
		if err != nil {
			return err
		}
		got.State = models.TaskStateCompleted
		if err := s.Tasks.Update(ctx, got); err != nil {
			return err
		}
		return s.Ledger.Create(ctx, &models.LedgerEntry{
			TaskID: task.ID, TaskerID: 7, EntryType: models.LedgerEntryTaskerEarning,
			Amount: decimal.RequireFromString("142.5"),
		})
	})
	require.NoError(t, err)

	reopened, err := Open(dir)
	require.NoError(t, err)
	got, err := reopened.Stores().Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStateCompleted, got.State)
	entries, err := reopened.Stores().Ledger.Find(ctx, store.LedgerFilter{TaskID: &task.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("142.5")))
}

func TestUniquenessRules(t *testing.T) {
	ctx := context.Background()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	s := db.Stores()

	require.NoError(t, s.Clients.Create(ctx, &models.Client{Name: "Ana", Email: "ana@example.com"}))
	err = s.Clients.Create(ctx, &models.Client{Name: "Ana 2", Email: " ANA@example.com "})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	rating := &models.Rating{TaskID: 1, RaterID: 1, RaterRole: models.RoleClient, RatedID: 2, RatedRole: models.RoleTasker, Stars: 5}
	require.NoError(t, s.Ratings.Create(ctx, rating))
	dup := &models.Rating{TaskID: 1, RaterID: 1, RaterRole: models.RoleClient, RatedID: 2, RatedRole: models.RoleTasker, Stars: 3}
	assert.ErrorIs(t, s.Ratings.Create(ctx, dup), store.ErrDuplicate)

	other := &models.Rating{TaskID: 1, RaterID: 1, RaterRole: models.RoleTasker, RatedID: 1, RatedRole: models.RoleClient, Stars: 4}
	assert.NoError(t, s.Ratings.Create(ctx, other), "same rater in another role is a distinct rating")

	got, err := s.Clients.GetByEmail(ctx, "Ana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
}

func TestTaskListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	s := db.Stores()

	for i := 0; i < 5; i++ {
		task := newTask(1, "100")
		if i%2 == 1 {
			task.ServiceType = models.ServiceTypeSpecialist
		}
		require.NoError(t, s.Tasks.Create(ctx, task))
	}
	require.NoError(t, s.Tasks.Create(ctx, newTask(2, "500")))

	clientID := int64(1)
	tasks, total, err := s.Tasks.List(ctx, store.TaskFilter{ClientID: &clientID, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, tasks, 2)
	assert.Greater(t, tasks[0].ID, tasks[1].ID, "newest first")

	tasks, total, err = s.Tasks.List(ctx, store.TaskFilter{ClientID: &clientID, Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, tasks, 1)

	tasks, total, err = s.Tasks.List(ctx, store.TaskFilter{ServiceType: models.ServiceTypeSpecialist})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, tasks, 2)

	minAmount := decimal.RequireFromString("200")
	tasks, _, err = s.Tasks.List(ctx, store.TaskFilter{MinAmount: &minAmount})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(2), tasks[0].ClientID)
}
