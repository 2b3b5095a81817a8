package execution

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandadito/backend/internal/tasks"
)

// ----------------------------------------------------------------------------
// Stub sweeper
// ----------------------------------------------------------------------------

type stubSweeper struct {
	calls    atomic.Int32
	triggers chan string
	result   tasks.SweepResult
	err      error
}

func newStubSweeper() *stubSweeper {
	return &stubSweeper{triggers: make(chan string, 8)}
}

func (s *stubSweeper) Sweep(_ context.Context, trigger string) (tasks.SweepResult, error) {
	s.calls.Add(1)
	select {
	case s.triggers <- trigger:
	default:
	}
	return s.result, s.err
}

// ----------------------------------------------------------------------------
// Worker
// ----------------------------------------------------------------------------

func TestAutoConfirmSweepArgs_Kind(t *testing.T) {
	assert.Equal(t, "auto_confirm_sweep", AutoConfirmSweepArgs{}.Kind())
}

func TestWorker_RunsScheduledSweep(t *testing.T) {
	sw := newStubSweeper()
	sw.result = tasks.SweepResult{Scanned: 3, Confirmed: 2, Completed: 1}
	w := NewAutoConfirmSweepWorker(sw, nil)

	err := w.Work(context.Background(), &river.Job[AutoConfirmSweepArgs]{JobRow: &rivertype.JobRow{ID: 42}})
	require.NoError(t, err)
	assert.Equal(t, int32(1), sw.calls.Load())
	assert.Equal(t, tasks.TriggerSchedule, <-sw.triggers)
}

func TestWorker_SweepErrorIsRetried(t *testing.T) {
	sw := newStubSweeper()
	sw.err = errors.New("db down")
	w := NewAutoConfirmSweepWorker(sw, nil)

	err := w.Work(context.Background(), &river.Job[AutoConfirmSweepArgs]{JobRow: &rivertype.JobRow{ID: 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, sw.err)
}

func TestWorker_Timeout(t *testing.T) {
	w := NewAutoConfirmSweepWorker(newStubSweeper(), nil)
	assert.Equal(t, 5*time.Minute, w.Timeout(nil))
}

// ----------------------------------------------------------------------------
// Schedule
// ----------------------------------------------------------------------------

func TestParseSchedule(t *testing.T) {
	sched, err := ParseSchedule("@every 1h")
	require.NoError(t, err)
	from := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, from.Add(time.Hour), sched.Next(from))

	sched, err = ParseSchedule("@hourly")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC), sched.Next(from.Add(time.Minute)))

	_, err = ParseSchedule("every hour")
	assert.Error(t, err)
}

func TestNewPeriodicSweep(t *testing.T) {
	sched, err := ParseSchedule("@every 1h")
	require.NoError(t, err)
	assert.NotNil(t, NewPeriodicSweep(sched))
}

func TestScheduler_RejectsBadSchedule(t *testing.T) {
	_, err := NewScheduler(newStubSweeper(), "not a schedule", nil)
	assert.Error(t, err)
}

func TestScheduler_SweepsOnStart(t *testing.T) {
	sw := newStubSweeper()
	s, err := NewScheduler(sw, "@every 1h", nil)
	require.NoError(t, err)

	s.Start()
	select {
	case trigger := <-sw.triggers:
		assert.Equal(t, tasks.TriggerSchedule, trigger)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run on start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_SweepErrorIsLogged(t *testing.T) {
	sw := newStubSweeper()
	sw.err = errors.New("boom")
	s, err := NewScheduler(sw, "@every 1h", nil)
	require.NoError(t, err)

	s.run()
	assert.Equal(t, int32(1), sw.calls.Load())
}
