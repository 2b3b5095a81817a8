package lock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	release, err := l.Acquire(ctx, "sweep", time.Minute)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, "sweep", time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("second acquire: got %v, want ErrHeld", err)
	}
	if _, err := l.Acquire(ctx, "other", time.Minute); err != nil {
		t.Fatalf("other key: %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := l.Acquire(ctx, "sweep", time.Minute); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestLocalLockerExpiry(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	stale, err := l.Acquire(ctx, "sweep", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := l.Acquire(ctx, "sweep", time.Minute); err != nil {
		t.Fatalf("expired lock should be reacquirable: %v", err)
	}

	// The stale owner must not release the new holder's lock.
	_ = stale(ctx)
	if _, err := l.Acquire(ctx, "sweep", time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("got %v, want ErrHeld", err)
	}
}

func TestNewWithoutRedis(t *testing.T) {
	if _, ok := New(nil).(*LocalLocker); !ok {
		t.Fatal("expected local locker without a redis client")
	}
}
