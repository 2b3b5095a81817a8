package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

func TestTaskWhere_Empty(t *testing.T) {
	where, args := taskWhere(store.TaskFilter{})
	if where != "" || len(args) != 0 {
		t.Errorf("empty filter: got %q %v", where, args)
	}
}

func TestTaskWhere_NumbersPlaceholdersInOrder(t *testing.T) {
	client := int64(3)
	minAmount := decimal.RequireFromString("50")
	before := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	where, args := taskWhere(store.TaskFilter{
		ExcludeClientID:   &client,
		States:            []models.TaskState{models.TaskStatePending},
		MinAmount:         &minAmount,
		AdminApprovedOnly: true,
		CompletedBefore:   &before,
	})
	want := " WHERE client_id <> $1 AND state = ANY($2) AND agreed_amount >= $3 AND admin_approved AND work_completed_at <= $4"
	if where != want {
		t.Errorf("where:\n got %q\nwant %q", where, want)
	}
	if len(args) != 4 {
		t.Fatalf("args: got %d, want 4", len(args))
	}
	if states, ok := args[1].([]string); !ok || len(states) != 1 || states[0] != "PENDING" {
		t.Errorf("states arg: got %#v", args[1])
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	body, err := migrationFS.ReadFile("migrations/0001_init.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, table := range []string{"tasks", "task_requests", "ratings", "ledger_entries", "password_reset_tokens"} {
		if !strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Errorf("migration missing table %s", table)
		}
	}
}
