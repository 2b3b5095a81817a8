package profiles

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/ledger"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
	"github.com/mandadito/backend/internal/store/filestore"
)

func setup(t *testing.T) (Service, store.Stores, models.Identity) {
	t.Helper()
	db, err := filestore.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	st := db.Stores()
	ctx := context.Background()
	c := &models.Client{Name: "Ana", Email: "ana@example.com", City: "Lima"}
	if err := st.Clients.Create(ctx, c); err != nil {
		t.Fatal(err)
	}
	tk := &models.Tasker{Name: "Ana", Email: "ana@example.com", City: "Lima"}
	if err := st.Taskers.Create(ctx, tk); err != nil {
		t.Fatal(err)
	}
	dual := models.Identity{Email: c.Email, ClientID: &c.ID, TaskerID: &tk.ID, ActiveRole: models.RoleClient}
	return NewService(st, ledger.NewService(st.Ledger)), st, dual
}

func TestMeDualUser(t *testing.T) {
	svc, _, dual := setup(t)
	me, err := svc.Me(context.Background(), dual)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Client == nil || me.Tasker == nil || me.Admin != nil {
		t.Fatalf("expected client and tasker profiles, got %+v", me)
	}
}

func TestUpdateProfiles(t *testing.T) {
	ctx := context.Background()
	svc, _, dual := setup(t)

	city := "  Arequipa "
	cp, err := svc.UpdateClient(ctx, dual, Update{City: &city})
	if err != nil {
		t.Fatalf("UpdateClient: %v", err)
	}
	if cp.City != "Arequipa" || cp.Name != "Ana" {
		t.Errorf("client profile = %+v", cp)
	}

	bio := "Electrician"
	license := true
	if _, err := svc.UpdateClient(ctx, dual, Update{Bio: &bio}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("bio on client: got %v, want validation error", err)
	}
	tp, err := svc.UpdateTasker(ctx, dual, Update{Bio: &bio, HasLicense: &license})
	if err != nil {
		t.Fatalf("UpdateTasker: %v", err)
	}
	if tp.Bio != bio || !tp.HasLicense {
		t.Errorf("tasker profile = %+v", tp)
	}

	empty := " "
	if _, err := svc.UpdateTasker(ctx, dual, Update{Name: &empty}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("empty name: got %v, want validation error", err)
	}

	clientOnly := models.Identity{ClientID: dual.ClientID, ActiveRole: models.RoleClient}
	if _, err := svc.UpdateTasker(ctx, clientOnly, Update{Bio: &bio}); apperr.KindOf(err) != apperr.KindPermission {
		t.Errorf("client updating tasker profile: got %v", err)
	}
}

func TestEarnings(t *testing.T) {
	ctx := context.Background()
	svc, st, dual := setup(t)
	entries := []*models.LedgerEntry{
		{TaskID: 1, TaskerID: *dual.TaskerID, EntryType: models.LedgerEntryTaskerEarning, Amount: decimal.RequireFromString("142.5")},
		{TaskID: 1, TaskerID: *dual.TaskerID, EntryType: models.LedgerEntryPlatformFee, Amount: decimal.RequireFromString("7.5")},
	}
	for _, e := range entries {
		if err := st.Ledger.Create(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	e, err := svc.Earnings(ctx, dual.As(models.RoleTasker))
	if err != nil {
		t.Fatalf("Earnings: %v", err)
	}
	if !e.NetEarned.Equal(decimal.RequireFromString("142.5")) || e.CompletedTasks != 1 {
		t.Errorf("earnings = %+v", e)
	}

	if _, err := svc.Earnings(ctx, models.Identity{ClientID: dual.ClientID, ActiveRole: models.RoleClient}); apperr.KindOf(err) != apperr.KindPermission {
		t.Errorf("client earnings: got %v", err)
	}
}
