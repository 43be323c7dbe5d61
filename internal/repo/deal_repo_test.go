package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/chatcrm/go-crm-backend/internal/domain"
	"gorm.io/gorm"
)

func seedContact(t *testing.T, db *gorm.DB, tenantID uint, channelUserID string) *domain.Contact {
	t.Helper()
	c, err := CreateContact(context.Background(), db, tenantID, domain.ChannelWhatsApp, channelUserID, nil)
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	return c
}

func TestCreateOpenDeal_Defaults(t *testing.T) {
	db := newTestDB(t)
	tn := seedTenant(t, db, "acme")
	c := seedContact(t, db, tn.ID, "923001234567")

	d, err := CreateOpenDeal(context.Background(), db, tn.ID, c.ID)
	if err != nil {
		t.Fatalf("CreateOpenDeal: %v", err)
	}
	if d.Stage != domain.StageNew || d.Status != domain.DealOpen {
		t.Fatalf("fresh deal must be new/open, got %s/%s", d.Stage, d.Status)
	}
}

func TestCreateOpenDeal_SecondOpenRejected(t *testing.T) {
	db := newTestDB(t)
	tn := seedTenant(t, db, "acme")
	c := seedContact(t, db, tn.ID, "923001234567")
	ctx := context.Background()

	first, err := CreateOpenDeal(ctx, db, tn.ID, c.ID)
	if err != nil {
		t.Fatalf("first open deal: %v", err)
	}
	// ux_deals_one_open rejects a second open row for the same contact.
	if _, err := CreateOpenDeal(ctx, db, tn.ID, c.ID); err == nil {
		t.Fatalf("second open deal must violate ux_deals_one_open")
	}
	// The loser re-queries and reuses the winner.
	d, err := LatestOpenDeal(ctx, db, tn.ID, c.ID)
	if err != nil {
		t.Fatalf("LatestOpenDeal after conflict: %v", err)
	}
	if d.ID != first.ID {
		t.Fatalf("survivor = %d, want %d", d.ID, first.ID)
	}
}

func TestLatestOpenDeal_IgnoresClosedAndPrefersNewest(t *testing.T) {
	db := newTestDB(t)
	tn := seedTenant(t, db, "acme")
	c := seedContact(t, db, tn.ID, "923001234567")
	ctx := context.Background()

	old, err := CreateOpenDeal(ctx, db, tn.ID, c.ID)
	if err != nil {
		t.Fatalf("CreateOpenDeal: %v", err)
	}
	// Close it out; the next open deal is a brand new row.
	if err := db.Model(&domain.Deal{}).Where("id = ?", old.ID).Update("status", domain.DealClosed).Error; err != nil {
		t.Fatalf("close deal: %v", err)
	}
	fresh, err := CreateOpenDeal(ctx, db, tn.ID, c.ID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	got, err := LatestOpenDeal(ctx, db, tn.ID, c.ID)
	if err != nil {
		t.Fatalf("LatestOpenDeal: %v", err)
	}
	if got.ID != fresh.ID {
		t.Fatalf("got deal %d, want newest open %d", got.ID, fresh.ID)
	}
}

func TestLatestOpenDeal_NotFoundAcrossTenants(t *testing.T) {
	db := newTestDB(t)
	t1 := seedTenant(t, db, "acme")
	t2 := seedTenant(t, db, "globex")
	c := seedContact(t, db, t1.ID, "923001234567")
	ctx := context.Background()

	if _, err := CreateOpenDeal(ctx, db, t1.ID, c.ID); err != nil {
		t.Fatalf("CreateOpenDeal: %v", err)
	}
	// The other tenant must not see it.
	_, err := LatestOpenDeal(ctx, db, t2.ID, c.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant lookup: got %v, want ErrNotFound", err)
	}
}

func TestUpdateDealStage_TenantScoped(t *testing.T) {
	db := newTestDB(t)
	t1 := seedTenant(t, db, "acme")
	t2 := seedTenant(t, db, "globex")
	c := seedContact(t, db, t1.ID, "923001234567")
	ctx := context.Background()

	d, err := CreateOpenDeal(ctx, db, t1.ID, c.ID)
	if err != nil {
		t.Fatalf("CreateOpenDeal: %v", err)
	}

	if err := UpdateDealStage(ctx, db, t1.ID, d.ID, domain.StageQualified); err != nil {
		t.Fatalf("UpdateDealStage: %v", err)
	}
	got, _ := GetDeal(ctx, db, t1.ID, d.ID)
	if got.Stage != domain.StageQualified {
		t.Fatalf("stage = %s, want qualified", got.Stage)
	}

	// A foreign tenant cannot touch the row.
	if err := UpdateDealStage(ctx, db, t2.ID, d.ID, domain.StageClosed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant update: got %v, want ErrNotFound", err)
	}
}

func TestUpdateDealDetails_PartialPatch(t *testing.T) {
	db := newTestDB(t)
	tn := seedTenant(t, db, "acme")
	c := seedContact(t, db, tn.ID, "923001234567")
	ctx := context.Background()

	d, err := CreateOpenDeal(ctx, db, tn.ID, c.ID)
	if err != nil {
		t.Fatalf("CreateOpenDeal: %v", err)
	}

	city := "Lahore"
	if err := UpdateDealDetails(ctx, db, tn.ID, d.ID, &city, nil, nil); err != nil {
		t.Fatalf("UpdateDealDetails: %v", err)
	}
	got, _ := GetDeal(ctx, db, tn.ID, d.ID)
	if got.City == nil || *got.City != "Lahore" {
		t.Fatalf("city not set: %+v", got)
	}
	if got.Budget != nil {
		t.Fatalf("budget must stay untouched, got %q", *got.Budget)
	}
}
