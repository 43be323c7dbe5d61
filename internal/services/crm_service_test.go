package services

import (
	"context"
	"errors"
	"testing"

	"github.com/chatcrm/go-crm-backend/internal/domain"
)

func TestSetDealStage_AdvanceAndClose(t *testing.T) {
	svc, tenant := newConvService(t)
	crm := &CRMService{DB: svc.DB}
	ctx := context.Background()

	_, deal, err := svc.Resolve(ctx, tenant.ID, domain.ChannelWhatsApp, "92310", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	got, err := crm.SetDealStage(ctx, tenant.ID, deal.ID, domain.StageOrder)
	if err != nil {
		t.Fatalf("SetDealStage(order): %v", err)
	}
	if got.Stage != domain.StageOrder || got.Status != domain.DealOpen {
		t.Errorf("deal = stage %q status %q, want order/open", got.Stage, got.Status)
	}

	got, err = crm.SetDealStage(ctx, tenant.ID, deal.ID, domain.StageClosed)
	if err != nil {
		t.Fatalf("SetDealStage(closed): %v", err)
	}
	if got.Status != domain.DealClosed {
		t.Errorf("status = %q, closing stage must close the deal", got.Status)
	}
}

func TestSetDealStage_Rejections(t *testing.T) {
	svc, tenant := newConvService(t)
	crm := &CRMService{DB: svc.DB}
	ctx := context.Background()

	_, deal, err := svc.Resolve(ctx, tenant.ID, domain.ChannelWhatsApp, "92311", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := crm.SetDealStage(ctx, tenant.ID, deal.ID, domain.StageOrder); err != nil {
		t.Fatalf("SetDealStage(order): %v", err)
	}

	if _, err := crm.SetDealStage(ctx, tenant.ID, deal.ID, "shipped"); !errors.Is(err, ErrInvalidStage) {
		t.Errorf("unknown stage err = %v, want ErrInvalidStage", err)
	}
	if _, err := crm.SetDealStage(ctx, tenant.ID, deal.ID, domain.StageNew); !errors.Is(err, ErrStageRegression) {
		t.Errorf("regression err = %v, want ErrStageRegression", err)
	}
	if _, err := crm.SetDealStage(ctx, tenant.ID, 99999, domain.StageOrder); !errors.Is(err, ErrDealNotFound) {
		t.Errorf("missing deal err = %v, want ErrDealNotFound", err)
	}

	// Closed deals are immutable, even to a same-rank write.
	if _, err := crm.SetDealStage(ctx, tenant.ID, deal.ID, domain.StageClosed); err != nil {
		t.Fatalf("SetDealStage(closed): %v", err)
	}
	if _, err := crm.SetDealStage(ctx, tenant.ID, deal.ID, domain.StageClosed); !errors.Is(err, ErrStageRegression) {
		t.Errorf("closed write err = %v, want ErrStageRegression", err)
	}
}

func TestSetDealStage_TenantScoped(t *testing.T) {
	db := newTestDB(t)
	t1 := seedTenant(t, db, "Scope One")
	t2 := seedTenant(t, db, "Scope Two")
	svc := &ConversationService{DB: db}
	crm := &CRMService{DB: db}
	ctx := context.Background()

	_, deal, err := svc.Resolve(ctx, t1.ID, domain.ChannelWhatsApp, "92312", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if _, err := crm.SetDealStage(ctx, t2.ID, deal.ID, domain.StageOrder); !errors.Is(err, ErrDealNotFound) {
		t.Errorf("cross-tenant write err = %v, want ErrDealNotFound", err)
	}
}

func TestUpdateDealDetails_PartialPatch(t *testing.T) {
	svc, tenant := newConvService(t)
	crm := &CRMService{DB: svc.DB}
	ctx := context.Background()

	_, deal, err := svc.Resolve(ctx, tenant.ID, domain.ChannelWhatsApp, "92313", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	city, budget := "Lahore", "5000-8000"
	got, err := crm.UpdateDealDetails(ctx, tenant.ID, deal.ID, &city, &budget, nil)
	if err != nil {
		t.Fatalf("UpdateDealDetails: %v", err)
	}
	if got.City == nil || *got.City != "Lahore" {
		t.Errorf("city = %v", got.City)
	}
	if got.Budget == nil || *got.Budget != "5000-8000" {
		t.Errorf("budget = %v", got.Budget)
	}

	notes := "wants COD"
	got, err = crm.UpdateDealDetails(ctx, tenant.ID, deal.ID, nil, nil, &notes)
	if err != nil {
		t.Fatalf("second UpdateDealDetails: %v", err)
	}
	if got.City == nil || *got.City != "Lahore" {
		t.Errorf("city lost on partial patch: %v", got.City)
	}
	if got.Notes == nil || *got.Notes != "wants COD" {
		t.Errorf("notes = %v", got.Notes)
	}
}

func TestListContactsAndDeals_Paged(t *testing.T) {
	svc, tenant := newConvService(t)
	crm := &CRMService{DB: svc.DB}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, _, err := svc.Resolve(ctx, tenant.ID, domain.ChannelMessenger, string(rune('a'+i)), ""); err != nil {
			t.Fatalf("Resolve #%d: %v", i, err)
		}
	}

	contacts, total, err := crm.ListContacts(ctx, tenant.ID, 1, 3)
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	if total != 5 || len(contacts) != 3 {
		t.Errorf("contacts page1 = %d of %d, want 3 of 5", len(contacts), total)
	}

	deals, total, err := crm.ListDeals(ctx, tenant.ID, 2, 3)
	if err != nil {
		t.Fatalf("ListDeals: %v", err)
	}
	if total != 5 || len(deals) != 2 {
		t.Errorf("deals page2 = %d of %d, want 2 of 5", len(deals), total)
	}
}

func TestTenantService_ListAndActivate(t *testing.T) {
	db := newTestDB(t)
	ts := &TenantService{DB: db}
	ctx := context.Background()

	a := seedTenant(t, db, "Alpha")
	seedTenant(t, db, "Beta")

	all, err := ts.ListTenants(ctx)
	if err != nil {
		t.Fatalf("ListTenants: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("tenants = %d, want 2", len(all))
	}

	got, err := ts.ActivateTenant(ctx, a.ID)
	if err != nil {
		t.Fatalf("ActivateTenant: %v", err)
	}
	if got.Status != domain.TenantActive {
		t.Errorf("status = %q, want active", got.Status)
	}

	if _, err := ts.ActivateTenant(ctx, 99999); !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("missing tenant err = %v, want ErrTenantNotFound", err)
	}
}

func TestTenantService_AddChannelAccount(t *testing.T) {
	db := newTestDB(t)
	ts := &TenantService{DB: db}
	ctx := context.Background()

	tenant := seedTenant(t, db, "Channels Co")
	ext := "phone-number-id-1"

	acct, err := ts.AddChannelAccount(ctx, tenant.ID, domain.ChannelWhatsApp, &ext)
	if err != nil {
		t.Fatalf("AddChannelAccount: %v", err)
	}
	if !acct.IsActive {
		t.Error("new account must be active")
	}

	if _, err := ts.AddChannelAccount(ctx, tenant.ID, "telegram", &ext); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("unknown channel err = %v, want ErrUnknownChannel", err)
	}
	if _, err := ts.AddChannelAccount(ctx, 99999, domain.ChannelWhatsApp, &ext); !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("missing tenant err = %v, want ErrTenantNotFound", err)
	}
}
