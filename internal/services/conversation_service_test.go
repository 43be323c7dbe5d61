package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatcrm/go-crm-backend/internal/domain"
	"github.com/chatcrm/go-crm-backend/internal/reply"
	"github.com/chatcrm/go-crm-backend/internal/repo"
)

func newConvService(t *testing.T) (*ConversationService, *domain.Tenant) {
	t.Helper()
	db := newTestDB(t)
	tenant := seedTenant(t, db, "Acme Fashion")
	return &ConversationService{
		DB:      db,
		Replies: &reply.Service{},
	}, tenant
}

func TestHandleInbound_FirstMessageCreatesContactDealAndLedger(t *testing.T) {
	svc, tenant := newConvService(t)
	ctx := context.Background()

	res, err := svc.HandleInbound(ctx, tenant.ID, InboundMessage{
		Channel:       domain.ChannelWhatsApp,
		ChannelUserID: "923001234567",
		Text:          "Hi, what's the price?",
		ContactName:   "Ayesha",
	})
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}

	if res.Contact == nil || res.Deal == nil {
		t.Fatal("expected contact and deal in result")
	}
	if res.Contact.ContactName == nil || *res.Contact.ContactName != "Ayesha" {
		t.Errorf("contact name = %v, want Ayesha", res.Contact.ContactName)
	}
	if res.Contact.Phone == nil || *res.Contact.Phone != "923001234567" {
		t.Errorf("whatsapp contact phone = %v, want channel user id", res.Contact.Phone)
	}
	if res.Stage != domain.StageQualified {
		t.Errorf("stage = %q, want qualified (price keyword)", res.Stage)
	}
	if res.Reply != reply.DefaultReply {
		t.Errorf("reply = %q, want default (no backend)", res.Reply)
	}

	msgs, err := repo.ListMessagesPage(svc.DB, tenant.ID, res.Contact.ID, 0, 10)
	if err != nil {
		t.Fatalf("ListMessagesPage: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("ledger rows = %d, want 2", len(msgs))
	}
	if msgs[0].Direction != domain.DirectionIn || msgs[0].Text != "Hi, what's the price?" {
		t.Errorf("first row = %s %q, want inbound original text", msgs[0].Direction, msgs[0].Text)
	}
	if msgs[1].Direction != domain.DirectionOut || msgs[1].Text != res.Reply {
		t.Errorf("second row = %s %q, want outbound reply", msgs[1].Direction, msgs[1].Text)
	}
	if !(msgs[0].ID < msgs[1].ID) {
		t.Error("inbound row must precede outbound row")
	}
}

func TestHandleInbound_SecondMessageReusesContactAndDeal(t *testing.T) {
	svc, tenant := newConvService(t)
	ctx := context.Background()

	first, err := svc.HandleInbound(ctx, tenant.ID, InboundMessage{
		Channel:       domain.ChannelWhatsApp,
		ChannelUserID: "923001234567",
		Text:          "kitna price hai?",
	})
	if err != nil {
		t.Fatalf("first HandleInbound: %v", err)
	}
	if first.Stage != domain.StageQualified {
		t.Fatalf("first stage = %q, want qualified", first.Stage)
	}

	second, err := svc.HandleInbound(ctx, tenant.ID, InboundMessage{
		Channel:       domain.ChannelWhatsApp,
		ChannelUserID: "923001234567",
		Text:          "ok",
	})
	if err != nil {
		t.Fatalf("second HandleInbound: %v", err)
	}

	if second.Contact.ID != first.Contact.ID {
		t.Errorf("contact id changed: %d -> %d", first.Contact.ID, second.Contact.ID)
	}
	if second.Deal.ID != first.Deal.ID {
		t.Errorf("deal id changed: %d -> %d", first.Deal.ID, second.Deal.ID)
	}
	if second.Stage != domain.StageQualified {
		t.Errorf("stage = %q, a keywordless message must not regress it", second.Stage)
	}

	total, err := repo.CountMessages(svc.DB, tenant.ID, first.Contact.ID)
	if err != nil {
		t.Fatalf("CountMessages: %v", err)
	}
	if total != 4 {
		t.Errorf("ledger rows = %d, want 4 after two round trips", total)
	}
}

func TestHandleInbound_TenantIsolation(t *testing.T) {
	db := newTestDB(t)
	t1 := seedTenant(t, db, "Tenant One")
	t2 := seedTenant(t, db, "Tenant Two")
	svc := &ConversationService{DB: db, Replies: &reply.Service{}}
	ctx := context.Background()

	// Same external identity arriving for two tenants.
	in := InboundMessage{Channel: domain.ChannelMessenger, ChannelUserID: "psid-1", Text: "hello"}
	r1, err := svc.HandleInbound(ctx, t1.ID, in)
	if err != nil {
		t.Fatalf("tenant1 HandleInbound: %v", err)
	}
	r2, err := svc.HandleInbound(ctx, t2.ID, in)
	if err != nil {
		t.Fatalf("tenant2 HandleInbound: %v", err)
	}

	if r1.Contact.ID == r2.Contact.ID {
		t.Error("contacts must be distinct rows per tenant")
	}
	if r1.Deal.ID == r2.Deal.ID {
		t.Error("deals must be distinct rows per tenant")
	}

	if n, _ := repo.CountMessages(db, t1.ID, r2.Contact.ID); n != 0 {
		t.Errorf("tenant1 can read tenant2 transcript: %d rows", n)
	}
}

func TestHandleInbound_Validation(t *testing.T) {
	svc, tenant := newConvService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   InboundMessage
		want error
	}{
		{"unknown channel", InboundMessage{Channel: "telegram", ChannelUserID: "u", Text: "hi"}, ErrUnknownChannel},
		{"blank user id", InboundMessage{Channel: domain.ChannelWhatsApp, ChannelUserID: "  ", Text: "hi"}, ErrMissingChannelUser},
		{"blank text", InboundMessage{Channel: domain.ChannelWhatsApp, ChannelUserID: "u", Text: "   "}, ErrEmptyMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.HandleInbound(ctx, tenant.ID, tc.in); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestHandleInbound_BackendTimeoutFallsBackToDefault(t *testing.T) {
	svc, tenant := newConvService(t)
	svc.Replies = &reply.Service{
		Backend: &fakeBackend{text: "never arrives", delay: 200 * time.Millisecond},
		Timeout: 10 * time.Millisecond,
	}

	res, err := svc.HandleInbound(context.Background(), tenant.ID, InboundMessage{
		Channel:       domain.ChannelInstagram,
		ChannelUserID: "ig-9",
		Text:          "do you do delivery?",
	})
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if res.Reply != reply.DefaultReply {
		t.Errorf("reply = %q, want default after backend timeout", res.Reply)
	}
	if res.Stage != domain.StageQualified {
		t.Errorf("stage = %q, rules must stay authoritative when the backend fails", res.Stage)
	}
}

func TestHandleInbound_BackendReplyIsSanitized(t *testing.T) {
	svc, tenant := newConvService(t)
	svc.Replies = &reply.Service{
		Backend: &fakeBackend{text: "Sure — it’s PKR 4,500"},
	}

	res, err := svc.HandleInbound(context.Background(), tenant.ID, InboundMessage{
		Channel:       domain.ChannelWhatsApp,
		ChannelUserID: "92333",
		Text:          "price?",
	})
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if res.Reply != "Sure - it's PKR 4,500" {
		t.Errorf("reply = %q, want ASCII-sanitized backend text", res.Reply)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	svc, tenant := newConvService(t)
	ctx := context.Background()

	c1, d1, err := svc.Resolve(ctx, tenant.ID, domain.ChannelWhatsApp, "92300", "")
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	c2, d2, err := svc.Resolve(ctx, tenant.ID, domain.ChannelWhatsApp, "92300", "Ali")
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}

	if c1.ID != c2.ID || d1.ID != d2.ID {
		t.Errorf("Resolve not idempotent: contact %d/%d deal %d/%d", c1.ID, c2.ID, d1.ID, d2.ID)
	}
	if c2.ContactName == nil || *c2.ContactName != "Ali" {
		t.Errorf("name backfill missing: %v", c2.ContactName)
	}

	// Backfill happens once: a later different name must not clobber it.
	c3, _, err := svc.Resolve(ctx, tenant.ID, domain.ChannelWhatsApp, "92300", "Someone Else")
	if err != nil {
		t.Fatalf("third Resolve: %v", err)
	}
	if c3.ContactName == nil || *c3.ContactName != "Ali" {
		t.Errorf("name overwritten: %v", c3.ContactName)
	}
}

func TestResolve_NewDealAfterClose(t *testing.T) {
	svc, tenant := newConvService(t)
	ctx := context.Background()

	c, d, err := svc.Resolve(ctx, tenant.ID, domain.ChannelWhatsApp, "92301", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	crm := &CRMService{DB: svc.DB}
	if _, err := crm.SetDealStage(ctx, tenant.ID, d.ID, domain.StageClosed); err != nil {
		t.Fatalf("SetDealStage(closed): %v", err)
	}

	_, d2, err := svc.Resolve(ctx, tenant.ID, domain.ChannelWhatsApp, "92301", "")
	if err != nil {
		t.Fatalf("Resolve after close: %v", err)
	}
	if d2.ID == d.ID {
		t.Error("closed deal must not be reused; expected a fresh open deal")
	}
	if d2.Stage != domain.StageNew || d2.Status != domain.DealOpen {
		t.Errorf("new deal = stage %q status %q, want new/open", d2.Stage, d2.Status)
	}
	if d2.ContactID != c.ID {
		t.Errorf("new deal contact = %d, want %d", d2.ContactID, c.ID)
	}
}

func TestTranscript_PagedInOrder(t *testing.T) {
	svc, tenant := newConvService(t)
	ctx := context.Background()

	var contactID uint
	for i := 0; i < 3; i++ {
		res, err := svc.HandleInbound(ctx, tenant.ID, InboundMessage{
			Channel:       domain.ChannelWhatsApp,
			ChannelUserID: "92302",
			Text:          "hello again",
		})
		if err != nil {
			t.Fatalf("HandleInbound #%d: %v", i, err)
		}
		contactID = res.Contact.ID
	}

	page1, total, err := svc.Transcript(ctx, tenant.ID, contactID, 1, 4)
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if total != 6 {
		t.Errorf("total = %d, want 6", total)
	}
	if len(page1) != 4 {
		t.Fatalf("page1 len = %d, want 4", len(page1))
	}
	for i := 1; i < len(page1); i++ {
		if page1[i].ID <= page1[i-1].ID {
			t.Fatal("transcript must be in ascending id order")
		}
	}

	page2, _, err := svc.Transcript(ctx, tenant.ID, contactID, 2, 4)
	if err != nil {
		t.Fatalf("Transcript page 2: %v", err)
	}
	if len(page2) != 2 {
		t.Errorf("page2 len = %d, want 2", len(page2))
	}

	if _, _, err := svc.Transcript(ctx, tenant.ID, 99999, 1, 10); !errors.Is(err, ErrContactNotFound) {
		t.Errorf("unknown contact err = %v, want ErrContactNotFound", err)
	}
}
