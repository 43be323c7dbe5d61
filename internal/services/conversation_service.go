// Package services – ConversationService
//
// This file implements the tenant-scoped conversation-to-deal state machine.
// Given an inbound message it resolves (or creates) the Contact for the
// external identity, finds (or opens) the single open Deal for that contact,
// computes a reply and stage suggestion, and appends the inbound/outbound
// pair to the message ledger, all inside one transaction so the ledger and
// the deal can never disagree.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// tenant/contact/deal identifiers.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chatcrm/go-crm-backend/internal/domain"
	"github.com/chatcrm/go-crm-backend/internal/reply"
	"github.com/chatcrm/go-crm-backend/internal/repo"
)

var (
	// inboundMessages counts processed inbound messages by channel.
	inboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_inbound_messages_total",
			Help: "Total number of inbound messages processed.",
		},
		[]string{"channel"},
	)

	// stageAdvances counts deal-stage advances by target stage.
	stageAdvances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_deal_stage_advances_total",
			Help: "Total number of deal stage advances.",
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(inboundMessages, stageAdvances)
}

// ConversationService coordinates contact/deal resolution, reply generation,
// and the append-only message ledger.
type ConversationService struct {
	DB      *gorm.DB
	Replies *reply.Service
}

// InboundMessage is one message arriving from a channel, either via webhook
// or via the authenticated simulation endpoint.
type InboundMessage struct {
	Channel       string
	ChannelUserID string
	Text          string
	ContactName   string // optional display name supplied by the channel
}

// InboundResult is what the channel caller needs to answer the user.
type InboundResult struct {
	Reply   string
	Stage   string
	Contact *domain.Contact
	Deal    *domain.Deal
}

// Resolve finds or creates the Contact for the external identity and the
// single open Deal for that contact. It is idempotent: calling it twice with
// the same identity returns the same contact id, and the same deal id while
// the deal stays open. Callers must not assume either record is fresh.
//
// The whole resolution runs in one transaction; any persistence error aborts
// it with no partial state.
func (s *ConversationService) Resolve(ctx context.Context, tenantID uint, channel, channelUserID, contactName string) (*domain.Contact, *domain.Deal, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(
			attribute.Int("tenant.id", int(tenantID)),
			attribute.String("channel", channel),
		),
	)
	defer span.End()

	var (
		contact *domain.Contact
		deal    *domain.Deal
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		contact, deal, err = resolveConversation(ctx, tx, tenantID, channel, channelUserID, contactName)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return contact, deal, nil
}

// HandleInbound runs the full inbound cycle: resolve contact and deal,
// generate reply, append the inbound and outbound ledger rows, and advance
// the deal stage. Everything is committed together or not at all.
func (s *ConversationService) HandleInbound(ctx context.Context, tenantID uint, in InboundMessage) (*InboundResult, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "HandleInbound",
		trace.WithAttributes(
			attribute.Int("tenant.id", int(tenantID)),
			attribute.String("channel", in.Channel),
		),
	)
	defer span.End()

	in.Text = strings.TrimSpace(in.Text)
	in.ChannelUserID = strings.TrimSpace(in.ChannelUserID)
	switch {
	case !domain.KnownChannel(in.Channel):
		return nil, ErrUnknownChannel
	case in.ChannelUserID == "":
		return nil, ErrMissingChannelUser
	case in.Text == "":
		return nil, ErrEmptyMessage
	}

	// Reply generation is I/O against an external backend; keep it outside
	// the transaction so a slow LLM cannot hold a write lock. Failures fall
	// back to the scripted default inside Replies.
	replyText, suggested := s.Replies.Reply(ctx, in.Text, in.ContactName)

	res := &InboundResult{Reply: replyText}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contact, deal, err := resolveConversation(ctx, tx, tenantID, in.Channel, in.ChannelUserID, in.ContactName)
		if err != nil {
			return err
		}

		// Inbound first: ledger ids are the transcript order.
		if _, err := repo.AppendMessage(tx, tenantID, contact.ID, in.Channel, domain.DirectionIn, in.Text); err != nil {
			return err
		}

		// Monotonic merge: the keyword signal only ever advances the deal.
		if merged := domain.MergeStage(deal.Stage, suggested); merged != deal.Stage {
			if err := repo.UpdateDealStage(ctx, tx, tenantID, deal.ID, merged); err != nil {
				return err
			}
			deal.Stage = merged
			stageAdvances.WithLabelValues(merged).Inc()
		}

		if _, err := repo.AppendMessage(tx, tenantID, contact.ID, in.Channel, domain.DirectionOut, replyText); err != nil {
			return err
		}

		res.Contact = contact
		res.Deal = deal
		res.Stage = deal.Stage
		return nil
	})
	if err != nil {
		return nil, err
	}

	inboundMessages.WithLabelValues(in.Channel).Inc()
	span.SetAttributes(
		attribute.Int("contact.id", int(res.Contact.ID)),
		attribute.Int("deal.id", int(res.Deal.ID)),
		attribute.String("deal.stage", res.Stage),
	)
	return res, nil
}

// resolveConversation is the state machine core, run inside a transaction.
func resolveConversation(ctx context.Context, tx *gorm.DB, tenantID uint, channel, channelUserID, contactName string) (*domain.Contact, *domain.Deal, error) {
	contact, err := repo.FindContactByIdentity(ctx, tx, tenantID, channel, channelUserID)
	switch {
	case err == nil:
		// Backfill a name once onto an empty value; never clobber.
		if contactName != "" && (contact.ContactName == nil || *contact.ContactName == "") {
			if err := repo.BackfillContactName(ctx, tx, tenantID, contact.ID, contactName); err != nil {
				return nil, nil, err
			}
			name := contactName
			contact.ContactName = &name
		}
	case errors.Is(err, repo.ErrNotFound):
		var namePtr *string
		if contactName != "" {
			namePtr = &contactName
		}
		contact, err = repo.CreateContact(ctx, tx, tenantID, channel, channelUserID, namePtr)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, err
	}

	deal, err := repo.LatestOpenDeal(ctx, tx, tenantID, contact.ID)
	if errors.Is(err, repo.ErrNotFound) {
		deal, err = repo.CreateOpenDeal(ctx, tx, tenantID, contact.ID)
		if err != nil {
			// A concurrent request may have opened the deal first
			// (ux_deals_one_open); reuse the winner instead of failing.
			if winner, qerr := repo.LatestOpenDeal(ctx, tx, tenantID, contact.ID); qerr == nil {
				return contact, winner, nil
			}
			return nil, nil, err
		}
	} else if err != nil {
		return nil, nil, err
	}

	return contact, deal, nil
}

// Transcript returns one page of a contact's message history in creation
// order, plus the total ledger size for pagination metadata.
func (s *ConversationService) Transcript(ctx context.Context, tenantID, contactID uint, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Transcript",
		trace.WithAttributes(
			attribute.Int("tenant.id", int(tenantID)),
			attribute.Int("contact.id", int(contactID)),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := repo.GetContact(ctx, s.DB, tenantID, contactID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrContactNotFound
		}
		return nil, 0, err
	}

	db := s.DB.WithContext(ctx)
	total, err := repo.CountMessages(db, tenantID, contactID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}
	items, err := repo.ListMessagesPage(db, tenantID, contactID, offset, pageSize)
	return items, total, err
}
