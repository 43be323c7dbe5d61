// Package repo – contacts.
//
// The triple (tenant_id, channel, channel_user_id) is the external identity
// key; ux_contact_identity makes it unique, so FindContactByIdentity and
// CreateContact together give find-or-create semantics to the resolver.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chatcrm/go-crm-backend/internal/domain"
)

// FindContactByIdentity looks a contact up by its external identity key
// within one tenant, or returns ErrNotFound.
func FindContactByIdentity(ctx context.Context, db *gorm.DB, tenantID uint, channel, channelUserID string) (*domain.Contact, error) {
	var c domain.Contact
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND channel = ? AND channel_user_id = ?", tenantID, channel, channelUserID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateContact inserts a new contact. WhatsApp channel user ids are phone
// numbers, so Phone is populated from the id for that channel only.
func CreateContact(ctx context.Context, db *gorm.DB, tenantID uint, channel, channelUserID string, contactName *string) (*domain.Contact, error) {
	c := &domain.Contact{
		TenantID:      tenantID,
		Channel:       channel,
		ChannelUserID: channelUserID,
		ContactName:   contactName,
		CreatedAt:     time.Now().UTC(),
	}
	if channel == domain.ChannelWhatsApp {
		phone := channelUserID
		c.Phone = &phone
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// BackfillContactName sets the contact name only when the stored name is
// still empty. An existing non-empty name is never clobbered; the update is
// guarded in SQL so concurrent backfills cannot race.
func BackfillContactName(ctx context.Context, db *gorm.DB, tenantID, contactID uint, name string) error {
	return db.WithContext(ctx).
		Model(&domain.Contact{}).
		Where("tenant_id = ? AND id = ? AND (contact_name IS NULL OR contact_name = '')", tenantID, contactID).
		Update("contact_name", name).Error
}

// GetContact fetches one contact within a tenant, or ErrNotFound.
func GetContact(ctx context.Context, db *gorm.DB, tenantID, id uint) (*domain.Contact, error) {
	var c domain.Contact
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountContacts returns the number of contacts the tenant owns.
func CountContacts(ctx context.Context, db *gorm.DB, tenantID uint) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Contact{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error
	return total, err
}

// ListContactsPage returns a page of a tenant's contacts, newest first.
func ListContactsPage(ctx context.Context, db *gorm.DB, tenantID uint, offset, limit int) ([]domain.Contact, error) {
	var out []domain.Contact
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
