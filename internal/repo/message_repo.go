// Package repo – the append-only message ledger.
//
// Messages are only ever inserted; there is deliberately no update or delete
// function in this file. The auto-increment id doubles as the transcript
// order. Ledger writes happen inside service-level transactions, so these
// functions take the (possibly transactional) *gorm.DB directly.
package repo

import (
	"time"

	"gorm.io/gorm"

	"github.com/chatcrm/go-crm-backend/internal/domain"
)

// AppendMessage inserts one ledger row for a contact.
func AppendMessage(db *gorm.DB, tenantID, contactID uint, channel, direction, text string) (*domain.Message, error) {
	m := &domain.Message{
		TenantID:  tenantID,
		ContactID: contactID,
		Channel:   channel,
		Direction: direction,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// CountMessages returns the ledger size for one contact within a tenant.
func CountMessages(db *gorm.DB, tenantID, contactID uint) (int64, error) {
	var total int64
	err := db.Model(&domain.Message{}).
		Where("tenant_id = ? AND contact_id = ?", tenantID, contactID).
		Count(&total).Error
	return total, err
}

// ListMessagesPage returns a page of a contact's transcript in creation
// order (oldest first), which is the conversation as it happened.
func ListMessagesPage(db *gorm.DB, tenantID, contactID uint, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.
		Where("tenant_id = ? AND contact_id = ?", tenantID, contactID).
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
