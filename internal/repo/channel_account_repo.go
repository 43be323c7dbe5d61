// Package repo – channel account bindings.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chatcrm/go-crm-backend/internal/domain"
)

// CreateChannelAccount binds a tenant to an external channel account.
func CreateChannelAccount(ctx context.Context, db *gorm.DB, a *domain.ChannelAccount) (*domain.ChannelAccount, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// FindChannelAccount resolves an inbound routing key to the active channel
// account it belongs to, or ErrNotFound. The pair (channel, external id) is
// how webhook deliveries are mapped to a tenant.
func FindChannelAccount(ctx context.Context, db *gorm.DB, channel, externalID string) (*domain.ChannelAccount, error) {
	var a domain.ChannelAccount
	err := db.WithContext(ctx).
		Where("channel = ? AND external_id = ? AND is_active = ?", channel, externalID, true).
		Order("id desc").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListChannelAccounts returns all channel accounts for a tenant.
func ListChannelAccounts(ctx context.Context, db *gorm.DB, tenantID uint) ([]domain.ChannelAccount, error) {
	var out []domain.ChannelAccount
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id asc").
		Find(&out).Error
	return out, err
}
