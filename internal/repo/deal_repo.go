// Package repo – deals.
//
// The open-deal invariant (at most one status='open' row per tenant+contact)
// is backed by the partial unique index ux_deals_one_open created in
// AutoMigrate. CreateOpenDeal surfaces the constraint violation to the
// caller, which re-queries and reuses the surviving row.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chatcrm/go-crm-backend/internal/domain"
)

// LatestOpenDeal returns the newest open deal for a contact, or ErrNotFound.
// Ordering by id descending prefers the most recent row should duplicates
// ever exist (e.g. data imported before the unique index was in place).
func LatestOpenDeal(ctx context.Context, db *gorm.DB, tenantID, contactID uint) (*domain.Deal, error) {
	var d domain.Deal
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND contact_id = ? AND status = ?", tenantID, contactID, domain.DealOpen).
		Order("id desc").
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateOpenDeal inserts a fresh open deal at stage "new". A unique-index
// violation means another request won the per-contact race; callers handle
// it by re-running LatestOpenDeal.
func CreateOpenDeal(ctx context.Context, db *gorm.DB, tenantID, contactID uint) (*domain.Deal, error) {
	now := time.Now().UTC()
	d := &domain.Deal{
		TenantID:  tenantID,
		ContactID: contactID,
		Stage:     domain.StageNew,
		Status:    domain.DealOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDealStage writes a new stage for a deal within a tenant. If no rows
// are affected (deal missing or foreign tenant), it returns ErrNotFound.
// Stage policy (monotonic advance) is enforced in the service layer.
func UpdateDealStage(ctx context.Context, db *gorm.DB, tenantID, id uint, stage string) error {
	res := db.WithContext(ctx).
		Model(&domain.Deal{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]any{"stage": stage, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateDealDetails patches the optional qualification fields. Nil values
// leave the column untouched.
func UpdateDealDetails(ctx context.Context, db *gorm.DB, tenantID, id uint, city, budget, notes *string) error {
	patch := map[string]any{"updated_at": time.Now().UTC()}
	if city != nil {
		patch["city"] = *city
	}
	if budget != nil {
		patch["budget"] = *budget
	}
	if notes != nil {
		patch["notes"] = *notes
	}
	res := db.WithContext(ctx).
		Model(&domain.Deal{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(patch)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetDeal fetches one deal within a tenant, or ErrNotFound.
func GetDeal(ctx context.Context, db *gorm.DB, tenantID, id uint) (*domain.Deal, error) {
	var d domain.Deal
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CountDeals returns the number of deals the tenant owns.
func CountDeals(ctx context.Context, db *gorm.DB, tenantID uint) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Deal{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error
	return total, err
}

// ListDealsPage returns a page of a tenant's deals, newest first.
func ListDealsPage(ctx context.Context, db *gorm.DB, tenantID uint, offset, limit int) ([]domain.Deal, error) {
	var out []domain.Deal
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
