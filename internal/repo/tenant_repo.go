// Package repo – tenant and user repositories.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chatcrm/go-crm-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service
// layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateTenant inserts a new pending tenant with the given name.
func CreateTenant(ctx context.Context, db *gorm.DB, name string) (*domain.Tenant, error) {
	t := &domain.Tenant{
		Name:      name,
		Status:    domain.TenantPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// GetTenant fetches a tenant by id, or ErrNotFound if missing.
func GetTenant(ctx context.Context, db *gorm.DB, id uint) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTenants returns all tenants ordered by id ascending.
func ListTenants(ctx context.Context, db *gorm.DB) ([]domain.Tenant, error) {
	var out []domain.Tenant
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// UpdateTenantStatus sets the lifecycle status of a tenant. If no rows are
// affected (tenant missing), it returns ErrNotFound.
func UpdateTenantStatus(ctx context.Context, db *gorm.DB, id uint, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.Tenant{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
