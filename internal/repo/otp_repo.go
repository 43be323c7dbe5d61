// Package repo – one-time verification codes.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/chatcrm/go-crm-backend/internal/domain"
)

// CreateOTP inserts a hashed verification code for a user.
func CreateOTP(ctx context.Context, db *gorm.DB, userID uint, kind, codeHash string, expiresAt time.Time) (*domain.OTP, error) {
	o := &domain.OTP{
		UserID:    userID,
		Kind:      kind,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(o).Error; err != nil {
		return nil, err
	}
	return o, nil
}

// LatestUnusedOTP returns the most recent unused code of the given kind for
// a user, or ErrNotFound. Newest wins so a re-sent code supersedes earlier
// ones without invalidating them explicitly.
func LatestUnusedOTP(ctx context.Context, db *gorm.DB, userID uint, kind string) (*domain.OTP, error) {
	var o domain.OTP
	err := db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND used = ?", userID, kind, false).
		Order("id desc").
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkOTPUsed consumes a code so it cannot verify twice.
func MarkOTPUsed(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).
		Model(&domain.OTP{}).
		Where("id = ?", id).
		Update("used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
