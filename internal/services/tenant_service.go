package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/chatcrm/go-crm-backend/internal/domain"
	"github.com/chatcrm/go-crm-backend/internal/repo"
)

// TenantService covers the platform-admin surface: listing tenants,
// activating them, and registering channel accounts for routing.
type TenantService struct {
	DB *gorm.DB
}

// ListTenants returns all tenants, newest first.
func (s *TenantService) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	return repo.ListTenants(ctx, s.DB)
}

// ActivateTenant flips a tenant from pending to active.
func (s *TenantService) ActivateTenant(ctx context.Context, id uint) (*domain.Tenant, error) {
	if err := repo.UpdateTenantStatus(ctx, s.DB, id, domain.TenantActive); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return repo.GetTenant(ctx, s.DB, id)
}

// AddChannelAccount binds an external channel account id to a tenant so
// inbound webhooks can be routed to it.
func (s *TenantService) AddChannelAccount(ctx context.Context, tenantID uint, channel string, externalID *string) (*domain.ChannelAccount, error) {
	if !domain.KnownChannel(channel) {
		return nil, ErrUnknownChannel
	}
	if _, err := repo.GetTenant(ctx, s.DB, tenantID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return repo.CreateChannelAccount(ctx, s.DB, &domain.ChannelAccount{
		TenantID:   tenantID,
		Channel:    channel,
		ExternalID: externalID,
		IsActive:   true,
	})
}

// EnsureSuperadmin creates the platform superadmin account on first boot.
// It is a no-op when the email already exists or no credentials are
// configured.
func EnsureSuperadmin(ctx context.Context, db *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := repo.GetUserByEmail(ctx, db, email); err == nil {
		return nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = repo.CreateUser(ctx, db, &domain.User{
		TenantID:      nil,
		Email:         email,
		PasswordHash:  string(hash),
		Role:          domain.RoleSuperadmin,
		EmailVerified: true,
		IsActive:      true,
	})
	if err != nil {
		return err
	}
	log.Info().Str("email", email).Msg("superadmin account created")
	return nil
}
