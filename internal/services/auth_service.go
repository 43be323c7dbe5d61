// Package services – AuthService
//
// Registration, verification, and login. Registration creates the tenant in
// "pending" status together with its first tenant_admin user and two hashed
// one-time codes (email + phone). Code delivery is mocked: codes are written
// to the structured log, which is where a dev picks them up. Login issues an
// HS256 JWT carrying the subject, role, and tenant id.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/chatcrm/go-crm-backend/internal/config"
	"github.com/chatcrm/go-crm-backend/internal/domain"
	"github.com/chatcrm/go-crm-backend/internal/repo"
)

// AuthService owns credentials, verification codes, and token issuance.
type AuthService struct {
	DB  *gorm.DB
	Cfg config.AuthConfig
}

// Registration is the outcome of a successful sign-up.
type Registration struct {
	TenantID uint
	UserID   uint
	Status   string // tenant lifecycle status, "pending" until activated
}

// Claims are the JWT payload fields the API trusts downstream.
type Claims struct {
	Email    string
	Role     string
	TenantID *uint
}

// Register creates a pending tenant, its admin user, and the verification
// codes, all in one transaction. The codes are "delivered" via the log.
func (s *AuthService) Register(ctx context.Context, companyName, email, phone, password string) (*Registration, error) {
	if _, err := repo.GetUserByEmail(ctx, s.DB, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	emailCode, err := generateOTPCode()
	if err != nil {
		return nil, err
	}
	phoneCode, err := generateOTPCode()
	if err != nil {
		return nil, err
	}

	var out Registration
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, err := repo.CreateTenant(ctx, tx, companyName)
		if err != nil {
			return err
		}

		var phonePtr *string
		if phone != "" {
			phonePtr = &phone
		}
		user, err := repo.CreateUser(ctx, tx, &domain.User{
			TenantID:     &tenant.ID,
			Email:        email,
			Phone:        phonePtr,
			PasswordHash: string(hash),
			Role:         domain.RoleTenantAdmin,
			IsActive:     true,
		})
		if err != nil {
			return err
		}

		expiresAt := time.Now().UTC().Add(s.Cfg.OTPTTL)
		for kind, code := range map[string]string{
			domain.OTPKindEmail: emailCode,
			domain.OTPKindPhone: phoneCode,
		} {
			codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			if _, err := repo.CreateOTP(ctx, tx, user.ID, kind, string(codeHash), expiresAt); err != nil {
				return err
			}
		}

		out = Registration{TenantID: tenant.ID, UserID: user.ID, Status: tenant.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Mock delivery for dev environments.
	log.Info().Str("to", email).Str("code", emailCode).Msg("mock email otp")
	if phone != "" {
		log.Info().Str("to", phone).Str("code", phoneCode).Msg("mock sms otp")
	}

	return &out, nil
}

// VerifyEmail consumes the latest unused email code for the account.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidOTP
		}
		return err
	}
	return s.verifyCode(ctx, user, domain.OTPKindEmail, code)
}

// VerifyPhone consumes the latest unused phone code for the account.
func (s *AuthService) VerifyPhone(ctx context.Context, phone, code string) error {
	user, err := repo.GetUserByPhone(ctx, s.DB, phone)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidOTP
		}
		return err
	}
	return s.verifyCode(ctx, user, domain.OTPKindPhone, code)
}

func (s *AuthService) verifyCode(ctx context.Context, user *domain.User, kind, code string) error {
	otp, err := repo.LatestUnusedOTP(ctx, s.DB, user.ID, kind)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidOTP
		}
		return err
	}
	if time.Now().UTC().After(otp.ExpiresAt) {
		return ErrExpiredOTP
	}
	if bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(code)) != nil {
		return ErrInvalidOTP
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.MarkOTPUsed(ctx, tx, otp.ID); err != nil {
			return err
		}
		return repo.SetUserVerified(ctx, tx, user.ID, kind)
	})
}

// Login checks credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if !user.IsActive {
		return "", ErrUserDisabled
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return s.IssueToken(user)
}

// IssueToken signs an HS256 JWT for the user.
func (s *AuthService) IssueToken(user *domain.User) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":  user.Email,
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.Cfg.JWTTTL).Unix(),
	}
	if user.TenantID != nil {
		claims["tenant_id"] = float64(*user.TenantID)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.Cfg.JWTSecret))
}

// ParseToken validates a bearer token and extracts the claims the API needs.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.Cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	out := &Claims{}
	out.Email, _ = mc["sub"].(string)
	out.Role, _ = mc["role"].(string)
	if out.Email == "" || out.Role == "" {
		return nil, ErrInvalidCredentials
	}
	if raw, ok := mc["tenant_id"].(float64); ok {
		id := uint(raw)
		out.TenantID = &id
	}
	return out, nil
}

// generateOTPCode returns a 6-digit numeric code from crypto/rand.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
