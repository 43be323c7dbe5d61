// Auth HTTP handlers.
//
// Endpoints:
//   - POST /auth/register       (company sign-up, tenant starts pending)
//   - POST /auth/verify-email   (consume emailed code)
//   - POST /auth/verify-phone   (consume texted code)
//   - POST /auth/login          (returns a bearer token)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chatcrm/go-crm-backend/internal/services"
)

// RegisterRequest is the JSON payload for company sign-up.
type RegisterRequest struct {
	CompanyName string `json:"company_name" binding:"required,min=1,max=200"`
	Email       string `json:"email"        binding:"required,email"`
	Phone       string `json:"phone"        binding:"omitempty,max=50"`
	Password    string `json:"password"     binding:"required,min=8,max=128"`
}

// RegisterResponse echoes the new tenant's id and lifecycle status.
type RegisterResponse struct {
	TenantID uint   `json:"tenant_id"`
	UserID   uint   `json:"user_id"`
	Status   string `json:"status"`
}

// VerifyEmailRequest carries an email verification code.
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code"  binding:"required,len=6"`
}

// VerifyPhoneRequest carries a phone verification code.
type VerifyPhoneRequest struct {
	Phone string `json:"phone" binding:"required,max=50"`
	Code  string `json:"code"  binding:"required,len=6"`
}

// LoginRequest is the JSON payload for authentication.
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the signed access token.
type LoginResponse struct {
	Token string `json:"token"`
}

// Register creates a pending tenant with its first admin user.
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid registration payload")
		return
	}

	reg, err := h.authSvc.Register(c.Request.Context(),
		strings.TrimSpace(req.CompanyName),
		strings.ToLower(strings.TrimSpace(req.Email)),
		strings.TrimSpace(req.Phone),
		req.Password,
	)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			fail(c, http.StatusConflict, ErrCodeConflict, "email already registered")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "registration failed")
		return
	}

	ok(c, http.StatusCreated, RegisterResponse{
		TenantID: reg.TenantID,
		UserID:   reg.UserID,
		Status:   reg.Status,
	})
}

// VerifyEmail consumes the latest emailed verification code.
func (h *Handlers) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and 6-digit code required")
		return
	}
	h.finishVerify(c, h.authSvc.VerifyEmail(c.Request.Context(),
		strings.ToLower(strings.TrimSpace(req.Email)), req.Code))
}

// VerifyPhone consumes the latest texted verification code.
func (h *Handlers) VerifyPhone(c *gin.Context) {
	var req VerifyPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone and 6-digit code required")
		return
	}
	h.finishVerify(c, h.authSvc.VerifyPhone(c.Request.Context(),
		strings.TrimSpace(req.Phone), req.Code))
}

func (h *Handlers) finishVerify(c *gin.Context, err error) {
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrExpiredOTP):
		fail(c, http.StatusBadRequest, ErrCodeExpiredOTP, "verification code expired")
	case errors.Is(err, services.ErrInvalidOTP):
		fail(c, http.StatusBadRequest, ErrCodeInvalidOTP, "invalid verification code")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "verification failed")
	}
}

// Login authenticates a user and returns a bearer token.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}

	token, err := h.authSvc.Login(c.Request.Context(),
		strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	switch {
	case err == nil:
		ok(c, http.StatusOK, LoginResponse{Token: token})
	case errors.Is(err, services.ErrUserDisabled):
		fail(c, http.StatusForbidden, ErrCodeUserDisabled, "account is disabled")
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid credentials")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "login failed")
	}
}
