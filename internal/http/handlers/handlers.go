// Handler wiring and service contracts.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. Service dependencies
// are abstract interfaces so transport concerns stay separate from business
// logic and tests can substitute fakes.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/chatcrm/go-crm-backend/internal/domain"
	"github.com/chatcrm/go-crm-backend/internal/services"
	"github.com/chatcrm/go-crm-backend/internal/utils"
)

// AuthService defines the account lifecycle operations consumed by the HTTP
// layer. Implementations must be safe for concurrent use and honor ctx.
type AuthService interface {
	Register(ctx context.Context, companyName, email, phone, password string) (*services.Registration, error)
	VerifyEmail(ctx context.Context, email, code string) error
	VerifyPhone(ctx context.Context, phone, code string) error
	Login(ctx context.Context, email, password string) (string, error)
}

// ConversationService defines the inbound-message pipeline.
type ConversationService interface {
	HandleInbound(ctx context.Context, tenantID uint, in services.InboundMessage) (*services.InboundResult, error)
	Transcript(ctx context.Context, tenantID, contactID uint, page, pageSize int) ([]domain.Message, int64, error)
}

// CRMService defines the tenant-facing read API and explicit deal writes.
type CRMService interface {
	ListContacts(ctx context.Context, tenantID uint, page, pageSize int) ([]domain.Contact, int64, error)
	ListDeals(ctx context.Context, tenantID uint, page, pageSize int) ([]domain.Deal, int64, error)
	SetDealStage(ctx context.Context, tenantID, dealID uint, stage string) (*domain.Deal, error)
	UpdateDealDetails(ctx context.Context, tenantID, dealID uint, city, budget, notes *string) (*domain.Deal, error)
}

// TenantService defines the platform-admin surface.
type TenantService interface {
	ListTenants(ctx context.Context) ([]domain.Tenant, error)
	ActivateTenant(ctx context.Context, id uint) (*domain.Tenant, error)
	AddChannelAccount(ctx context.Context, tenantID uint, channel string, externalID *string) (*domain.ChannelAccount, error)
}

// Handlers groups the HTTP endpoints for auth, webhooks, the CRM API, and
// platform administration.
type Handlers struct {
	authSvc   AuthService
	convSvc   ConversationService
	crmSvc    CRMService
	tenantSvc TenantService

	// routeInbound resolves a webhook routing key to the owning tenant's
	// channel account. Kept as a function so webhook tests can stub it.
	routeInbound RouteFunc

	webhookVerifyToken string
}

// RouteFunc maps (channel, routing key) to the owning tenant's channel
// account.
type RouteFunc func(ctx context.Context, channel, externalID string) (*domain.ChannelAccount, error)

// New constructs a Handlers instance bound to the given services.
func New(auth AuthService, conv ConversationService, crm CRMService, tenants TenantService, route RouteFunc, webhookVerifyToken string) *Handlers {
	return &Handlers{
		authSvc:            auth,
		convSvc:            conv,
		crmSvc:             crm,
		tenantSvc:          tenants,
		routeInbound:       route,
		webhookVerifyToken: webhookVerifyToken,
	}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// paginate computes the metadata block for one result page.
func paginate(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
