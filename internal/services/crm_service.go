package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/chatcrm/go-crm-backend/internal/domain"
	"github.com/chatcrm/go-crm-backend/internal/repo"
)

// CRMService serves the tenant-facing read API over contacts and deals and
// the explicit deal mutations agents perform from the dashboard.
type CRMService struct {
	DB *gorm.DB
}

// ListContacts returns one page of the tenant's contacts plus the total.
func (s *CRMService) ListContacts(ctx context.Context, tenantID uint, page, pageSize int) ([]domain.Contact, int64, error) {
	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountContacts(ctx, s.DB, tenantID)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListContactsPage(ctx, s.DB, tenantID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListDeals returns one page of the tenant's deals plus the total.
func (s *CRMService) ListDeals(ctx context.Context, tenantID uint, page, pageSize int) ([]domain.Deal, int64, error) {
	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountDeals(ctx, s.DB, tenantID)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListDealsPage(ctx, s.DB, tenantID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// SetDealStage performs an explicit, agent-initiated stage write. Unlike the
// keyword-driven merge on inbound messages, an explicit write is validated
// and rejected rather than silently ignored: unknown stages and regressions
// fail, and closed deals are immutable. Setting the stage to "closed" also
// closes the deal.
func (s *CRMService) SetDealStage(ctx context.Context, tenantID, dealID uint, stage string) (*domain.Deal, error) {
	tr := otel.Tracer("services/CRMService")
	ctx, span := tr.Start(ctx, "SetDealStage",
		trace.WithAttributes(
			attribute.Int("tenant.id", int(tenantID)),
			attribute.Int("deal.id", int(dealID)),
			attribute.String("deal.stage", stage),
		),
	)
	defer span.End()

	if !domain.ValidStage(stage) {
		return nil, ErrInvalidStage
	}

	var out *domain.Deal
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deal, err := repo.GetDeal(ctx, tx, tenantID, dealID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrDealNotFound
			}
			return err
		}
		if deal.Status == domain.DealClosed {
			return ErrStageRegression
		}
		if domain.StageRank(stage) < domain.StageRank(deal.Stage) {
			return ErrStageRegression
		}

		if stage != deal.Stage {
			if err := repo.UpdateDealStage(ctx, tx, tenantID, deal.ID, stage); err != nil {
				return err
			}
			deal.Stage = stage
			stageAdvances.WithLabelValues(stage).Inc()
		}
		if stage == domain.StageClosed && deal.Status != domain.DealClosed {
			if err := tx.Model(&domain.Deal{}).
				Where("tenant_id = ? AND id = ?", tenantID, deal.ID).
				Update("status", domain.DealClosed).Error; err != nil {
				return err
			}
			deal.Status = domain.DealClosed
		}

		out = deal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateDealDetails patches city/budget/notes; nil fields are left alone.
func (s *CRMService) UpdateDealDetails(ctx context.Context, tenantID, dealID uint, city, budget, notes *string) (*domain.Deal, error) {
	if err := repo.UpdateDealDetails(ctx, s.DB, tenantID, dealID, city, budget, notes); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}
	return repo.GetDeal(ctx, s.DB, tenantID, dealID)
}

func pageBounds(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
