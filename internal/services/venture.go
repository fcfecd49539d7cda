package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/repos"
	"github.com/openhealth/shared-backend/internal/types"
)

type VentureService interface {
	// ListForUser returns the founder's own ventures.
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Venture, error)
	GetForUser(ctx context.Context, userID, ventureID uuid.UUID) (*types.Venture, error)

	// ListAll is the admin pipeline view, highest score first.
	ListAll(ctx context.Context, status string, limit int) ([]*types.Venture, error)
	// UpdateStatus moves a venture through the screening pipeline and records
	// the transition in the audit log.
	UpdateStatus(ctx context.Context, adminID uuid.UUID, ventureID uuid.UUID, status string) (*types.Venture, error)
	// Rescore recomputes a venture's score against the currently active
	// weight set.
	Rescore(ctx context.Context, ventureID uuid.UUID) (*types.Venture, error)
	// Get loads any venture without an ownership check. Admin use only.
	Get(ctx context.Context, ventureID uuid.UUID) (*types.Venture, error)
}

type ventureService struct {
	log   *logger.Logger
	repo  repos.VentureRepo
	agg   Aggregator
	audit AuditService
}

func NewVentureService(baseLog *logger.Logger, repo repos.VentureRepo, agg Aggregator, audit AuditService) VentureService {
	return &ventureService{
		log:   baseLog.With("service", "VentureService"),
		repo:  repo,
		agg:   agg,
		audit: audit,
	}
}

func (s *ventureService) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Venture, error) {
	return s.repo.ListByUser(ctx, nil, userID, limit)
}

func (s *ventureService) GetForUser(ctx context.Context, userID, ventureID uuid.UUID) (*types.Venture, error) {
	venture, err := s.repo.GetByID(ctx, nil, ventureID)
	if err != nil {
		return nil, eris.Wrap(err, "load venture")
	}
	if venture == nil || venture.UserID != userID {
		return nil, eris.New("venture not found")
	}
	return venture, nil
}

func (s *ventureService) ListAll(ctx context.Context, status string, limit int) ([]*types.Venture, error) {
	if status != "" && !types.ValidVentureStatus(status) {
		return nil, eris.Errorf("invalid venture status %q", status)
	}
	return s.repo.List(ctx, nil, status, limit)
}

func (s *ventureService) UpdateStatus(ctx context.Context, adminID uuid.UUID, ventureID uuid.UUID, status string) (*types.Venture, error) {
	if !types.ValidVentureStatus(status) {
		return nil, eris.Errorf("invalid venture status %q", status)
	}
	venture, err := s.repo.GetByID(ctx, nil, ventureID)
	if err != nil {
		return nil, eris.Wrap(err, "load venture")
	}
	if venture == nil {
		return nil, eris.New("venture not found")
	}
	if venture.Status == status {
		return venture, nil
	}

	oldStatus := venture.Status
	if err := s.repo.UpdateStatus(ctx, nil, ventureID, status); err != nil {
		return nil, eris.Wrap(err, "update status")
	}
	venture.Status = status

	s.audit.Record(ctx, AuditEvent{
		Action:       "venture.status_change",
		ResourceType: "venture",
		ResourceID:   &venture.ID,
		AdminUserID:  &adminID,
		OldValues:    map[string]any{"status": oldStatus},
		NewValues:    map[string]any{"status": status},
	})
	s.log.Info("Venture status changed", "venture_id", ventureID, "from", oldStatus, "to", status)
	return venture, nil
}

func (s *ventureService) Rescore(ctx context.Context, ventureID uuid.UUID) (*types.Venture, error) {
	return s.agg.Rescore(ctx, ventureID)
}

func (s *ventureService) Get(ctx context.Context, ventureID uuid.UUID) (*types.Venture, error) {
	venture, err := s.repo.GetByID(ctx, nil, ventureID)
	if err != nil {
		return nil, eris.Wrap(err, "load venture")
	}
	if venture == nil {
		return nil, eris.New("venture not found")
	}
	return venture, nil
}
