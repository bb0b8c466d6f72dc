package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/definition"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/visibility"
)

// Definition administration requires an admin of the owning organization.
// Cross-tenant definitions (uuid.Nil organization) are superadmin only.

func requireAdmin(pc *domain.PermissionContext, orgID uuid.UUID) error {
	if pc == nil {
		return apperr.New(apperr.NotAuthorized, "missing permission context", nil)
	}
	if pc.SuperAdmin {
		return nil
	}
	if !pc.Admin {
		return apperr.New(apperr.NotAuthorized, "administrator role required", nil)
	}
	if orgID == uuid.Nil || !pc.CanAccessOrganization(orgID) {
		return apperr.New(apperr.NotAuthorized, "organization is not accessible", nil)
	}
	return nil
}

// GetDefinition reports a definition the caller cannot see as NotFound.
func (s *WorkflowService) GetDefinition(ctx context.Context, pc *domain.PermissionContext, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	def, err := s.definitions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibility.Workflows(pc).Eval(def) {
		return nil, apperr.New(apperr.NotFound, "workflow definition not found", nil)
	}
	return def, nil
}

func (s *WorkflowService) CreateDefinition(ctx context.Context, pc *domain.PermissionContext, in definition.Draft) (*domain.WorkflowDefinition, error) {
	if err := requireAdmin(pc, in.OrganizationID); err != nil {
		return nil, err
	}
	return s.definitions.Create(ctx, in, pc.UserID)
}

func (s *WorkflowService) UpdateDraft(ctx context.Context, pc *domain.PermissionContext, id uuid.UUID, in definition.Draft) (*domain.WorkflowDefinition, error) {
	def, err := s.adminDefinition(ctx, pc, id)
	if err != nil {
		return nil, err
	}
	// The owning organization never moves.
	in.OrganizationID = def.OrganizationID
	return s.definitions.UpdateDraft(ctx, id, in)
}

func (s *WorkflowService) ActivateDefinition(ctx context.Context, pc *domain.PermissionContext, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	if _, err := s.adminDefinition(ctx, pc, id); err != nil {
		return nil, err
	}
	return s.definitions.Activate(ctx, id)
}

func (s *WorkflowService) ArchiveDefinition(ctx context.Context, pc *domain.PermissionContext, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	if _, err := s.adminDefinition(ctx, pc, id); err != nil {
		return nil, err
	}
	return s.definitions.Archive(ctx, id)
}

func (s *WorkflowService) DeactivateDefinition(ctx context.Context, pc *domain.PermissionContext, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	if _, err := s.adminDefinition(ctx, pc, id); err != nil {
		return nil, err
	}
	return s.definitions.Deactivate(ctx, id)
}

func (s *WorkflowService) ReactivateDefinition(ctx context.Context, pc *domain.PermissionContext, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	if _, err := s.adminDefinition(ctx, pc, id); err != nil {
		return nil, err
	}
	return s.definitions.Reactivate(ctx, id)
}

func (s *WorkflowService) SetDefaultDefinition(ctx context.Context, pc *domain.PermissionContext, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	if _, err := s.adminDefinition(ctx, pc, id); err != nil {
		return nil, err
	}
	return s.definitions.SetDefault(ctx, id)
}

func (s *WorkflowService) DuplicateDefinition(ctx context.Context, pc *domain.PermissionContext, id uuid.UUID, name string) (*domain.WorkflowDefinition, error) {
	if _, err := s.adminDefinition(ctx, pc, id); err != nil {
		return nil, err
	}
	return s.definitions.Duplicate(ctx, id, name, pc.UserID)
}

func (s *WorkflowService) DeleteDefinition(ctx context.Context, pc *domain.PermissionContext, id uuid.UUID) error {
	if _, err := s.adminDefinition(ctx, pc, id); err != nil {
		return err
	}
	return s.definitions.Delete(ctx, id)
}

func (s *WorkflowService) adminDefinition(ctx context.Context, pc *domain.PermissionContext, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	def, err := s.GetDefinition(ctx, pc, id)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(pc, def.OrganizationID); err != nil {
		return nil, err
	}
	return def, nil
}
