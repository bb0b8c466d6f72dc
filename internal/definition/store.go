// Package definition manages the lifecycle of workflow definitions:
// drafting, activation, default selection and retirement.
package definition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/predicate"
)

// Draft carries the editable fields of a definition.
type Draft struct {
	OrganizationID uuid.UUID
	Name           string
	Description    string
	Action         string
	TargetType     string
	TargetID       string
	Steps          []domain.StepSpec
	IsDefault      bool
}

func (d Draft) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return apperr.New(apperr.InvalidArgument, "name is required", nil)
	}
	if strings.TrimSpace(d.Action) == "" {
		return apperr.New(apperr.InvalidArgument, "action is required", nil)
	}
	if (d.TargetType == "") != (d.TargetID == "") {
		return apperr.New(apperr.InvalidArgument, "target_type and target_id must be given together", nil)
	}
	if d.IsDefault && d.TargetType != "" {
		return apperr.New(apperr.InvalidArgument, "a targeted definition cannot be the organization default", nil)
	}
	return nil
}

type Store struct {
	defs   ports.DefinitionRepository
	tasks  ports.TaskRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(defs ports.DefinitionRepository, tasks ports.TaskRepository, logger *zap.Logger) *Store {
	return &Store{defs: defs, tasks: tasks, logger: logger.Named("definition"), now: time.Now}
}

// Validate reports a malformed step list as InvalidDefinition.
func Validate(def *domain.WorkflowDefinition) error {
	if err := def.ValidateSteps(); err != nil {
		return apperr.New(apperr.InvalidDefinition, err.Error(), err)
	}
	return nil
}

// Create stores a new DRAFT definition.
func (s *Store) Create(ctx context.Context, in Draft, createdBy uuid.UUID) (*domain.WorkflowDefinition, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	def := domain.NewDefinition(in.OrganizationID, createdBy, in.Name, in.Action, in.Steps)
	def.Description = in.Description
	def.TargetType, def.TargetID = in.TargetType, in.TargetID
	def.IsDefault = in.IsDefault
	def.CreatedAt = s.now()
	def.UpdatedAt = def.CreatedAt

	if err := s.defs.Create(ctx, def); err != nil {
		return nil, err
	}
	s.logger.Info("definition created",
		zap.Stringer("id", def.ID),
		zap.Stringer("organization", def.OrganizationID),
		zap.String("action", def.Action),
	)
	return def, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	return s.defs.GetByID(ctx, id)
}

func (s *Store) List(ctx context.Context, filter predicate.Expr, page ports.Page) ([]domain.WorkflowDefinition, int64, error) {
	return s.defs.List(ctx, filter, page)
}

// UpdateDraft replaces the editable fields. Only drafts change; anything
// already activated is copied with Duplicate instead.
func (s *Store) UpdateDraft(ctx context.Context, id uuid.UUID, in Draft) (*domain.WorkflowDefinition, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(def *domain.WorkflowDefinition) error {
		if def.Status != domain.DefinitionDraft {
			return apperr.Newf(apperr.InvalidStateTransition, "definition is %s, only drafts can be edited", def.Status)
		}
		def.Name = in.Name
		def.Description = in.Description
		def.Action = in.Action
		def.TargetType, def.TargetID = in.TargetType, in.TargetID
		def.Steps = in.Steps
		def.IsDefault = in.IsDefault
		def.SyncRequiredRoles()
		return nil
	})
}

// Activate validates the steps and moves a draft to ACTIVE.
func (s *Store) Activate(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	return s.mutate(ctx, id, func(def *domain.WorkflowDefinition) error {
		switch def.Status {
		case domain.DefinitionActive:
			return apperr.New(apperr.InvalidStateTransition, "definition is already active", nil)
		case domain.DefinitionArchived:
			return apperr.New(apperr.InvalidStateTransition, "archived definitions cannot be activated", nil)
		}
		if err := Validate(def); err != nil {
			return err
		}
		def.Status = domain.DefinitionActive
		def.Active = true
		def.SyncRequiredRoles()
		return nil
	})
}

// Archive retires a definition for good. Running instances keep their tasks.
func (s *Store) Archive(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	return s.mutate(ctx, id, func(def *domain.WorkflowDefinition) error {
		if def.Status == domain.DefinitionArchived {
			return apperr.New(apperr.InvalidStateTransition, "definition is already archived", nil)
		}
		def.Status = domain.DefinitionArchived
		def.Active = false
		def.IsDefault = false
		return nil
	})
}

// Deactivate hides a definition from resolution without archiving it.
func (s *Store) Deactivate(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	return s.mutate(ctx, id, func(def *domain.WorkflowDefinition) error {
		def.Active = false
		return nil
	})
}

// Reactivate undoes Deactivate. It fails with Conflict if the definition is a
// default and another active default took its place meanwhile.
func (s *Store) Reactivate(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	return s.mutate(ctx, id, func(def *domain.WorkflowDefinition) error {
		if def.Status == domain.DefinitionArchived {
			return apperr.New(apperr.InvalidStateTransition, "archived definitions cannot be reactivated", nil)
		}
		def.Active = true
		return nil
	})
}

// SetDefault makes id the default for its (organization, action) and clears
// any previous default of that key.
func (s *Store) SetDefault(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	def, err := s.defs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !def.Usable() {
		return nil, apperr.New(apperr.InvalidStateTransition, "only active definitions can be the default", nil)
	}
	if def.IsTargeted() {
		return nil, apperr.New(apperr.InvalidArgument, "a targeted definition cannot be the organization default", nil)
	}
	if err := s.defs.SetDefault(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("default definition changed",
		zap.Stringer("id", id),
		zap.Stringer("organization", def.OrganizationID),
		zap.String("action", def.Action),
	)
	return s.defs.GetByID(ctx, id)
}

// Duplicate copies a definition into a new DRAFT owned by createdBy.
func (s *Store) Duplicate(ctx context.Context, id uuid.UUID, name string, createdBy uuid.UUID) (*domain.WorkflowDefinition, error) {
	src, err := s.defs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = fmt.Sprintf("%s (copy)", src.Name)
	}
	return s.Create(ctx, Draft{
		OrganizationID: src.OrganizationID,
		Name:           name,
		Description:    src.Description,
		Action:         src.Action,
		TargetType:     src.TargetType,
		TargetID:       src.TargetID,
		Steps:          src.SortedSteps(),
	}, createdBy)
}

// Delete removes a draft that no instance ever referenced.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	def, err := s.defs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if def.Status != domain.DefinitionDraft {
		return apperr.Newf(apperr.InvalidStateTransition, "definition is %s, archive it instead", def.Status)
	}
	n, err := s.tasks.CountInstancesByDefinition(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Newf(apperr.Conflict, "definition is referenced by %d workflow instances", n)
	}
	if err := s.defs.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("definition deleted", zap.Stringer("id", id))
	return nil
}

func (s *Store) mutate(ctx context.Context, id uuid.UUID, fn func(*domain.WorkflowDefinition) error) (*domain.WorkflowDefinition, error) {
	def, err := s.defs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(def); err != nil {
		return nil, err
	}
	def.UpdatedAt = s.now()
	if err := s.defs.Update(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}
