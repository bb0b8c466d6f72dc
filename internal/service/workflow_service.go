// Package service is the entry point other back-office services call: it
// resolves and starts workflows, acts on tasks and answers visibility-scoped
// reads. Every call carries the caller's PermissionContext.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/definition"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/query"
	"github.com/viridial-group/realestate-sub003/internal/resolver"
	"github.com/viridial-group/realestate-sub003/internal/sequencer"
	"github.com/viridial-group/realestate-sub003/internal/visibility"
)

// Page is one window of a filtered listing.
type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func newPage[T any](items []T, total int64, p ports.Page) Page[T] {
	p = p.Normalize()
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Limit: p.Limit, Offset: p.Offset}
}

// StartRequest asks for action to run against Target inside OrganizationID.
type StartRequest struct {
	OrganizationID uuid.UUID
	Action         string
	Target         domain.Target
}

type WorkflowService struct {
	resolver    *resolver.Resolver
	definitions *definition.Store
	sequencer   *sequencer.Sequencer
	tasks       ports.TaskRepository
	logger      *zap.Logger
}

func NewWorkflowService(
	res *resolver.Resolver,
	defs *definition.Store,
	seq *sequencer.Sequencer,
	tasks ports.TaskRepository,
	logger *zap.Logger,
) *WorkflowService {
	return &WorkflowService{
		resolver:    res,
		definitions: defs,
		sequencer:   seq,
		tasks:       tasks,
		logger:      logger.Named("service"),
	}
}

// ResolveWorkflow returns the definition that governs the action in orgID.
func (s *WorkflowService) ResolveWorkflow(ctx context.Context, pc *domain.PermissionContext, orgID uuid.UUID, action string, target domain.Target) (*domain.WorkflowDefinition, error) {
	if err := requireOrganization(pc, orgID); err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, orgID, action, target.Type, target.ID)
}

// StartWorkflow resolves and starts. NoWorkflowDefined is returned as is.
func (s *WorkflowService) StartWorkflow(ctx context.Context, pc *domain.PermissionContext, req StartRequest) (*domain.WorkflowInstance, []domain.Task, error) {
	def, err := s.ResolveWorkflow(ctx, pc, req.OrganizationID, req.Action, req.Target)
	if err != nil {
		return nil, nil, err
	}
	return s.sequencer.Start(ctx, def, req.OrganizationID, req.Target, pc)
}

// StartOrSkip is StartWorkflow for callers whose policy is "no workflow
// means no approval needed": started is false and err nil in that case.
func (s *WorkflowService) StartOrSkip(ctx context.Context, pc *domain.PermissionContext, req StartRequest) (inst *domain.WorkflowInstance, tasks []domain.Task, started bool, err error) {
	inst, tasks, err = s.StartWorkflow(ctx, pc, req)
	if apperr.IsCode(err, apperr.NoWorkflowDefined) {
		s.logger.Debug("no workflow defined, proceeding without approval",
			zap.String("action", req.Action),
			zap.Stringer("organization", req.OrganizationID),
		)
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, err
	}
	return inst, tasks, true, nil
}

func (s *WorkflowService) CompleteTask(ctx context.Context, pc *domain.PermissionContext, taskID uuid.UUID, comments string) (*sequencer.Outcome, error) {
	if _, err := s.GetTask(ctx, pc, taskID); err != nil {
		return nil, err
	}
	return s.sequencer.Complete(ctx, taskID, pc, comments)
}

func (s *WorkflowService) RejectTask(ctx context.Context, pc *domain.PermissionContext, taskID uuid.UUID, reason string) (*sequencer.Outcome, error) {
	if _, err := s.GetTask(ctx, pc, taskID); err != nil {
		return nil, err
	}
	return s.sequencer.Reject(ctx, taskID, pc, reason)
}

func (s *WorkflowService) ClaimTask(ctx context.Context, pc *domain.PermissionContext, taskID uuid.UUID) (*domain.Task, error) {
	if _, err := s.GetTask(ctx, pc, taskID); err != nil {
		return nil, err
	}
	return s.sequencer.Claim(ctx, taskID, pc)
}

// GetTask reports a task the caller cannot see as NotFound.
func (s *WorkflowService) GetTask(ctx context.Context, pc *domain.PermissionContext, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.FindTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !visibility.Tasks(pc).Eval(task) {
		return nil, apperr.New(apperr.NotFound, "task not found", nil)
	}
	return task, nil
}

// GetInstance returns a visible instance with its tasks in step order.
func (s *WorkflowService) GetInstance(ctx context.Context, pc *domain.PermissionContext, id uuid.UUID) (*domain.WorkflowInstance, error) {
	inst, err := s.tasks.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibility.Instances(pc).Eval(inst) {
		return nil, apperr.New(apperr.NotFound, "workflow instance not found", nil)
	}
	if inst.Tasks, err = s.tasks.InstanceTasks(ctx, id); err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *WorkflowService) ListVisibleWorkflows(ctx context.Context, pc *domain.PermissionContext, f query.WorkflowFilter, page ports.Page) (Page[domain.WorkflowDefinition], error) {
	items, total, err := s.definitions.List(ctx, visibility.Scope(visibility.Workflows(pc), f.Expr()), page)
	if err != nil {
		return Page[domain.WorkflowDefinition]{}, err
	}
	return newPage(items, total, page), nil
}

func (s *WorkflowService) ListVisibleTasks(ctx context.Context, pc *domain.PermissionContext, f query.TaskFilter, page ports.Page) (Page[domain.Task], error) {
	items, total, err := s.tasks.ListTasks(ctx, visibility.Scope(visibility.Tasks(pc), f.Expr()), page)
	if err != nil {
		return Page[domain.Task]{}, err
	}
	return newPage(items, total, page), nil
}

func (s *WorkflowService) ListVisibleInstances(ctx context.Context, pc *domain.PermissionContext, f query.InstanceFilter, page ports.Page) (Page[domain.WorkflowInstance], error) {
	items, total, err := s.tasks.ListInstances(ctx, visibility.Scope(visibility.Instances(pc), f.Expr()), page)
	if err != nil {
		return Page[domain.WorkflowInstance]{}, err
	}
	return newPage(items, total, page), nil
}

// FindOverdueTasks is the unscoped read the scanner and operators use.
func (s *WorkflowService) FindOverdueTasks(ctx context.Context, now time.Time) ([]domain.Task, error) {
	return s.sequencer.FindOverdue(ctx, now)
}

func requireOrganization(pc *domain.PermissionContext, orgID uuid.UUID) error {
	if pc == nil {
		return apperr.New(apperr.NotAuthorized, "missing permission context", nil)
	}
	if orgID == uuid.Nil {
		return apperr.New(apperr.InvalidArgument, "organization_id is required", nil)
	}
	if !pc.CanAccessOrganization(orgID) {
		return apperr.New(apperr.NotAuthorized, "organization is not accessible", nil)
	}
	return nil
}
