// Package sequencer drives workflow instances through their ordered steps.
// Every transition is version guarded; a transition that loses a race is
// re-read and re-validated once before the caller sees an error.
package sequencer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/definition"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/metrics"
)

const (
	kindStart    = "start"
	kindComplete = "complete"
	kindReject   = "reject"
	kindClaim    = "claim"
)

type Sequencer struct {
	tasks    ports.TaskRepository
	audit    ports.AuditSink
	notifier ports.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Sequencer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

func New(tasks ports.TaskRepository, audit ports.AuditSink, notifier ports.Notifier, logger *zap.Logger, opts ...Option) *Sequencer {
	s := &Sequencer{
		tasks:    tasks,
		audit:    audit,
		notifier: notifier,
		logger:   logger.Named("sequencer"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome is the committed result of a task transition.
type Outcome struct {
	Task domain.Task
	// Activated is the step that became IN_PROGRESS, if any.
	Activated *domain.Task
	// InstanceStatus is set when the transition finished the instance.
	InstanceStatus domain.InstanceStatus
}

// Start instantiates def for target: one task per step, step 1 IN_PROGRESS
// and the rest PENDING, written in a single transaction. orgID is the
// organization the action runs in; uuid.Nil means the definition's own.
func (s *Sequencer) Start(ctx context.Context, def *domain.WorkflowDefinition, orgID uuid.UUID, target domain.Target, actor *domain.PermissionContext) (*domain.WorkflowInstance, []domain.Task, error) {
	inst, tasks, err := s.start(ctx, def, orgID, target, actor)
	s.observe(kindStart, err)
	return inst, tasks, err
}

func (s *Sequencer) start(ctx context.Context, def *domain.WorkflowDefinition, orgID uuid.UUID, target domain.Target, actor *domain.PermissionContext) (*domain.WorkflowInstance, []domain.Task, error) {
	if def == nil {
		return nil, nil, apperr.New(apperr.InvalidArgument, "workflow definition is required", nil)
	}
	if actor == nil {
		return nil, nil, apperr.New(apperr.NotAuthorized, "missing permission context", nil)
	}
	if err := definition.Validate(def); err != nil {
		return nil, nil, err
	}
	if !def.Usable() {
		return nil, nil, apperr.Newf(apperr.InvalidDefinition, "definition %s is not active", def.ID)
	}
	if orgID == uuid.Nil {
		orgID = def.OrganizationID
	}

	now := s.now()
	inst := domain.NewInstance(def, orgID, target, actor.UserID, now)
	steps := def.SortedSteps()
	tasks := make([]domain.Task, 0, len(steps))
	for _, step := range steps {
		tasks = append(tasks, *domain.NewTask(inst, step, now))
	}
	tasks[0].Activate(now)

	if err := s.tasks.CreateInstance(ctx, inst, tasks); err != nil {
		return nil, nil, err
	}

	s.logger.Info("workflow started",
		zap.Stringer("instance", inst.ID),
		zap.Stringer("definition", def.ID),
		zap.String("action", inst.Action),
		zap.Int("steps", len(tasks)),
	)
	s.record(ctx, instanceEvent(domain.AuditWorkflowStarted, actor.UserID, inst.ID, inst.OrganizationID, def.Name))
	s.assigned(ctx, &tasks[0])
	return inst, tasks, nil
}

// Complete signs off an IN_PROGRESS task and activates the next step, or
// completes the instance after the last one.
func (s *Sequencer) Complete(ctx context.Context, taskID uuid.UUID, actor *domain.PermissionContext, comments string) (*Outcome, error) {
	var out *Outcome
	err := s.withRetry(kindComplete, func() error {
		var err error
		out, err = s.complete(ctx, taskID, actor, comments)
		return err
	})
	s.observe(kindComplete, err)
	if err != nil {
		return nil, err
	}

	s.record(ctx, taskEvent(domain.AuditTaskCompleted, actor.UserID, &out.Task, comments))
	if out.Activated != nil {
		s.assigned(ctx, out.Activated)
	}
	if out.InstanceStatus == domain.InstanceCompleted {
		s.logger.Info("workflow completed", zap.Stringer("instance", out.Task.InstanceID))
		s.record(ctx, instanceEvent(domain.AuditWorkflowCompleted, actor.UserID, out.Task.InstanceID, out.Task.OrganizationID, ""))
	}
	return out, nil
}

func (s *Sequencer) complete(ctx context.Context, taskID uuid.UUID, actor *domain.PermissionContext, comments string) (*Outcome, error) {
	task, siblings, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	switch task.Status {
	case domain.StatusInProgress:
	case domain.StatusCompleted:
		return nil, apperr.New(apperr.AlreadyCompleted, "task is already completed", nil)
	default:
		return nil, apperr.Newf(apperr.InvalidStateTransition, "cannot complete a %s task", task.Status)
	}
	if err := authorize(task, actor); err != nil {
		return nil, err
	}
	if err := priorStepsDone(task, siblings); err != nil {
		return nil, err
	}

	now := s.now()
	done := *task
	done.Status = domain.StatusCompleted
	done.CompletedAt = &now
	done.CompletedBy = &actor.UserID
	done.Comments = comments

	tr := ports.TaskTransition{Task: &done, ExpectedVersion: task.Version, At: now}
	out := &Outcome{}
	if next := stepAt(siblings, task.StepNumber+1); next != nil {
		if next.Status != domain.StatusPending {
			return nil, apperr.Newf(apperr.InvalidStateTransition, "next step is already %s", next.Status)
		}
		activated := *next
		activated.Activate(now)
		tr.Activate = &activated
		out.Activated = &activated
	} else {
		tr.InstanceStatus = domain.InstanceCompleted
		out.InstanceStatus = domain.InstanceCompleted
	}

	if err := s.tasks.ApplyTransition(ctx, tr); err != nil {
		return nil, err
	}
	done.Version++
	if out.Activated != nil {
		out.Activated.Version++
	}
	out.Task = done
	return out, nil
}

// Reject stops the instance: the task becomes REJECTED, every PENDING step
// is CANCELLED and the instance is REJECTED.
func (s *Sequencer) Reject(ctx context.Context, taskID uuid.UUID, actor *domain.PermissionContext, reason string) (*Outcome, error) {
	var out *Outcome
	err := s.withRetry(kindReject, func() error {
		var err error
		out, err = s.reject(ctx, taskID, actor, reason)
		return err
	})
	s.observe(kindReject, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("workflow rejected", zap.Stringer("instance", out.Task.InstanceID), zap.Stringer("task", out.Task.ID))
	s.record(ctx, taskEvent(domain.AuditTaskRejected, actor.UserID, &out.Task, reason))
	s.record(ctx, instanceEvent(domain.AuditWorkflowRejected, actor.UserID, out.Task.InstanceID, out.Task.OrganizationID, reason))
	return out, nil
}

func (s *Sequencer) reject(ctx context.Context, taskID uuid.UUID, actor *domain.PermissionContext, reason string) (*Outcome, error) {
	task, siblings, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.StatusInProgress {
		return nil, apperr.Newf(apperr.InvalidStateTransition, "cannot reject a %s task", task.Status)
	}
	if err := authorize(task, actor); err != nil {
		return nil, err
	}
	if err := priorStepsDone(task, siblings); err != nil {
		return nil, err
	}

	now := s.now()
	rejected := *task
	rejected.Status = domain.StatusRejected
	rejected.CompletedAt = &now
	rejected.CompletedBy = &actor.UserID
	rejected.Comments = reason

	err = s.tasks.ApplyTransition(ctx, ports.TaskTransition{
		Task:            &rejected,
		ExpectedVersion: task.Version,
		CancelPending:   true,
		InstanceStatus:  domain.InstanceRejected,
		At:              now,
	})
	if err != nil {
		return nil, err
	}
	rejected.Version++
	return &Outcome{Task: rejected, InstanceStatus: domain.InstanceRejected}, nil
}

// Claim turns a role-assigned IN_PROGRESS task into one assigned to the
// actor. Claiming a task already assigned to the actor changes nothing.
func (s *Sequencer) Claim(ctx context.Context, taskID uuid.UUID, actor *domain.PermissionContext) (*domain.Task, error) {
	var (
		task    *domain.Task
		claimed bool
	)
	err := s.withRetry(kindClaim, func() error {
		var err error
		task, claimed, err = s.claim(ctx, taskID, actor)
		return err
	})
	s.observe(kindClaim, err)
	if err != nil {
		return nil, err
	}
	if claimed {
		s.record(ctx, taskEvent(domain.AuditTaskClaimed, actor.UserID, task, ""))
	}
	return task, nil
}

func (s *Sequencer) claim(ctx context.Context, taskID uuid.UUID, actor *domain.PermissionContext) (*domain.Task, bool, error) {
	if actor == nil {
		return nil, false, apperr.New(apperr.NotAuthorized, "missing permission context", nil)
	}
	task, err := s.tasks.FindTaskByID(ctx, taskID)
	if err != nil {
		return nil, false, err
	}
	if task.Status != domain.StatusInProgress {
		return nil, false, apperr.Newf(apperr.InvalidStateTransition, "cannot claim a %s task", task.Status)
	}

	switch a := task.Assignment.Assignee.(type) {
	case domain.UserAssignee:
		if a.UserID == actor.UserID {
			return task, false, nil
		}
		return nil, false, apperr.New(apperr.NotAuthorized, "task is assigned to another user", nil)
	case domain.RoleAssignee:
		if !actor.HasRole(a.Role) || actor.UserID == uuid.Nil {
			return nil, false, apperr.Newf(apperr.NotAuthorized, "claiming requires role %s", a.Role)
		}
	default:
		return nil, false, apperr.New(apperr.InvalidStateTransition, "task has no assignee", nil)
	}

	now := s.now()
	to := domain.AssignUser(actor.UserID)
	if err := s.tasks.Reassign(ctx, task.ID, task.Version, to, now); err != nil {
		return nil, false, err
	}
	task.Assignment = to
	task.Version++
	task.UpdatedAt = now
	return task, true, nil
}

// FindOverdue lists open tasks whose due date passed. It never writes.
func (s *Sequencer) FindOverdue(ctx context.Context, now time.Time) ([]domain.Task, error) {
	return s.tasks.FindOverdue(ctx, now)
}

// withRetry runs attempt and, if it lost a version race, runs it once more.
// attempt must re-read its state so the second run re-validates.
func (s *Sequencer) withRetry(kind string, attempt func() error) error {
	err := attempt()
	if !errors.Is(err, ports.ErrVersionConflict) {
		return err
	}
	metrics.VersionRetries.WithLabelValues(kind).Inc()
	s.logger.Debug("version conflict, retrying", zap.String("kind", kind))

	err = attempt()
	if errors.Is(err, ports.ErrVersionConflict) {
		return apperr.New(apperr.InvalidStateTransition, "task was changed concurrently", err)
	}
	return err
}

func (s *Sequencer) load(ctx context.Context, taskID uuid.UUID) (*domain.Task, []domain.Task, error) {
	task, err := s.tasks.FindTaskByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	siblings, err := s.tasks.InstanceTasks(ctx, task.InstanceID)
	if err != nil {
		return nil, nil, err
	}
	return task, siblings, nil
}

func (s *Sequencer) observe(kind string, err error) {
	result := "ok"
	if err != nil {
		result = apperr.CodeOf(err).String()
	}
	metrics.Transitions.WithLabelValues(kind, result).Inc()
}

func authorize(task *domain.Task, actor *domain.PermissionContext) error {
	if actor == nil || !task.Assignment.Allows(actor.UserID, actor.RoleNames) {
		return apperr.Newf(apperr.NotAuthorized, "task is assigned to %s", task.Assignment)
	}
	return nil
}

func priorStepsDone(task *domain.Task, siblings []domain.Task) error {
	for _, t := range siblings {
		if t.StepNumber < task.StepNumber && t.Status != domain.StatusCompleted {
			return apperr.Newf(apperr.InvalidStateTransition, "step %d is still %s", t.StepNumber, t.Status)
		}
	}
	return nil
}

func stepAt(tasks []domain.Task, step int) *domain.Task {
	for i := range tasks {
		if tasks[i].StepNumber == step {
			return &tasks[i]
		}
	}
	return nil
}

func newEventID() string {
	return ulid.Make().String()
}
