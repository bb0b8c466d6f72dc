package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/predicate"
)

// ErrVersionConflict is returned when an optimistic version check fails:
// another writer changed the row between read and write.
var ErrVersionConflict = errors.New("version conflict")

// ErrDuplicateDefault is returned when a write would leave two active
// defaults for the same (organization, action).
var ErrDuplicateDefault = errors.New("an active default already exists for this organization and action")

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Page is an offset window applied after filtering.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// DefinitionQuery selects usable definitions for resolution.
type DefinitionQuery struct {
	OrganizationID uuid.UUID
	Action         string
	TargetType     string
	TargetID       string
	// DefaultOnly restricts to IsDefault definitions and ignores target fields.
	DefaultOnly bool
}

// DefinitionRepository persists workflow definitions.
type DefinitionRepository interface {
	// Create fails with ErrDuplicateDefault if def is an active default and
	// another active default exists for its key.
	Create(ctx context.Context, def *domain.WorkflowDefinition) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error)

	// Update writes every field of def with the same default check as Create.
	Update(ctx context.Context, def *domain.WorkflowDefinition) error

	// SetDefault marks id as the default for its (organization, action) and
	// clears the flag on every other definition of that key, atomically.
	SetDefault(ctx context.Context, id uuid.UUID) error

	Delete(ctx context.Context, id uuid.UUID) error

	// FindUsable returns ACTIVE, active definitions matching q ordered by id.
	FindUsable(ctx context.Context, q DefinitionQuery) ([]domain.WorkflowDefinition, error)

	List(ctx context.Context, filter predicate.Expr, page Page) ([]domain.WorkflowDefinition, int64, error)
}

// TaskTransition is one atomic state change of a workflow instance.
// Task carries the new state of the acted-on task; ExpectedVersion guards it.
type TaskTransition struct {
	Task            *domain.Task
	ExpectedVersion int

	// Activate, when set, is the next step moving PENDING -> IN_PROGRESS.
	Activate *domain.Task

	// CancelPending moves every remaining PENDING task of the instance to CANCELLED.
	CancelPending bool

	// InstanceStatus, when non-empty, is the new status of the owning instance.
	InstanceStatus domain.InstanceStatus
	At             time.Time
}

// TaskRepository persists workflow instances and their tasks.
type TaskRepository interface {
	// Create a workflow instance with all its tasks in one transaction
	CreateInstance(ctx context.Context, inst *domain.WorkflowInstance, tasks []domain.Task) error

	GetInstance(ctx context.Context, id uuid.UUID) (*domain.WorkflowInstance, error)
	FindTaskByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// InstanceTasks returns the tasks of one instance ordered by step number.
	InstanceTasks(ctx context.Context, instanceID uuid.UUID) ([]domain.Task, error)

	// ApplyTransition persists tr in one transaction. It returns
	// ErrVersionConflict if the task version no longer matches.
	ApplyTransition(ctx context.Context, tr TaskTransition) error

	// Reassign changes the assignee of an IN_PROGRESS task guarded by version.
	Reassign(ctx context.Context, taskID uuid.UUID, expectedVersion int, to domain.Assignment, at time.Time) error

	// FindOverdue returns open tasks with a due date before now.
	FindOverdue(ctx context.Context, now time.Time) ([]domain.Task, error)

	ListTasks(ctx context.Context, filter predicate.Expr, page Page) ([]domain.Task, int64, error)
	ListInstances(ctx context.Context, filter predicate.Expr, page Page) ([]domain.WorkflowInstance, int64, error)

	// CountInstancesByDefinition reports how many instances reference a definition.
	CountInstancesByDefinition(ctx context.Context, definitionID uuid.UUID) (int64, error)
}

// AuditSink receives one event per state transition.
type AuditSink interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}

// Notifier hands reminders, escalations and assignments to the delivery services.
type Notifier interface {
	Notify(ctx context.Context, event domain.NotificationEvent) error
}

// NotificationLedger deduplicates scanner notifications across sweeps.
type NotificationLedger interface {
	// MarkOnce records key and reports whether this call was the first to do so.
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets key so a failed delivery is retried on the next sweep.
	Release(ctx context.Context, key string) error
}

// OrganizationHierarchy is the external organization directory.
type OrganizationHierarchy interface {
	// DirectOrganizations returns the organizations a user is a member of.
	DirectOrganizations(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// Descendants returns every organization below the given ones, not including them.
	Descendants(ctx context.Context, orgIDs []uuid.UUID) ([]uuid.UUID, error)
}

// UserProfile is what the identity service knows about a user.
type UserProfile struct {
	UserID     uuid.UUID
	RoleNames  []string
	SuperAdmin bool
	Admin      bool
	UserType   string
}

// UserDirectory is the external identity service.
type UserDirectory interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
}

// PermissionProvider supplies the per-request permission snapshot.
type PermissionProvider interface {
	GetPermissionContext(ctx context.Context, userID uuid.UUID) (*domain.PermissionContext, error)
}
