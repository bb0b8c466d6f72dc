package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditWorkflowStarted   AuditAction = "WORKFLOW_STARTED"
	AuditTaskCompleted     AuditAction = "TASK_COMPLETED"
	AuditTaskRejected      AuditAction = "TASK_REJECTED"
	AuditTaskClaimed       AuditAction = "TASK_CLAIMED"
	AuditWorkflowCompleted AuditAction = "WORKFLOW_COMPLETED"
	AuditWorkflowRejected  AuditAction = "WORKFLOW_REJECTED"
)

// AuditEvent is handed to the audit collaborator for every state transition.
type AuditEvent struct {
	ID             string      `json:"id"`
	Actor          uuid.UUID   `json:"actor"`
	Action         AuditAction `json:"action"`
	TargetType     string      `json:"target_type"` // "task" or "workflow_instance"
	TargetID       uuid.UUID   `json:"target_id"`
	InstanceID     uuid.UUID   `json:"instance_id"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	Detail         string      `json:"detail,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

type NotificationKind string

const (
	NotifyAssigned   NotificationKind = "TASK_ASSIGNED"
	NotifyReminder   NotificationKind = "TASK_REMINDER"
	NotifyEscalation NotificationKind = "TASK_ESCALATION"
)

// NotificationEvent is fire-and-forget input for the email/notification services.
type NotificationEvent struct {
	ID             string           `json:"id"`
	Kind           NotificationKind `json:"kind"`
	TaskID         uuid.UUID        `json:"task_id"`
	InstanceID     uuid.UUID        `json:"instance_id"`
	OrganizationID uuid.UUID        `json:"organization_id"`
	Assignee       string           `json:"assignee"`
	Title          string           `json:"title"`
	DueDate        *time.Time       `json:"due_date,omitempty"`
	OverdueBy      time.Duration    `json:"overdue_by,omitempty"`
	OccurredAt     time.Time        `json:"occurred_at"`
}
