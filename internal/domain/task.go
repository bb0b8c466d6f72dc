package domain

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "PENDING"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
	StatusRejected   TaskStatus = "REJECTED"
	StatusCancelled  TaskStatus = "CANCELLED"
)

// OpenStatuses are the statuses the overdue scan considers.
var OpenStatuses = []TaskStatus{StatusPending, StatusInProgress}

func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

type Task struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;"`
	InstanceID uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_instance_step;not null"`
	WorkflowID uuid.UUID `gorm:"type:uuid;index;not null"`

	// Copied from the owning instance so visibility is a single-table filter.
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedBy      uuid.UUID `gorm:"type:uuid;index"`

	Title       string     `gorm:"type:varchar(200);not null"`
	Description string     `gorm:"type:text"`
	StepNumber  int        `gorm:"uniqueIndex:idx_instance_step;not null"`
	Assignment  Assignment `gorm:"column:assignee;type:varchar(120);index"`
	Status      TaskStatus `gorm:"type:varchar(20);index;default:'PENDING'"`

	// DueIn is kept so a later step's due date can be set when it activates.
	DueInMinutes int
	DueDate      *time.Time `gorm:"index"`
	CompletedAt  *time.Time
	CompletedBy  *uuid.UUID `gorm:"type:uuid"`
	Comments     string     `gorm:"type:text"`

	Version int `gorm:"default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// --- FACTORY ---
func NewTask(inst *WorkflowInstance, step StepSpec, now time.Time) *Task {
	return &Task{
		ID:             uuid.New(),
		InstanceID:     inst.ID,
		WorkflowID:     inst.DefinitionID,
		OrganizationID: inst.OrganizationID,
		CreatedBy:      inst.CreatedBy,
		Title:          step.Title,
		Description:    step.Description,
		StepNumber:     step.StepNumber,
		Assignment:     step.Assignment,
		Status:         StatusPending,
		DueInMinutes:   step.DueInMinutes,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// --- METHODS ---

// Activate moves a pending task to IN_PROGRESS and starts its due clock.
func (t *Task) Activate(now time.Time) {
	t.Status = StatusInProgress
	if t.DueInMinutes > 0 {
		due := now.Add(time.Duration(t.DueInMinutes) * time.Minute)
		t.DueDate = &due
	}
	t.UpdatedAt = now
}
