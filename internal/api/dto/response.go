package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/sequencer"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PageResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

type DefinitionResponse struct {
	ID             uuid.UUID         `json:"id"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Action         string            `json:"action"`
	TargetType     string            `json:"target_type,omitempty"`
	TargetID       string            `json:"target_id,omitempty"`
	Steps          []domain.StepSpec `json:"steps"`
	RequiredRoles  []string          `json:"required_roles"`
	Active         bool              `json:"active"`
	IsDefault      bool              `json:"is_default"`
	Status         string            `json:"status"`
	CreatedBy      uuid.UUID         `json:"created_by"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type TaskResponse struct {
	ID             uuid.UUID  `json:"id"`
	InstanceID     uuid.UUID  `json:"instance_id"`
	WorkflowID     uuid.UUID  `json:"workflow_id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	StepNumber     int        `json:"step_number"`
	Assignee       string     `json:"assignee"`
	Status         string     `json:"status"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CompletedBy    *uuid.UUID `json:"completed_by,omitempty"`
	Comments       string     `json:"comments,omitempty"`
	Version        int        `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type InstanceResponse struct {
	ID             uuid.UUID      `json:"id"`
	DefinitionID   uuid.UUID      `json:"definition_id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	Action         string         `json:"action"`
	TargetType     string         `json:"target_type,omitempty"`
	TargetID       string         `json:"target_id,omitempty"`
	Status         string         `json:"status"`
	CreatedBy      uuid.UUID      `json:"created_by"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	Tasks          []TaskResponse `json:"tasks,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type StartResponse struct {
	Started  bool              `json:"started"`
	Instance *InstanceResponse `json:"instance,omitempty"`
}

type TransitionResponse struct {
	Task           TaskResponse  `json:"task"`
	Activated      *TaskResponse `json:"activated,omitempty"`
	InstanceStatus string        `json:"instance_status,omitempty"`
}

func FromDefinition(d *domain.WorkflowDefinition) DefinitionResponse {
	roles := []string(d.RequiredRoles)
	if roles == nil {
		roles = []string{}
	}
	return DefinitionResponse{
		ID:             d.ID,
		OrganizationID: d.OrganizationID,
		Name:           d.Name,
		Description:    d.Description,
		Action:         d.Action,
		TargetType:     d.TargetType,
		TargetID:       d.TargetID,
		Steps:          d.SortedSteps(),
		RequiredRoles:  roles,
		Active:         d.Active,
		IsDefault:      d.IsDefault,
		Status:         string(d.Status),
		CreatedBy:      d.CreatedBy,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func FromTask(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:             t.ID,
		InstanceID:     t.InstanceID,
		WorkflowID:     t.WorkflowID,
		OrganizationID: t.OrganizationID,
		Title:          t.Title,
		Description:    t.Description,
		StepNumber:     t.StepNumber,
		Assignee:       t.Assignment.String(),
		Status:         string(t.Status),
		DueDate:        t.DueDate,
		CompletedAt:    t.CompletedAt,
		CompletedBy:    t.CompletedBy,
		Comments:       t.Comments,
		Version:        t.Version,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func FromTasks(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i := range tasks {
		out[i] = FromTask(&tasks[i])
	}
	return out
}

// FromInstance renders inst, taking tasks from the argument when given and
// from inst.Tasks otherwise.
func FromInstance(inst *domain.WorkflowInstance, tasks []domain.Task) InstanceResponse {
	if tasks == nil {
		tasks = inst.Tasks
	}
	return InstanceResponse{
		ID:             inst.ID,
		DefinitionID:   inst.DefinitionID,
		OrganizationID: inst.OrganizationID,
		Action:         inst.Action,
		TargetType:     inst.TargetType,
		TargetID:       inst.TargetID,
		Status:         string(inst.Status),
		CreatedBy:      inst.CreatedBy,
		CompletedAt:    inst.CompletedAt,
		Tasks:          FromTasks(tasks),
		CreatedAt:      inst.CreatedAt,
		UpdatedAt:      inst.UpdatedAt,
	}
}

func FromOutcome(o *sequencer.Outcome) TransitionResponse {
	resp := TransitionResponse{
		Task:           FromTask(&o.Task),
		InstanceStatus: string(o.InstanceStatus),
	}
	if o.Activated != nil {
		a := FromTask(o.Activated)
		resp.Activated = &a
	}
	return resp
}

// MapPage converts a page of domain values with fn.
func MapPage[T, R any](items []T, total int64, limit, offset int, fn func(*T) R) PageResponse[R] {
	out := make([]R, len(items))
	for i := range items {
		out[i] = fn(&items[i])
	}
	return PageResponse[R]{Items: out, Total: total, Limit: limit, Offset: offset}
}
