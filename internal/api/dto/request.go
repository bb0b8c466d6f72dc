package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/viridial-group/realestate-sub003/internal/definition"
	"github.com/viridial-group/realestate-sub003/internal/domain"
)

type StepDTO struct {
	StepNumber   int    `json:"step_number" binding:"required,min=1"`
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	Assignee     string `json:"assignee" binding:"required"` // "user:<uuid>" or "role:<NAME>"
	DueInMinutes int    `json:"due_in_minutes" binding:"min=0"`
}

func (r DefinitionRequest) ToDraft() (definition.Draft, error) {
	steps := make([]domain.StepSpec, 0, len(r.Steps))
	for _, s := range r.Steps {
		spec, err := s.ToDomain()
		if err != nil {
			return definition.Draft{}, err
		}
		steps = append(steps, spec)
	}
	return definition.Draft{
		OrganizationID: r.OrganizationID,
		Name:           r.Name,
		Description:    r.Description,
		Action:         r.Action,
		TargetType:     r.TargetType,
		TargetID:       r.TargetID,
		Steps:          steps,
		IsDefault:      r.IsDefault,
	}, nil
}

func (s StepDTO) ToDomain() (domain.StepSpec, error) {
	a, err := domain.ParseAssignment(s.Assignee)
	if err != nil {
		return domain.StepSpec{}, err
	}
	return domain.StepSpec{
		StepNumber:   s.StepNumber,
		Title:        s.Title,
		Description:  s.Description,
		Assignment:   a,
		DueInMinutes: s.DueInMinutes,
	}, nil
}

type DefinitionRequest struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name" binding:"required"`
	Description    string    `json:"description"`
	Action         string    `json:"action" binding:"required"`
	TargetType     string    `json:"target_type"`
	TargetID       string    `json:"target_id"`
	Steps          []StepDTO `json:"steps" binding:"dive"`
	IsDefault      bool      `json:"is_default"`
}

type DuplicateRequest struct {
	Name string `json:"name"`
}

// StartRequest runs Action against the target inside OrganizationID.
// With SkipIfUndefined a missing workflow is not an error.
type StartRequest struct {
	OrganizationID  uuid.UUID `json:"organization_id" binding:"required"`
	Action          string    `json:"action" binding:"required"`
	TargetType      string    `json:"target_type"`
	TargetID        string    `json:"target_id"`
	SkipIfUndefined bool      `json:"skip_if_undefined"`
}

type ResolveRequest struct {
	OrganizationID string `form:"organization_id" binding:"required,uuid"`
	Action         string `form:"action" binding:"required"`
	TargetType     string `form:"target_type"`
	TargetID       string `form:"target_id"`
}

type CompleteRequest struct {
	Comments string `json:"comments"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type PageQuery struct {
	Limit  int `form:"limit" binding:"min=0"`
	Offset int `form:"offset" binding:"min=0"`
}

type DefinitionQuery struct {
	PageQuery
	OrganizationID string   `form:"organization_id"`
	Action         string   `form:"action"`
	TargetType     string   `form:"target_type"`
	TargetID       string   `form:"target_id"`
	Status         []string `form:"status"`
}

type InstanceQuery struct {
	PageQuery
	DefinitionID string   `form:"definition_id"`
	Action       string   `form:"action"`
	TargetType   string   `form:"target_type"`
	TargetID     string   `form:"target_id"`
	Status       []string `form:"status"`
}

type TaskQuery struct {
	PageQuery
	InstanceID string   `form:"instance_id"`
	WorkflowID string   `form:"workflow_id"`
	Assignee   string   `form:"assignee"`
	Status     []string `form:"status"`
	// Overdue restricts to open tasks whose due date has passed.
	Overdue   bool      `form:"overdue"`
	DueBefore time.Time `form:"due_before" time_format:"2006-01-02T15:04:05Z07:00"`
	DueAfter  time.Time `form:"due_after" time_format:"2006-01-02T15:04:05Z07:00"`
}
