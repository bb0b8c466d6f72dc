package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type DefinitionStatus string

const (
	DefinitionDraft    DefinitionStatus = "DRAFT"
	DefinitionActive   DefinitionStatus = "ACTIVE"
	DefinitionArchived DefinitionStatus = "ARCHIVED"
)

// StepSpec is one approval step of a definition.
type StepSpec struct {
	StepNumber   int        `json:"step_number"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Assignment   Assignment `json:"assignee"`
	DueInMinutes int        `json:"due_in_minutes,omitempty"`
}

type WorkflowDefinition struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key;"`
	// uuid.Nil marks a cross-tenant default.
	OrganizationID uuid.UUID `gorm:"type:uuid;index:idx_definition_lookup;not null"`
	Name           string    `gorm:"type:varchar(200);not null"`
	Description    string    `gorm:"type:text"`
	Action         string    `gorm:"type:varchar(100);index:idx_definition_lookup;not null"`
	// Both empty for organization-wide definitions.
	TargetType     string    `gorm:"type:varchar(100);not null;default:'';index:idx_definition_target"`
	TargetID       string    `gorm:"type:varchar(100);not null;default:'';index:idx_definition_target"`

	Steps         datatypes.JSONSlice[StepSpec] `gorm:"type:jsonb"`
	RequiredRoles datatypes.JSONSlice[string]   `gorm:"type:jsonb"`

	Active    bool             `gorm:"not null;index"`
	IsDefault bool             `gorm:"default:false"`
	Status    DefinitionStatus `gorm:"type:varchar(20);index;default:'DRAFT'"`

	CreatedBy uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// --- FACTORY ---
func NewDefinition(orgID, createdBy uuid.UUID, name, action string, steps []StepSpec) *WorkflowDefinition {
	d := &WorkflowDefinition{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		Action:         action,
		Steps:          steps,
		Active:         true,
		Status:         DefinitionDraft,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now(),
	}
	d.RequiredRoles = d.rolesFromSteps()
	return d
}

// --- METHODS ---

// Usable reports whether the resolver may pick this definition.
func (d *WorkflowDefinition) Usable() bool {
	return d.Active && d.Status == DefinitionActive
}

func (d *WorkflowDefinition) IsTargeted() bool {
	return d.TargetType != "" && d.TargetID != ""
}

// SortedSteps returns the steps ordered by step number.
func (d *WorkflowDefinition) SortedSteps() []StepSpec {
	steps := slices.Clone([]StepSpec(d.Steps))
	slices.SortFunc(steps, func(a, b StepSpec) int { return a.StepNumber - b.StepNumber })
	return steps
}

// ValidateSteps checks that step numbers run 1..n without gaps or duplicates
// and that every step names an assignee.
func (d *WorkflowDefinition) ValidateSteps() error {
	if len(d.Steps) == 0 {
		return ErrNoSteps
	}
	for i, s := range d.SortedSteps() {
		if s.StepNumber != i+1 {
			return &StepSequenceError{Expected: i + 1, Got: s.StepNumber}
		}
		if s.Assignment.IsZero() {
			return &StepSequenceError{Expected: i + 1, Got: s.StepNumber, MissingAssignee: true}
		}
	}
	return nil
}

// SyncRequiredRoles recomputes RequiredRoles from the role-assigned steps.
func (d *WorkflowDefinition) SyncRequiredRoles() {
	d.RequiredRoles = d.rolesFromSteps()
}

func (d *WorkflowDefinition) rolesFromSteps() []string {
	var roles []string
	for _, s := range d.Steps {
		if r, ok := s.Assignment.Assignee.(RoleAssignee); ok && !slices.Contains(roles, r.Role) {
			roles = append(roles, r.Role)
		}
	}
	slices.Sort(roles)
	return roles
}
