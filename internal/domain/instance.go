package domain

import (
	"time"

	"github.com/google/uuid"
)

type InstanceStatus string

const (
	InstanceRunning   InstanceStatus = "RUNNING"
	InstanceCompleted InstanceStatus = "COMPLETED"
	InstanceRejected  InstanceStatus = "REJECTED"
)

// Target is the concrete business object an action runs against.
type Target struct {
	Type string
	ID   string
}

type WorkflowInstance struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;"`
	DefinitionID   uuid.UUID `gorm:"type:uuid;index;not null"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null"`
	Action         string    `gorm:"type:varchar(100);index;not null"`
	TargetType     string    `gorm:"type:varchar(100)"`
	TargetID       string    `gorm:"type:varchar(100);index"`

	Status InstanceStatus `gorm:"type:varchar(20);index;default:'RUNNING'"`

	// Note: tasks are loaded on demand through the task repository
	Tasks []Task `gorm:"foreignKey:InstanceID"`

	CreatedBy   uuid.UUID `gorm:"type:uuid;index"`
	CompletedAt *time.Time
	Version     int `gorm:"default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// --- FACTORY ---
func NewInstance(def *WorkflowDefinition, orgID uuid.UUID, target Target, createdBy uuid.UUID, now time.Time) *WorkflowInstance {
	return &WorkflowInstance{
		ID:             uuid.New(),
		DefinitionID:   def.ID,
		OrganizationID: orgID,
		Action:         def.Action,
		TargetType:     target.Type,
		TargetID:       target.ID,
		Status:         InstanceRunning,
		CreatedBy:      createdBy,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
