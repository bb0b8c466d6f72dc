// Package query turns caller-supplied list filters into predicate expressions
// that AND-compose with the visibility predicate.
package query

import (
	"time"

	"github.com/google/uuid"

	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/predicate"
)

// Range is a half-open time window [From, To). Zero bounds are open.
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) expr(field string) predicate.Expr {
	var parts []predicate.Expr
	if !r.From.IsZero() {
		parts = append(parts, predicate.Gte(field, r.From))
	}
	if !r.To.IsZero() {
		parts = append(parts, predicate.Lt(field, r.To))
	}
	return predicate.And(parts...)
}

type WorkflowFilter struct {
	OrganizationID *uuid.UUID
	Action         string
	TargetType     string
	TargetID       string
	Statuses       []domain.DefinitionStatus
	Active         *bool
	IsDefault      *bool
	Created        Range
}

func (f WorkflowFilter) Expr() predicate.Expr {
	parts := []predicate.Expr{f.Created.expr(domain.FieldCreatedAt)}
	if f.OrganizationID != nil {
		parts = append(parts, predicate.Eq(domain.FieldOrganizationID, *f.OrganizationID))
	}
	parts = append(parts, target(f.Action, f.TargetType, f.TargetID)...)
	if len(f.Statuses) > 0 {
		parts = append(parts, predicate.In(domain.FieldStatus, f.Statuses))
	}
	if f.Active != nil {
		parts = append(parts, predicate.Eq(domain.FieldActive, *f.Active))
	}
	if f.IsDefault != nil {
		parts = append(parts, predicate.Eq(domain.FieldIsDefault, *f.IsDefault))
	}
	return predicate.And(parts...)
}

type InstanceFilter struct {
	DefinitionID *uuid.UUID
	Action       string
	TargetType   string
	TargetID     string
	Statuses     []domain.InstanceStatus
	Created      Range
}

func (f InstanceFilter) Expr() predicate.Expr {
	parts := []predicate.Expr{f.Created.expr(domain.FieldCreatedAt)}
	if f.DefinitionID != nil {
		parts = append(parts, predicate.Eq(domain.FieldDefinitionID, *f.DefinitionID))
	}
	parts = append(parts, target(f.Action, f.TargetType, f.TargetID)...)
	if len(f.Statuses) > 0 {
		parts = append(parts, predicate.In(domain.FieldStatus, f.Statuses))
	}
	return predicate.And(parts...)
}

type TaskFilter struct {
	InstanceID *uuid.UUID
	WorkflowID *uuid.UUID
	Statuses   []domain.TaskStatus
	// Assignee matches the stored assignee key, e.g. domain.RoleKey("ADMIN").
	Assignee string
	Due      Range
	Created  Range
}

func (f TaskFilter) Expr() predicate.Expr {
	parts := []predicate.Expr{
		f.Due.expr(domain.FieldDueDate),
		f.Created.expr(domain.FieldCreatedAt),
	}
	if f.InstanceID != nil {
		parts = append(parts, predicate.Eq(domain.FieldInstanceID, *f.InstanceID))
	}
	if f.WorkflowID != nil {
		parts = append(parts, predicate.Eq(domain.FieldWorkflowID, *f.WorkflowID))
	}
	if len(f.Statuses) > 0 {
		parts = append(parts, predicate.In(domain.FieldStatus, f.Statuses))
	}
	if f.Assignee != "" {
		parts = append(parts, predicate.Eq(domain.FieldAssignee, f.Assignee))
	}
	return predicate.And(parts...)
}

// Overdue selects open tasks whose due date is before now.
func Overdue(now time.Time) predicate.Expr {
	return predicate.And(
		predicate.In(domain.FieldStatus, domain.OpenStatuses),
		predicate.Lt(domain.FieldDueDate, now),
	)
}

func target(action, targetType, targetID string) []predicate.Expr {
	var parts []predicate.Expr
	if action != "" {
		parts = append(parts, predicate.Eq(domain.FieldAction, action))
	}
	if targetType != "" {
		parts = append(parts, predicate.Eq(domain.FieldTargetType, targetType))
	}
	if targetID != "" {
		parts = append(parts, predicate.Eq(domain.FieldTargetID, targetID))
	}
	return parts
}
