// Package visibility builds the row-level filters that decide which
// workflows, instances and tasks a caller may see. The filters are plain
// predicates so every store applies them before pagination.
package visibility

import (
	"github.com/google/uuid"

	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/predicate"
)

// Workflows matches definitions the caller created or that belong to an
// organization they can access, plus the usable cross-tenant definitions
// every organization resolves to. A superadmin sees everything; a missing
// context sees nothing.
func Workflows(pc *domain.PermissionContext) predicate.Expr {
	if pc == nil {
		return predicate.False
	}
	if pc.SuperAdmin {
		return predicate.True
	}
	own := predicate.Or(ownership(pc)...)
	if own == predicate.False {
		return own
	}
	return predicate.Or(own, sharedUsable)
}

var sharedUsable = predicate.And(
	predicate.Eq(domain.FieldOrganizationID, uuid.Nil),
	predicate.Eq(domain.FieldStatus, domain.DefinitionActive),
	predicate.Eq(domain.FieldActive, true),
)

// Instances matches instances the caller started or that run in an
// organization they can access.
func Instances(pc *domain.PermissionContext) predicate.Expr {
	if pc == nil {
		return predicate.False
	}
	if pc.SuperAdmin {
		return predicate.True
	}
	return predicate.Or(ownership(pc)...)
}

// Tasks widens the workflow rule with tasks assigned to the caller directly
// or to any of their roles, whichever organization they sit in.
func Tasks(pc *domain.PermissionContext) predicate.Expr {
	if pc == nil {
		return predicate.False
	}
	if pc.SuperAdmin {
		return predicate.True
	}

	keys := make([]string, 0, len(pc.RoleNames)+1)
	if pc.UserID != uuid.Nil {
		keys = append(keys, domain.UserKey(pc.UserID))
	}
	for _, r := range pc.RoleNames {
		if r != "" {
			keys = append(keys, domain.RoleKey(r))
		}
	}
	return predicate.Or(append(ownership(pc), predicate.In(domain.FieldAssignee, keys))...)
}

// Scope AND-composes a visibility rule with a caller filter.
func Scope(rule, filter predicate.Expr) predicate.Expr {
	return predicate.And(rule, filter)
}

func ownership(pc *domain.PermissionContext) []predicate.Expr {
	var parts []predicate.Expr
	if pc.UserID != uuid.Nil {
		parts = append(parts, predicate.Eq(domain.FieldCreatedBy, pc.UserID))
	}
	return append(parts, predicate.In(domain.FieldOrganizationID, pc.AccessibleOrganizationIDs))
}
