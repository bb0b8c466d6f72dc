package domain

import (
	"slices"

	"github.com/google/uuid"
)

// PermissionContext is the per-request snapshot of who the caller is and
// which organizations they can see.
type PermissionContext struct {
	UserID     uuid.UUID
	RoleNames  []string
	SuperAdmin bool
	Admin      bool
	// AccessibleOrganizationIDs holds direct organizations plus every descendant.
	AccessibleOrganizationIDs []uuid.UUID
	DirectOrganizationIDs     []uuid.UUID
	UserType                  string
}

func (p *PermissionContext) HasRole(role string) bool {
	return p != nil && slices.Contains(p.RoleNames, role)
}

func (p *PermissionContext) CanAccessOrganization(orgID uuid.UUID) bool {
	if p == nil {
		return false
	}
	return p.SuperAdmin || slices.Contains(p.AccessibleOrganizationIDs, orgID)
}
