// Package permission assembles the per-request PermissionContext from the
// identity service and the organization directory.
package permission

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
)

var _ ports.PermissionProvider = (*Builder)(nil)

type Builder struct {
	users     ports.UserDirectory
	hierarchy ports.OrganizationHierarchy
	logger    *zap.Logger
}

func NewBuilder(users ports.UserDirectory, hierarchy ports.OrganizationHierarchy, logger *zap.Logger) *Builder {
	return &Builder{users: users, hierarchy: hierarchy, logger: logger.Named("permission")}
}

// GetPermissionContext resolves the caller's roles and organizations. The
// accessible set always contains the direct set.
func (b *Builder) GetPermissionContext(ctx context.Context, userID uuid.UUID) (*domain.PermissionContext, error) {
	if userID == uuid.Nil {
		return nil, apperr.New(apperr.NotAuthorized, "missing user identity", nil)
	}

	profile, err := b.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	direct, err := b.hierarchy.DirectOrganizations(ctx, userID)
	if err != nil {
		return nil, apperr.New(apperr.Internal, "server error", fmt.Errorf("direct organizations of %s: %w", userID, err))
	}
	descendants, err := b.hierarchy.Descendants(ctx, direct)
	if err != nil {
		return nil, apperr.New(apperr.Internal, "server error", fmt.Errorf("descendant organizations of %s: %w", userID, err))
	}

	pc := &domain.PermissionContext{
		UserID:                    userID,
		RoleNames:                 profile.RoleNames,
		SuperAdmin:                profile.SuperAdmin,
		Admin:                     profile.Admin,
		DirectOrganizationIDs:     dedupe(direct),
		AccessibleOrganizationIDs: dedupe(append(append([]uuid.UUID{}, direct...), descendants...)),
		UserType:                  profile.UserType,
	}
	b.logger.Debug("permission context built",
		zap.Stringer("user", userID),
		zap.Int("direct", len(pc.DirectOrganizationIDs)),
		zap.Int("accessible", len(pc.AccessibleOrganizationIDs)),
	)
	return pc, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
