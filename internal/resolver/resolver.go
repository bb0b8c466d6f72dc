// Package resolver picks the workflow definition that governs an action.
package resolver

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
)

type Resolver struct {
	defs   ports.DefinitionRepository
	logger *zap.Logger
}

func New(defs ports.DefinitionRepository, logger *zap.Logger) *Resolver {
	return &Resolver{defs: defs, logger: logger.Named("resolver")}
}

// Resolve returns, in order of preference: the definition scoped to the
// given target, the organization's default for the action, then the
// cross-tenant default. It fails with NoWorkflowDefined when none exists.
func (r *Resolver) Resolve(ctx context.Context, orgID uuid.UUID, action, targetType, targetID string) (*domain.WorkflowDefinition, error) {
	if action == "" {
		return nil, apperr.New(apperr.InvalidArgument, "action is required", nil)
	}

	levels := make([]ports.DefinitionQuery, 0, 3)
	if targetType != "" && targetID != "" {
		levels = append(levels, ports.DefinitionQuery{OrganizationID: orgID, Action: action, TargetType: targetType, TargetID: targetID})
	}
	levels = append(levels, ports.DefinitionQuery{OrganizationID: orgID, Action: action, DefaultOnly: true})
	if orgID != uuid.Nil {
		levels = append(levels, ports.DefinitionQuery{OrganizationID: uuid.Nil, Action: action, DefaultOnly: true})
	}

	for _, q := range levels {
		found, err := r.defs.FindUsable(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			continue
		}
		if len(found) > 1 {
			r.warnAmbiguous(q, found)
		}
		// FindUsable orders by id, so the first is the lowest.
		return &found[0], nil
	}
	return nil, apperr.Newf(apperr.NoWorkflowDefined, "no workflow defined for %s", action)
}

func (r *Resolver) warnAmbiguous(q ports.DefinitionQuery, found []domain.WorkflowDefinition) {
	ids := make([]string, len(found))
	for i, d := range found {
		ids[i] = d.ID.String()
	}
	r.logger.Warn("multiple workflow definitions match, using the lowest id",
		zap.Stringer("organization", q.OrganizationID),
		zap.String("action", q.Action),
		zap.String("target_type", q.TargetType),
		zap.String("target_id", q.TargetID),
		zap.Strings("candidates", ids),
	)
}
