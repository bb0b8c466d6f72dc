package resolver

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/core/memory"
	"github.com/viridial-group/realestate-sub003/internal/domain"
)

const action = "PUBLISH_PROPERTY"

func usable(org uuid.UUID) *domain.WorkflowDefinition {
	def := domain.NewDefinition(org, uuid.New(), "publish", action, []domain.StepSpec{
		{StepNumber: 1, Title: "Review", Assignment: domain.AssignRole("AGENT")},
	})
	def.Status = domain.DefinitionActive
	return def
}

func TestResolveOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	r := New(store, zap.NewNop())
	org := uuid.New()

	_, err := r.Resolve(ctx, org, action, "property", "p-1")
	assert.True(t, apperr.IsCode(err, apperr.NoWorkflowDefined))

	global := usable(uuid.Nil)
	global.IsDefault = true
	require.NoError(t, store.Create(ctx, global))

	got, err := r.Resolve(ctx, org, action, "property", "p-1")
	require.NoError(t, err)
	assert.Equal(t, global.ID, got.ID, "cross-tenant default is the last resort")

	orgDefault := usable(org)
	orgDefault.IsDefault = true
	require.NoError(t, store.Create(ctx, orgDefault))

	got, err = r.Resolve(ctx, org, action, "property", "p-1")
	require.NoError(t, err)
	assert.Equal(t, orgDefault.ID, got.ID)

	override := usable(org)
	override.TargetType, override.TargetID = "property", "p-1"
	require.NoError(t, store.Create(ctx, override))

	got, err = r.Resolve(ctx, org, action, "property", "p-1")
	require.NoError(t, err)
	assert.Equal(t, override.ID, got.ID)

	got, err = r.Resolve(ctx, org, action, "property", "p-2")
	require.NoError(t, err)
	assert.Equal(t, orgDefault.ID, got.ID, "override applies to its own target only")

	got, err = r.Resolve(ctx, org, action, "", "")
	require.NoError(t, err)
	assert.Equal(t, orgDefault.ID, got.ID)
}

func TestTargetedDefaultDoesNotGovernOtherTargets(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	r := New(store, zap.NewNop())
	org := uuid.New()

	scoped := usable(org)
	scoped.TargetType, scoped.TargetID = "property", "p-1"
	scoped.IsDefault = true
	require.NoError(t, store.Create(ctx, scoped))

	_, err := r.Resolve(ctx, org, action, "property", "p-2")
	assert.True(t, apperr.IsCode(err, apperr.NoWorkflowDefined), "p-2 must not pick up the p-1 definition")

	got, err := r.Resolve(ctx, org, action, "property", "p-1")
	require.NoError(t, err)
	assert.Equal(t, scoped.ID, got.ID)

	orgDefault := usable(org)
	orgDefault.IsDefault = true
	require.NoError(t, store.Create(ctx, orgDefault), "a targeted row does not hold the default slot")

	got, err = r.Resolve(ctx, org, action, "property", "p-2")
	require.NoError(t, err)
	assert.Equal(t, orgDefault.ID, got.ID)
}

func TestResolveSkipsUnusable(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	r := New(store, zap.NewNop())
	org := uuid.New()

	draft := usable(org)
	draft.Status = domain.DefinitionDraft
	draft.IsDefault = true
	require.NoError(t, store.Create(ctx, draft))

	inactive := usable(org)
	inactive.Active = false
	inactive.IsDefault = true
	require.NoError(t, store.Create(ctx, inactive))

	_, err := r.Resolve(ctx, org, action, "", "")
	assert.True(t, apperr.IsCode(err, apperr.NoWorkflowDefined))
}

func TestResolveAmbiguousOverridePicksLowestID(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	core, logs := observer.New(zapcore.WarnLevel)
	r := New(store, zap.New(core))
	org := uuid.New()

	a := usable(org)
	a.ID = uuid.MustParse("00000000-0000-0000-0000-0000000000bb")
	a.TargetType, a.TargetID = "property", "p-1"
	b := usable(org)
	b.ID = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	b.TargetType, b.TargetID = "property", "p-1"
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	got, err := r.Resolve(ctx, org, action, "property", "p-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Contains(t, entry.Message, "multiple workflow definitions")
	assert.ElementsMatch(t, []any{a.ID.String(), b.ID.String()}, entry.ContextMap()["candidates"])
}

func TestResolveRequiresAction(t *testing.T) {
	_, err := New(memory.NewStore(), zap.NewNop()).Resolve(context.Background(), uuid.New(), "", "", "")
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))
}
