package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/predicate"
	"github.com/viridial-group/realestate-sub003/internal/query"
)

func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("approvals"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(connStr)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func activeDefinition(org uuid.UUID, action string) *domain.WorkflowDefinition {
	def := domain.NewDefinition(org, uuid.New(), "publish", action, []domain.StepSpec{
		{StepNumber: 1, Title: "Review", Assignment: domain.AssignRole("AGENT"), DueInMinutes: 60},
		{StepNumber: 2, Title: "Sign off", Assignment: domain.AssignRole("ADMIN")},
	})
	def.Status = domain.DefinitionActive
	def.SyncRequiredRoles()
	return def
}

func TestPostgresRepositories(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	defs := NewWorkflowRepository(db)
	tasks := NewTaskRepository(db)

	org := uuid.New()

	t.Run("default uniqueness", func(t *testing.T) {
		a := activeDefinition(org, "PUBLISH_PROPERTY")
		a.IsDefault = true
		require.NoError(t, defs.Create(ctx, a))

		b := activeDefinition(org, "PUBLISH_PROPERTY")
		b.IsDefault = true
		err := defs.Create(ctx, b)
		assert.True(t, apperr.IsCode(err, apperr.Conflict))
		assert.ErrorIs(t, err, ports.ErrDuplicateDefault)

		b.IsDefault = false
		require.NoError(t, defs.Create(ctx, b))
		require.NoError(t, defs.SetDefault(ctx, b.ID))

		found, err := defs.FindUsable(ctx, ports.DefinitionQuery{OrganizationID: org, Action: "PUBLISH_PROPERTY", DefaultOnly: true})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, b.ID, found[0].ID)
		assert.Len(t, found[0].Steps, 2)
		assert.Equal(t, domain.AssignRole("ADMIN"), found[0].Steps[1].Assignment)
	})

	t.Run("targeted rows stay out of the default level", func(t *testing.T) {
		scoped := activeDefinition(org, "ARCHIVE_LISTING")
		scoped.TargetType, scoped.TargetID = "property", "p-1"
		scoped.IsDefault = true
		require.NoError(t, defs.Create(ctx, scoped))

		found, err := defs.FindUsable(ctx, ports.DefinitionQuery{OrganizationID: org, Action: "ARCHIVE_LISTING", DefaultOnly: true})
		require.NoError(t, err)
		assert.Empty(t, found)

		orgWide := activeDefinition(org, "ARCHIVE_LISTING")
		orgWide.IsDefault = true
		require.NoError(t, defs.Create(ctx, orgWide))

		found, err = defs.FindUsable(ctx, ports.DefinitionQuery{OrganizationID: org, Action: "ARCHIVE_LISTING", DefaultOnly: true})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, orgWide.ID, found[0].ID)
	})

	t.Run("transition version guard", func(t *testing.T) {
		def := activeDefinition(org, "APPROVE_INVOICE")
		require.NoError(t, defs.Create(ctx, def))

		now := time.Now().UTC().Truncate(time.Microsecond)
		inst := domain.NewInstance(def, org, domain.Target{Type: "invoice", ID: "42"}, uuid.New(), now)
		first := domain.NewTask(inst, def.Steps[0], now)
		first.Activate(now)
		second := domain.NewTask(inst, def.Steps[1], now)
		require.NoError(t, tasks.CreateInstance(ctx, inst, []domain.Task{*first, *second}))

		done := *first
		done.Status = domain.StatusCompleted
		done.CompletedAt = &now
		next := *second
		next.Activate(now)

		tr := ports.TaskTransition{Task: &done, ExpectedVersion: first.Version, Activate: &next, At: now}
		require.NoError(t, tasks.ApplyTransition(ctx, tr))
		assert.ErrorIs(t, tasks.ApplyTransition(ctx, tr), ports.ErrVersionConflict)

		got, err := tasks.InstanceTasks(ctx, inst.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, domain.StatusCompleted, got[0].Status)
		assert.Equal(t, domain.StatusInProgress, got[1].Status)
		assert.Equal(t, 2, got[1].Version)

		overdue, err := tasks.FindOverdue(ctx, now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, overdue, "second step has no due date")

		filter := predicate.And(
			predicate.In(domain.FieldOrganizationID, []uuid.UUID{org}),
			query.TaskFilter{Statuses: []domain.TaskStatus{domain.StatusInProgress}}.Expr(),
		)
		page, total, err := tasks.ListTasks(ctx, filter, ports.Page{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Equal(t, second.ID, page[0].ID)

		_, err = tasks.FindTaskByID(ctx, uuid.New())
		assert.True(t, apperr.IsCode(err, apperr.NotFound))
	})
}
