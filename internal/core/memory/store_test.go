package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/predicate"
)

func activeDefault(org uuid.UUID, action string) *domain.WorkflowDefinition {
	d := domain.NewDefinition(org, uuid.New(), action, action, []domain.StepSpec{
		{StepNumber: 1, Title: "review", Assignment: domain.AssignRole("MANAGER")},
	})
	d.Status = domain.DefinitionActive
	d.IsDefault = true
	return d
}

func TestDefaultUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	org := uuid.New()

	first := activeDefault(org, "PUBLISH_PROPERTY")
	require.NoError(t, s.Create(ctx, first))

	second := activeDefault(org, "PUBLISH_PROPERTY")
	err := s.Create(ctx, second)
	assert.True(t, apperr.IsCode(err, apperr.Conflict))
	assert.ErrorIs(t, err, ports.ErrDuplicateDefault)

	// different org or inactive is fine
	require.NoError(t, s.Create(ctx, activeDefault(uuid.New(), "PUBLISH_PROPERTY")))
	second.Active = false
	require.NoError(t, s.Create(ctx, second))

	// re-activating the second one collides again
	second.Active = true
	err = s.Update(ctx, second)
	assert.True(t, apperr.IsCode(err, apperr.Conflict))

	// SetDefault moves the flag atomically
	require.NoError(t, s.SetDefault(ctx, second.ID))
	got, err := s.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDefault)
}

func TestFindUsableOrdersByID(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	org := uuid.New()

	a := activeDefault(org, "APPROVE_INVOICE")
	b := activeDefault(org, "APPROVE_INVOICE")
	a.ID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	b.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	// bypass the uniqueness check to simulate legacy duplicated data
	s.definitions[a.ID] = *a
	s.definitions[b.ID] = *b

	found, err := s.FindUsable(ctx, ports.DefinitionQuery{OrganizationID: org, Action: "APPROVE_INVOICE", DefaultOnly: true})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, b.ID, found[0].ID)
}

func seedInstance(t *testing.T, s *Store, steps int) (*domain.WorkflowInstance, []domain.Task) {
	t.Helper()
	now := time.Now()
	def := activeDefault(uuid.New(), "X")
	inst := domain.NewInstance(def, def.OrganizationID, domain.Target{Type: "property", ID: "p-1"}, uuid.New(), now)
	var tasks []domain.Task
	for i := 1; i <= steps; i++ {
		task := domain.NewTask(inst, domain.StepSpec{StepNumber: i, Assignment: domain.AssignRole("MANAGER")}, now)
		if i == 1 {
			task.Activate(now)
		}
		tasks = append(tasks, *task)
	}
	require.NoError(t, s.CreateInstance(context.Background(), inst, tasks))
	return inst, tasks
}

func TestApplyTransitionVersionGuard(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	inst, tasks := seedInstance(t, s, 3)

	done := tasks[0]
	done.Status = domain.StatusRejected
	err := s.ApplyTransition(ctx, ports.TaskTransition{
		Task:            &done,
		ExpectedVersion: 1,
		CancelPending:   true,
		InstanceStatus:  domain.InstanceRejected,
		At:              time.Now(),
	})
	require.NoError(t, err)

	// a stale writer loses
	err = s.ApplyTransition(ctx, ports.TaskTransition{Task: &done, ExpectedVersion: 1, At: time.Now()})
	assert.ErrorIs(t, err, ports.ErrVersionConflict)

	got, err := s.InstanceTasks(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got[0].Status)
	assert.Equal(t, 2, got[0].Version)
	assert.Equal(t, domain.StatusCancelled, got[1].Status)
	assert.Equal(t, domain.StatusCancelled, got[2].Status)

	gotInst, err := s.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceRejected, gotInst.Status)
	assert.NotNil(t, gotInst.CompletedAt)
}

func TestApplyTransitionRejectsStaleActivation(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, tasks := seedInstance(t, s, 2)

	done := tasks[0]
	done.Status = domain.StatusCompleted
	next := tasks[1]
	next.Version = 7
	next.Status = domain.StatusInProgress

	err := s.ApplyTransition(ctx, ports.TaskTransition{Task: &done, ExpectedVersion: 1, Activate: &next, At: time.Now()})
	assert.ErrorIs(t, err, ports.ErrVersionConflict)

	// nothing was written
	got, err := s.FindTaskByID(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)
}

func TestListTasksFiltersBeforePaging(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedInstance(t, s, 3)
	inst, _ := seedInstance(t, s, 4)

	filter := predicate.Eq(domain.FieldInstanceID, inst.ID)
	page, total, err := s.ListTasks(ctx, filter, ports.Page{Limit: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, page, 3)

	page, _, err = s.ListTasks(ctx, filter, ports.Page{Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, total, err = s.ListTasks(ctx, predicate.False, ports.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, page)
}

func TestFindOverdue(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, tasks := seedInstance(t, s, 2)

	past := time.Now().Add(-time.Hour)
	overdue := tasks[1]
	overdue.DueDate = &past
	s.tasks[overdue.ID] = overdue

	got, err := s.FindOverdue(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.ID, got[0].ID)
}

func TestLedgerMarkOnce(t *testing.T) {
	ctx := context.Background()
	l := NewLedger()
	now := time.Now()
	l.now = func() time.Time { return now }

	first, err := l.MarkOnce(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, _ := l.MarkOnce(ctx, "k", time.Minute)
	assert.False(t, again)

	now = now.Add(2 * time.Minute)
	expired, _ := l.MarkOnce(ctx, "k", time.Minute)
	assert.True(t, expired)

	require.NoError(t, l.Release(ctx, "k"))
	released, _ := l.MarkOnce(ctx, "k", time.Minute)
	assert.True(t, released)
}
