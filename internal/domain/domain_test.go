package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentAllows(t *testing.T) {
	alice := uuid.New()

	byUser := AssignUser(alice)
	assert.True(t, byUser.Allows(alice, nil))
	assert.False(t, byUser.Allows(uuid.New(), []string{"ADMIN"}))
	assert.False(t, AssignUser(uuid.Nil).Allows(uuid.Nil, nil))

	byRole := AssignRole("MANAGER")
	assert.True(t, byRole.Allows(uuid.New(), []string{"AGENT", "MANAGER"}))
	assert.False(t, byRole.Allows(alice, []string{"ADMIN"}))

	assert.False(t, Assignment{}.Allows(alice, []string{"MANAGER"}))
}

func TestAssignmentEncoding(t *testing.T) {
	id := uuid.MustParse("0b6f1c1e-7d1c-4f58-9a55-3df1b1d4d0aa")

	step := StepSpec{StepNumber: 1, Title: "Review", Assignment: AssignUser(id)}
	raw, err := json.Marshal(step)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"assignee":"user:0b6f1c1e-7d1c-4f58-9a55-3df1b1d4d0aa"`)

	var decoded StepSpec
	require.NoError(t, json.Unmarshal([]byte(`{"step_number":2,"assignee":"role:ADMIN"}`), &decoded))
	assert.Equal(t, AssignRole("ADMIN"), decoded.Assignment)

	var a Assignment
	require.NoError(t, a.Scan([]byte("role:MANAGER")))
	assert.Equal(t, "role:MANAGER", a.String())
	v, err := a.Value()
	require.NoError(t, err)
	assert.Equal(t, "role:MANAGER", v)

	require.NoError(t, a.Scan(nil))
	assert.True(t, a.IsZero())

	_, err = ParseAssignment("team:x")
	assert.Error(t, err)
	_, err = ParseAssignment("user:not-a-uuid")
	assert.Error(t, err)
	_, err = ParseAssignment("role:")
	assert.Error(t, err)
}

func TestValidateSteps(t *testing.T) {
	def := func(steps ...StepSpec) *WorkflowDefinition {
		return NewDefinition(uuid.New(), uuid.New(), "publish", "PUBLISH_PROPERTY", steps)
	}
	mgr := AssignRole("MANAGER")

	assert.NoError(t, def(StepSpec{StepNumber: 2, Assignment: mgr}, StepSpec{StepNumber: 1, Assignment: mgr}).ValidateSteps())
	assert.ErrorIs(t, def().ValidateSteps(), ErrNoSteps)

	var seqErr *StepSequenceError
	err := def(StepSpec{StepNumber: 1, Assignment: mgr}, StepSpec{StepNumber: 3, Assignment: mgr}).ValidateSteps()
	require.ErrorAs(t, err, &seqErr)
	assert.Equal(t, 2, seqErr.Expected)

	err = def(StepSpec{StepNumber: 1, Assignment: mgr}, StepSpec{StepNumber: 1, Assignment: mgr}).ValidateSteps()
	assert.ErrorAs(t, err, &seqErr)

	err = def(StepSpec{StepNumber: 0, Assignment: mgr}).ValidateSteps()
	assert.ErrorAs(t, err, &seqErr)

	err = def(StepSpec{StepNumber: 1}).ValidateSteps()
	require.ErrorAs(t, err, &seqErr)
	assert.True(t, seqErr.MissingAssignee)
}

func TestRequiredRoles(t *testing.T) {
	d := NewDefinition(uuid.New(), uuid.New(), "invoice", "APPROVE_INVOICE", []StepSpec{
		{StepNumber: 1, Assignment: AssignRole("MANAGER")},
		{StepNumber: 2, Assignment: AssignUser(uuid.New())},
		{StepNumber: 3, Assignment: AssignRole("ADMIN")},
		{StepNumber: 4, Assignment: AssignRole("MANAGER")},
	})

	assert.Equal(t, []string{"ADMIN", "MANAGER"}, []string(d.RequiredRoles))
	assert.Equal(t, DefinitionDraft, d.Status)
	assert.False(t, d.Usable())
}

func TestTaskActivateSetsDueDate(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	inst := &WorkflowInstance{ID: uuid.New(), DefinitionID: uuid.New(), OrganizationID: uuid.New()}

	task := NewTask(inst, StepSpec{StepNumber: 1, Title: "Check", Assignment: AssignRole("MANAGER"), DueInMinutes: 90}, now)
	assert.Equal(t, StatusPending, task.Status)
	assert.Nil(t, task.DueDate)

	task.Activate(now)
	assert.Equal(t, StatusInProgress, task.Status)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, now.Add(90*time.Minute), *task.DueDate)
}

func TestTaskRecordValues(t *testing.T) {
	task := &Task{Assignment: AssignRole("ADMIN"), Status: StatusPending}
	assert.Equal(t, "role:ADMIN", task.Value(FieldAssignee))
	assert.Nil(t, task.Value(FieldDueDate))
	assert.Equal(t, StatusPending, task.Value(FieldStatus))
	assert.Nil(t, (&Task{}).Value(FieldAssignee))
}
