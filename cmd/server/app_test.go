package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/config"
)

func TestSeedDirectory(t *testing.T) {
	parent, child, user := uuid.New(), uuid.New(), uuid.New()
	perms, err := seedDirectory(config.Directory{
		Organizations: []config.Organization{
			{ID: parent.String()},
			{ID: child.String(), Parent: parent.String()},
		},
		Users: []config.User{
			{ID: user.String(), Roles: []string{"MANAGER"}, Organizations: []string{parent.String()}},
		},
	}, zap.NewNop())
	require.NoError(t, err)

	pc, err := perms.GetPermissionContext(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, pc.HasRole("MANAGER"))
	assert.ElementsMatch(t, []uuid.UUID{parent, child}, pc.AccessibleOrganizationIDs)

	_, err = perms.GetPermissionContext(context.Background(), uuid.New())
	assert.True(t, apperr.IsCode(err, apperr.NotAuthorized))
}

func TestSeedDirectoryRejectsBadIDs(t *testing.T) {
	_, err := seedDirectory(config.Directory{
		Organizations: []config.Organization{{ID: "hq"}},
	}, zap.NewNop())
	assert.Error(t, err)
}

func TestInMemoryAppSweeps(t *testing.T) {
	t.Setenv("APPROVAL_STORAGE", "memory")
	t.Setenv("APPROVAL_LOG_LEVEL", "error")

	a, err := newApp(context.Background(), "")
	require.NoError(t, err)
	defer a.close()

	report, err := a.scanner.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, report.Overdue)
	assert.NotNil(t, a.service)
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "sweep", "tail"}, names)
}
