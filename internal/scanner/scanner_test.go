package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/viridial-group/realestate-sub003/internal/core/memory"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/query"
)

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, event domain.NotificationEvent) error {
	return m.Called(ctx, event).Error(0)
}

type staticFinder []domain.Task

func (f staticFinder) FindOverdue(_ context.Context, now time.Time) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range f {
		if query.Overdue(now).Eval(&t) {
			out = append(out, t)
		}
	}
	return out, nil
}

type failingFinder struct{}

func (failingFinder) FindOverdue(context.Context, time.Time) ([]domain.Task, error) {
	return nil, errors.New("db down")
}

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func overdueTask(by time.Duration) domain.Task {
	due := now.Add(-by)
	return domain.Task{
		ID:         uuid.New(),
		InstanceID: uuid.New(),
		Title:      "Review listing",
		Status:     domain.StatusInProgress,
		Assignment: domain.AssignRole("MANAGER"),
		DueDate:    &due,
	}
}

func kindIs(kind domain.NotificationKind, taskID uuid.UUID) any {
	return mock.MatchedBy(func(e domain.NotificationEvent) bool {
		return e.Kind == kind && e.TaskID == taskID
	})
}

func TestSweepClassifiesByGracePeriod(t *testing.T) {
	late := overdueTask(time.Hour)
	veryLate := overdueTask(48 * time.Hour)

	n := &mockNotifier{}
	n.On("Notify", mock.Anything, kindIs(domain.NotifyReminder, late.ID)).Return(nil).Once()
	n.On("Notify", mock.Anything, kindIs(domain.NotifyEscalation, veryLate.ID)).Return(nil).Once()

	s := New(staticFinder{late, veryLate}, n, memory.NewLedger(), Config{GracePeriod: 24 * time.Hour}, zap.NewNop())
	report, err := s.Sweep(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, Report{Overdue: 2, Reminders: 1, Escalations: 1}, report)
	n.AssertExpectations(t)
}

func TestSweepSendsEachNotificationOnce(t *testing.T) {
	task := overdueTask(time.Hour)
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, kindIs(domain.NotifyReminder, task.ID)).Return(nil).Once()
	n.On("Notify", mock.Anything, kindIs(domain.NotifyEscalation, task.ID)).Return(nil).Once()

	s := New(staticFinder{task}, n, memory.NewLedger(), Config{GracePeriod: 24 * time.Hour}, zap.NewNop())
	ctx := context.Background()

	first, err := s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Reminders)

	second, err := s.Sweep(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, Report{Overdue: 1, Skipped: 1}, second)

	// Past the grace period the reminder escalates, once.
	third, err := s.Sweep(ctx, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, third.Escalations)

	fourth, err := s.Sweep(ctx, now.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, fourth.Skipped)

	n.AssertExpectations(t)
}

func TestNewDueDateRearms(t *testing.T) {
	task := overdueTask(time.Hour)
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.Anything).Return(nil)

	ledger := memory.NewLedger()
	s := New(staticFinder{task}, n, ledger, Config{}, zap.NewNop())
	_, err := s.Sweep(context.Background(), now)
	require.NoError(t, err)

	moved := task
	due := now.Add(-30 * time.Minute)
	moved.DueDate = &due
	s.tasks = staticFinder{moved}

	report, err := s.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reminders)
	n.AssertNumberOfCalls(t, "Notify", 2)
}

func TestFailedDeliveryIsRetriedNextSweep(t *testing.T) {
	task := overdueTask(time.Hour)
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	n.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

	s := New(staticFinder{task}, n, memory.NewLedger(), Config{}, zap.NewNop())
	first, err := s.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Failed)

	second, err := s.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Reminders)
	n.AssertExpectations(t)
}

func TestSweepIgnoresClosedAndUndatedTasks(t *testing.T) {
	done := overdueTask(time.Hour)
	done.Status = domain.StatusCompleted
	undated := overdueTask(time.Hour)
	undated.DueDate = nil

	n := &mockNotifier{}
	s := New(staticFinder{done, undated}, n, memory.NewLedger(), Config{}, zap.NewNop())
	report, err := s.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
	n.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestRunSurvivesFailingSweeps(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := New(failingFinder{}, &mockNotifier{}, memory.NewLedger(), Config{Interval: 5 * time.Millisecond}, zap.NewNop())
	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSweepReportsFinderError(t *testing.T) {
	s := New(failingFinder{}, &mockNotifier{}, memory.NewLedger(), Config{}, zap.NewNop())
	_, err := s.Sweep(context.Background(), now)
	assert.Error(t, err)
}
