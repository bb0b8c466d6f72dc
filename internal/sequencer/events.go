package sequencer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/metrics"
)

const (
	targetTask     = "task"
	targetInstance = "workflow_instance"
)

func taskEvent(action domain.AuditAction, actor uuid.UUID, t *domain.Task, detail string) domain.AuditEvent {
	return domain.AuditEvent{
		Actor:          actor,
		Action:         action,
		TargetType:     targetTask,
		TargetID:       t.ID,
		InstanceID:     t.InstanceID,
		OrganizationID: t.OrganizationID,
		Detail:         detail,
	}
}

func instanceEvent(action domain.AuditAction, actor, instanceID, orgID uuid.UUID, detail string) domain.AuditEvent {
	return domain.AuditEvent{
		Actor:          actor,
		Action:         action,
		TargetType:     targetInstance,
		TargetID:       instanceID,
		InstanceID:     instanceID,
		OrganizationID: orgID,
		Detail:         detail,
	}
}

// record hands an audit event to the sink. A failing sink is logged and
// never fails the transition that already committed.
func (s *Sequencer) record(ctx context.Context, event domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	event.ID = newEventID()
	event.OccurredAt = s.now()
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.Error("failed to record audit event",
			zap.String("action", string(event.Action)),
			zap.Stringer("target", event.TargetID),
			zap.Error(err),
		)
	}
}

// assigned tells the notification service a step became actionable.
func (s *Sequencer) assigned(ctx context.Context, task *domain.Task) {
	if s.notifier == nil {
		return
	}
	event := domain.NotificationEvent{
		ID:             newEventID(),
		Kind:           domain.NotifyAssigned,
		TaskID:         task.ID,
		InstanceID:     task.InstanceID,
		OrganizationID: task.OrganizationID,
		Assignee:       task.Assignment.String(),
		Title:          task.Title,
		DueDate:        task.DueDate,
		OccurredAt:     s.now(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Error("failed to send assignment notification", zap.Stringer("task", task.ID), zap.Error(err))
		return
	}
	metrics.Notifications.WithLabelValues(string(domain.NotifyAssigned)).Inc()
}
