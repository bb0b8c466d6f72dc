package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/predicate"
	"github.com/viridial-group/realestate-sub003/internal/query"
)

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository returns the gorm-backed instance and task repository.
func NewTaskRepository(db *gorm.DB) ports.TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) CreateInstance(ctx context.Context, inst *domain.WorkflowInstance, tasks []domain.Task) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(inst).Error; err != nil {
			return err
		}
		if len(tasks) > 0 {
			if err := tx.Create(&tasks).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return apperr.WrapStorageError("workflow instance", err)
}

func (r *taskRepository) GetInstance(ctx context.Context, id uuid.UUID) (*domain.WorkflowInstance, error) {
	var inst domain.WorkflowInstance
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inst).Error; err != nil {
		return nil, apperr.WrapStorageError("workflow instance", err)
	}
	return &inst, nil
}

func (r *taskRepository) FindTaskByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, apperr.WrapStorageError("task", err)
	}
	return &task, nil
}

func (r *taskRepository) InstanceTasks(ctx context.Context, instanceID uuid.UUID) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("step_number").
		Find(&tasks).Error
	if err != nil {
		return nil, apperr.WrapStorageError("task", err)
	}
	return tasks, nil
}

// ApplyTransition writes the acted-on task, the next activation, the
// cancellations and the instance status in one transaction. Each task write
// is guarded by its version; a guard that matches no row rolls everything back.
func (r *taskRepository) ApplyTransition(ctx context.Context, tr ports.TaskTransition) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t := tr.Task
		res := tx.Model(&domain.Task{}).
			Where("id = ? AND version = ?", t.ID, tr.ExpectedVersion).
			Updates(map[string]interface{}{
				"status":       t.Status,
				"assignee":     t.Assignment,
				"completed_at": t.CompletedAt,
				"completed_by": t.CompletedBy,
				"comments":     t.Comments,
				"due_date":     t.DueDate,
				"version":      gorm.Expr("version + 1"),
				"updated_at":   tr.At,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ports.ErrVersionConflict
		}

		if next := tr.Activate; next != nil {
			res := tx.Model(&domain.Task{}).
				Where("id = ? AND version = ? AND status = ?", next.ID, next.Version, domain.StatusPending).
				Updates(map[string]interface{}{
					"status":     next.Status,
					"due_date":   next.DueDate,
					"version":    gorm.Expr("version + 1"),
					"updated_at": tr.At,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ports.ErrVersionConflict
			}
		}

		if tr.CancelPending {
			if err := tx.Model(&domain.Task{}).
				Where("instance_id = ? AND status = ?", t.InstanceID, domain.StatusPending).
				Updates(map[string]interface{}{
					"status":     domain.StatusCancelled,
					"version":    gorm.Expr("version + 1"),
					"updated_at": tr.At,
				}).Error; err != nil {
				return err
			}
		}

		if tr.InstanceStatus != "" {
			// Only a running instance moves; a finished one is never overwritten.
			if err := tx.Model(&domain.WorkflowInstance{}).
				Where("id = ? AND status = ?", t.InstanceID, domain.InstanceRunning).
				Updates(map[string]interface{}{
					"status":       tr.InstanceStatus,
					"completed_at": tr.At,
					"version":      gorm.Expr("version + 1"),
					"updated_at":   tr.At,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ports.ErrVersionConflict) {
		return err
	}
	return apperr.WrapStorageError("task", err)
}

func (r *taskRepository) Reassign(ctx context.Context, taskID uuid.UUID, expectedVersion int, to domain.Assignment, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND version = ? AND status = ?", taskID, expectedVersion, domain.StatusInProgress).
		Updates(map[string]interface{}{
			"assignee":   to,
			"version":    gorm.Expr("version + 1"),
			"updated_at": at,
		})
	if res.Error != nil {
		return apperr.WrapStorageError("task", res.Error)
	}
	if res.RowsAffected == 0 {
		return ports.ErrVersionConflict
	}
	return nil
}

func (r *taskRepository) FindOverdue(ctx context.Context, now time.Time) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where(ToClause(query.Overdue(now))).
		Order("due_date, id").
		Find(&tasks).Error
	if err != nil {
		return nil, apperr.WrapStorageError("task", err)
	}
	return tasks, nil
}

func (r *taskRepository) ListTasks(ctx context.Context, filter predicate.Expr, page ports.Page) ([]domain.Task, int64, error) {
	var tasks []domain.Task
	total, err := list(r.db.WithContext(ctx), &domain.Task{}, filter, page, &tasks)
	if err != nil {
		return nil, 0, apperr.WrapStorageError("task", err)
	}
	return tasks, total, nil
}

func (r *taskRepository) ListInstances(ctx context.Context, filter predicate.Expr, page ports.Page) ([]domain.WorkflowInstance, int64, error) {
	var insts []domain.WorkflowInstance
	total, err := list(r.db.WithContext(ctx), &domain.WorkflowInstance{}, filter, page, &insts)
	if err != nil {
		return nil, 0, apperr.WrapStorageError("workflow instance", err)
	}
	return insts, total, nil
}

func (r *taskRepository) CountInstancesByDefinition(ctx context.Context, definitionID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.WorkflowInstance{}).
		Where("definition_id = ?", definitionID).
		Count(&n).Error
	if err != nil {
		return 0, apperr.WrapStorageError("workflow instance", err)
	}
	return n, nil
}
