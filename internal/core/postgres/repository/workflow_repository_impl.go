package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/viridial-group/realestate-sub003/internal/apperr"
	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/predicate"
)

type workflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository returns the gorm-backed definition repository.
func NewWorkflowRepository(db *gorm.DB) ports.DefinitionRepository {
	return &workflowRepository{db: db}
}

func (r *workflowRepository) Create(ctx context.Context, def *domain.WorkflowDefinition) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkDefaultFree(tx, def); err != nil {
			return err
		}
		return tx.Create(def).Error
	})
	return translateWriteError("workflow definition", err)
}

func (r *workflowRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowDefinition, error) {
	var def domain.WorkflowDefinition
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&def).Error; err != nil {
		return nil, apperr.WrapStorageError("workflow definition", err)
	}
	return &def, nil
}

func (r *workflowRepository) Update(ctx context.Context, def *domain.WorkflowDefinition) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkDefaultFree(tx, def); err != nil {
			return err
		}
		def.UpdatedAt = time.Now()
		res := tx.Model(&domain.WorkflowDefinition{}).Where("id = ?", def.ID).Select("*").Omit("created_at").Updates(def)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translateWriteError("workflow definition", err)
}

// SetDefault clears the flag on the other definitions of the key before
// setting it on id, so the partial unique index never sees two defaults.
func (r *workflowRepository) SetDefault(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target domain.WorkflowDefinition
		if err := tx.Where("id = ?", id).First(&target).Error; err != nil {
			return err
		}
		now := time.Now()
		if err := tx.Model(&domain.WorkflowDefinition{}).
			Where("organization_id = ? AND action = ? AND id <> ? AND is_default", target.OrganizationID, target.Action, id).
			Updates(map[string]interface{}{"is_default": false, "updated_at": now}).Error; err != nil {
			return err
		}
		return tx.Model(&domain.WorkflowDefinition{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"is_default": true, "updated_at": now}).Error
	})
	return translateWriteError("workflow definition", err)
}

func (r *workflowRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.WorkflowDefinition{})
	if res.Error != nil {
		return apperr.WrapStorageError("workflow definition", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "workflow definition not found", nil)
	}
	return nil
}

func (r *workflowRepository) FindUsable(ctx context.Context, q ports.DefinitionQuery) ([]domain.WorkflowDefinition, error) {
	tx := r.db.WithContext(ctx).
		Where("status = ? AND active", domain.DefinitionActive).
		Where("organization_id = ? AND action = ?", q.OrganizationID, q.Action)
	if q.DefaultOnly {
		tx = tx.Where("is_default AND target_type = '' AND target_id = ''")
	} else {
		tx = tx.Where("target_type = ? AND target_id = ?", q.TargetType, q.TargetID)
	}

	var defs []domain.WorkflowDefinition
	if err := tx.Order("id").Find(&defs).Error; err != nil {
		return nil, apperr.WrapStorageError("workflow definition", err)
	}
	return defs, nil
}

func (r *workflowRepository) List(ctx context.Context, filter predicate.Expr, page ports.Page) ([]domain.WorkflowDefinition, int64, error) {
	var defs []domain.WorkflowDefinition
	total, err := list(r.db.WithContext(ctx), &domain.WorkflowDefinition{}, filter, page, &defs)
	if err != nil {
		return nil, 0, apperr.WrapStorageError("workflow definition", err)
	}
	return defs, total, nil
}

func checkDefaultFree(tx *gorm.DB, def *domain.WorkflowDefinition) error {
	if !def.IsDefault || !def.Active || def.IsTargeted() {
		return nil
	}
	var n int64
	err := tx.Model(&domain.WorkflowDefinition{}).
		Where("organization_id = ? AND action = ? AND id <> ? AND is_default AND active", def.OrganizationID, def.Action, def.ID).
		Where("target_type = '' AND target_id = ''").
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return ports.ErrDuplicateDefault
	}
	return nil
}

// translateWriteError maps the partial unique index violation (surfaced as
// gorm.ErrDuplicatedKey with TranslateError enabled) to a duplicate default.
func translateWriteError(target string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ports.ErrDuplicateDefault), errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.New(apperr.Conflict, "default workflow already exists", ports.ErrDuplicateDefault)
	}
	return apperr.WrapStorageError(target, err)
}

// list counts and pages rows of model matching filter, newest first.
func list(db *gorm.DB, model any, filter predicate.Expr, page ports.Page, dest any) (int64, error) {
	page = page.Normalize()
	scoped := db.Model(model).Where(ToClause(filter))

	var total int64
	if err := scoped.Count(&total).Error; err != nil {
		return 0, err
	}
	err := db.Model(model).Where(ToClause(filter)).
		Order("created_at DESC, id").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(dest).Error
	return total, err
}
