package repository

import (
	"context"

	"gorm.io/gorm"

	"todo-assistant/internal/model"
)

// RecurringRepository stores recurring task definitions.
type RecurringRepository struct {
	db *gorm.DB
}

func NewRecurringRepository(db *gorm.DB) *RecurringRepository {
	return &RecurringRepository{db: db}
}

func (r *RecurringRepository) Create(ctx context.Context, rt *model.RecurringTask) error {
	if err := r.db.WithContext(ctx).Create(rt).Error; err != nil {
		return wrap("create recurring task", err)
	}
	return nil
}

// ListDue returns active definitions due on or before date.
func (r *RecurringRepository) ListDue(ctx context.Context, date string) ([]model.RecurringTask, error) {
	var rows []model.RecurringTask
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND next_due_date <= ?", true, date).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, wrap("list due recurring tasks", err)
	}
	return rows, nil
}

// Advance moves the next due date of a definition.
func (r *RecurringRepository) Advance(ctx context.Context, id uint, next string) error {
	if err := r.db.WithContext(ctx).Model(&model.RecurringTask{}).
		Where("id = ?", id).
		UpdateColumn("next_due_date", next).Error; err != nil {
		return wrap("advance recurring task", err)
	}
	return nil
}

func (r *RecurringRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.RecurringTask, error) {
	var rows []model.RecurringTask
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND is_active = ?", ownerID, true).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, wrap("list recurring tasks", err)
	}
	return rows, nil
}

// Deactivate stops a definition. It reports whether the owner had it active.
func (r *RecurringRepository) Deactivate(ctx context.Context, ownerID int64, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.RecurringTask{}).
		Where("id = ? AND owner_id = ? AND is_active = ?", id, ownerID, true).
		UpdateColumn("is_active", false)
	if res.Error != nil {
		return false, wrap("deactivate recurring task", res.Error)
	}
	return res.RowsAffected > 0, nil
}
