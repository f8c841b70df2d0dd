package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"todo-assistant/internal/model"
)

// PreferenceRepository stores one settings row per owner.
type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) Get(ctx context.Context, ownerID int64) (*model.UserPreference, error) {
	var pref model.UserPreference
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&pref).Error; err != nil {
		return nil, wrap("get preferences", err)
	}
	return &pref, nil
}

// EnsureDefaults inserts pref unless the owner already has a row.
func (r *PreferenceRepository) EnsureDefaults(ctx context.Context, pref model.UserPreference) error {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "owner_id"}}, DoNothing: true}).
		Create(&pref).Error; err != nil {
		return wrap("ensure preferences", err)
	}
	return nil
}

// Upsert writes every field of pref.
func (r *PreferenceRepository) Upsert(ctx context.Context, pref *model.UserPreference) error {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"reminder_time", "timezone", "notifications_enabled", "language", "daily_goal", "updated_at",
			}),
		}).
		Create(pref).Error; err != nil {
		return wrap("save preferences", err)
	}
	return nil
}

// ListByReminderTime returns owners with notifications on whose reminder is set to hhmm.
func (r *PreferenceRepository) ListByReminderTime(ctx context.Context, hhmm string) ([]model.UserPreference, error) {
	var prefs []model.UserPreference
	if err := r.db.WithContext(ctx).
		Where("notifications_enabled = ? AND reminder_time = ?", true, hhmm).
		Order("owner_id ASC").
		Find(&prefs).Error; err != nil {
		return nil, wrap("list reminder preferences", err)
	}
	return prefs, nil
}
