package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"todo-assistant/internal/model"
)

// StatsRepository stores per-day activity counters.
type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Increment bumps one counter of the owner's day, creating the row on first use,
// and recomputes the day's score from the updated totals.
func (r *StatsRepository) Increment(ctx context.Context, ownerID int64, date string, kind model.ActivityKind) (*model.DailyStat, error) {
	column := kind.Column()
	if column == "" {
		return nil, fmt.Errorf("increment stats: unknown activity %q", kind)
	}

	var stat model.DailyStat
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := model.DailyStat{OwnerID: ownerID, Date: date}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "date"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.DailyStat{}).
			Where("owner_id = ? AND date = ?", ownerID, date).
			UpdateColumn(column, gorm.Expr(column+" + 1")).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_id = ? AND date = ?", ownerID, date).First(&stat).Error; err != nil {
			return err
		}
		stat.Recompute()
		return tx.Model(&model.DailyStat{}).
			Where("id = ?", stat.ID).
			UpdateColumn("productivity_score", stat.ProductivityScore).Error
	})
	if err != nil {
		return nil, wrap("increment stats", err)
	}
	return &stat, nil
}

// Window returns the owner's rows with from <= date <= to, oldest first.
// Dates use model.DateLayout so string comparison orders them.
func (r *StatsRepository) Window(ctx context.Context, ownerID int64, from, to string) ([]model.DailyStat, error) {
	var rows []model.DailyStat
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND date >= ? AND date <= ?", ownerID, from, to).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, wrap("load stats window", err)
	}
	return rows, nil
}

// Aggregate sums the owner's counters over the window.
type Aggregate struct {
	Created    int64
	Completed  int64
	Deleted    int64
	AvgScore   float64
	ActiveDays int64
}

func (r *StatsRepository) Aggregate(ctx context.Context, ownerID int64, from, to string) (Aggregate, error) {
	var agg Aggregate
	if err := r.db.WithContext(ctx).Model(&model.DailyStat{}).
		Select(`COALESCE(SUM(tasks_created), 0) AS created,
			COALESCE(SUM(tasks_completed), 0) AS completed,
			COALESCE(SUM(tasks_deleted), 0) AS deleted,
			COALESCE(AVG(productivity_score), 0) AS avg_score,
			COUNT(*) AS active_days`).
		Where("owner_id = ? AND date >= ? AND date <= ?", ownerID, from, to).
		Scan(&agg).Error; err != nil {
		return Aggregate{}, wrap("aggregate stats", err)
	}
	return agg, nil
}

// All returns every stat row of the owner.
func (r *StatsRepository) All(ctx context.Context, ownerID int64) ([]model.DailyStat, error) {
	var rows []model.DailyStat
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("date ASC").Find(&rows).Error; err != nil {
		return nil, wrap("list stats", err)
	}
	return rows, nil
}
