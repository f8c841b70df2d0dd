package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
)

// Backup is the JSON export of everything one owner has stored.
type Backup struct {
	ID          string                `json:"backup_id"`
	OwnerID     int64                 `json:"user_id"`
	ExportedAt  time.Time             `json:"exported_at"`
	Tasks       []model.Task          `json:"tasks"`
	Categories  []model.Category      `json:"categories"`
	DailyStats  []model.DailyStat     `json:"daily_stats"`
	Preferences *model.UserPreference `json:"preferences"`
	Recurring   []model.RecurringTask `json:"recurring_tasks"`
}

// FileName is the suggested attachment name.
func (b *Backup) FileName() string {
	return fmt.Sprintf("todo_backup_%d_%s.json", b.OwnerID, b.ExportedAt.Format("20060102_150405"))
}

// JSON renders the backup with indentation.
func (b *Backup) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

// BackupService exports user data.
type BackupService struct {
	tasks      *repository.TaskRepository
	categories *repository.CategoryRepository
	stats      *repository.StatsRepository
	recurring  *repository.RecurringRepository
	prefs      *PreferenceService
	clock      Clock
}

func NewBackupService(tasks *repository.TaskRepository, categories *repository.CategoryRepository, stats *repository.StatsRepository, recurring *repository.RecurringRepository, prefs *PreferenceService, clock Clock) *BackupService {
	return &BackupService{tasks: tasks, categories: categories, stats: stats, recurring: recurring, prefs: prefs, clock: clock}
}

func (s *BackupService) Export(ctx context.Context, ownerID int64) (*Backup, error) {
	b := &Backup{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		ExportedAt: s.clock.Time(),
	}
	var err error
	if b.Tasks, err = s.tasks.ListAllForOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	if b.Categories, err = s.categories.ListOwned(ctx, ownerID); err != nil {
		return nil, err
	}
	if b.DailyStats, err = s.stats.All(ctx, ownerID); err != nil {
		return nil, err
	}
	if b.Recurring, err = s.recurring.ListByOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	if b.Preferences, err = s.prefs.Get(ctx, ownerID); err != nil {
		return nil, err
	}
	return b, nil
}
