package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"todo-assistant/internal/model"
)

// TaskFilter narrows List. An empty Status means open tasks.
type TaskFilter struct {
	Category string
	Status   model.TaskStatus
}

// StatusChange reports the outcome of SetStatus.
type StatusChange struct {
	// Found is true when the owner has a task with that id.
	Found bool
	// Changed is true when the stored status actually moved.
	Changed bool
}

// TaskRepository handles CRUD for tasks and their tags.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create stores the task and its tags in one transaction and returns the new id.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task, tags []string) (uint, error) {
	if task.Status == "" {
		task.Status = model.TaskOpen
	}
	task.Tags = nil
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		if len(tags) == 0 {
			return nil
		}
		rows := make([]model.Tag, 0, len(tags))
		for _, name := range tags {
			rows = append(rows, model.Tag{TaskID: task.ID, Name: name})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
	if err != nil {
		return 0, wrap("create task", err)
	}
	return task.ID, nil
}

// List returns the owner's tasks. Without a category the result is grouped by category.
func (r *TaskRepository) List(ctx context.Context, ownerID int64, filter TaskFilter) ([]model.Task, error) {
	status := filter.Status
	if status == "" {
		status = model.TaskOpen
	}
	q := r.db.WithContext(ctx).Where("owner_id = ? AND status = ?", ownerID, status)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category).Order("created_at DESC")
	} else {
		q = q.Order("category ASC").Order("created_at DESC")
	}

	var tasks []model.Task
	if err := q.Order("id DESC").Find(&tasks).Error; err != nil {
		return nil, wrap("list tasks", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Get(ctx context.Context, ownerID int64, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, taskID).First(&task).Error; err != nil {
		return nil, wrap("get task", err)
	}
	return &task, nil
}

// SetStatus moves the owner's task to status. A missing task is not an error.
func (r *TaskRepository) SetStatus(ctx context.Context, taskID uint, ownerID int64, status model.TaskStatus) (StatusChange, error) {
	var change StatusChange
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Task{}).
			Where("id = ? AND owner_id = ? AND status <> ?", taskID, ownerID, status).
			Updates(map[string]any{"status": status, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			change = StatusChange{Found: true, Changed: true}
			return nil
		}
		var n int64
		if err := tx.Model(&model.Task{}).Where("id = ? AND owner_id = ?", taskID, ownerID).Count(&n).Error; err != nil {
			return err
		}
		change.Found = n > 0
		return nil
	})
	if err != nil {
		return StatusChange{}, wrap("set task status", err)
	}
	return change, nil
}

// Delete removes the owner's task and its tags. It reports whether a task was removed.
func (r *TaskRepository) Delete(ctx context.Context, taskID uint, ownerID int64) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND owner_id = ?", taskID, ownerID).Delete(&model.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Where("task_id = ?", taskID).Delete(&model.Tag{}).Error
	})
	if err != nil {
		return false, wrap("delete task", err)
	}
	return deleted, nil
}

// Summary counts open tasks per category, ordered by category name.
func (r *TaskRepository) Summary(ctx context.Context, ownerID int64) ([]model.CategoryCount, error) {
	var rows []model.CategoryCount
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("category, COUNT(*) AS count").
		Where("owner_id = ? AND status = ?", ownerID, model.TaskOpen).
		Group("category").
		Order("category ASC").
		Scan(&rows).Error; err != nil {
		return nil, wrap("summarize tasks", err)
	}
	return rows, nil
}

func (r *TaskRepository) CountOpen(ctx context.Context, ownerID int64) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("owner_id = ? AND status = ?", ownerID, model.TaskOpen).
		Count(&n).Error; err != nil {
		return 0, wrap("count open tasks", err)
	}
	return n, nil
}

// TopCompletedCategories ranks categories by number of done tasks.
func (r *TaskRepository) TopCompletedCategories(ctx context.Context, ownerID int64, limit int) ([]model.CategoryCount, error) {
	var rows []model.CategoryCount
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("category, COUNT(*) AS count").
		Where("owner_id = ? AND status = ?", ownerID, model.TaskDone).
		Group("category").
		Order("count DESC").
		Order("category ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, wrap("top categories", err)
	}
	return rows, nil
}

// Search finds open tasks whose content, category or tags contain query, newest first.
func (r *TaskRepository) Search(ctx context.Context, ownerID int64, query string) ([]model.Task, error) {
	pattern := "%" + escapeLike(query) + "%"
	tagged := r.db.Model(&model.Tag{}).Select("task_id").Where(`name LIKE ? ESCAPE '\'`, pattern)

	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, model.TaskOpen).
		Where(r.db.Where(`content LIKE ? ESCAPE '\'`, pattern).
			Or(`category LIKE ? ESCAPE '\'`, pattern).
			Or("id IN (?)", tagged)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&tasks).Error; err != nil {
		return nil, wrap("search tasks", err)
	}
	return tasks, nil
}

// ListAllForOwner returns every task of the owner with its tags.
func (r *TaskRepository) ListAllForOwner(ctx context.Context, ownerID int64) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("Tags").
		Where("owner_id = ?", ownerID).
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, wrap("list tasks for backup", err)
	}
	return tasks, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
