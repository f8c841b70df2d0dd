package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"todo-assistant/internal/config"
	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
)

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// ExtractTags returns the lowercased hashtags of content in order of appearance, without duplicates.
func ExtractTags(content string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, m := range hashtagPattern.FindAllStringSubmatch(content, -1) {
		tag := strings.ToLower(m[1])
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// SearchResult holds the first page of matches and the total number of matches.
type SearchResult struct {
	Tasks []model.Task
	Total int
}

// TaskService wraps task-related business logic.
type TaskService struct {
	repo   *repository.TaskRepository
	stats  *StatsService
	limits config.Limits
	logger *slog.Logger
}

func NewTaskService(repo *repository.TaskRepository, stats *StatsService, limits config.Limits, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{repo: repo, stats: stats, limits: limits, logger: logger}
}

// ValidateContent trims raw and checks it fits a task.
func (s *TaskService) ValidateContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", invalid("content", "task text is empty")
	}
	if n := utf8.RuneCountInString(content); n > s.limits.MaxTaskLength {
		return "", invalid("content", "task is too long (%d of %d characters)", n, s.limits.MaxTaskLength)
	}
	return content, nil
}

// Create stores an open task with its hashtags and counts it in today's statistics.
func (s *TaskService) Create(ctx context.Context, ownerID int64, content, category string) (*model.Task, error) {
	content, err := s.ValidateContent(content)
	if err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, invalid("category", "category is empty")
	}

	task := &model.Task{OwnerID: ownerID, Content: content, Category: category, Status: model.TaskOpen}
	if _, err := s.repo.Create(ctx, task, ExtractTags(content)); err != nil {
		return nil, err
	}
	s.record(ctx, ownerID, model.ActivityCreated)
	return task, nil
}

// List returns open tasks, optionally of one category.
func (s *TaskService) List(ctx context.Context, ownerID int64, category string) ([]model.Task, error) {
	return s.repo.List(ctx, ownerID, repository.TaskFilter{Category: category, Status: model.TaskOpen})
}

func (s *TaskService) Get(ctx context.Context, ownerID int64, taskID uint) (*model.Task, error) {
	task, err := s.repo.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, notFound(err)
	}
	return task, nil
}

// Complete marks a task done. Completing a done task succeeds without counting twice.
func (s *TaskService) Complete(ctx context.Context, ownerID int64, taskID uint) (repository.StatusChange, error) {
	change, err := s.repo.SetStatus(ctx, taskID, ownerID, model.TaskDone)
	if err != nil {
		return change, err
	}
	if !change.Found {
		return change, ErrNotFound
	}
	if change.Changed {
		s.record(ctx, ownerID, model.ActivityCompleted)
	}
	return change, nil
}

// Delete removes a task for good.
func (s *TaskService) Delete(ctx context.Context, ownerID int64, taskID uint) error {
	ok, err := s.repo.Delete(ctx, taskID, ownerID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.record(ctx, ownerID, model.ActivityDeleted)
	return nil
}

func (s *TaskService) Summary(ctx context.Context, ownerID int64) ([]model.CategoryCount, error) {
	return s.repo.Summary(ctx, ownerID)
}

// Search matches open tasks and keeps at most MaxSearchResults of them.
func (s *TaskService) Search(ctx context.Context, ownerID int64, query string) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{}, invalid("query", "search text is empty")
	}
	tasks, err := s.repo.Search(ctx, ownerID, query)
	if err != nil {
		return SearchResult{}, err
	}
	res := SearchResult{Tasks: tasks, Total: len(tasks)}
	if limit := s.limits.MaxSearchResults; limit > 0 && len(tasks) > limit {
		res.Tasks = tasks[:limit]
	}
	return res, nil
}

// record keeps statistics best-effort: the task change has already been committed.
func (s *TaskService) record(ctx context.Context, ownerID int64, kind model.ActivityKind) {
	if s.stats == nil {
		return
	}
	if err := s.stats.RecordActivity(ctx, ownerID, kind); err != nil {
		s.logger.Error("record activity failed", "owner_id", ownerID, "kind", string(kind), "error", err)
	}
}
