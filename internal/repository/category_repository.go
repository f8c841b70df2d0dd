package repository

import (
	"context"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"todo-assistant/internal/model"
)

// CategoryRepository manages global and per-user categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create adds a category for ownerID. It returns false when the owner already has one with that name.
func (r *CategoryRepository) Create(ctx context.Context, ownerID int64, name, emoji string) (bool, error) {
	category := model.Category{OwnerID: ownerID, Name: name, Emoji: emoji}
	if err := r.db.WithContext(ctx).Create(&category).Error; err != nil {
		if isDuplicate(err) {
			return false, nil
		}
		return false, wrap("create category", err)
	}
	return true, nil
}

// SeedDefaults inserts global categories that are not present yet.
func (r *CategoryRepository) SeedDefaults(ctx context.Context, defaults []model.Category) error {
	if len(defaults) == 0 {
		return nil
	}
	rows := make([]model.Category, len(defaults))
	for i, c := range defaults {
		rows[i] = model.Category{OwnerID: model.GlobalOwner, Name: c.Name, Emoji: c.Emoji}
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error; err != nil {
		return wrap("seed categories", err)
	}
	return nil
}

// ListVisible returns global categories merged with the owner's, ordered by name.
// When both share a name the owner's row is returned.
func (r *CategoryRepository) ListVisible(ctx context.Context, ownerID int64) ([]model.Category, error) {
	var rows []model.Category
	if err := r.db.WithContext(ctx).
		Where("owner_id IN ?", []int64{model.GlobalOwner, ownerID}).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, wrap("list categories", err)
	}

	byName := make(map[string]model.Category, len(rows))
	for _, c := range rows {
		if prev, ok := byName[c.Name]; ok && !prev.IsGlobal() {
			continue
		}
		byName[c.Name] = c
	}
	out := make([]model.Category, 0, len(byName))
	for _, c := range byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetVisible loads a category the owner can see.
func (r *CategoryRepository) GetVisible(ctx context.Context, ownerID int64, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id IN ?", id, []int64{model.GlobalOwner, ownerID}).
		First(&category).Error; err != nil {
		return nil, wrap("get category", err)
	}
	return &category, nil
}

// ListOwned returns only the owner's private categories.
func (r *CategoryRepository) ListOwned(ctx context.Context, ownerID int64) ([]model.Category, error) {
	var rows []model.Category
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, wrap("list own categories", err)
	}
	return rows, nil
}
