package service

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"todo-assistant/internal/config"
	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
)

// FallbackEmoji decorates categories without a known emoji.
const FallbackEmoji = "📂"

// CategoryService provides helpers around categories.
type CategoryService struct {
	repo     *repository.CategoryRepository
	limits   config.Limits
	defaults []config.CategorySeed
}

func NewCategoryService(repo *repository.CategoryRepository, limits config.Limits, defaults []config.CategorySeed) *CategoryService {
	return &CategoryService{repo: repo, limits: limits, defaults: defaults}
}

// SeedDefaults makes sure the shared categories exist.
func (s *CategoryService) SeedDefaults(ctx context.Context) error {
	rows := make([]model.Category, 0, len(s.defaults))
	for _, d := range s.defaults {
		rows = append(rows, model.Category{Name: d.Name, Emoji: d.Emoji})
	}
	return s.repo.SeedDefaults(ctx, rows)
}

// Visible lists the categories the owner can file tasks under.
func (s *CategoryService) Visible(ctx context.Context, ownerID int64) ([]model.Category, error) {
	return s.repo.ListVisible(ctx, ownerID)
}

func (s *CategoryService) Get(ctx context.Context, ownerID int64, id uint) (*model.Category, error) {
	c, err := s.repo.GetVisible(ctx, ownerID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// Create adds a private category from user input such as "🌱 Garden" or "Garden".
func (s *CategoryService) Create(ctx context.Context, ownerID int64, input string) (*model.Category, error) {
	emoji, name := SplitEmoji(input)
	if name == "" {
		return nil, invalid("name", "category name is empty")
	}
	if n := utf8.RuneCountInString(name); n > s.limits.MaxCategoryLength {
		return nil, invalid("name", "category name is too long (%d of %d characters)", n, s.limits.MaxCategoryLength)
	}
	if emoji == "" {
		emoji = FallbackEmoji
	}

	created, err := s.repo.Create(ctx, ownerID, name, emoji)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrConflict
	}
	return &model.Category{OwnerID: ownerID, Name: name, Emoji: emoji}, nil
}

// SplitEmoji separates a leading symbol token from the name.
func SplitEmoji(input string) (emoji, name string) {
	input = strings.TrimSpace(input)
	fields := strings.Fields(input)
	if len(fields) < 2 || !isSymbolToken(fields[0]) {
		return "", input
	}
	return fields[0], strings.TrimSpace(strings.TrimPrefix(input, fields[0]))
}

func isSymbolToken(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// EmojiIndex maps category names to their emoji.
func EmojiIndex(categories []model.Category) map[string]string {
	idx := make(map[string]string, len(categories))
	for _, c := range categories {
		idx[c.Name] = c.Emoji
	}
	return idx
}

// EmojiFor returns the emoji of name or FallbackEmoji.
func EmojiFor(idx map[string]string, name string) string {
	if e, ok := idx[name]; ok && e != "" {
		return e
	}
	return FallbackEmoji
}
