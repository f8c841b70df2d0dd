package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"

	defaultConfigFile = "todo-assistant.yaml"
)

// CategorySeed is a global default category created on startup.
type CategorySeed struct {
	Name  string `yaml:"name"`
	Emoji string `yaml:"emoji"`
}

// Limits bounds user input and output sizes.
type Limits struct {
	MaxTaskLength     int `yaml:"max_task_length"`
	MaxCategoryLength int `yaml:"max_category_length"`
	MaxSearchResults  int `yaml:"max_search_results"`
	MaxTasksPerPage   int `yaml:"max_tasks_per_page"`
}

// MotivationTier is selected when the weekly completion rate is at least MinRate.
// Text may contain {completed} and {rate} placeholders.
type MotivationTier struct {
	MinRate float64 `yaml:"min_rate"`
	Text    string  `yaml:"text"`
}

// Motivation holds the wording of the motivational message.
type Motivation struct {
	Starter string           `yaml:"starter"`
	Tiers   []MotivationTier `yaml:"tiers"`
}

// Config keeps runtime settings for the bot.
type Config struct {
	Path string `yaml:"-"`
	Env  string `yaml:"env"`

	TelegramToken string `yaml:"telegram_token"`
	DatabaseURL   string `yaml:"database_url"`

	// Timezone is the single zone used for stat dates, reminder matching and cron.
	Timezone         string         `yaml:"timezone"`
	Location         *time.Location `yaml:"-"`
	ReminderTime     string         `yaml:"reminder_time"`
	RemindersEnabled bool           `yaml:"reminders_enabled"`

	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`

	Limits            Limits         `yaml:"limits"`
	DefaultCategories []CategorySeed `yaml:"default_categories"`
	Motivation        Motivation     `yaml:"motivation"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Env:              EnvDevelopment,
		DatabaseURL:      "todo_tasks.db",
		Timezone:         "Asia/Jerusalem",
		ReminderTime:     "09:00",
		RemindersEnabled: true,
		LogLevel:         "info",
		Limits: Limits{
			MaxTaskLength:     500,
			MaxCategoryLength: 50,
			MaxSearchResults:  10,
			MaxTasksPerPage:   10,
		},
		DefaultCategories: []CategorySeed{
			{Name: "Work", Emoji: "💼"},
			{Name: "Study", Emoji: "📚"},
			{Name: "Personal", Emoji: "🏠"},
			{Name: "General", Emoji: "➕"},
			{Name: "Health", Emoji: "🏥"},
			{Name: "Shopping", Emoji: "🛒"},
			{Name: "Travel", Emoji: "✈️"},
			{Name: "Friends", Emoji: "👥"},
		},
		Motivation: DefaultMotivation(),
	}
}

// DefaultMotivation returns the built-in motivational tiers.
func DefaultMotivation() Motivation {
	return Motivation{
		Starter: "🌟 Let's get going! Nothing beats finishing a first task!",
		Tiers: []MotivationTier{
			{MinRate: 80, Text: "🔥 Champion! You completed {completed} tasks this week with {rate}% success!"},
			{MinRate: 60, Text: "💪 Good work! {completed} tasks done this week. A little more and you hit 80%!"},
			{MinRate: 40, Text: "📈 On the right track! {completed} tasks done. Let's focus today!"},
			{MinRate: 0, Text: "🎯 Fresh start! This week we can beat {completed} tasks!"},
		},
	}
}

// Load reads .env, the optional YAML file and environment variables, in that order of precedence (lowest first).
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	cfg.Path = strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	explicit := cfg.Path != ""
	if !explicit {
		cfg.Path = defaultConfigFile
	}

	data, err := os.ReadFile(cfg.Path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", cfg.Path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read %s: %w", cfg.Path, err)
	}

	applyEnvOverrides(&cfg)
	applyEnvironment(&cfg)
	normalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ReadMotivation loads only the motivation section of a config file.
func ReadMotivation(path string) (Motivation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Motivation{}, err
	}
	var raw struct {
		Motivation Motivation `yaml:"motivation"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Motivation{}, fmt.Errorf("parse %s: %w", path, err)
	}
	m := raw.Motivation
	normalizeMotivation(&m)
	return m, nil
}

// Validate checks the settings that do not depend on the Telegram token.
func (c *Config) Validate() error {
	var errs []string
	if c.Limits.MaxTaskLength <= 0 {
		errs = append(errs, "max_task_length must be positive")
	}
	if c.Limits.MaxCategoryLength <= 0 {
		errs = append(errs, "max_category_length must be positive")
	}
	if _, _, err := ParseClock(c.ReminderTime); err != nil {
		errs = append(errs, err.Error())
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Sprintf("timezone %q: %v", c.Timezone, err))
	} else {
		c.Location = loc
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, ", "))
	}
	return nil
}

// RequireToken fails when no Telegram token is configured.
func (c Config) RequireToken() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

// ParseClock parses an "HH:MM" wall-clock time.
func ParseClock(raw string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour, minute, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
			*dst = v
		}
	}

	setString("BOT_ENV", &cfg.Env)
	setString("TELEGRAM_BOT_TOKEN", &cfg.TelegramToken)
	setString("DATABASE_URL", &cfg.DatabaseURL)
	setString("TIMEZONE", &cfg.Timezone)
	setString("REMINDER_TIME", &cfg.ReminderTime)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("METRICS_ADDR", &cfg.MetricsAddr)
	setInt("MAX_TASK_LENGTH", &cfg.Limits.MaxTaskLength)
	setInt("MAX_CATEGORY_LENGTH", &cfg.Limits.MaxCategoryLength)
	setInt("MAX_SEARCH_RESULTS", &cfg.Limits.MaxSearchResults)
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("REMINDERS_ENABLED"))); err == nil {
		cfg.RemindersEnabled = v
	}
}

// applyEnvironment adjusts settings for the BOT_ENV profile.
func applyEnvironment(cfg *Config) {
	switch strings.ToLower(cfg.Env) {
	case EnvProduction:
		cfg.Env = EnvProduction
		if os.Getenv("LOG_LEVEL") == "" {
			cfg.LogLevel = "warn"
		}
	case EnvTesting:
		cfg.Env = EnvTesting
		cfg.DatabaseURL = "file::memory:?cache=shared"
		cfg.RemindersEnabled = false
		cfg.LogLevel = "error"
	default:
		cfg.Env = EnvDevelopment
	}
}

func normalize(cfg *Config) {
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "todo_tasks.db"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Jerusalem"
	}
	if cfg.ReminderTime == "" {
		cfg.ReminderTime = "09:00"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Limits.MaxSearchResults <= 0 {
		cfg.Limits.MaxSearchResults = 10
	}
	if cfg.Limits.MaxTasksPerPage <= 0 {
		cfg.Limits.MaxTasksPerPage = 10
	}
	normalizeMotivation(&cfg.Motivation)
}

// normalizeMotivation fills gaps with defaults and orders tiers by descending threshold.
func normalizeMotivation(m *Motivation) {
	def := DefaultMotivation()
	if strings.TrimSpace(m.Starter) == "" {
		m.Starter = def.Starter
	}
	if len(m.Tiers) == 0 {
		m.Tiers = def.Tiers
	}
	sort.SliceStable(m.Tiers, func(i, j int) bool {
		return m.Tiers[i].MinRate > m.Tiers[j].MinRate
	})
}

// Message picks the tier for a weekly completion rate (percent) and fills its placeholders.
// With no completed tasks the starter text is returned.
func (m Motivation) Message(completed int64, rate float64) string {
	if completed <= 0 {
		return m.Starter
	}
	text := m.Starter
	for _, tier := range m.Tiers {
		if rate >= tier.MinRate {
			text = tier.Text
			break
		}
	}
	return strings.NewReplacer(
		"{completed}", strconv.FormatInt(completed, 10),
		"{rate}", strconv.FormatFloat(rate, 'f', 0, 64),
	).Replace(text)
}
