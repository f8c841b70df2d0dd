package assistant

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"todo-assistant/internal/config"
	"todo-assistant/internal/conversation"
	"todo-assistant/internal/repository"
	"todo-assistant/internal/service"
	"todo-assistant/internal/telemetry"
)

// Deps are the collaborators of Service. Users and Metrics may be nil.
type Deps struct {
	Tasks       *service.TaskService
	Categories  *service.CategoryService
	Stats       *service.StatsService
	Reminders   *service.ReminderService
	Backups     *service.BackupService
	Preferences *service.PreferenceService
	Recurring   *service.RecurringService
	Users       *repository.UserRepository
	States      conversation.Store
	Limits      config.Limits
	Logger      *slog.Logger
	Metrics     *telemetry.Metrics
}

// Service dispatches commands, free text and button presses.
type Service struct {
	tasks      *service.TaskService
	categories *service.CategoryService
	stats      *service.StatsService
	reminders  *service.ReminderService
	backups    *service.BackupService
	prefs      *service.PreferenceService
	recurring  *service.RecurringService
	users      *repository.UserRepository
	states     conversation.Store
	limits     config.Limits
	logger     *slog.Logger
	metrics    *telemetry.Metrics

	commands  map[string]commandHandler
	callbacks map[string]callbackHandler
	known     sync.Map
}

type commandHandler func(ctx context.Context, cmd Command) (Response, error)

type callbackHandler func(ctx context.Context, sender Sender, param string) (Response, error)

func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	states := d.States
	if states == nil {
		states = conversation.NewMemoryStore()
	}
	s := &Service{
		tasks:      d.Tasks,
		categories: d.Categories,
		stats:      d.Stats,
		reminders:  d.Reminders,
		backups:    d.Backups,
		prefs:      d.Preferences,
		recurring:  d.Recurring,
		users:      d.Users,
		states:     states,
		limits:     d.Limits,
		logger:     logger,
		metrics:    d.Metrics,
	}
	s.commands = map[string]commandHandler{
		"start":      s.handleStart,
		"help":       s.handleHelp,
		"add":        s.handleAdd,
		"list":       s.handleList,
		"categories": s.handleCategories,
		"summary":    s.handleSummary,
		"stats":      s.handleStats,
		"chart":      s.handleChart,
		"backup":     s.handleBackup,
		"search":     s.handleSearch,
		"cancel":     s.handleCancel,
		"done":       s.handleDone,
		"delete":     s.handleDelete,
		"settings":   s.handleSettings,
		"remind":     s.handleRemind,
		"reminder":   s.handleReminder,
		"goal":       s.handleGoal,
		"repeat":     s.handleRepeat,
	}
	s.callbacks = map[string]callbackHandler{
		cbSelect:      s.onSelectCategory,
		cbCategory:    s.onViewCategory,
		cbAll:         s.onViewAll,
		cbDone:        s.onDone,
		cbDelete:      s.onDelete,
		cbNewCategory: s.onNewCategory,
		cbBack:        s.onBack,
		cbChart:       s.onChart,
		cbSettings:    s.onSettings,
		cbPref:        s.onPreference,
		cbCancel:      s.onCancel,
	}
	return s
}

// flowCommands manage conversation state themselves; every other command ends a running flow.
var flowCommands = map[string]bool{"add": true}

// HandleCommand runs a slash command. Unknown commands get a hint.
func (s *Service) HandleCommand(ctx context.Context, cmd Command) Response {
	name := NormalizeCommand(cmd.Name)
	cmd.Name = name
	h, ok := s.commands[name]
	route := "command:" + name
	if !ok {
		route = "command:unknown"
		h = func(context.Context, Command) (Response, error) {
			return reply("🤷 Unknown command. See /help for what I can do."), nil
		}
	}
	return s.dispatch(ctx, "command", route, cmd.Sender, func(ctx context.Context) (Response, error) {
		resp, err := h(ctx, cmd)
		if err == nil && !flowCommands[name] {
			s.states.Clear(cmd.Sender.ID)
		}
		return resp, err
	})
}

// HandleText interprets free text according to the sender's conversation state.
func (s *Service) HandleText(ctx context.Context, msg TextMessage) Response {
	st := s.states.Get(msg.Sender.ID)
	return s.dispatch(ctx, "text", "text:"+st.Awaiting.String(), msg.Sender, func(ctx context.Context) (Response, error) {
		return s.handleText(ctx, msg, st)
	})
}

// HandleCallback routes a button press by its tag. Unknown tags and malformed
// parameters are acknowledged without doing anything.
func (s *Service) HandleCallback(ctx context.Context, ev CallbackEvent) Response {
	tag, param := splitCallback(ev.Data)
	h, ok := s.callbacks[tag]
	if !ok {
		s.logger.Debug("ignore unknown callback", "user_id", ev.Sender.ID, "data", ev.Data)
		s.count("callback", "callback:unknown")
		return Response{}
	}
	return s.dispatch(ctx, "callback", "callback:"+tag, ev.Sender, func(ctx context.Context) (Response, error) {
		return h(ctx, ev.Sender, param)
	})
}

func (s *Service) dispatch(ctx context.Context, kind, route string, sender Sender, fn func(context.Context) (Response, error)) Response {
	start := time.Now()
	logger := s.logger.With("trace_id", uuid.NewString(), "kind", kind, "route", route, "user_id", sender.ID)
	s.touch(ctx, sender, logger)

	resp, err := fn(ctx)
	elapsed := time.Since(start)

	s.count(kind, route)
	if s.metrics != nil {
		s.metrics.HandlerDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
		if active, ok := s.states.(interface{ Active() int }); ok {
			s.metrics.ActiveDialogues.Set(float64(active.Active()))
		}
	}

	if err != nil {
		logger.Error("handler failed", "error", err, "duration_ms", elapsed.Milliseconds())
		if s.metrics != nil {
			s.metrics.HandlerErrors.WithLabelValues(route).Inc()
		}
		return failure(err)
	}
	logger.Info("event handled", "duration_ms", elapsed.Milliseconds())
	return resp
}

func (s *Service) count(kind, route string) {
	if s.metrics != nil {
		s.metrics.EventsTotal.WithLabelValues(kind, route).Inc()
	}
}

// touch records the sender's profile and default preferences once per process.
func (s *Service) touch(ctx context.Context, sender Sender, logger *slog.Logger) {
	if _, seen := s.known.Load(sender.ID); seen {
		return
	}
	if s.users != nil {
		if _, err := s.users.UpsertFromTelegram(ctx, sender.ID, sender.FirstName, sender.LastName, sender.Username); err != nil {
			logger.Warn("remember user failed", "error", err)
			return
		}
	}
	if s.prefs != nil {
		if err := s.prefs.Ensure(ctx, sender.ID); err != nil {
			logger.Warn("ensure preferences failed", "error", err)
			return
		}
	}
	s.known.Store(sender.ID, struct{}{})
}

// failure is the reply for errors a handler did not turn into a user message.
func failure(err error) Response {
	if errors.Is(err, repository.ErrUnavailable) {
		return reply("⚠️ Storage is temporarily unavailable. Please try again in a moment.")
	}
	return reply("⚠️ Something went wrong. Please try again.")
}

// userError converts expected service errors into a corrective reply.
func userError(err error) (string, bool) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return "✋ " + capitalize(verr.Reason) + ".", true
	case errors.Is(err, service.ErrNotFound):
		return "❓ Not found. It may have been deleted already.", true
	case errors.Is(err, service.ErrConflict):
		return "⚠️ A category with that name already exists. Send another name or /cancel.", true
	default:
		return "", false
	}
}
