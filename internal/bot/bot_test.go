package bot_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-assistant/internal/assistant"
	"todo-assistant/internal/bot"
	"todo-assistant/internal/config"
	"todo-assistant/internal/conversation"
	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
	"todo-assistant/internal/service"
	"todo-assistant/internal/telemetry"
)

type fakeClient struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	failEdit bool
	// gate, when set, runs before a send is recorded and may block.
	gate func(tgbotapi.Chattable)

	updates chan tgbotapi.Update
	once    sync.Once
}

func newFakeClient() *fakeClient {
	return &fakeClient{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.gate != nil {
		f.gate(c)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := c.(tgbotapi.EditMessageTextConfig); ok && f.failEdit {
		return tgbotapi.Message{}, errors.New("message is not modified")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeClient) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeClient) StopReceivingUpdates() {
	f.once.Do(func() { close(f.updates) })
}

func (f *fakeClient) messages() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...)
}

type env struct {
	client  *fakeClient
	bot     *bot.Bot
	tasks   *service.TaskService
	prefs   *service.PreferenceService
	metrics *telemetry.Metrics
	now     time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "bot.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := config.Default()
	loc, err := time.LoadLocation(cfg.Timezone)
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, loc)
	clock := service.Clock{Location: loc, Now: func() time.Time { return now }}

	metrics := telemetry.NewMetrics()
	taskRepo := repository.NewTaskRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	recurringRepo := repository.NewRecurringRepository(db)

	stats := service.NewStatsService(statsRepo, taskRepo, clock, cfg.Motivation, metrics, nil)
	tasks := service.NewTaskService(taskRepo, stats, cfg.Limits, nil)
	cats := service.NewCategoryService(categoryRepo, cfg.Limits, cfg.DefaultCategories)
	prefs := service.NewPreferenceService(repository.NewPreferenceRepository(db), cfg)
	require.NoError(t, cats.SeedDefaults(context.Background()))
	reminders := service.NewReminderService(tasks, cats, stats, prefs, clock)

	svc := assistant.New(assistant.Deps{
		Tasks:       tasks,
		Categories:  cats,
		Stats:       stats,
		Reminders:   reminders,
		Backups:     service.NewBackupService(taskRepo, categoryRepo, statsRepo, recurringRepo, prefs, clock),
		Preferences: prefs,
		Recurring:   service.NewRecurringService(recurringRepo, tasks, clock, metrics, nil),
		Users:       repository.NewUserRepository(db),
		States:      conversation.NewMemoryStore(),
		Limits:      cfg.Limits,
		Metrics:     metrics,
	})

	client := newFakeClient()
	b := bot.NewWithClient(client, bot.Options{
		Assistant:   svc,
		Reminders:   reminders,
		Preferences: prefs,
		Metrics:     metrics,
	})
	return &env{client: client, bot: b, tasks: tasks, prefs: prefs, metrics: metrics, now: now}
}

func privateChat(id int64) *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: id, Type: "private"}
}

func commandUpdate(userID int64, text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     privateChat(userID),
		From:     &tgbotapi.User{ID: userID, FirstName: "Dana"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func callbackUpdate(userID int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: userID, FirstName: "Dana"},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: privateChat(userID)},
		Data:    data,
	}}
}

func TestHandleUpdate_CommandSendsMessageWithKeyboard(t *testing.T) {
	e := newEnv(t)
	e.bot.HandleUpdate(context.Background(), commandUpdate(7, "/add"))

	sent := e.client.messages()
	require.Len(t, sent, 1)
	msg, ok := sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(7), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1, "only the cancel row before the text is known")

	e.bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Text: "Write report",
		Chat: privateChat(7),
		From: &tgbotapi.User{ID: 7},
	}})
	sent = e.client.messages()
	require.Len(t, sent, 2)
	msg = sent[1].(tgbotapi.MessageConfig)
	markup, ok = msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.NotEmpty(t, markup.InlineKeyboard)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.True(t, strings.HasPrefix(*markup.InlineKeyboard[0][0].CallbackData, "select:"))
}

func TestHandleUpdate_IgnoresGroupChats(t *testing.T) {
	e := newEnv(t)
	update := commandUpdate(7, "/help")
	update.Message.Chat = &tgbotapi.Chat{ID: -100, Type: "group"}

	e.bot.HandleUpdate(context.Background(), update)
	assert.Empty(t, e.client.messages())
}

func TestHandleUpdate_CallbackAcksAndEdits(t *testing.T) {
	e := newEnv(t)
	e.bot.HandleUpdate(context.Background(), callbackUpdate(7, 55, "settings"))

	require.Len(t, e.client.requests, 1)
	ack, ok := e.client.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "cb-1", ack.CallbackQueryID)

	sent := e.client.messages()
	require.Len(t, sent, 1)
	edit, ok := sent[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 55, edit.MessageID)
	assert.NotNil(t, edit.ReplyMarkup)
}

func TestHandleUpdate_UnknownCallbackIsStillAcknowledged(t *testing.T) {
	e := newEnv(t)
	e.bot.HandleUpdate(context.Background(), callbackUpdate(7, 55, "bogus:1"))

	assert.Len(t, e.client.requests, 1)
	assert.Empty(t, e.client.messages())
}

func TestHandleUpdate_FailedEditFallsBackToNewMessage(t *testing.T) {
	e := newEnv(t)
	e.client.failEdit = true
	e.bot.HandleUpdate(context.Background(), callbackUpdate(7, 55, "settings"))

	sent := e.client.messages()
	require.Len(t, sent, 1)
	_, ok := sent[0].(tgbotapi.MessageConfig)
	assert.True(t, ok)
}

func TestHandleUpdate_BackupSendsDocument(t *testing.T) {
	e := newEnv(t)
	e.bot.HandleUpdate(context.Background(), commandUpdate(7, "/backup"))

	var doc *tgbotapi.DocumentConfig
	for _, c := range e.client.messages() {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			doc = &d
		}
	}
	require.NotNil(t, doc)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(file.Name, "todo_backup_7_"))
	assert.Contains(t, string(file.Bytes), `"user_id": 7`)
}

func TestHandleUpdate_RecoversFromPanic(t *testing.T) {
	client := newFakeClient()
	b := bot.NewWithClient(client, bot.Options{})

	assert.NotPanics(t, func() {
		b.HandleUpdate(context.Background(), commandUpdate(7, "/list"))
	})
}

func TestStart_DrainsUpdatesAndStops(t *testing.T) {
	e := newEnv(t)
	e.client.updates <- commandUpdate(7, "/help")
	e.client.updates <- commandUpdate(8, "/help")
	e.client.updates <- tgbotapi.Update{UpdateID: 3}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- e.bot.Start(ctx) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return")
	}
	assert.Len(t, e.client.messages(), 2)
}

func chatIDs(sent []tgbotapi.Chattable) []int64 {
	var ids []int64
	for _, c := range sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			ids = append(ids, m.ChatID)
		}
	}
	return ids
}

func TestStart_SlowUserDoesNotBlockOthers(t *testing.T) {
	e := newEnv(t)
	release := make(chan struct{})
	e.client.gate = func(c tgbotapi.Chattable) {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == 7 {
			<-release
		}
	}
	e.client.updates <- commandUpdate(7, "/help")
	e.client.updates <- commandUpdate(7, "/help")
	e.client.updates <- commandUpdate(8, "/help")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.bot.Start(ctx) }()

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]int64{8}, chatIDs(e.client.messages()))
	}, 3*time.Second, 10*time.Millisecond, "user 8 is served while user 7 is stuck")

	close(release)
	require.Eventually(t, func() bool {
		return len(e.client.messages()) == 3
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []int64{8, 7, 7}, chatIDs(e.client.messages()))

	require.Eventually(t, func() bool { return e.bot.Pending() == 0 }, 3*time.Second, 10*time.Millisecond,
		"drained users are forgotten")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return")
	}
}

func TestStart_KeepsOrderPerUser(t *testing.T) {
	e := newEnv(t)
	var mu sync.Mutex
	var texts []string
	e.client.gate = func(c tgbotapi.Chattable) {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			mu.Lock()
			texts = append(texts, m.Text)
			mu.Unlock()
		}
	}
	e.client.updates <- commandUpdate(7, "/goal 5")
	e.client.updates <- commandUpdate(7, "/goal 6")
	e.client.updates <- commandUpdate(7, "/goal 7")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.bot.Start(ctx) }()

	require.Eventually(t, func() bool { return len(e.client.messages()) == 3 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, texts, 3)
	for i, want := range []string{"5 tasks", "6 tasks", "7 tasks"} {
		assert.Contains(t, texts[i], want)
	}
	assert.Zero(t, e.bot.Pending())
}

func TestSendDueReminders(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.tasks.Create(ctx, 1, "pay rent", "Personal")
	require.NoError(t, err)
	require.NoError(t, e.prefs.Ensure(ctx, 1))

	// Owner 2 has nothing open, owner 3 muted reminders.
	require.NoError(t, e.prefs.Ensure(ctx, 2))
	_, err = e.tasks.Create(ctx, 3, "call mom", "Friends")
	require.NoError(t, err)
	_, err = e.prefs.SetReminder(ctx, 3, "off")
	require.NoError(t, err)

	// Owner 4 wants reminders later.
	_, err = e.tasks.Create(ctx, 4, "gym", "Health")
	require.NoError(t, err)
	_, err = e.prefs.SetReminder(ctx, 4, "18:00")
	require.NoError(t, err)

	require.NoError(t, e.bot.SendDueReminders(ctx, e.now))

	sent := e.client.messages()
	require.Len(t, sent, 1)
	msg := sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(1), msg.ChatID)
	assert.Contains(t, msg.Text, "Good morning")
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.RemindersSent))
}

func TestTextChart(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	out := bot.TextChart{Width: 4}.Render([]model.DailyPoint{
		{Date: day, Created: 2, Completed: 1, Score: 4},
		{Date: day.AddDate(0, 0, 1), Created: 1, Score: 1},
		{Date: day.AddDate(0, 0, 2)},
	})

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "<pre>"))
	assert.True(t, strings.HasSuffix(lines[1], "████"))
	assert.True(t, strings.HasSuffix(lines[2], "█"))
	assert.False(t, strings.Contains(lines[3], "█"))
	assert.Equal(t, "</pre>", lines[4])

	assert.Empty(t, bot.TextChart{}.Render(nil))
}
