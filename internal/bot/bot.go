package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"todo-assistant/internal/assistant"
	"todo-assistant/internal/service"
	"todo-assistant/internal/telemetry"
)

// Client is the part of tgbotapi.BotAPI the bot uses.
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Options configure a Bot. Chart, Logger and Metrics may be left empty.
type Options struct {
	Assistant   *assistant.Service
	Reminders   *service.ReminderService
	Preferences *service.PreferenceService
	Chart       ChartRenderer
	Logger      *slog.Logger
	Metrics     *telemetry.Metrics
}

// Bot connects the Telegram API with the assistant.
type Bot struct {
	api       Client
	assistant *assistant.Service
	reminders *service.ReminderService
	prefs     *service.PreferenceService
	chart     ChartRenderer
	logger    *slog.Logger
	metrics   *telemetry.Metrics

	mu sync.Mutex
	// queues holds updates waiting behind a user's running update. A user has
	// an entry only while a worker is draining it.
	queues map[int64][]tgbotapi.Update
	wg     sync.WaitGroup
}

func New(token string, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := NewWithClient(api, opts)
	b.logger.Info("bot authorized", "account", api.Self.UserName)
	return b, nil
}

// NewWithClient builds a Bot on any Client implementation.
func NewWithClient(api Client, opts Options) *Bot {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	chart := opts.Chart
	if chart == nil {
		chart = TextChart{}
	}
	return &Bot{
		api:       api,
		assistant: opts.Assistant,
		reminders: opts.Reminders,
		prefs:     opts.Preferences,
		chart:     chart,
		logger:    logger,
		metrics:   opts.Metrics,
		queues:    make(map[int64][]tgbotapi.Update),
	}
}

// Start begins polling updates until ctx is cancelled. Users are served
// concurrently; updates of one user are handled one at a time in arrival order.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		userID, ok := updateUser(update)
		if !ok {
			continue
		}
		b.enqueue(ctx, userID, update)
	}
	b.wg.Wait()
	return nil
}

// enqueue starts a worker for userID, or appends to the queue of the running one.
func (b *Bot) enqueue(ctx context.Context, userID int64, update tgbotapi.Update) {
	b.mu.Lock()
	if queue, busy := b.queues[userID]; busy {
		b.queues[userID] = append(queue, update)
		b.mu.Unlock()
		return
	}
	b.queues[userID] = nil
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.drain(ctx, userID, update)
	}()
}

// drain handles update and then everything queued for userID. The queue entry
// is removed once it is empty.
func (b *Bot) drain(ctx context.Context, userID int64, update tgbotapi.Update) {
	for {
		b.HandleUpdate(ctx, update)

		b.mu.Lock()
		queue := b.queues[userID]
		if len(queue) == 0 {
			delete(b.queues, userID)
			b.mu.Unlock()
			return
		}
		update = queue[0]
		b.queues[userID] = queue[1:]
		b.mu.Unlock()
	}
}

// pending reports how many users currently have a worker.
func (b *Bot) pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues)
}

func updateUser(u tgbotapi.Update) (int64, bool) {
	switch {
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		return u.CallbackQuery.From.ID, true
	case u.Message != nil && u.Message.From != nil:
		return u.Message.From.ID, true
	default:
		return 0, false
	}
}

// HandleUpdate processes one update. A panic is logged and does not stop the bot.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling update", "update_id", update.UpdateID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		b.handleMessage(ctx, update.Message)
	}
}

func senderOf(u *tgbotapi.User, chatID int64) assistant.Sender {
	return assistant.Sender{
		ID:        u.ID,
		ChatID:    chatID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.UserName,
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	sender := senderOf(msg.From, msg.Chat.ID)

	var resp assistant.Response
	if msg.IsCommand() {
		b.logger.Debug("command received", "user_id", sender.ID, "command", msg.Command())
		resp = b.assistant.HandleCommand(ctx, assistant.Command{
			Name:   msg.Command(),
			Args:   msg.CommandArguments(),
			Sender: sender,
		})
	} else {
		resp = b.assistant.HandleText(ctx, assistant.TextMessage{Text: msg.Text, Sender: sender})
	}
	b.render(msg.Chat.ID, 0, resp)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil {
		return
	}
	var chatID int64
	var messageID int
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
		messageID = cb.Message.MessageID
	} else {
		chatID = cb.From.ID
	}

	resp := b.assistant.HandleCallback(ctx, assistant.CallbackEvent{Data: cb.Data, Sender: senderOf(cb.From, chatID)})
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, resp.Answer)); err != nil {
		b.logger.Warn("callback ack failed", "user_id", cb.From.ID, "error", err)
	}
	b.render(chatID, messageID, resp)
}

// render sends every reply of resp. Edits fall back to a new message when
// there is no message to edit or editing fails.
func (b *Bot) render(chatID int64, messageID int, resp assistant.Response) {
	for _, r := range resp.Replies {
		if err := b.send(chatID, messageID, r); err != nil {
			b.logger.Error("send reply failed", "chat_id", chatID, "error", err)
		}
	}
}

func (b *Bot) send(chatID int64, messageID int, r assistant.Reply) error {
	text := r.Text
	if len(r.Chart) > 0 {
		text = strings.TrimSpace(text + "\n" + b.chart.Render(r.Chart))
	}

	if r.Document != nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: r.Document.Name, Bytes: r.Document.Data})
		doc.Caption = text
		doc.ParseMode = r.ParseMode
		_, err := b.api.Send(doc)
		return err
	}

	if r.Edit && messageID != 0 {
		var edit tgbotapi.EditMessageTextConfig
		if markup := inlineKeyboard(r.Buttons); markup != nil {
			edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup)
		} else {
			edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
		}
		edit.ParseMode = r.ParseMode
		_, err := b.api.Send(edit)
		if err == nil {
			return nil
		}
		b.logger.Debug("edit failed, sending new message", "chat_id", chatID, "error", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = r.ParseMode
	if markup := inlineKeyboard(r.Buttons); markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, err := b.api.Send(msg)
	return err
}

func inlineKeyboard(rows [][]assistant.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		keyboard = append(keyboard, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	return &markup
}

// SendDueReminders sends the daily reminder to every user whose reminder time is now's HH:MM.
// now must already be in the configured zone.
func (b *Bot) SendDueReminders(ctx context.Context, now time.Time) error {
	owners, err := b.prefs.DueOwners(ctx, now.Format("15:04"))
	if err != nil {
		return err
	}
	for _, owner := range owners {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, ok, err := b.reminders.BuildReminder(ctx, owner)
		if err != nil {
			b.logger.Error("build reminder failed", "user_id", owner, "error", err)
			continue
		}
		if !ok {
			continue
		}
		msg := tgbotapi.NewMessage(owner, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("send reminder failed", "user_id", owner, "error", err)
			continue
		}
		if b.metrics != nil {
			b.metrics.RemindersSent.Inc()
		}
	}
	return nil
}
