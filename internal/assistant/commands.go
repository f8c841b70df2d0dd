package assistant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"todo-assistant/internal/conversation"
	"todo-assistant/internal/service"
)

const helpText = `ℹ️ <b>What I can do</b>
• /add - add a task (or /add &lt;text&gt;)
• /list - open tasks by category
• /categories - your categories
• /summary - open task counts
• /stats - statistics for the last 30 days
• /chart - activity chart for 14 days
• /search &lt;text&gt; - find open tasks by text, category or #tag
• /done &lt;id&gt;, /delete &lt;id&gt; - finish or remove a task
• /repeat &lt;daily|weekly|monthly&gt; &lt;text&gt; - recurring task
• /settings, /remind &lt;HH:MM|off&gt;, /goal &lt;n&gt; - reminders and goal
• /reminder - preview today's reminder
• /backup - download your data
• /cancel - stop the current dialogue`

func (s *Service) handleStart(_ context.Context, cmd Command) (Response, error) {
	name := strings.TrimSpace(cmd.Sender.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your tasks organised by category.</b>\n\n%s", escape(name), helpText)
	return reply(text,
		[]Button{{Text: btnAllTasks, Data: cbAll}},
		[]Button{{Text: btnNewCategory, Data: cbNewCategory}},
		[]Button{{Text: "⚙️ Settings", Data: cbSettings}},
	), nil
}

func (s *Service) handleHelp(context.Context, Command) (Response, error) {
	return reply(helpText), nil
}

func (s *Service) handleCancel(context.Context, Command) (Response, error) {
	return reply("❌ Cancelled. Nothing was saved."), nil
}

// handleAdd starts the add-task flow. Text after the command skips the first question.
func (s *Service) handleAdd(ctx context.Context, cmd Command) (Response, error) {
	owner := cmd.Sender.ID
	if strings.TrimSpace(cmd.Args) == "" {
		s.states.Set(owner, conversation.State{Awaiting: conversation.AwaitingTaskContent})
		return reply("✏️ What do you need to do? Send me the task text.\nTip: add #tags to find it later.", cancelRow()), nil
	}

	content, err := s.tasks.ValidateContent(cmd.Args)
	if err != nil {
		if msg, ok := userError(err); ok {
			s.states.Set(owner, conversation.State{Awaiting: conversation.AwaitingTaskContent})
			return reply(msg+"\nSend the task text again.", cancelRow()), nil
		}
		return Response{}, err
	}
	resp, err := s.categoryPrompt(ctx, owner, content)
	if err != nil {
		return Response{}, err
	}
	s.states.Set(owner, conversation.State{}.WithPending(content))
	return resp, nil
}

func (s *Service) handleList(ctx context.Context, cmd Command) (Response, error) {
	text, rows, err := s.overview(ctx, cmd.Sender.ID)
	if err != nil {
		return Response{}, err
	}
	return reply(text, rows...), nil
}

func (s *Service) handleCategories(ctx context.Context, cmd Command) (Response, error) {
	categories, err := s.categories.Visible(ctx, cmd.Sender.ID)
	if err != nil {
		return Response{}, err
	}
	var b strings.Builder
	b.WriteString("📂 <b>Categories</b>\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "%s %s", c.Emoji, escape(c.Name))
		if !c.IsGlobal() {
			b.WriteString(" <i>(yours)</i>")
		}
		b.WriteByte('\n')
	}
	return reply(strings.TrimRight(b.String(), "\n"), []Button{{Text: btnNewCategory, Data: cbNewCategory}}), nil
}

func (s *Service) handleSummary(ctx context.Context, cmd Command) (Response, error) {
	text, hasTasks, err := s.summaryText(ctx, cmd.Sender.ID)
	if err != nil {
		return Response{}, err
	}
	if !hasTasks {
		return reply(text), nil
	}
	return reply(text, []Button{{Text: "📋 View tasks", Data: cbAll}}), nil
}

func (s *Service) handleStats(ctx context.Context, cmd Command) (Response, error) {
	owner := cmd.Sender.ID
	st, err := s.stats.UserStatistics(ctx, owner, 30)
	if err != nil {
		return Response{}, err
	}
	motivation, err := s.stats.MotivationalMessage(ctx, owner)
	if err != nil {
		return Response{}, err
	}
	return reply(statsText(st, motivation),
		[]Button{{Text: "📊 Productivity chart", Data: cbChart}},
		[]Button{{Text: "⚙️ Settings", Data: cbSettings}},
	), nil
}

func (s *Service) handleChart(ctx context.Context, cmd Command) (Response, error) {
	return s.chart(ctx, cmd.Sender.ID)
}

func (s *Service) chart(ctx context.Context, ownerID int64) (Response, error) {
	points, err := s.stats.Series(ctx, ownerID, 14)
	if err != nil {
		return Response{}, err
	}
	if len(points) == 0 {
		return reply("📉 Not enough data for a chart yet. Add and complete a few tasks first."), nil
	}
	return Response{Replies: []Reply{{
		Text:      "📊 <b>Your last 14 days</b>",
		ParseMode: ParseModeHTML,
		Chart:     points,
	}}}, nil
}

// handleReminder shows the reminder the scheduler would send now.
func (s *Service) handleReminder(ctx context.Context, cmd Command) (Response, error) {
	text, ok, err := s.reminders.BuildReminder(ctx, cmd.Sender.ID)
	if err != nil {
		return Response{}, err
	}
	if !ok {
		return reply("🔕 Nothing to remind you about: no open tasks or reminders are off."), nil
	}
	return reply(text), nil
}

func (s *Service) handleBackup(ctx context.Context, cmd Command) (Response, error) {
	b, err := s.backups.Export(ctx, cmd.Sender.ID)
	if err != nil {
		return Response{}, err
	}
	data, err := b.JSON()
	if err != nil {
		return Response{}, err
	}
	return Response{Replies: []Reply{{
		Text:      fmt.Sprintf("💾 Backup ready: %d tasks, %d own categories.", len(b.Tasks), len(b.Categories)),
		ParseMode: ParseModeHTML,
		Document:  &Document{Name: b.FileName(), Data: data},
	}}}, nil
}

func (s *Service) handleSearch(ctx context.Context, cmd Command) (Response, error) {
	query := strings.TrimSpace(cmd.Args)
	if query == "" {
		return reply("🔍 <b>Search tasks</b>\n\nUsage: <code>/search text</code>\nExample: <code>/search report</code>"), nil
	}
	res, err := s.tasks.Search(ctx, cmd.Sender.ID, query)
	if err != nil {
		return Response{}, err
	}
	if res.Total == 0 {
		return reply(fmt.Sprintf("🔍 No tasks found for “%s”.", escape(query))), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 <b>Results for “%s”</b>\n\n", escape(query))
	for _, t := range res.Tasks {
		fmt.Fprintf(&b, "📋 %s\n📂 %s | 🆔 #%d\n\n", escape(t.Content), escape(t.Category), t.ID)
	}
	if more := res.Total - len(res.Tasks); more > 0 {
		fmt.Fprintf(&b, "…and %d more", more)
	}
	return reply(strings.TrimRight(b.String(), "\n")), nil
}

func (s *Service) handleDone(ctx context.Context, cmd Command) (Response, error) {
	id, ok := parseID(cmd.Args)
	if !ok {
		return reply("Tell me the task number, e.g. <code>/done 12</code>."), nil
	}
	change, err := s.tasks.Complete(ctx, cmd.Sender.ID, id)
	if errors.Is(err, service.ErrNotFound) {
		return reply(fmt.Sprintf("❓ Task #%d not found.", id)), nil
	}
	if err != nil {
		return Response{}, err
	}
	if !change.Changed {
		return reply(fmt.Sprintf("✅ Task #%d was already done.", id)), nil
	}
	return reply(fmt.Sprintf("✅ Task #%d done. Well done!", id)), nil
}

func (s *Service) handleDelete(ctx context.Context, cmd Command) (Response, error) {
	id, ok := parseID(cmd.Args)
	if !ok {
		return reply("Tell me the task number, e.g. <code>/delete 12</code>."), nil
	}
	err := s.tasks.Delete(ctx, cmd.Sender.ID, id)
	if errors.Is(err, service.ErrNotFound) {
		return reply(fmt.Sprintf("❓ Task #%d not found.", id)), nil
	}
	if err != nil {
		return Response{}, err
	}
	return reply(fmt.Sprintf("🗑 Task #%d deleted.", id)), nil
}

func (s *Service) handleSettings(ctx context.Context, cmd Command) (Response, error) {
	text, rows, err := s.settingsView(ctx, cmd.Sender.ID)
	if err != nil {
		return Response{}, err
	}
	return reply(text, rows...), nil
}

func (s *Service) handleRemind(ctx context.Context, cmd Command) (Response, error) {
	if strings.TrimSpace(cmd.Args) == "" {
		return s.handleSettings(ctx, cmd)
	}
	p, err := s.prefs.SetReminder(ctx, cmd.Sender.ID, cmd.Args)
	if msg, ok := userError(err); ok {
		return reply(msg), nil
	}
	if err != nil {
		return Response{}, err
	}
	if !p.NotificationsEnabled {
		return reply("🔕 Daily reminders are off. Turn them on with /remind HH:MM."), nil
	}
	return reply(fmt.Sprintf("⏰ Daily reminder set for %s.", p.ReminderTime)), nil
}

func (s *Service) handleGoal(ctx context.Context, cmd Command) (Response, error) {
	n, err := strconv.Atoi(strings.TrimSpace(cmd.Args))
	if err != nil {
		return reply("Tell me a number, e.g. <code>/goal 5</code>."), nil
	}
	p, err := s.prefs.SetGoal(ctx, cmd.Sender.ID, n)
	if msg, ok := userError(err); ok {
		return reply(msg), nil
	}
	if err != nil {
		return Response{}, err
	}
	return reply(fmt.Sprintf("🎯 Daily goal set to %d tasks.", p.DailyGoal)), nil
}

// handleRepeat lists, creates or stops recurring tasks:
// "/repeat", "/repeat weekly water plants", "/repeat stop 3".
func (s *Service) handleRepeat(ctx context.Context, cmd Command) (Response, error) {
	owner := cmd.Sender.ID
	fields := strings.Fields(cmd.Args)
	if len(fields) == 0 {
		return s.listRecurring(ctx, owner)
	}

	if strings.EqualFold(fields[0], "stop") {
		id, ok := parseID(strings.Join(fields[1:], ""))
		if !ok {
			return reply("Tell me which one, e.g. <code>/repeat stop 3</code>."), nil
		}
		err := s.recurring.Stop(ctx, owner, id)
		if errors.Is(err, service.ErrNotFound) {
			return reply(fmt.Sprintf("❓ Recurring task #%d not found.", id)), nil
		}
		if err != nil {
			return Response{}, err
		}
		return reply(fmt.Sprintf("⏹ Recurring task #%d stopped.", id)), nil
	}

	if len(fields) < 2 {
		return reply("Usage: <code>/repeat daily|weekly|monthly task text</code>"), nil
	}
	content := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(cmd.Args), fields[0]))
	rt, err := s.recurring.Create(ctx, owner, fields[0], content)
	if msg, ok := userError(err); ok {
		return reply(msg), nil
	}
	if err != nil {
		return Response{}, err
	}
	return reply(fmt.Sprintf("🔁 <i>%s</i> repeats %s (#%d). Added for today, next on %s.",
		escape(rt.Content), rt.Frequency, rt.ID, rt.NextDueDate)), nil
}

func (s *Service) listRecurring(ctx context.Context, ownerID int64) (Response, error) {
	list, err := s.recurring.List(ctx, ownerID)
	if err != nil {
		return Response{}, err
	}
	if len(list) == 0 {
		return reply("🔁 No recurring tasks. Create one with <code>/repeat weekly water plants</code>."), nil
	}
	var b strings.Builder
	b.WriteString("🔁 <b>Recurring tasks</b>\n")
	for _, rt := range list {
		fmt.Fprintf(&b, "#%d %s · %s · next %s\n", rt.ID, escape(rt.Content), rt.Frequency, rt.NextDueDate)
	}
	b.WriteString("\nStop one with <code>/repeat stop &lt;id&gt;</code>.")
	return reply(b.String()), nil
}
