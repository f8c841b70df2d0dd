package assistant

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"todo-assistant/internal/model"
	"todo-assistant/internal/service"
)

const (
	cbSelect      = "select"
	cbCategory    = "cat"
	cbAll         = "all"
	cbDone        = "done"
	cbDelete      = "del"
	cbNewCategory = "newcat"
	cbBack        = "back"
	cbChart       = "chart"
	cbSettings    = "settings"
	cbPref        = "pref"
	cbCancel      = "cancel"

	btnCancel      = "❌ Cancel"
	btnNewCategory = "➕ New category"
	btnAllTasks    = "📋 All tasks"
	btnBack        = "🔙 Back to categories"
)

func splitCallback(data string) (tag, param string) {
	tag, param, _ = strings.Cut(strings.TrimSpace(data), ":")
	return tag, param
}

// parseID reads a positive numeric id.
func parseID(raw string) (uint, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

func callback(tag string, params ...any) string {
	parts := []string{tag}
	for _, p := range params {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, ":")
}

func escape(s string) string {
	return html.EscapeString(s)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func shortText(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

func cancelRow() []Button {
	return []Button{{Text: btnCancel, Data: cbCancel}}
}

// categoryKeyboard offers every visible category for a pending task.
func categoryKeyboard(categories []model.Category) [][]Button {
	var rows [][]Button
	var row []Button
	for _, c := range categories {
		row = append(row, Button{Text: c.Emoji + " " + c.Name, Data: callback(cbSelect, c.ID)})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []Button{{Text: btnNewCategory, Data: cbNewCategory}}, cancelRow())
	return rows
}

func (s *Service) categoryPrompt(ctx context.Context, ownerID int64, content string) (Response, error) {
	categories, err := s.categories.Visible(ctx, ownerID)
	if err != nil {
		return Response{}, err
	}
	text := fmt.Sprintf("📂 Pick a category for:\n<i>%s</i>", escape(content))
	return reply(text, categoryKeyboard(categories)...), nil
}

// overview is the /list screen: one button per category with open tasks.
func (s *Service) overview(ctx context.Context, ownerID int64) (string, [][]Button, error) {
	summary, err := s.tasks.Summary(ctx, ownerID)
	if err != nil {
		return "", nil, err
	}
	if len(summary) == 0 {
		return "🎉 No open tasks. Use /add to create one.", nil, nil
	}
	categories, err := s.categories.Visible(ctx, ownerID)
	if err != nil {
		return "", nil, err
	}
	byName := make(map[string]model.Category, len(categories))
	for _, c := range categories {
		byName[c.Name] = c
	}

	var total int64
	var rows [][]Button
	for _, row := range summary {
		total += row.Count
		c, ok := byName[row.Category]
		if !ok {
			continue
		}
		rows = append(rows, []Button{{
			Text: fmt.Sprintf("%s %s (%d)", c.Emoji, c.Name, row.Count),
			Data: callback(cbCategory, c.ID),
		}})
	}
	rows = append(rows, []Button{{Text: fmt.Sprintf("%s (%d)", btnAllTasks, total), Data: cbAll}})
	return fmt.Sprintf("📋 <b>Your tasks</b>\nOpen: %d. Pick a category:", total), rows, nil
}

// taskView lists open tasks with done/delete buttons. A zero categoryID shows every category.
func (s *Service) taskView(ctx context.Context, ownerID int64, categoryID uint) (string, [][]Button, error) {
	var (
		filter string
		title  = "📋 <b>All open tasks</b>"
	)
	if categoryID != 0 {
		c, err := s.categories.Get(ctx, ownerID, categoryID)
		if err != nil {
			return "", nil, err
		}
		filter = c.Name
		title = fmt.Sprintf("%s <b>%s</b>", c.Emoji, escape(c.Name))
	}

	tasks, err := s.tasks.List(ctx, ownerID, filter)
	if err != nil {
		return "", nil, err
	}
	back := []Button{{Text: btnBack, Data: cbBack}}
	if len(tasks) == 0 {
		return title + "\n\nNothing left here. 🎉", [][]Button{back}, nil
	}

	var emoji map[string]string
	if categoryID == 0 {
		categories, err := s.categories.Visible(ctx, ownerID)
		if err != nil {
			return "", nil, err
		}
		emoji = service.EmojiIndex(categories)
	}

	limit := s.limits.MaxTasksPerPage
	if limit <= 0 {
		limit = len(tasks)
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	var rows [][]Button
	current := ""
	for i, t := range tasks {
		if i == limit {
			fmt.Fprintf(&b, "\n…and %d more", len(tasks)-limit)
			break
		}
		if categoryID == 0 && t.Category != current {
			current = t.Category
			fmt.Fprintf(&b, "\n%s <b>%s</b>\n", service.EmojiFor(emoji, t.Category), escape(t.Category))
		}
		fmt.Fprintf(&b, "• %s <code>#%d</code>\n", escape(t.Content), t.ID)
		rows = append(rows, []Button{
			{Text: fmt.Sprintf("✅ #%d %s", t.ID, shortText(t.Content, 20)), Data: callback(cbDone, t.ID, categoryID)},
			{Text: "🗑", Data: callback(cbDelete, t.ID, categoryID)},
		})
	}
	rows = append(rows, back)
	return strings.TrimRight(b.String(), "\n"), rows, nil
}

func (s *Service) settingsView(ctx context.Context, ownerID int64) (string, [][]Button, error) {
	p, err := s.prefs.Get(ctx, ownerID)
	if err != nil {
		return "", nil, err
	}
	state, toggle := "off 🔕", "🔔 Turn reminders on"
	if p.NotificationsEnabled {
		state, toggle = "on 🔔", "🔕 Turn reminders off"
	}
	text := fmt.Sprintf("⚙️ <b>Settings</b>\n\n⏰ Daily reminder: %s at %s\n🎯 Daily goal: %d tasks\n\nChange the time with /remind HH:MM.",
		state, escape(p.ReminderTime), p.DailyGoal)
	rows := [][]Button{
		{{Text: toggle, Data: callback(cbPref, "notify")}},
		{{Text: "➖ Goal", Data: callback(cbPref, "goal", "-1")}, {Text: "➕ Goal", Data: callback(cbPref, "goal", "+1")}},
	}
	return text, rows, nil
}

var medals = []string{"🥇", "🥈", "🥉"}

func statsText(st service.Statistics, motivation string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Your statistics (last %d days)</b>\n\n", st.WindowDays)
	b.WriteString("📈 <b>Activity</b>\n")
	fmt.Fprintf(&b, "• Created: %d\n", st.TotalCreated)
	fmt.Fprintf(&b, "• Completed: %d\n", st.TotalCompleted)
	fmt.Fprintf(&b, "• Open now: %d\n", st.OpenTasks)
	fmt.Fprintf(&b, "• Completion rate: %.1f%%\n\n", st.CompletionRate)
	fmt.Fprintf(&b, "🎯 <b>Average productivity:</b> %.1f\n", st.AvgProductivity)
	fmt.Fprintf(&b, "📅 <b>Active days:</b> %d of %d\n", st.ActiveDays, st.WindowDays)
	if len(st.TopCategories) > 0 {
		b.WriteString("\n🏆 <b>Top categories</b>\n")
		for i, c := range st.TopCategories {
			if i == len(medals) {
				break
			}
			fmt.Fprintf(&b, "%s %s: %d\n", medals[i], escape(c.Category), c.Count)
		}
	}
	fmt.Fprintf(&b, "\n💪 %s", escape(motivation))
	return b.String()
}

func (s *Service) summaryText(ctx context.Context, ownerID int64) (string, bool, error) {
	summary, err := s.tasks.Summary(ctx, ownerID)
	if err != nil {
		return "", false, err
	}
	if len(summary) == 0 {
		return "🎉 No open tasks. Use /add to create one.", false, nil
	}
	categories, err := s.categories.Visible(ctx, ownerID)
	if err != nil {
		return "", false, err
	}
	emoji := service.EmojiIndex(categories)

	var b strings.Builder
	b.WriteString("📝 <b>Summary of open tasks</b>\n\n")
	var total int64
	for _, row := range summary {
		total += row.Count
		fmt.Fprintf(&b, "%s <b>%s</b>: %d\n", service.EmojiFor(emoji, row.Category), escape(row.Category), row.Count)
	}
	fmt.Fprintf(&b, "\n📊 Total: <b>%d</b>", total)
	return b.String(), true, nil
}
