package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"todo-assistant/internal/conversation"
	"todo-assistant/internal/service"
)

// onSelectCategory files the pending task under the chosen category.
func (s *Service) onSelectCategory(ctx context.Context, sender Sender, param string) (Response, error) {
	id, ok := parseID(param)
	if !ok {
		return Response{}, nil
	}
	st := s.states.Get(sender.ID)
	if st.Awaiting != conversation.AwaitingCategorySelection || st.Pending == nil {
		return Response{}, nil
	}

	category, err := s.categories.Get(ctx, sender.ID, id)
	if errors.Is(err, service.ErrNotFound) {
		return Response{Answer: "Category not found"}, nil
	}
	if err != nil {
		return Response{}, err
	}

	task, err := s.tasks.Create(ctx, sender.ID, st.Pending.Content, category.Name)
	if msg, ok := userError(err); ok {
		return reply(msg), nil
	}
	if err != nil {
		return Response{}, err
	}
	s.states.Clear(sender.ID)

	resp := edit(
		fmt.Sprintf("✅ Added to %s <b>%s</b>:\n<i>%s</i> <code>#%d</code>", category.Emoji, escape(category.Name), escape(task.Content), task.ID),
		[]Button{{Text: "📋 View " + category.Name, Data: callback(cbCategory, category.ID)}},
	)
	resp.Answer = "Task added"
	return resp, nil
}

func (s *Service) onViewCategory(ctx context.Context, sender Sender, param string) (Response, error) {
	id, ok := parseID(param)
	if !ok {
		return Response{}, nil
	}
	return s.viewTasks(ctx, sender.ID, id)
}

func (s *Service) onViewAll(ctx context.Context, sender Sender, _ string) (Response, error) {
	return s.viewTasks(ctx, sender.ID, 0)
}

func (s *Service) viewTasks(ctx context.Context, ownerID int64, categoryID uint) (Response, error) {
	text, rows, err := s.taskView(ctx, ownerID, categoryID)
	if errors.Is(err, service.ErrNotFound) {
		return Response{Answer: "Category not found"}, nil
	}
	if err != nil {
		return Response{}, err
	}
	return edit(text, rows...), nil
}

// taskAction parses "<taskID>[:<categoryID>]", the view to refresh afterwards.
func taskAction(param string) (taskID, view uint, ok bool) {
	rawID, rawView, hasView := strings.Cut(param, ":")
	taskID, ok = parseID(rawID)
	if !ok {
		return 0, 0, false
	}
	if hasView && rawView != "0" {
		if view, ok = parseID(rawView); !ok {
			return 0, 0, false
		}
	}
	return taskID, view, true
}

func (s *Service) onDone(ctx context.Context, sender Sender, param string) (Response, error) {
	id, view, ok := taskAction(param)
	if !ok {
		return Response{}, nil
	}
	answer := "✅ Done!"
	change, err := s.tasks.Complete(ctx, sender.ID, id)
	switch {
	case errors.Is(err, service.ErrNotFound):
		answer = "Task not found"
	case err != nil:
		return Response{}, err
	case !change.Changed:
		answer = "Already done"
	}
	resp, err := s.viewTasks(ctx, sender.ID, view)
	if err != nil {
		return Response{}, err
	}
	resp.Answer = answer
	return resp, nil
}

func (s *Service) onDelete(ctx context.Context, sender Sender, param string) (Response, error) {
	id, view, ok := taskAction(param)
	if !ok {
		return Response{}, nil
	}
	answer := "🗑 Deleted"
	err := s.tasks.Delete(ctx, sender.ID, id)
	switch {
	case errors.Is(err, service.ErrNotFound):
		answer = "Task not found"
	case err != nil:
		return Response{}, err
	}
	resp, err := s.viewTasks(ctx, sender.ID, view)
	if err != nil {
		return Response{}, err
	}
	resp.Answer = answer
	return resp, nil
}

// onNewCategory asks for a category name. A task waiting for a category stays pending.
func (s *Service) onNewCategory(_ context.Context, sender Sender, _ string) (Response, error) {
	st := s.states.Get(sender.ID)
	s.states.Set(sender.ID, conversation.State{Awaiting: conversation.AwaitingCategoryName, Pending: st.Pending})
	return reply("🆕 Send the name of the new category.\nYou can start with an emoji, e.g. <code>🌱 Garden</code>.", cancelRow()), nil
}

func (s *Service) onBack(ctx context.Context, sender Sender, _ string) (Response, error) {
	text, rows, err := s.overview(ctx, sender.ID)
	if err != nil {
		return Response{}, err
	}
	return edit(text, rows...), nil
}

func (s *Service) onChart(ctx context.Context, sender Sender, _ string) (Response, error) {
	return s.chart(ctx, sender.ID)
}

func (s *Service) onSettings(ctx context.Context, sender Sender, _ string) (Response, error) {
	return s.settings(ctx, sender.ID, "")
}

// onPreference handles "pref:notify" and "pref:goal:+1|-1".
func (s *Service) onPreference(ctx context.Context, sender Sender, param string) (Response, error) {
	what, arg, _ := strings.Cut(param, ":")
	switch what {
	case "notify":
		p, err := s.prefs.ToggleNotifications(ctx, sender.ID)
		if err != nil {
			return Response{}, err
		}
		answer := "Reminders off"
		if p.NotificationsEnabled {
			answer = "Reminders on"
		}
		return s.settings(ctx, sender.ID, answer)
	case "goal":
		var delta int
		switch arg {
		case "+1":
			delta = 1
		case "-1":
			delta = -1
		default:
			return Response{}, nil
		}
		p, err := s.prefs.AdjustGoal(ctx, sender.ID, delta)
		if err != nil {
			return Response{}, err
		}
		return s.settings(ctx, sender.ID, fmt.Sprintf("Goal: %d", p.DailyGoal))
	default:
		return Response{}, nil
	}
}

func (s *Service) settings(ctx context.Context, ownerID int64, answer string) (Response, error) {
	text, rows, err := s.settingsView(ctx, ownerID)
	if err != nil {
		return Response{}, err
	}
	resp := edit(text, rows...)
	resp.Answer = answer
	return resp, nil
}

func (s *Service) onCancel(_ context.Context, sender Sender, _ string) (Response, error) {
	s.states.Clear(sender.ID)
	resp := edit("❌ Cancelled. Nothing was saved.")
	resp.Answer = "Cancelled"
	return resp, nil
}
