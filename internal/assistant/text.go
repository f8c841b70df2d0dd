package assistant

import (
	"context"
	"errors"
	"fmt"

	"todo-assistant/internal/conversation"
	"todo-assistant/internal/service"
)

func (s *Service) handleText(ctx context.Context, msg TextMessage, st conversation.State) (Response, error) {
	owner := msg.Sender.ID
	switch st.Awaiting {
	case conversation.AwaitingTaskContent:
		content, err := s.tasks.ValidateContent(msg.Text)
		if text, ok := userError(err); ok {
			return reply(text+"\nSend the task text again.", cancelRow()), nil
		}
		if err != nil {
			return Response{}, err
		}
		resp, err := s.categoryPrompt(ctx, owner, content)
		if err != nil {
			return Response{}, err
		}
		s.states.Set(owner, st.WithPending(content))
		return resp, nil

	case conversation.AwaitingCategorySelection:
		content := ""
		if st.Pending != nil {
			content = st.Pending.Content
		}
		return s.categoryPrompt(ctx, owner, content)

	case conversation.AwaitingCategoryName:
		return s.createCategory(ctx, owner, msg.Text, st)

	default:
		return reply("🤔 I'm not sure what to do with that. Use /add to create a task or /help to see all commands."), nil
	}
}

func (s *Service) createCategory(ctx context.Context, owner int64, input string, st conversation.State) (Response, error) {
	c, err := s.categories.Create(ctx, owner, input)
	if errors.Is(err, service.ErrConflict) {
		return reply("⚠️ You already have a category with that name. Send another name or /cancel.", cancelRow()), nil
	}
	if text, ok := userError(err); ok {
		return reply(text+"\nSend another name or /cancel.", cancelRow()), nil
	}
	if err != nil {
		return Response{}, err
	}

	created := fmt.Sprintf("✅ Category %s <b>%s</b> created.", c.Emoji, escape(c.Name))
	if st.Pending == nil {
		s.states.Clear(owner)
		return reply(created), nil
	}

	// Back to choosing a category for the task that was waiting.
	prompt, err := s.categoryPrompt(ctx, owner, st.Pending.Content)
	if err != nil {
		s.logger.Warn("reopen category selection failed", "user_id", owner, "error", err)
		s.states.Clear(owner)
		return reply(created), nil
	}
	s.states.Set(owner, conversation.State{Awaiting: conversation.AwaitingCategorySelection, Pending: st.Pending})
	prompt.Replies = append([]Reply{{Text: created, ParseMode: ParseModeHTML}}, prompt.Replies...)
	return prompt, nil
}
