// Package assistant turns chat events into replies. It knows nothing about the
// transport: the Telegram adapter feeds it events and renders its responses.
package assistant

import (
	"strings"

	"todo-assistant/internal/model"
)

// ParseModeHTML marks reply text that uses Telegram HTML markup.
const ParseModeHTML = "HTML"

// Sender identifies who produced an event.
type Sender struct {
	ID        int64
	ChatID    int64
	FirstName string
	LastName  string
	Username  string
}

// Command is a slash command such as "/search milk".
type Command struct {
	Name   string
	Args   string
	Sender Sender
}

// TextMessage is any message that is not a command.
type TextMessage struct {
	Text   string
	Sender Sender
}

// CallbackEvent is an inline button press carrying "tag:param" data.
type CallbackEvent struct {
	Data   string
	Sender Sender
}

// Button is an inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Document is a file attached to a reply.
type Document struct {
	Name string
	Data []byte
}

// Reply is one outgoing message. Edit asks the transport to replace the
// message that carried the button instead of sending a new one.
type Reply struct {
	Text      string
	Buttons   [][]Button
	ParseMode string
	Edit      bool
	Chart     []model.DailyPoint
	Document  *Document
}

// Response is everything produced for one event. Answer is the short
// acknowledgement shown for a button press.
type Response struct {
	Replies []Reply
	Answer  string
}

func reply(text string, buttons ...[]Button) Response {
	return Response{Replies: []Reply{{Text: text, Buttons: buttons, ParseMode: ParseModeHTML}}}
}

func edit(text string, buttons ...[]Button) Response {
	return Response{Replies: []Reply{{Text: text, Buttons: buttons, ParseMode: ParseModeHTML, Edit: true}}}
}

// NormalizeCommand lowercases a command name and strips "/" and "@botname".
func NormalizeCommand(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}
