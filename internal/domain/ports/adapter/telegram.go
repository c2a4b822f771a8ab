// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

// ParseModeHTML marks a message body as Telegram HTML. Plain messages leave
// ParseMode empty.
const ParseModeHTML = "HTML"

// InlineButton is one key of an inline keyboard. URL opens a link, Data is
// sent back as a callback query.
type InlineButton struct {
	Text string
	Data string
	URL  string
}

// SendMessageParams describes one outgoing chat message.
type SendMessageParams struct {
	ChatID    int64
	Text      string
	ParseMode string
	Buttons   [][]InlineButton
}

type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, p SendMessageParams) error
	// SetMenuCommands installs the command menu for one chat. Admin chats
	// additionally see the admin commands.
	SetMenuCommands(ctx context.Context, chatID int64, isAdmin bool) error
}
