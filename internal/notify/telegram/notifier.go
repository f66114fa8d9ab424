// Package telegram delivers notifications through the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier implements track.Notifier on a shared bot client. Owner identity
// is the chat id in decimal form.
type Notifier struct {
	api *tgbotapi.BotAPI
}

// New wraps an existing bot client.
func New(api *tgbotapi.BotAPI) *Notifier {
	return &Notifier{api: api}
}

// Send posts a plain text message to the owner's chat.
func (n *Notifier) Send(ctx context.Context, owner, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send canceled: %w", err)
	}
	chatID, err := strconv.ParseInt(owner, 10, 64)
	if err != nil {
		return fmt.Errorf("owner %q is not a chat id: %w", owner, err)
	}
	if _, err := n.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
