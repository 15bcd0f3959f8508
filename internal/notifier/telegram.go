package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramTimeout bounds every Bot API request, including the getMe call
// made while configuring channels
var telegramTimeout = 10 * time.Second

// TelegramSender posts notifications to a Telegram chat
type TelegramSender struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSender authenticates the bot against the Telegram API
func NewTelegramSender(token string, chatID int64) (*TelegramSender, error) {
	return NewTelegramSenderWithEndpoint(token, chatID, tgbotapi.APIEndpoint, nil)
}

// NewTelegramSenderWithEndpoint is NewTelegramSender against a custom Bot API
// endpoint, in the "https://host/bot%s/%s" form. A nil client gets one with
// telegramTimeout.
func NewTelegramSenderWithEndpoint(token string, chatID int64, endpoint string, client *http.Client) (*TelegramSender, error) {
	if client == nil {
		client = &http.Client{Timeout: telegramTimeout}
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &TelegramSender{bot: bot, chatID: chatID}, nil
}

// Send implements Sender. The Bot API client takes no context, so the request
// runs in its own goroutine and Send returns when ctx is done.
func (t *TelegramSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := tgbotapi.NewMessage(t.chatID, msg.Title+"\n\n"+msg.Body)

	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(m)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram send: %w", ctx.Err())
	}
}
