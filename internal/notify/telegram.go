package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gridbot/internal/config"
)

// TelegramNotifier sends trade events to a Telegram chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier authenticates the bot once at startup.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (t *TelegramNotifier) Notify(ctx context.Context, text string) error {
	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text))
	return err
}

// NewNotifier returns the telegram notifier when configured, Nop otherwise.
func NewNotifier(logger *slog.Logger, cfg config.NotifierConfig) Notifier {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == 0 {
		return Nop{}
	}
	n, err := NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		logger.Error("telegram notifier disabled", "error", err)
		return Nop{}
	}
	return n
}
