package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"iptv-subscription-backend/internal/domain/ports/adapter"
)

var _ adapter.AlertSender = (*AlertBot)(nil)

// AlertBot delivers operator alerts to a fixed Telegram chat. It is a one-way
// channel; the bot never polls for updates.
type AlertBot struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *zerolog.Logger
}

func NewAlertBot(token string, chatID int64, logger *zerolog.Logger) (*AlertBot, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram alert token or chat id empty")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "AlertBot").Logger()
	return &AlertBot{api: api, chatID: chatID, log: &l}, nil
}

func (b *AlertBot) SendAlert(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error().Err(err).Msg("alert send failed")
		return err
	}
	return nil
}
