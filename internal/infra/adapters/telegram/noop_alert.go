package telegram

import (
	"context"
	"log"

	"iptv-subscription-backend/internal/domain/ports/adapter"
)

var _ adapter.AlertSender = (*NoopAlertSender)(nil)

// NoopAlertSender logs alerts instead of sending them; used in dev and tests.
type NoopAlertSender struct{}

func NewNoopAlertSender() *NoopAlertSender { return &NoopAlertSender{} }

func (NoopAlertSender) SendAlert(ctx context.Context, text string) error {
	log.Printf("[noop-alert] %s\n", text)
	return nil
}
