package notify

import (
	"context"

	"github.com/rs/zerolog"

	"iptv-subscription-backend/internal/domain/ports/adapter"
)

var (
	_ adapter.EmailSender    = (*NoopEmailSender)(nil)
	_ adapter.WhatsAppSender = (*NoopWhatsAppSender)(nil)
)

// NoopEmailSender logs the message instead of sending it. Used in dev
// deployments without provider credentials.
type NoopEmailSender struct {
	log *zerolog.Logger
}

func NewNoopEmailSender(logger *zerolog.Logger) *NoopEmailSender {
	l := logger.With().Str("component", "NoopEmail").Logger()
	return &NoopEmailSender{log: &l}
}

func (s *NoopEmailSender) Name() string { return "email" }

func (s *NoopEmailSender) Send(ctx context.Context, msg adapter.EmailMessage) error {
	s.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email dropped (noop)")
	return nil
}

// NoopWhatsAppSender logs the message instead of sending it.
type NoopWhatsAppSender struct {
	log *zerolog.Logger
}

func NewNoopWhatsAppSender(logger *zerolog.Logger) *NoopWhatsAppSender {
	l := logger.With().Str("component", "NoopWhatsApp").Logger()
	return &NoopWhatsAppSender{log: &l}
}

func (s *NoopWhatsAppSender) Name() string { return "whatsapp" }

func (s *NoopWhatsAppSender) Send(ctx context.Context, phone, text string) error {
	s.log.Info().Str("phone", phone).Msg("whatsapp dropped (noop)")
	return nil
}
