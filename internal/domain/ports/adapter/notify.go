package adapter

import "context"

// EmailMessage is one outbound email.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// EmailSender is the port for the transactional email provider.
type EmailSender interface {
	Name() string
	Send(ctx context.Context, msg EmailMessage) error
}

// WhatsAppSender is the port for the WhatsApp Business API.
type WhatsAppSender interface {
	Name() string
	Send(ctx context.Context, phone, text string) error
}

// ReminderCopy is the rendered content of one recovery message.
type ReminderCopy struct {
	Subject string
	Body    string
}

// ReminderComposer drafts recovery message copy. Implementations may call a
// text-generation API; they must always return usable copy (template
// fallback) rather than an error for content problems.
type ReminderComposer interface {
	Compose(ctx context.Context, planName, amount, currency, paymentURL string) (ReminderCopy, error)
}

// AlertSender delivers operator alerts (escalation channel, not buyer-facing).
type AlertSender interface {
	SendAlert(ctx context.Context, text string) error
}
