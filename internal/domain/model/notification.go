package model

import "time"

type NotificationKind string

const (
	NotificationKindConfirmation NotificationKind = "confirmation"
	NotificationKindReminder     NotificationKind = "reminder"
)

type NotificationChannel string

const (
	NotificationChannelEmail    NotificationChannel = "email"
	NotificationChannelWhatsApp NotificationChannel = "whatsapp"
)

// NotificationLog records each dispatched (or failed) outbound notification.
// Dispatch is best-effort; the log is how failures stay visible.
type NotificationLog struct {
	ID            string // UUID
	TransactionID string
	Kind          NotificationKind
	Channel       NotificationChannel
	Recipient     string
	OK            bool
	Error         string
	CreatedAt     time.Time
}
