package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeConfirmationSend = "notification:confirmation"
	TypeReminderSend     = "notification:reminder"

	QueueNotifications = "notifications"
)

// ConfirmationPayload identifies the transaction whose confirmation is due.
type ConfirmationPayload struct {
	TransactionID string `json:"transaction_id"`
}

// ReminderPayload identifies the abandoned-payment reminder to deliver.
type ReminderPayload struct {
	ReminderID string `json:"reminder_id"`
}

func NewConfirmationTask(transactionID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ConfirmationPayload{TransactionID: transactionID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeConfirmationSend, payload), nil
}

func NewReminderTask(reminderID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReminderPayload{ReminderID: reminderID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReminderSend, payload), nil
}
