package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"iptv-subscription-backend/internal/domain/model"
	"iptv-subscription-backend/internal/domain/ports/adapter"
	"iptv-subscription-backend/internal/domain/ports/repository"
	"iptv-subscription-backend/internal/infra/metrics"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationUseCase performs the actual outbound sends. It is invoked from
// the queue consumer, never inline with a payment mutation; every send is
// best-effort and failures are recorded, not propagated to the payer.
type NotificationUseCase interface {
	// SendConfirmation emails (and optionally WhatsApps) the buyer after a
	// completed payment. Idempotent per transaction/channel.
	SendConfirmation(ctx context.Context, transactionID string) error
	// SendReminder delivers one abandoned-payment reminder and bumps its
	// send counter.
	SendReminder(ctx context.Context, reminderID string) error
}

type notificationUC struct {
	ledger    repository.TransactionRepository
	plans     repository.PlanRepository
	subs      repository.SubscriptionRepository
	reminders repository.ReminderRepository
	logRepo   repository.NotificationLogRepository
	email     adapter.EmailSender
	whatsapp  adapter.WhatsAppSender
	composer  adapter.ReminderComposer
	log       *zerolog.Logger
}

func NewNotificationUseCase(
	ledger repository.TransactionRepository,
	plans repository.PlanRepository,
	subs repository.SubscriptionRepository,
	reminders repository.ReminderRepository,
	logRepo repository.NotificationLogRepository,
	email adapter.EmailSender,
	whatsapp adapter.WhatsAppSender,
	composer adapter.ReminderComposer,
	logger *zerolog.Logger,
) *notificationUC {
	l := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{
		ledger:    ledger,
		plans:     plans,
		subs:      subs,
		reminders: reminders,
		logRepo:   logRepo,
		email:     email,
		whatsapp:  whatsapp,
		composer:  composer,
		log:       &l,
	}
}

func (u *notificationUC) SendConfirmation(ctx context.Context, transactionID string) error {
	t, err := u.ledger.FindByID(ctx, nil, transactionID)
	if err != nil {
		return err
	}
	plan, err := u.plans.FindByID(ctx, nil, t.PlanID)
	if err != nil {
		return err
	}
	sub, err := u.subs.FindByTransactionID(ctx, nil, t.ID)
	expiry := "your account page"
	if err == nil && sub != nil {
		expiry = sub.EndDate.Format("2 January 2006")
	}

	sent, err := u.logRepo.Exists(ctx, nil, t.ID, model.NotificationKindConfirmation, model.NotificationChannelEmail)
	if err == nil && !sent {
		msg := adapter.EmailMessage{
			To:      t.Email,
			Subject: fmt.Sprintf("Your %s subscription is active", plan.Name),
			Text: fmt.Sprintf(
				"Thanks for your purchase! Your %s subscription is active until %s. Amount paid: %s %s.",
				plan.Name, expiry, t.FinalAmount.StringFixed(2), t.Currency,
			),
		}
		u.deliverEmail(ctx, t.ID, model.NotificationKindConfirmation, msg)
	}

	if t.Contact != "" {
		sent, err := u.logRepo.Exists(ctx, nil, t.ID, model.NotificationKindConfirmation, model.NotificationChannelWhatsApp)
		if err == nil && !sent {
			text := fmt.Sprintf("Your %s subscription is active until %s. Enjoy!", plan.Name, expiry)
			u.deliverWhatsApp(ctx, t.ID, model.NotificationKindConfirmation, t.Contact, text)
		}
	}
	return nil
}

func (u *notificationUC) SendReminder(ctx context.Context, reminderID string) error {
	r, err := u.reminders.FindByID(ctx, nil, reminderID)
	if err != nil {
		return err
	}

	copyText, err := u.composer.Compose(ctx, r.PlanName, r.Amount.StringFixed(2), r.Currency, r.PaymentURL)
	if err != nil {
		// composer always has a template fallback; an error here is a bug
		u.log.Warn().Err(err).Str("reminder_id", r.ID).Msg("composer error; using plain copy")
		copyText = adapter.ReminderCopy{
			Subject: "Complete your subscription purchase",
			Body:    fmt.Sprintf("Your %s order (%s %s) is waiting. Finish checkout here: %s", r.PlanName, r.Amount.StringFixed(2), r.Currency, r.PaymentURL),
		}
	}

	u.deliverEmail(ctx, r.TransactionID, model.NotificationKindReminder, adapter.EmailMessage{
		To:      r.Email,
		Subject: copyText.Subject,
		Text:    copyText.Body,
	})
	if r.Contact != "" {
		u.deliverWhatsApp(ctx, r.TransactionID, model.NotificationKindReminder, r.Contact, copyText.Body)
	}

	if err := u.reminders.MarkSent(ctx, nil, r.ID, time.Now()); err != nil {
		return err
	}
	metrics.IncReminderSent()
	return nil
}

func (u *notificationUC) deliverEmail(ctx context.Context, transactionID string, kind model.NotificationKind, msg adapter.EmailMessage) {
	err := u.email.Send(ctx, msg)
	u.record(ctx, transactionID, kind, model.NotificationChannelEmail, msg.To, err)
}

func (u *notificationUC) deliverWhatsApp(ctx context.Context, transactionID string, kind model.NotificationKind, phone, text string) {
	err := u.whatsapp.Send(ctx, phone, text)
	u.record(ctx, transactionID, kind, model.NotificationChannelWhatsApp, phone, err)
}

func (u *notificationUC) record(ctx context.Context, transactionID string, kind model.NotificationKind, channel model.NotificationChannel, recipient string, sendErr error) {
	metrics.IncNotification(string(channel), sendErr == nil)
	l := &model.NotificationLog{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		Kind:          kind,
		Channel:       channel,
		Recipient:     recipient,
		OK:            sendErr == nil,
		CreatedAt:     time.Now(),
	}
	if sendErr != nil {
		l.Error = sendErr.Error()
		u.log.Error().Err(sendErr).Str("tx_id", transactionID).Str("channel", string(channel)).Msg("notification send failed")
	}
	if err := u.logRepo.Save(ctx, nil, l); err != nil {
		u.log.Warn().Err(err).Str("tx_id", transactionID).Msg("failed to record notification log")
	}
}
