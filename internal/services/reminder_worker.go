package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"agenda/internal/clock"
	"agenda/internal/models"
	"agenda/internal/store"
)

// DefaultReminderTick is how often due reminders are checked.
const DefaultReminderTick = time.Minute

// ReminderWorker finds due, unsent reminders on every tick, dispatches their
// notifications and marks them sent. Delivery is at-least-once: a crash
// between a successful dispatch and the sent-flag commit repeats the send on
// the next tick. Exactly one worker instance must run per deployment.
type ReminderWorker struct {
	store   store.Store
	senders SenderMap
	clock   clock.Clock
	tick    time.Duration
	log     zerolog.Logger
}

// NewReminderWorker builds a worker. A tick of zero means DefaultReminderTick.
func NewReminderWorker(st store.Store, senders SenderMap, clk clock.Clock, tick time.Duration, log zerolog.Logger) *ReminderWorker {
	if tick <= 0 {
		tick = DefaultReminderTick
	}
	return &ReminderWorker{
		store:   st,
		senders: senders,
		clock:   clk,
		tick:    tick,
		log:     log,
	}
}

// TickPeriod returns the worker's tick period for scheduler registration
func (w *ReminderWorker) TickPeriod() time.Duration {
	return w.tick
}

// RunTick processes one scheduler tick. Failures are isolated per reminder;
// one bad row never halts the rest of the batch.
func (w *ReminderWorker) RunTick() {
	now := w.clock.Now()

	// Look ahead one tick period so a reminder due strictly between two
	// ticks is still caught by the earlier one.
	due, err := w.store.DueUnsentReminders(now.Add(w.tick))
	if err != nil {
		w.log.Error().Err(err).Msg("failed to query due reminders")
		return
	}

	for _, reminder := range due {
		w.processReminder(reminder)
	}
}

func (w *ReminderWorker) processReminder(reminder models.Reminder) {
	event, err := w.store.GetEvent(reminder.EventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Orphan: no valid recipient can ever be resolved, skip for good.
			w.log.Warn().
				Uint("reminder_id", reminder.ID).
				Uint("event_id", reminder.EventID).
				Msg("reminder references non-existent event")
			return
		}
		w.log.Error().Err(err).Uint("reminder_id", reminder.ID).Msg("failed to resolve event")
		return
	}

	user, err := w.store.GetUser(event.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			w.log.Warn().
				Uint("event_id", event.ID).
				Uint("user_id", event.UserID).
				Msg("event references non-existent user")
			return
		}
		w.log.Error().Err(err).Uint("reminder_id", reminder.ID).Msg("failed to resolve user")
		return
	}

	sender, ok := w.senders[reminder.NotificationType]
	if !ok {
		w.log.Error().
			Uint("reminder_id", reminder.ID).
			Str("notification_type", string(reminder.NotificationType)).
			Msg("no sender registered for notification type")
		return
	}

	subject := fmt.Sprintf("Reminder: %s", event.Title)
	body := fmt.Sprintf("Hello %s, your event '%s' starts at %s. Don't miss it!",
		user.Username, event.Title, event.StartDatetime.UTC().Format("2006-01-02 15:04 UTC"))

	if err := sender.Send(recipientFor(user, reminder.NotificationType), subject, body); err != nil {
		// Transient: the reminder stays pending and is retried next tick.
		w.log.Error().Err(err).
			Uint("reminder_id", reminder.ID).
			Str("notification_type", string(reminder.NotificationType)).
			Msg("failed to dispatch reminder notification")
		return
	}

	// Mark sent strictly after the dispatch returned; the external call
	// cannot be rolled back, so it must never sit inside the same step.
	if err := w.store.MarkReminderSent(reminder.ID); err != nil {
		w.log.Error().Err(err).
			Uint("reminder_id", reminder.ID).
			Msg("dispatched but failed to mark reminder sent, it will be re-sent")
		return
	}

	w.log.Info().
		Uint("reminder_id", reminder.ID).
		Str("username", user.Username).
		Str("event_title", event.Title).
		Time("event_start", event.StartDatetime).
		Msg("reminder notification sent")
}

// recipientFor picks the transport address for a user on a given channel
func recipientFor(user *models.User, t models.NotificationType) string {
	if t == models.NotifyEmail {
		return user.Email
	}
	// Push and SMS route by account until device/phone records exist.
	return user.Username
}
