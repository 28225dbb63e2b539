package services

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenda/internal/models"
	"agenda/internal/store"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// recordingSender records every dispatch and can be told to fail.
type recordingSender struct {
	sent []sentMessage
	err  error
}

type sentMessage struct {
	Recipient string
	Subject   string
	Body      string
}

func (s *recordingSender) Send(recipient, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

var workerNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type workerFixture struct {
	store  *store.MemoryStore
	clock  *fakeClock
	email  *recordingSender
	worker *ReminderWorker
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	st := store.NewMemoryStore()
	clk := &fakeClock{now: workerNow}
	email := &recordingSender{}
	senders := SenderMap{models.NotifyEmail: email}
	return &workerFixture{
		store:  st,
		clock:  clk,
		email:  email,
		worker: NewReminderWorker(st, senders, clk, time.Minute, zerolog.Nop()),
	}
}

func (f *workerFixture) addUserAndEvent(t *testing.T, start time.Time) *models.Event {
	t.Helper()
	f.store.PutUser(&models.User{ID: 1, Username: "alice", Email: "alice@example.com"})
	event := &models.Event{UserID: 1, Title: "Team sync", StartDatetime: start}
	require.NoError(t, f.store.CreateEvent(event))
	return event
}

func (f *workerFixture) addReminder(t *testing.T, eventID uint, at time.Time) *models.Reminder {
	t.Helper()
	reminder := &models.Reminder{
		EventID:          eventID,
		ReminderTime:     at,
		NotificationType: models.NotifyEmail,
	}
	require.NoError(t, f.store.CreateReminder(reminder))
	return reminder
}

func (f *workerFixture) reminderSent(t *testing.T, id uint) bool {
	t.Helper()
	reminders, err := f.store.DueUnsentReminders(workerNow.Add(24 * time.Hour))
	require.NoError(t, err)
	for _, r := range reminders {
		if r.ID == id {
			return false
		}
	}
	return true
}

func TestRunTickSendsDueReminder(t *testing.T) {
	f := newWorkerFixture(t)
	event := f.addUserAndEvent(t, workerNow.Add(30*time.Minute))
	reminder := f.addReminder(t, event.ID, workerNow.Add(-time.Second))

	f.worker.RunTick()

	require.Len(t, f.email.sent, 1)
	msg := f.email.sent[0]
	assert.Equal(t, "alice@example.com", msg.Recipient)
	assert.Equal(t, "Reminder: Team sync", msg.Subject)
	assert.Equal(t, "Hello alice, your event 'Team sync' starts at 2024-06-01 12:30 UTC. Don't miss it!", msg.Body)
	assert.True(t, f.reminderSent(t, reminder.ID))
}

func TestRunTickLooksAheadOneTick(t *testing.T) {
	f := newWorkerFixture(t)
	event := f.addUserAndEvent(t, workerNow.Add(time.Hour))

	// Due 30 seconds from now, between this tick and the next: must be
	// caught by this one.
	within := f.addReminder(t, event.ID, workerNow.Add(30*time.Second))
	// Due well past the next tick: left alone.
	beyond := f.addReminder(t, event.ID, workerNow.Add(5*time.Minute))

	f.worker.RunTick()

	assert.Len(t, f.email.sent, 1)
	assert.True(t, f.reminderSent(t, within.ID))
	assert.False(t, f.reminderSent(t, beyond.ID))
}

func TestRunTickFailedDispatchStaysPending(t *testing.T) {
	f := newWorkerFixture(t)
	event := f.addUserAndEvent(t, workerNow.Add(time.Hour))
	reminder := f.addReminder(t, event.ID, workerNow.Add(-time.Second))

	f.email.err = errors.New("smtp unreachable")
	f.worker.RunTick()

	assert.Empty(t, f.email.sent)
	assert.False(t, f.reminderSent(t, reminder.ID))

	// Next tick with a healthy sender delivers it.
	f.email.err = nil
	f.worker.RunTick()

	assert.Len(t, f.email.sent, 1)
	assert.True(t, f.reminderSent(t, reminder.ID))
}

func TestRunTickSkipsAlreadySent(t *testing.T) {
	f := newWorkerFixture(t)
	event := f.addUserAndEvent(t, workerNow.Add(time.Hour))
	reminder := f.addReminder(t, event.ID, workerNow.Add(-time.Second))
	require.NoError(t, f.store.MarkReminderSent(reminder.ID))

	f.worker.RunTick()

	assert.Empty(t, f.email.sent)
}

func TestRunTickSkipsOrphanedEvent(t *testing.T) {
	f := newWorkerFixture(t)
	f.addReminder(t, 42, workerNow.Add(-time.Second))

	f.worker.RunTick()

	assert.Empty(t, f.email.sent)
	// The orphan is skipped without being marked, so it surfaces again next
	// tick rather than being silently consumed.
	due, err := f.store.DueUnsentReminders(workerNow)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestRunTickSkipsOrphanedUser(t *testing.T) {
	f := newWorkerFixture(t)
	event := &models.Event{UserID: 77, Title: "Ghost", StartDatetime: workerNow.Add(time.Hour)}
	require.NoError(t, f.store.CreateEvent(event))
	f.addReminder(t, event.ID, workerNow.Add(-time.Second))

	f.worker.RunTick()

	assert.Empty(t, f.email.sent)
}

func TestRunTickMissingSenderLeavesPending(t *testing.T) {
	f := newWorkerFixture(t)
	event := f.addUserAndEvent(t, workerNow.Add(time.Hour))
	reminder := &models.Reminder{
		EventID:          event.ID,
		ReminderTime:     workerNow.Add(-time.Second),
		NotificationType: models.NotifySMS,
	}
	require.NoError(t, f.store.CreateReminder(reminder))

	f.worker.RunTick()

	assert.Empty(t, f.email.sent)
	assert.False(t, f.reminderSent(t, reminder.ID))
}

func TestRunTickIsolatesFailures(t *testing.T) {
	f := newWorkerFixture(t)
	event := f.addUserAndEvent(t, workerNow.Add(time.Hour))

	// An orphan sorts first but must not stop the healthy reminder after it.
	f.addReminder(t, 42, workerNow.Add(-2*time.Second))
	healthy := f.addReminder(t, event.ID, workerNow.Add(-time.Second))

	f.worker.RunTick()

	assert.Len(t, f.email.sent, 1)
	assert.True(t, f.reminderSent(t, healthy.ID))
}

func TestNewReminderWorkerDefaultsTick(t *testing.T) {
	w := NewReminderWorker(store.NewMemoryStore(), SenderMap{}, &fakeClock{now: workerNow}, 0, zerolog.Nop())
	assert.Equal(t, DefaultReminderTick, w.TickPeriod())
}
