package planner

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenda/internal/models"
	"agenda/internal/store"
)

// fakeClock returns a fixed instant so timing invariants can be tested
// deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestPlanner(t *testing.T) (*Planner, *store.MemoryStore, *fakeClock) {
	t.Helper()
	st := store.NewMemoryStore()
	clk := &fakeClock{now: testNow}
	return New(st, clk, zerolog.Nop()), st, clk
}

func makeEvent(t *testing.T, st *store.MemoryStore, start time.Time) *models.Event {
	t.Helper()
	event := &models.Event{UserID: 1, Title: "Dentist", StartDatetime: start}
	require.NoError(t, st.CreateEvent(event))
	return event
}

func TestComputeRelative(t *testing.T) {
	start := time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 2, 9, 30, 0, 0, time.UTC), ComputeRelative(start, 30))
	assert.Equal(t, start, ComputeRelative(start, 0))
}

func TestValidateAbsolute(t *testing.T) {
	anchor := testNow.Add(2 * time.Hour)

	assert.NoError(t, ValidateAbsolute(testNow.Add(time.Hour), anchor, testNow))

	// Boundaries are exclusive on both ends.
	assert.Error(t, ValidateAbsolute(testNow, anchor, testNow))
	assert.Error(t, ValidateAbsolute(anchor, anchor, testNow))
	assert.Error(t, ValidateAbsolute(testNow.Add(-time.Minute), anchor, testNow))
	assert.Error(t, ValidateAbsolute(anchor.Add(time.Minute), anchor, testNow))
}

func TestCreateRelativeReminder(t *testing.T) {
	p, st, _ := newTestPlanner(t)
	event := makeEvent(t, st, testNow.Add(2*time.Hour))

	reminder, err := p.Create(event, Relative{MinutesBefore: 30}, models.NotifyEmail)
	require.NoError(t, err)

	assert.Equal(t, event.StartDatetime.Add(-30*time.Minute), reminder.ReminderTime)
	assert.True(t, reminder.IsRelative)
	require.NotNil(t, reminder.MinutesBefore)
	assert.Equal(t, 30, *reminder.MinutesBefore)
	assert.False(t, reminder.NotificationSent)

	stored, err := st.ReminderByEventAndTime(event.ID, reminder.ReminderTime)
	require.NoError(t, err)
	assert.Equal(t, reminder.ID, stored.ID)
}

func TestCreateRelativeReminderInPast(t *testing.T) {
	p, st, _ := newTestPlanner(t)
	// Event starts in 10 minutes; 30 minutes before is already gone.
	event := makeEvent(t, st, testNow.Add(10*time.Minute))

	_, err := p.Create(event, Relative{MinutesBefore: 30}, models.NotifyEmail)
	require.Error(t, err)
	assert.EqualError(t, err, "calculated reminder time cannot be in the past")
}

func TestCreateRejectsNegativeMinutesBefore(t *testing.T) {
	p, st, _ := newTestPlanner(t)
	event := makeEvent(t, st, testNow.Add(2*time.Hour))

	_, err := p.Create(event, Relative{MinutesBefore: -5}, models.NotifyEmail)
	assert.EqualError(t, err, "minutes_before must be a non-negative integer")
}

func TestCreateAbsoluteReminder(t *testing.T) {
	p, st, _ := newTestPlanner(t)
	event := makeEvent(t, st, testNow.Add(2*time.Hour))
	at := testNow.Add(time.Hour)

	reminder, err := p.Create(event, Absolute{Time: at}, models.NotifyPush)
	require.NoError(t, err)

	assert.Equal(t, at, reminder.ReminderTime)
	assert.False(t, reminder.IsRelative)
	assert.Nil(t, reminder.MinutesBefore)
	assert.Equal(t, models.NotifyPush, reminder.NotificationType)
}

func TestCreateAbsoluteReminderBounds(t *testing.T) {
	p, st, _ := newTestPlanner(t)
	event := makeEvent(t, st, testNow.Add(2*time.Hour))

	_, err := p.Create(event, Absolute{Time: testNow.Add(-time.Hour)}, models.NotifyEmail)
	assert.EqualError(t, err, "reminder time cannot be in the past")

	_, err = p.Create(event, Absolute{Time: event.StartDatetime.Add(time.Minute)}, models.NotifyEmail)
	assert.EqualError(t, err, "reminder time must be before event start time")
}

func TestCreateRejectsDuplicateTime(t *testing.T) {
	p, st, _ := newTestPlanner(t)
	event := makeEvent(t, st, testNow.Add(2*time.Hour))

	// A relative and an absolute reminder landing on the same instant still
	// collide.
	_, err := p.Create(event, Relative{MinutesBefore: 60}, models.NotifyEmail)
	require.NoError(t, err)

	_, err = p.Create(event, Absolute{Time: event.StartDatetime.Add(-time.Hour)}, models.NotifyEmail)
	assert.EqualError(t, err, "a reminder for this time already exists")
}

func TestCreateDefaultsAndValidatesNotificationType(t *testing.T) {
	p, st, _ := newTestPlanner(t)
	event := makeEvent(t, st, testNow.Add(2*time.Hour))

	reminder, err := p.Create(event, Relative{MinutesBefore: 15}, "")
	require.NoError(t, err)
	assert.Equal(t, models.NotifyEmail, reminder.NotificationType)

	_, err = p.Create(event, Relative{MinutesBefore: 20}, "carrier-pigeon")
	assert.EqualError(t, err, `invalid notification type "carrier-pigeon"`)
}

func TestCreateRejectsNilSpec(t *testing.T) {
	p, st, _ := newTestPlanner(t)
	event := makeEvent(t, st, testNow.Add(2*time.Hour))

	_, err := p.Create(event, nil, models.NotifyEmail)
	assert.EqualError(t, err, "either reminder_time or minutes_before must be provided")
}

func TestCreateBulk(t *testing.T) {
	p, st, _ := newTestPlanner(t)
	event := makeEvent(t, st, testNow.Add(2*time.Hour))

	result, err := p.CreateBulk([]BulkItem{
		{EventID: event.ID, Spec: Relative{MinutesBefore: 10}, Type: models.NotifyEmail},
		{EventID: event.ID, Spec: Relative{MinutesBefore: -1}, Type: models.NotifyEmail},
		{EventID: 999, Spec: Relative{MinutesBefore: 10}, Type: models.NotifyEmail},
		{EventID: event.ID, Spec: Absolute{Time: testNow.Add(time.Hour)}, Type: models.NotifySMS},
	})
	require.NoError(t, err)

	assert.Len(t, result.Created, 2)
	require.Len(t, result.Errors, 2)
	assert.EqualError(t, result.Errors[0], "reminder 2: minutes_before must be a non-negative integer")
	assert.EqualError(t, result.Errors[1], "reminder 3: invalid event")
}

func TestCreateBulkListBounds(t *testing.T) {
	p, _, _ := newTestPlanner(t)

	_, err := p.CreateBulk(nil)
	assert.EqualError(t, err, "reminders must be a non-empty list")

	items := make([]BulkItem, MaxBulkReminders+1)
	for i := range items {
		items[i] = BulkItem{EventID: 1, Spec: Relative{MinutesBefore: i}}
	}
	_, err = p.CreateBulk(items)
	assert.EqualError(t, err, "cannot create more than 50 reminders at once")
}

func TestOnAnchorTimeChangedRecomputesRelative(t *testing.T) {
	p, st, _ := newTestPlanner(t)
	event := makeEvent(t, st, testNow.Add(2*time.Hour))

	relative, err := p.Create(event, Relative{MinutesBefore: 30}, models.NotifyEmail)
	require.NoError(t, err)
	absolute, err := p.Create(event, Absolute{Time: testNow.Add(time.Hour)}, models.NotifyEmail)
	require.NoError(t, err)

	newStart := testNow.Add(4 * time.Hour)
	require.NoError(t, st.UpdateEventStart(event.ID, newStart, nil))
	require.NoError(t, p.OnAnchorTimeChanged(event, newStart))

	reminders, err := st.RemindersForEvent(event.ID)
	require.NoError(t, err)
	require.Len(t, reminders, 2)

	byID := map[uint]models.Reminder{}
	for _, r := range reminders {
		byID[r.ID] = r
	}
	assert.Equal(t, newStart.Add(-30*time.Minute), byID[relative.ID].ReminderTime)
	// Absolute reminder never tracks the anchor.
	assert.Equal(t, absolute.ReminderTime, byID[absolute.ID].ReminderTime)
}

func TestOnAnchorTimeChangedFreezesPastRecompute(t *testing.T) {
	p, st, clk := newTestPlanner(t)
	event := makeEvent(t, st, testNow.Add(2*time.Hour))

	reminder, err := p.Create(event, Relative{MinutesBefore: 30}, models.NotifyEmail)
	require.NoError(t, err)
	originalTime := reminder.ReminderTime

	// The event is pulled forward so far that 30 minutes before it is already
	// in the past: the reminder freezes rather than being updated or deleted.
	clk.now = testNow.Add(90 * time.Minute)
	newStart := clk.now.Add(10 * time.Minute)
	require.NoError(t, st.UpdateEventStart(event.ID, newStart, nil))
	require.NoError(t, p.OnAnchorTimeChanged(event, newStart))

	reminders, err := st.RemindersForEvent(event.ID)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, originalTime, reminders[0].ReminderTime)
	assert.False(t, reminders[0].NotificationSent)
}

func TestCopyForEvent(t *testing.T) {
	p, st, _ := newTestPlanner(t)
	src := makeEvent(t, st, testNow.Add(2*time.Hour))

	_, err := p.Create(src, Relative{MinutesBefore: 30}, models.NotifyEmail)
	require.NoError(t, err)
	_, err = p.Create(src, Absolute{Time: testNow.Add(time.Hour)}, models.NotifySMS)
	require.NoError(t, err)

	offset := 24 * time.Hour
	dst := makeEvent(t, st, src.StartDatetime.Add(offset))
	require.NoError(t, p.CopyForEvent(src.ID, dst, offset))

	copied, err := st.RemindersForEvent(dst.ID)
	require.NoError(t, err)
	require.Len(t, copied, 2)

	// Sorted by time: shifted absolute first, then recomputed relative.
	assert.Equal(t, testNow.Add(time.Hour).Add(offset), copied[0].ReminderTime)
	assert.Equal(t, models.NotifySMS, copied[0].NotificationType)
	assert.False(t, copied[0].IsRelative)

	assert.Equal(t, dst.StartDatetime.Add(-30*time.Minute), copied[1].ReminderTime)
	assert.True(t, copied[1].IsRelative)
	assert.False(t, copied[1].NotificationSent)
}

func TestCopyForEventDropsPastResults(t *testing.T) {
	p, st, clk := newTestPlanner(t)
	src := makeEvent(t, st, testNow.Add(2*time.Hour))

	_, err := p.Create(src, Relative{MinutesBefore: 30}, models.NotifyEmail)
	require.NoError(t, err)

	// Copy to an anchor that is already too close for the offset to matter.
	clk.now = testNow.Add(3 * time.Hour)
	dst := makeEvent(t, st, clk.now.Add(10*time.Minute))
	require.NoError(t, p.CopyForEvent(src.ID, dst, time.Hour))

	copied, err := st.RemindersForEvent(dst.ID)
	require.NoError(t, err)
	assert.Empty(t, copied)
}
