// Package planner computes and maintains reminder fire times. It owns the
// timing invariants: a reminder always fires strictly before its anchor
// event starts and strictly in the future at the moment it is created, and
// no event carries two reminders for the same instant.
package planner

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"agenda/internal/clock"
	"agenda/internal/models"
	"agenda/internal/store"
)

// MaxBulkReminders caps how many reminders one bulk call may create.
const MaxBulkReminders = 50

// ValidationError reports a reminder timing or duplicate violation. Index is
// the 1-based position within a bulk request, 0 for single operations.
type ValidationError struct {
	Index int
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("reminder %d: %s", e.Index, e.Msg)
	}
	return e.Msg
}

// ReminderSpec is the caller's choice of reminder timing: an offset before
// the anchor, or a fixed instant. Exactly one variant exists per spec.
type ReminderSpec interface {
	reminderSpec()
}

// Relative fires MinutesBefore minutes ahead of the anchor's start and
// tracks the anchor when it moves.
type Relative struct {
	MinutesBefore int
}

// Absolute fires at a fixed instant regardless of later anchor changes.
type Absolute struct {
	Time time.Time
}

func (Relative) reminderSpec() {}
func (Absolute) reminderSpec() {}

// ComputeRelative materializes a relative reminder's fire time.
func ComputeRelative(anchorStart time.Time, minutesBefore int) time.Time {
	return anchorStart.Add(-time.Duration(minutesBefore) * time.Minute)
}

// ValidateAbsolute checks an absolute fire time: strictly after now and
// strictly before the anchor's start.
func ValidateAbsolute(candidate, anchorStart, now time.Time) error {
	if !candidate.After(now) {
		return &ValidationError{Msg: "reminder time cannot be in the past"}
	}
	if !candidate.Before(anchorStart) {
		return &ValidationError{Msg: "reminder time must be before event start time"}
	}
	return nil
}

// Planner creates reminders and recomputes them when anchors move.
type Planner struct {
	store store.Store
	clock clock.Clock
	log   zerolog.Logger
}

// New builds a planner over the given store and clock
func New(st store.Store, clk clock.Clock, log zerolog.Logger) *Planner {
	return &Planner{store: st, clock: clk, log: log}
}

// resolve turns a spec into a concrete fire time, enforcing the timing
// invariants against the given anchor and the current instant.
func (p *Planner) resolve(spec ReminderSpec, anchorStart time.Time) (reminderTime time.Time, minutesBefore *int, isRelative bool, err error) {
	now := p.clock.Now()

	switch s := spec.(type) {
	case Relative:
		if s.MinutesBefore < 0 {
			return time.Time{}, nil, false, &ValidationError{Msg: "minutes_before must be a non-negative integer"}
		}
		t := ComputeRelative(anchorStart, s.MinutesBefore)
		if !t.After(now) {
			return time.Time{}, nil, false, &ValidationError{Msg: "calculated reminder time cannot be in the past"}
		}
		mb := s.MinutesBefore
		return t.UTC(), &mb, true, nil
	case Absolute:
		t := s.Time.UTC()
		if err := ValidateAbsolute(t, anchorStart, now); err != nil {
			return time.Time{}, nil, false, err
		}
		return t, nil, false, nil
	case nil:
		return time.Time{}, nil, false, &ValidationError{Msg: "either reminder_time or minutes_before must be provided"}
	default:
		return time.Time{}, nil, false, &ValidationError{Msg: fmt.Sprintf("unsupported reminder spec %T", spec)}
	}
}

// Validate checks a spec against an anchor without persisting anything.
// Event creation uses it to reject the whole request before any write.
func (p *Planner) Validate(spec ReminderSpec, anchorStart time.Time) error {
	_, _, _, err := p.resolve(spec, anchorStart)
	return err
}

// Create validates and persists one reminder on the given event.
func (p *Planner) Create(event *models.Event, spec ReminderSpec, notifType models.NotificationType) (*models.Reminder, error) {
	if notifType == "" {
		notifType = models.NotifyEmail
	}
	if !models.ValidNotificationType(notifType) {
		return nil, &ValidationError{Msg: fmt.Sprintf("invalid notification type %q", notifType)}
	}

	reminderTime, minutesBefore, isRelative, err := p.resolve(spec, event.StartDatetime)
	if err != nil {
		return nil, err
	}

	if _, err := p.store.ReminderByEventAndTime(event.ID, reminderTime); err == nil {
		return nil, &ValidationError{Msg: "a reminder for this time already exists"}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for duplicate reminder: %w", err)
	}

	reminder := &models.Reminder{
		EventID:          event.ID,
		ReminderTime:     reminderTime,
		NotificationSent: false,
		NotificationType: notifType,
		MinutesBefore:    minutesBefore,
		IsRelative:       isRelative,
	}
	if err := p.store.CreateReminder(reminder); err != nil {
		return nil, err
	}
	return reminder, nil
}

// BulkItem is one entry in a bulk reminder creation request.
type BulkItem struct {
	EventID uint
	Spec    ReminderSpec
	Type    models.NotificationType
}

// BulkResult reports what a bulk creation actually did. Failing items are
// recorded with index-qualified errors and do not abort the rest.
type BulkResult struct {
	Created []models.Reminder
	Errors  []error
}

// CreateBulk creates up to MaxBulkReminders reminders, best effort.
func (p *Planner) CreateBulk(items []BulkItem) (BulkResult, error) {
	var result BulkResult

	if len(items) == 0 {
		return result, &ValidationError{Msg: "reminders must be a non-empty list"}
	}
	if len(items) > MaxBulkReminders {
		return result, &ValidationError{Msg: fmt.Sprintf("cannot create more than %d reminders at once", MaxBulkReminders)}
	}

	for idx, item := range items {
		event, err := p.store.GetEvent(item.EventID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				result.Errors = append(result.Errors, &ValidationError{Index: idx + 1, Msg: "invalid event"})
				continue
			}
			result.Errors = append(result.Errors, fmt.Errorf("reminder %d: %w", idx+1, err))
			continue
		}

		reminder, err := p.Create(event, item.Spec, item.Type)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				result.Errors = append(result.Errors, &ValidationError{Index: idx + 1, Msg: verr.Msg})
			} else {
				result.Errors = append(result.Errors, fmt.Errorf("reminder %d: %w", idx+1, err))
			}
			continue
		}
		result.Created = append(result.Created, *reminder)
	}

	return result, nil
}

// OnAnchorTimeChanged recomputes every relative reminder on an event after
// its start instant moved. Callers invoke this immediately after persisting
// the new start. A recomputed time that already lies in the past freezes the
// reminder instead: its stored time and sent flag stay untouched, it simply
// stops tracking further moves. Absolute reminders are never recomputed.
func (p *Planner) OnAnchorTimeChanged(event *models.Event, newStart time.Time) error {
	reminders, err := p.store.RelativeReminders(event.ID)
	if err != nil {
		return err
	}

	now := p.clock.Now()
	for _, reminder := range reminders {
		if reminder.MinutesBefore == nil {
			continue
		}
		newTime := ComputeRelative(newStart.UTC(), *reminder.MinutesBefore)
		if !newTime.After(now) {
			p.log.Debug().
				Uint("reminder_id", reminder.ID).
				Uint("event_id", event.ID).
				Time("recomputed_time", newTime).
				Msg("recomputed reminder time is in the past, leaving reminder unchanged")
			continue
		}
		if err := p.store.UpdateReminderTime(reminder.ID, newTime); err != nil {
			return err
		}
	}
	return nil
}

// CopyForEvent duplicates the source event's reminders onto a copied event.
// Relative reminders recompute against the new anchor; absolute reminders
// shift by the copy's time offset. Results that would fire in the past are
// dropped rather than created.
func (p *Planner) CopyForEvent(srcEventID uint, dst *models.Event, offset time.Duration) error {
	reminders, err := p.store.RemindersForEvent(srcEventID)
	if err != nil {
		return err
	}

	now := p.clock.Now()
	for _, reminder := range reminders {
		var newTime time.Time
		if reminder.IsRelative && reminder.MinutesBefore != nil {
			newTime = ComputeRelative(dst.StartDatetime.UTC(), *reminder.MinutesBefore)
		} else {
			newTime = reminder.ReminderTime.Add(offset).UTC()
		}
		if !newTime.After(now) {
			continue
		}

		copied := &models.Reminder{
			EventID:          dst.ID,
			ReminderTime:     newTime,
			NotificationSent: false,
			NotificationType: reminder.NotificationType,
			MinutesBefore:    reminder.MinutesBefore,
			IsRelative:       reminder.IsRelative,
		}
		if err := p.store.CreateReminder(copied); err != nil {
			return err
		}
	}
	return nil
}
