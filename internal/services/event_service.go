package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agenda/internal/clock"
	"agenda/internal/models"
	"agenda/internal/planner"
	"agenda/internal/recurrence"
	"agenda/internal/store"
)

// MaxRemindersPerEvent caps reminders attached at event creation.
const MaxRemindersPerEvent = 10

// MaxBulkCopyEvents caps how many events one bulk copy may duplicate.
const MaxBulkCopyEvents = 20

// ReminderRequest describes one reminder attached to a new event.
type ReminderRequest struct {
	Spec planner.ReminderSpec
	Type models.NotificationType
}

// CreateEventRequest carries everything needed to create an event.
type CreateEventRequest struct {
	Title       string
	Description string
	Start       time.Time
	End         *time.Time
	IsAllDay    bool
	Color       string
	Rule        *models.RecurrenceRule
	Reminders   []ReminderRequest
}

// EventService is the synchronous API the surrounding application calls to
// create, move and copy events and to project occurrences. It owns no HTTP
// surface; routing, auth and pagination live with the caller.
type EventService struct {
	store   store.Store
	engine  *recurrence.Engine
	planner *planner.Planner
	clock   clock.Clock
	log     zerolog.Logger
}

// NewEventService wires the service over its collaborators
func NewEventService(st store.Store, engine *recurrence.Engine, pl *planner.Planner, clk clock.Clock, log zerolog.Logger) *EventService {
	return &EventService{store: st, engine: engine, planner: pl, clock: clk, log: log}
}

// CreateEvent validates and persists a new event with its optional rule and
// reminders. The whole request is rejected before any write when validation
// fails anywhere.
func (s *EventService) CreateEvent(userID uint, req CreateEventRequest) (*models.Event, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if req.End != nil && !req.End.After(req.Start) {
		return nil, fmt.Errorf("end datetime must be after start datetime")
	}

	if req.Rule != nil {
		if err := recurrence.CheckRule(req.Rule); err != nil {
			return nil, err
		}
	}

	if len(req.Reminders) > MaxRemindersPerEvent {
		return nil, fmt.Errorf("cannot create more than %d reminders per event", MaxRemindersPerEvent)
	}

	start := req.Start.UTC()
	for idx, r := range req.Reminders {
		if err := s.planner.Validate(r.Spec, start); err != nil {
			return nil, fmt.Errorf("reminder %d: %w", idx+1, err)
		}
	}

	event := &models.Event{
		UserID:        userID,
		Title:         req.Title,
		Description:   req.Description,
		StartDatetime: start,
		IsAllDay:      req.IsAllDay,
		Color:         req.Color,
	}
	if req.End != nil {
		end := req.End.UTC()
		event.EndDatetime = &end
	}
	if req.Rule != nil {
		event.IsRecurring = true
		event.RecurrenceID = uuid.NewString()
		event.Rule = req.Rule
	}

	if err := s.store.CreateEvent(event); err != nil {
		return nil, err
	}

	for idx, r := range req.Reminders {
		if _, err := s.planner.Create(event, r.Spec, r.Type); err != nil {
			// Validated above, so this is a store failure, not user input.
			return nil, fmt.Errorf("reminder %d: %w", idx+1, err)
		}
	}

	return event, nil
}

// Occurrences projects an event onto the given window. Non-recurring events
// come back as their single occurrence when they fall inside the window.
func (s *EventService) Occurrences(event *models.Event, windowStart, windowEnd time.Time) ([]models.Occurrence, error) {
	if !event.IsRecurring || event.Rule == nil {
		occs, err := s.engine.Generate(event, nil, windowStart, windowEnd)
		if err != nil {
			return nil, err
		}
		var out []models.Occurrence
		for _, occ := range occs {
			if occ.Start.Before(windowStart.UTC()) || occ.Start.After(windowEnd.UTC()) {
				continue
			}
			out = append(out, occ)
		}
		return out, nil
	}
	return s.engine.Generate(event, event.Rule, windowStart, windowEnd)
}

// MoveEvent sets a new start instant (drag and drop). With no explicit new
// end, an existing end shifts to preserve the event's duration. Relative
// reminders recompute against the new start.
func (s *EventService) MoveEvent(eventID uint, newStart time.Time, newEnd *time.Time) (*models.Event, error) {
	event, err := s.store.GetEvent(eventID)
	if err != nil {
		return nil, err
	}

	newStart = newStart.UTC()
	var end *time.Time
	switch {
	case newEnd != nil:
		if !newEnd.After(newStart) {
			return nil, fmt.Errorf("end datetime must be after start datetime")
		}
		e := newEnd.UTC()
		end = &e
	case event.EndDatetime != nil:
		e := newStart.Add(event.EndDatetime.Sub(event.StartDatetime))
		end = &e
	}

	if err := s.store.UpdateEventStart(event.ID, newStart, end); err != nil {
		return nil, err
	}
	if err := s.planner.OnAnchorTimeChanged(event, newStart); err != nil {
		return nil, err
	}

	event.StartDatetime = newStart
	event.EndDatetime = end
	return event, nil
}

// BulkMove shifts a set of events by one offset, best effort. Failing events
// are collected without aborting the rest.
func (s *EventService) BulkMove(eventIDs []uint, offset time.Duration) (moved []models.Event, errs []error) {
	for _, id := range eventIDs {
		event, err := s.store.GetEvent(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", id, err))
			continue
		}

		newStart := event.StartDatetime.Add(offset).UTC()
		var end *time.Time
		if event.EndDatetime != nil {
			e := event.EndDatetime.Add(offset).UTC()
			end = &e
		}

		if err := s.store.UpdateEventStart(event.ID, newStart, end); err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", id, err))
			continue
		}
		if err := s.planner.OnAnchorTimeChanged(event, newStart); err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", id, err))
			continue
		}

		event.StartDatetime = newStart
		event.EndDatetime = end
		moved = append(moved, *event)
	}
	return moved, errs
}

// BulkCopy duplicates a set of events at an offset, best effort. Copies are
// plain events: recurrence never carries over, and reminders only do when
// asked, with past fire times dropped.
func (s *EventService) BulkCopy(eventIDs []uint, offset time.Duration, copyReminders bool) (copied []models.Event, errs []error) {
	if len(eventIDs) > MaxBulkCopyEvents {
		return nil, []error{fmt.Errorf("cannot copy more than %d events at once", MaxBulkCopyEvents)}
	}

	for _, id := range eventIDs {
		event, err := s.store.GetEvent(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", id, err))
			continue
		}

		dup := &models.Event{
			UserID:        event.UserID,
			Title:         fmt.Sprintf("Copy of %s", event.Title),
			Description:   event.Description,
			StartDatetime: event.StartDatetime.Add(offset).UTC(),
			IsAllDay:      event.IsAllDay,
			Color:         event.Color,
		}
		if event.EndDatetime != nil {
			e := event.EndDatetime.Add(offset).UTC()
			dup.EndDatetime = &e
		}

		if err := s.store.CreateEvent(dup); err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", id, err))
			continue
		}

		if copyReminders {
			if err := s.planner.CopyForEvent(event.ID, dup, offset); err != nil {
				errs = append(errs, fmt.Errorf("event %d: %w", id, err))
				continue
			}
		}
		copied = append(copied, *dup)
	}
	return copied, errs
}

// DeleteEvent removes an event; its rule and reminders cascade with it.
func (s *EventService) DeleteEvent(eventID uint) error {
	if err := s.store.DeleteEvent(eventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete event %d: %w", eventID, err)
	}
	return nil
}
