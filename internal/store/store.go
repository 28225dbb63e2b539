// Package store defines the persistence boundary consumed by the reminder
// planner and the periodic jobs, together with a gorm-backed implementation
// and an in-memory one for tests.
package store

import (
	"errors"
	"time"

	"agenda/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the narrow query/command surface the scheduling core needs.
type Store interface {
	// Events and users.
	GetEvent(id uint) (*models.Event, error)
	GetUser(id uint) (*models.User, error)
	CreateEvent(event *models.Event) error
	UpdateEventStart(id uint, start time.Time, end *time.Time) error
	EventsInRange(userID uint, from, to time.Time) ([]models.Event, error)
	DeleteEvent(id uint) error

	// Reminders.
	CreateReminder(reminder *models.Reminder) error
	RemindersForEvent(eventID uint) ([]models.Reminder, error)
	RelativeReminders(eventID uint) ([]models.Reminder, error)
	ReminderByEventAndTime(eventID uint, t time.Time) (*models.Reminder, error)
	UpdateReminderTime(id uint, t time.Time) error
	MarkReminderSent(id uint) error
	DueUnsentReminders(before time.Time) ([]models.Reminder, error)
	DeleteReminder(id uint) error

	// Ephemeral tokens.
	DeleteExpiredTokens(before time.Time) (emailTokens, resetTokens int64, err error)
}
