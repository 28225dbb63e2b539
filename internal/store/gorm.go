package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"agenda/internal/models"
)

// GormStore implements Store over a gorm database handle.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// GetEvent retrieves an event by ID
func (s *GormStore) GetEvent(id uint) (*models.Event, error) {
	var event models.Event
	if err := s.db.Preload("Rule").First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve event %d: %w", id, err)
	}
	return &event, nil
}

// GetUser retrieves a user by ID
func (s *GormStore) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user %d: %w", id, err)
	}
	return &user, nil
}

// CreateEvent persists a new event together with its rule and reminders
func (s *GormStore) CreateEvent(event *models.Event) error {
	if err := s.db.Create(event).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// UpdateEventStart moves an event's start (and optionally end) instant
func (s *GormStore) UpdateEventStart(id uint, start time.Time, end *time.Time) error {
	updates := map[string]interface{}{
		"start_datetime": start,
		"updated_at":     time.Now().UTC(),
	}
	if end != nil {
		updates["end_datetime"] = *end
	}
	if err := s.db.Model(&models.Event{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update event %d start: %w", id, err)
	}
	return nil
}

// EventsInRange returns a user's events whose start falls inside [from, to]
func (s *GormStore) EventsInRange(userID uint, from, to time.Time) ([]models.Event, error) {
	var events []models.Event
	err := s.db.Preload("Rule").
		Where("user_id = ? AND start_datetime >= ? AND start_datetime <= ?", userID, from, to).
		Order("start_datetime").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query events in range: %w", err)
	}
	return events, nil
}

// DeleteEvent removes an event; its rule and reminders cascade
func (s *GormStore) DeleteEvent(id uint) error {
	if err := s.db.Delete(&models.Event{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}
	return nil
}

// CreateReminder persists a new reminder
func (s *GormStore) CreateReminder(reminder *models.Reminder) error {
	if err := s.db.Create(reminder).Error; err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

// RemindersForEvent returns all reminders on an event, earliest first
func (s *GormStore) RemindersForEvent(eventID uint) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := s.db.Where("event_id = ?", eventID).
		Order("reminder_time").
		Find(&reminders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders for event %d: %w", eventID, err)
	}
	return reminders, nil
}

// RelativeReminders returns an event's relative reminders only
func (s *GormStore) RelativeReminders(eventID uint) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := s.db.Where("event_id = ? AND is_relative = ?", eventID, true).
		Find(&reminders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query relative reminders for event %d: %w", eventID, err)
	}
	return reminders, nil
}

// ReminderByEventAndTime looks up a reminder by its (event, time) identity
func (s *GormStore) ReminderByEventAndTime(eventID uint, t time.Time) (*models.Reminder, error) {
	var reminder models.Reminder
	err := s.db.Where("event_id = ? AND reminder_time = ?", eventID, t).
		First(&reminder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up reminder: %w", err)
	}
	return &reminder, nil
}

// UpdateReminderTime rewrites a reminder's fire time
func (s *GormStore) UpdateReminderTime(id uint, t time.Time) error {
	err := s.db.Model(&models.Reminder{}).Where("id = ?", id).Updates(map[string]interface{}{
		"reminder_time": t,
		"updated_at":    time.Now().UTC(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update reminder %d time: %w", id, err)
	}
	return nil
}

// MarkReminderSent flips a reminder's sent flag. The update is scoped to the
// single row so one commit never blocks or invalidates another reminder's.
func (s *GormStore) MarkReminderSent(id uint) error {
	err := s.db.Model(&models.Reminder{}).Where("id = ?", id).Updates(map[string]interface{}{
		"notification_sent": true,
		"updated_at":        time.Now().UTC(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to mark reminder %d sent: %w", id, err)
	}
	return nil
}

// DueUnsentReminders returns unsent reminders due before the given instant
func (s *GormStore) DueUnsentReminders(before time.Time) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := s.db.Where("reminder_time <= ? AND notification_sent = ?", before, false).
		Order("reminder_time").
		Find(&reminders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	return reminders, nil
}

// DeleteReminder removes a reminder
func (s *GormStore) DeleteReminder(id uint) error {
	if err := s.db.Delete(&models.Reminder{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete reminder %d: %w", id, err)
	}
	return nil
}

// DeleteExpiredTokens sweeps ephemeral tokens past their expiry
func (s *GormStore) DeleteExpiredTokens(before time.Time) (int64, int64, error) {
	email := s.db.Where("expires_at < ?", before).Delete(&models.EmailVerificationToken{})
	if email.Error != nil {
		return 0, 0, fmt.Errorf("failed to delete expired email verification tokens: %w", email.Error)
	}
	reset := s.db.Where("expires_at < ?", before).Delete(&models.PasswordResetToken{})
	if reset.Error != nil {
		return email.RowsAffected, 0, fmt.Errorf("failed to delete expired password reset tokens: %w", reset.Error)
	}
	return email.RowsAffected, reset.RowsAffected, nil
}
