package store

import (
	"sort"
	"sync"
	"time"

	"agenda/internal/models"
)

// MemoryStore is a Store kept entirely in process memory. It exists for
// tests and examples; the daemon uses GormStore.
type MemoryStore struct {
	mu sync.RWMutex

	events    map[uint]*models.Event
	users     map[uint]*models.User
	reminders map[uint]*models.Reminder

	emailTokens map[uint]*models.EmailVerificationToken
	resetTokens map[uint]*models.PasswordResetToken

	nextEventID    uint
	nextReminderID uint
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:      make(map[uint]*models.Event),
		users:       make(map[uint]*models.User),
		reminders:   make(map[uint]*models.Reminder),
		emailTokens: make(map[uint]*models.EmailVerificationToken),
		resetTokens: make(map[uint]*models.PasswordResetToken),
	}
}

// PutUser inserts or replaces a user
func (s *MemoryStore) PutUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.users[u.ID] = &u
}

// PutEmailToken inserts an email verification token
func (s *MemoryStore) PutEmailToken(t *models.EmailVerificationToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := *t
	s.emailTokens[tok.ID] = &tok
}

// PutResetToken inserts a password reset token
func (s *MemoryStore) PutResetToken(t *models.PasswordResetToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := *t
	s.resetTokens[tok.ID] = &tok
}

func (s *MemoryStore) GetEvent(id uint) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	e := *event
	return &e, nil
}

func (s *MemoryStore) GetUser(id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := *user
	return &u, nil
}

func (s *MemoryStore) CreateEvent(event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == 0 {
		s.nextEventID++
		event.ID = s.nextEventID
	} else if event.ID > s.nextEventID {
		s.nextEventID = event.ID
	}
	e := *event
	s.events[e.ID] = &e
	return nil
}

func (s *MemoryStore) UpdateEventStart(id uint, start time.Time, end *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return ErrNotFound
	}
	event.StartDatetime = start
	if end != nil {
		endCopy := *end
		event.EndDatetime = &endCopy
	}
	event.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) EventsInRange(userID uint, from, to time.Time) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Event
	for _, event := range s.events {
		if event.UserID != userID {
			continue
		}
		if event.StartDatetime.Before(from) || event.StartDatetime.After(to) {
			continue
		}
		out = append(out, *event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDatetime.Before(out[j].StartDatetime) })
	return out, nil
}

func (s *MemoryStore) DeleteEvent(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	// Cascade as the database schema would.
	for rid, reminder := range s.reminders {
		if reminder.EventID == id {
			delete(s.reminders, rid)
		}
	}
	return nil
}

func (s *MemoryStore) CreateReminder(reminder *models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reminder.ID == 0 {
		s.nextReminderID++
		reminder.ID = s.nextReminderID
	} else if reminder.ID > s.nextReminderID {
		s.nextReminderID = reminder.ID
	}
	r := *reminder
	s.reminders[r.ID] = &r
	return nil
}

func (s *MemoryStore) RemindersForEvent(eventID uint) ([]models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Reminder
	for _, reminder := range s.reminders {
		if reminder.EventID == eventID {
			out = append(out, *reminder)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReminderTime.Before(out[j].ReminderTime) })
	return out, nil
}

func (s *MemoryStore) RelativeReminders(eventID uint) ([]models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Reminder
	for _, reminder := range s.reminders {
		if reminder.EventID == eventID && reminder.IsRelative {
			out = append(out, *reminder)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ReminderByEventAndTime(eventID uint, t time.Time) (*models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, reminder := range s.reminders {
		if reminder.EventID == eventID && reminder.ReminderTime.Equal(t) {
			r := *reminder
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateReminderTime(id uint, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reminder, ok := s.reminders[id]
	if !ok {
		return ErrNotFound
	}
	reminder.ReminderTime = t
	reminder.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) MarkReminderSent(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reminder, ok := s.reminders[id]
	if !ok {
		return ErrNotFound
	}
	reminder.NotificationSent = true
	reminder.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) DueUnsentReminders(before time.Time) ([]models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Reminder
	for _, reminder := range s.reminders {
		if reminder.NotificationSent {
			continue
		}
		if reminder.ReminderTime.After(before) {
			continue
		}
		out = append(out, *reminder)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReminderTime.Before(out[j].ReminderTime) })
	return out, nil
}

func (s *MemoryStore) DeleteReminder(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[id]; !ok {
		return ErrNotFound
	}
	delete(s.reminders, id)
	return nil
}

func (s *MemoryStore) DeleteExpiredTokens(before time.Time) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var email, reset int64
	for id, tok := range s.emailTokens {
		if tok.ExpiresAt.Before(before) {
			delete(s.emailTokens, id)
			email++
		}
	}
	for id, tok := range s.resetTokens {
		if tok.ExpiresAt.Before(before) {
			delete(s.resetTokens, id)
			reset++
		}
	}
	return email, reset, nil
}
