package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Event represents a calendar event owned by a user. A recurring event is
// the anchor of its series; occurrences are projected from it on demand and
// never stored.
type Event struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	Title         string          `gorm:"size:128;not null" json:"title"`
	Description   string          `gorm:"type:text" json:"description"`
	StartDatetime time.Time       `gorm:"not null;index" json:"start_datetime"`
	EndDatetime   *time.Time      `json:"end_datetime"`
	IsAllDay      bool            `gorm:"not null;default:false" json:"is_all_day"`
	Color         string          `gorm:"size:20;default:blue" json:"color"`
	IsRecurring   bool            `gorm:"not null;default:false" json:"is_recurring"`
	RecurrenceID  string          `gorm:"size:36;index" json:"recurrence_id"`
	Rule          *RecurrenceRule `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"recurrence_rule,omitempty"`
	Reminders     []Reminder      `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"reminders,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

// Duration returns the anchor's duration, or false for open-ended events.
func (e *Event) Duration() (time.Duration, bool) {
	if e.EndDatetime == nil {
		return 0, false
	}
	return e.EndDatetime.Sub(e.StartDatetime), true
}

// BeforeCreate hook is called before creating a new event
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}
	return nil
}

// BeforeSave hook is called before saving the event
func (e *Event) BeforeSave(tx *gorm.DB) error {
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// TableName specifies the table name for the Event model
func (Event) TableName() string {
	return "event"
}

// Frequency represents how often a recurring event repeats
type Frequency string

const (
	FreqDaily   Frequency = "DAILY"
	FreqWeekly  Frequency = "WEEKLY"
	FreqMonthly Frequency = "MONTHLY"
	FreqYearly  Frequency = "YEARLY"
)

// Weekday is a three-letter weekday code as stored on recurrence rules
type Weekday string

const (
	Monday    Weekday = "MON"
	Tuesday   Weekday = "TUE"
	Wednesday Weekday = "WED"
	Thursday  Weekday = "THU"
	Friday    Weekday = "FRI"
	Saturday  Weekday = "SAT"
	Sunday    Weekday = "SUN"
)

// ValidWeekday reports whether code is one of the seven weekday codes
func ValidWeekday(code Weekday) bool {
	switch code {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// WeekdayList represents a set of weekday codes stored as a comma-separated
// column ("MON,WED,FRI")
type WeekdayList []Weekday

func (w WeekdayList) Value() (driver.Value, error) {
	if len(w) == 0 {
		return nil, nil
	}
	parts := make([]string, len(w))
	for i, d := range w {
		parts[i] = string(d)
	}
	return strings.Join(parts, ","), nil
}

func (w *WeekdayList) Scan(value interface{}) error {
	if value == nil {
		*w = nil
		return nil
	}

	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("unsupported type for WeekdayList: %T", value)
	}

	if raw == "" {
		*w = nil
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make(WeekdayList, 0, len(parts))
	for _, p := range parts {
		out = append(out, Weekday(strings.TrimSpace(p)))
	}
	*w = out
	return nil
}

// RecurrenceRule describes the repetition pattern of its event. At most one
// of EndDate and OccurrenceCount may be set; with neither, the series is
// unbounded and the caller's window decides where expansion stops.
type RecurrenceRule struct {
	ID              uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID         uint        `gorm:"not null;uniqueIndex" json:"event_id"`
	Frequency       Frequency   `gorm:"size:20;not null" json:"frequency"`
	Interval        int         `gorm:"not null;default:1" json:"interval"`
	DaysOfWeek      WeekdayList `gorm:"size:30" json:"days_of_week"`
	DayOfMonth      *int        `json:"day_of_month"`
	WeekOfMonth     *int        `json:"week_of_month"`
	DayOfWeek       *Weekday    `gorm:"size:10" json:"day_of_week"`
	EndDate         *time.Time  `json:"end_date"`
	OccurrenceCount *int        `json:"occurrence_count"`
	CreatedAt       time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"not null" json:"updated_at"`
}

// BeforeCreate hook is called before creating a new recurrence rule
func (r *RecurrenceRule) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	if r.Interval == 0 {
		r.Interval = 1
	}
	return nil
}

// TableName specifies the table name for the RecurrenceRule model
func (RecurrenceRule) TableName() string {
	return "recurrence_rule"
}

// Occurrence is an ephemeral projection of an anchor event at a computed
// point in time. It is never persisted; its identity is (event id, start).
type Occurrence struct {
	InstanceID   string     `json:"id"`
	EventID      uint       `json:"event_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Start        time.Time  `json:"start_datetime"`
	End          *time.Time `json:"end_datetime"`
	IsAllDay     bool       `json:"is_all_day"`
	Color        string     `json:"color"`
	IsRecurring  bool       `json:"is_recurring"`
	RecurrenceID string     `json:"recurrence_id"`
}
