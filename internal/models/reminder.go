package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationType is the delivery channel for a reminder
type NotificationType string

const (
	NotifyEmail NotificationType = "email"
	NotifyPush  NotificationType = "push"
	NotifySMS   NotificationType = "sms"
)

// ValidNotificationType reports whether t is a supported channel
func ValidNotificationType(t NotificationType) bool {
	switch t {
	case NotifyEmail, NotifyPush, NotifySMS:
		return true
	}
	return false
}

// Reminder schedules a notification before its event starts. ReminderTime is
// always the materialized absolute instant, for relative reminders too.
// NotificationSent only ever moves from false to true.
type Reminder struct {
	ID               uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID          uint             `gorm:"not null;index;uniqueIndex:idx_reminder_event_time" json:"event_id"`
	ReminderTime     time.Time        `gorm:"not null;index;uniqueIndex:idx_reminder_event_time" json:"reminder_time"`
	NotificationSent bool             `gorm:"not null;default:false;index" json:"notification_sent"`
	NotificationType NotificationType `gorm:"size:20;not null;default:email" json:"notification_type"`
	IsRelative       bool             `gorm:"not null;default:true" json:"is_relative"`
	MinutesBefore    *int             `json:"minutes_before"`
	CreatedAt        time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null" json:"updated_at"`
}

// BeforeCreate hook is called before creating a new reminder
func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	if r.NotificationType == "" {
		r.NotificationType = NotifyEmail
	}
	return nil
}

// TableName specifies the table name for the Reminder model
func (Reminder) TableName() string {
	return "reminder"
}
