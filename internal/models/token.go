package models

import (
	"time"

	"gorm.io/gorm"
)

// EmailVerificationTokenTTL is how long an email verification link stays valid
const EmailVerificationTokenTTL = time.Hour * 24

// PasswordResetTokenTTL is how long a password reset link stays valid
const PasswordResetTokenTTL = time.Hour

// EmailVerificationToken is an ephemeral token mailed out to confirm an
// address. Expired rows are garbage-collected by the token janitor.
type EmailVerificationToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	Token     string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
}

// BeforeCreate hook for email verification tokens
func (t *EmailVerificationToken) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.ExpiresAt.IsZero() {
		t.ExpiresAt = now.Add(EmailVerificationTokenTTL)
	}
	return nil
}

// IsExpired checks if the token has expired
func (t *EmailVerificationToken) IsExpired() bool {
	return time.Now().UTC().After(t.ExpiresAt)
}

// TableName specifies the table name for the EmailVerificationToken model
func (EmailVerificationToken) TableName() string {
	return "email_verification_token"
}

// PasswordResetToken is an ephemeral token mailed out for password recovery.
// Expired rows are garbage-collected by the token janitor.
type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	Token     string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
}

// BeforeCreate hook for password reset tokens
func (t *PasswordResetToken) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.ExpiresAt.IsZero() {
		t.ExpiresAt = now.Add(PasswordResetTokenTTL)
	}
	return nil
}

// IsExpired checks if the token has expired
func (t *PasswordResetToken) IsExpired() bool {
	return time.Now().UTC().After(t.ExpiresAt)
}

// TableName specifies the table name for the PasswordResetToken model
func (PasswordResetToken) TableName() string {
	return "password_reset_token"
}
