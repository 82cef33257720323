package models

import (
	"time"
)

// Role is a derived capability, never stored as an authoritative column.
// See services.AccessService for the derivation rules.
type Role string

const (
	RoleUser    Role = "user"
	RoleStudent Role = "student"
	RoleEditor  Role = "editor"
	RoleRoot    Role = "root"
)

// Supported interface languages.
const (
	LangEN = "en"
	LangAR = "ar"
)

// User is a Telegram account known to the bot.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	TelegramID   int64  `gorm:"uniqueIndex;not null"`
	ChatID       int64  `gorm:"uniqueIndex;not null"`
	LanguageCode string `gorm:"size:5;not null;default:'en'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Enrollments []Enrollment `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Settings    []Setting    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
