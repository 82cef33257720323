package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationKeyPrefix namespaces per-material-type notification toggles in
// the settings table.
const NotificationKeyPrefix = "notification."

// NotificationKey is the setting key controlling notifications for one
// material type. All notification settings default to enabled.
func NotificationKey(t MaterialType) string {
	return NotificationKeyPrefix + string(t)
}

// NotificationKeys returns every notification setting key in display order.
func NotificationKeys() []string {
	keys := make([]string, 0, len(MaterialTypes))
	for _, t := range MaterialTypes {
		keys = append(keys, NotificationKey(t))
	}
	return keys
}

// Setting is one per-user key/value preference. Values are stored as JSON so
// toggles and future structured settings share one table.
type Setting struct {
	ID        uint           `gorm:"primaryKey"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_user_key"`
	Key       string         `gorm:"size:100;not null;uniqueIndex:idx_user_key"`
	Value     datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
