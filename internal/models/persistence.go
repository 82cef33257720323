package models

import (
	"gorm.io/datatypes"
)

// ChatData is the opaque chat-scoped blob used by the conversation layer.
type ChatData struct {
	ID     uint           `gorm:"primaryKey"`
	UserID uint           `gorm:"uniqueIndex;not null"`
	Data   datatypes.JSON `gorm:"not null"`
}

// UserData is the opaque user-scoped blob used by the conversation layer.
type UserData struct {
	ID     uint           `gorm:"primaryKey"`
	UserID uint           `gorm:"uniqueIndex;not null"`
	Data   datatypes.JSON `gorm:"not null"`
}

// Conversation persists the current state of one named conversation for one
// (user, chat) key, so dispatch resumes where it left off after a restart.
type Conversation struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"size:20;not null;uniqueIndex:idx_name_key"`
	Key   string `gorm:"size:100;not null;uniqueIndex:idx_name_key"`
	State string `gorm:"size:100"`
}
