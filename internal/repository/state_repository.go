package repository

import (
	"bytes"
	"errors"

	"github.com/skulebot/core/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StateRepository persists conversation states and the opaque chat/user data
// blobs. Writes diff against the stored value first to avoid redundant
// updates on every interaction.
type StateRepository interface {
	ConversationState(name, key string) (string, error)
	SetConversationState(name, key, state string) error

	ChatData(userID uint) ([]byte, error)
	SetChatData(userID uint, data []byte) error
	UserData(userID uint) ([]byte, error)
	SetUserData(userID uint, data []byte) error
}

type stateRepository struct {
	db *gorm.DB
}

func NewStateRepository(db *gorm.DB) StateRepository {
	return &stateRepository{db: db}
}

func (r *stateRepository) ConversationState(name, key string) (string, error) {
	var conv models.Conversation
	err := r.db.Where("name = ? AND key = ?", name, key).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return conv.State, nil
}

func (r *stateRepository) SetConversationState(name, key, state string) error {
	var conv models.Conversation
	err := r.db.Where("name = ? AND key = ?", name, key).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(&models.Conversation{Name: name, Key: key, State: state}).Error
	}
	if err != nil {
		return err
	}
	if conv.State == state {
		return nil
	}
	conv.State = state
	return r.db.Save(&conv).Error
}

func (r *stateRepository) ChatData(userID uint) ([]byte, error) {
	var row models.ChatData
	err := r.db.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.Data, nil
}

func (r *stateRepository) SetChatData(userID uint, data []byte) error {
	var row models.ChatData
	err := r.db.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(&models.ChatData{UserID: userID, Data: datatypes.JSON(data)}).Error
	}
	if err != nil {
		return err
	}
	if bytes.Equal(row.Data, data) {
		return nil
	}
	row.Data = datatypes.JSON(data)
	return r.db.Save(&row).Error
}

func (r *stateRepository) UserData(userID uint) ([]byte, error) {
	var row models.UserData
	err := r.db.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.Data, nil
}

func (r *stateRepository) SetUserData(userID uint, data []byte) error {
	var row models.UserData
	err := r.db.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(&models.UserData{UserID: userID, Data: datatypes.JSON(data)}).Error
	}
	if err != nil {
		return err
	}
	if bytes.Equal(row.Data, data) {
		return nil
	}
	row.Data = datatypes.JSON(data)
	return r.db.Save(&row).Error
}
