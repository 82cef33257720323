package repository

import (
	"encoding/json"
	"errors"

	"github.com/skulebot/core/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SettingRepository stores per-user preferences. Notification toggles default
// to enabled when no row exists.
type SettingRepository interface {
	GetBool(userID uint, key string, def bool) (bool, error)
	SetBool(userID uint, key string, value bool) error
}

type settingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) GetBool(userID uint, key string, def bool) (bool, error) {
	var setting models.Setting
	err := r.db.Where("user_id = ? AND key = ?", userID, key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	var value bool
	if err := json.Unmarshal(setting.Value, &value); err != nil {
		return def, err
	}
	return value, nil
}

func (r *settingRepository) SetBool(userID uint, key string, value bool) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var setting models.Setting
	err = r.db.Where("user_id = ? AND key = ?", userID, key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(&models.Setting{
			UserID: userID,
			Key:    key,
			Value:  datatypes.JSON(raw),
		}).Error
	}
	if err != nil {
		return err
	}
	setting.Value = datatypes.JSON(raw)
	return r.db.Save(&setting).Error
}
