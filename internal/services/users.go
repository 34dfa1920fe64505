package services

import (
	"errors"

	"tasktracker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// UserService is the directory the rest of the core uses to resolve acting
// users, assignees and their notification preferences.
type UserService interface {
	GetUserByID(db *gorm.DB, id uuid.UUID) (models.User, error)
	UserExists(db *gorm.DB, id uuid.UUID) (bool, error)
	GetPreferences(db *gorm.DB, userID uuid.UUID) (models.NotificationPreference, error)
	UpdatePreferences(db *gorm.DB, userID uuid.UUID, prefs models.NotificationPreference) (models.NotificationPreference, error)
}

type UserServiceImpl struct{}

func NewUserService() *UserServiceImpl {
	return &UserServiceImpl{}
}

func (s *UserServiceImpl) GetUserByID(db *gorm.DB, id uuid.UUID) (models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *UserServiceImpl) UserExists(db *gorm.DB, id uuid.UUID) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetPreferences returns the stored row, or the defaults (everything enabled)
// when the user never saved any.
func (s *UserServiceImpl) GetPreferences(db *gorm.DB, userID uuid.UUID) (models.NotificationPreference, error) {
	var prefs models.NotificationPreference
	err := db.Where("user_id = ?", userID).First(&prefs).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DefaultNotificationPreference(userID), nil
		}
		return models.NotificationPreference{}, err
	}
	return prefs, nil
}

func (s *UserServiceImpl) UpdatePreferences(db *gorm.DB, userID uuid.UUID, prefs models.NotificationPreference) (models.NotificationPreference, error) {
	var existing models.NotificationPreference
	err := db.Where("user_id = ?", userID).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NotificationPreference{}, err
		}
		existing = models.DefaultNotificationPreference(userID)
	}

	existing.EmailEnabled = prefs.EmailEnabled
	existing.PushEnabled = prefs.PushEnabled
	existing.OnAssigned = prefs.OnAssigned
	existing.OnUpdated = prefs.OnUpdated
	existing.OnCompleted = prefs.OnCompleted

	if err := db.Save(&existing).Error; err != nil {
		return models.NotificationPreference{}, err
	}
	return existing, nil
}
