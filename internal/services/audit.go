package services

import (
	"time"

	"tasktracker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// AuditFilter narrows GetLogs; nil fields match everything.
type AuditFilter struct {
	EntityType *models.AuditEntityType
	EntityID   *uuid.UUID
	UserID     *uuid.UUID
	Limit      int
}

// AuditService is the only writer of audit rows. Rows are written once and
// never touched again.
type AuditService interface {
	LogCreated(db *gorm.DB, task models.Task, actingUserID uuid.UUID) error
	LogUpdated(db *gorm.DB, task models.Task, actingUserID uuid.UUID, changedFields []string) error
	LogDeleted(db *gorm.DB, taskID uuid.UUID, title string, actingUserID uuid.UUID) error
	LogAssigned(db *gorm.DB, task models.Task, actingUserID uuid.UUID, oldAssignee, newAssignee *uuid.UUID) error
	LogStatusChanged(db *gorm.DB, task models.Task, actingUserID uuid.UUID, oldStatus, newStatus models.TaskStatus) error
	LogCompleted(db *gorm.DB, task models.Task, actingUserID uuid.UUID) error
	GetLogs(db *gorm.DB, filter AuditFilter) ([]models.AuditLog, error)
}

type AuditServiceImpl struct{}

func NewAuditService() *AuditServiceImpl {
	return &AuditServiceImpl{}
}

func (s *AuditServiceImpl) log(db *gorm.DB, entityType models.AuditEntityType, entityID uuid.UUID, action models.AuditAction, actingUserID uuid.UUID, details interface{}) error {
	entry := models.AuditLog{
		ID:         uuid.Must(uuid.NewV4()),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     actingUserID,
		Details:    models.MarshalDetails(details),
		Timestamp:  time.Now(),
	}
	return db.Create(&entry).Error
}

func (s *AuditServiceImpl) LogCreated(db *gorm.DB, task models.Task, actingUserID uuid.UUID) error {
	return s.log(db, models.EntityTask, task.ID, models.ActionCreated, actingUserID,
		models.CreatedDetails{Title: task.Title})
}

func (s *AuditServiceImpl) LogUpdated(db *gorm.DB, task models.Task, actingUserID uuid.UUID, changedFields []string) error {
	return s.log(db, models.EntityTask, task.ID, models.ActionUpdated, actingUserID,
		models.UpdatedDetails{ChangedFields: changedFields})
}

func (s *AuditServiceImpl) LogDeleted(db *gorm.DB, taskID uuid.UUID, title string, actingUserID uuid.UUID) error {
	return s.log(db, models.EntityTask, taskID, models.ActionDeleted, actingUserID,
		models.DeletedDetails{Title: title})
}

func (s *AuditServiceImpl) LogAssigned(db *gorm.DB, task models.Task, actingUserID uuid.UUID, oldAssignee, newAssignee *uuid.UUID) error {
	return s.log(db, models.EntityTask, task.ID, models.ActionAssigned, actingUserID,
		models.AssignedDetails{OldAssignee: oldAssignee, NewAssignee: newAssignee})
}

func (s *AuditServiceImpl) LogStatusChanged(db *gorm.DB, task models.Task, actingUserID uuid.UUID, oldStatus, newStatus models.TaskStatus) error {
	return s.log(db, models.EntityTask, task.ID, models.ActionStatusChanged, actingUserID,
		models.StatusChangedDetails{OldStatus: oldStatus, NewStatus: newStatus})
}

func (s *AuditServiceImpl) LogCompleted(db *gorm.DB, task models.Task, actingUserID uuid.UUID) error {
	return s.log(db, models.EntityTask, task.ID, models.ActionCompleted, actingUserID,
		models.CompletedDetails{Title: task.Title})
}

func (s *AuditServiceImpl) GetLogs(db *gorm.DB, filter AuditFilter) ([]models.AuditLog, error) {
	tx := db.Model(&models.AuditLog{})
	if filter.EntityType != nil {
		tx = tx.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.EntityID != nil {
		tx = tx.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.UserID != nil {
		tx = tx.Where("user_id = ?", *filter.UserID)
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}

	var logs []models.AuditLog
	err := tx.Order("timestamp DESC").Find(&logs).Error
	return logs, err
}
