package services

import (
	"errors"
	"strings"
	"time"

	"tasktracker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// CreateTaskInput is the full set of fields a caller may supply when creating
// a task. Status and priority fall back to their defaults when empty.
type CreateTaskInput struct {
	Title            string
	Description      string
	Status           models.TaskStatus
	Priority         models.TaskPriority
	DueDate          *time.Time
	CreatedBy        uuid.UUID
	AssignedTo       *uuid.UUID
	IsRecurring      bool
	RecurringPattern models.RecurringPattern
	RecurringEndDate *time.Time
	ParentTaskID     *uuid.UUID
}

// UpdateTaskPatch carries a partial update; nil fields are left untouched.
// ID, creator and creation time are not patchable. Version, when set, is the
// version the client read and enables the compare-and-swap check.
type UpdateTaskPatch struct {
	Title            *string
	Description      *string
	Status           *models.TaskStatus
	Priority         *models.TaskPriority
	DueDate          *time.Time
	AssignedTo       *uuid.UUID
	ClearAssignee    bool
	IsRecurring      *bool
	RecurringPattern *models.RecurringPattern
	RecurringEndDate *time.Time
	Version          *int64
}

// TaskFilters are AND-ed together with the search query.
type TaskFilters struct {
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssignedTo *uuid.UUID
	CreatedBy  *uuid.UUID
	DueBefore  *time.Time
}

type TaskService interface {
	CreateTask(db *gorm.DB, input CreateTaskInput) (models.Task, error)
	GetTaskByID(db *gorm.DB, id uuid.UUID) (models.Task, error)
	UpdateTask(db *gorm.DB, id uuid.UUID, patch UpdateTaskPatch) (models.Task, error)
	DeleteTask(db *gorm.DB, id uuid.UUID) (bool, error)
	ListByAssignee(db *gorm.DB, userID uuid.UUID) ([]models.Task, error)
	ListByCreator(db *gorm.DB, userID uuid.UUID) ([]models.Task, error)
	ListOverdue(db *gorm.DB, userID uuid.UUID, now time.Time) ([]models.Task, error)
	ListRecurring(db *gorm.DB) ([]models.Task, error)
	ListChildren(db *gorm.DB, parentID uuid.UUID) ([]models.Task, error)
	Search(db *gorm.DB, query string, filters TaskFilters) ([]models.Task, error)
	GetTasksPaginated(db *gorm.DB, sortBy, order string, page, pageSize int) ([]models.Task, int64, error)
}

type TaskServiceImpl struct {
	userService UserService
}

func NewTaskService(userService UserService) *TaskServiceImpl {
	return &TaskServiceImpl{userService: userService}
}

func (s *TaskServiceImpl) CreateTask(db *gorm.DB, input CreateTaskInput) (models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return models.Task{}, &ValidationError{Field: "title", Message: "must not be empty"}
	}

	status := input.Status
	if status == "" {
		status = models.StatusNotStarted
	}
	if !status.Valid() {
		return models.Task{}, &ValidationError{Field: "status", Message: "unknown status " + string(status)}
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return models.Task{}, &ValidationError{Field: "priority", Message: "unknown priority " + string(priority)}
	}

	pattern := input.RecurringPattern
	if pattern == "" {
		pattern = models.PatternNone
	}
	if !pattern.Valid() {
		return models.Task{}, &ValidationError{Field: "recurring_pattern", Message: "unknown pattern " + string(pattern)}
	}

	if err := s.checkUserRef(db, "created_by", input.CreatedBy); err != nil {
		return models.Task{}, err
	}
	if input.AssignedTo != nil {
		if err := s.checkUserRef(db, "assigned_to", *input.AssignedTo); err != nil {
			return models.Task{}, err
		}
	}

	task := models.Task{
		ID:               uuid.Must(uuid.NewV4()),
		Title:            input.Title,
		Description:      input.Description,
		Status:           status,
		Priority:         priority,
		DueDate:          input.DueDate,
		CreatedBy:        input.CreatedBy,
		AssignedTo:       input.AssignedTo,
		IsRecurring:      input.IsRecurring,
		RecurringPattern: pattern,
		RecurringEndDate: input.RecurringEndDate,
		ParentTaskID:     input.ParentTaskID,
		Version:          1,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	// Generated children never recur themselves; this breaks any chance of
	// recursive generation.
	if task.ParentTaskID != nil {
		task.IsRecurring = false
		task.RecurringPattern = models.PatternNone
		task.RecurringEndDate = nil
	}

	if err := db.Create(&task).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (s *TaskServiceImpl) checkUserRef(db *gorm.DB, field string, id uuid.UUID) error {
	exists, err := s.userService.UserExists(db, id)
	if err != nil {
		return err
	}
	if !exists {
		return &ValidationError{Field: field, Message: "user " + id.String() + " does not exist"}
	}
	return nil
}

func (s *TaskServiceImpl) GetTaskByID(db *gorm.DB, id uuid.UUID) (models.Task, error) {
	var task models.Task
	if err := db.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

func (s *TaskServiceImpl) UpdateTask(db *gorm.DB, id uuid.UUID, patch UpdateTaskPatch) (models.Task, error) {
	task, err := s.GetTaskByID(db, id)
	if err != nil {
		return models.Task{}, err
	}

	if patch.Version != nil && *patch.Version != task.Version {
		return models.Task{}, ErrVersionConflict
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return models.Task{}, &ValidationError{Field: "title", Message: "must not be empty"}
		}
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return models.Task{}, &ValidationError{Field: "status", Message: "unknown status " + string(*patch.Status)}
		}
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return models.Task{}, &ValidationError{Field: "priority", Message: "unknown priority " + string(*patch.Priority)}
		}
		task.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if patch.ClearAssignee {
		task.AssignedTo = nil
	} else if patch.AssignedTo != nil {
		if err := s.checkUserRef(db, "assigned_to", *patch.AssignedTo); err != nil {
			return models.Task{}, err
		}
		task.AssignedTo = patch.AssignedTo
	}
	if patch.IsRecurring != nil {
		task.IsRecurring = *patch.IsRecurring
	}
	if patch.RecurringPattern != nil {
		if !patch.RecurringPattern.Valid() {
			return models.Task{}, &ValidationError{Field: "recurring_pattern", Message: "unknown pattern " + string(*patch.RecurringPattern)}
		}
		task.RecurringPattern = *patch.RecurringPattern
	}
	if patch.RecurringEndDate != nil {
		task.RecurringEndDate = patch.RecurringEndDate
	}

	oldVersion := task.Version
	task.Version = oldVersion + 1
	task.UpdatedAt = time.Now()

	// Compare-and-swap on the version column; a concurrent writer bumped it
	// first when RowsAffected comes back zero.
	result := db.Model(&models.Task{}).
		Where("id = ? AND version = ?", id, oldVersion).
		Select("*").Omit("id", "created_by", "created_at").
		Updates(&task)
	if result.Error != nil {
		return models.Task{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Task{}, ErrVersionConflict
	}

	return s.GetTaskByID(db, id)
}

func (s *TaskServiceImpl) DeleteTask(db *gorm.DB, id uuid.UUID) (bool, error) {
	result := db.Delete(&models.Task{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *TaskServiceImpl) ListByAssignee(db *gorm.DB, userID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	err := db.Where("assigned_to = ?", userID).Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

func (s *TaskServiceImpl) ListByCreator(db *gorm.DB, userID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	err := db.Where("created_by = ?", userID).Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

func (s *TaskServiceImpl) ListOverdue(db *gorm.DB, userID uuid.UUID, now time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := db.
		Where("due_date IS NOT NULL AND due_date < ? AND status <> ?", now, models.StatusCompleted).
		Where("assigned_to = ? OR created_by = ?", userID, userID).
		Order("due_date ASC").
		Find(&tasks).Error
	return tasks, err
}

func (s *TaskServiceImpl) ListRecurring(db *gorm.DB) ([]models.Task, error) {
	var tasks []models.Task
	err := db.
		Where("is_recurring = ? AND recurring_pattern <> ?", true, models.PatternNone).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

func (s *TaskServiceImpl) ListChildren(db *gorm.DB, parentID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	err := db.Where("parent_task_id = ?", parentID).Order("due_date ASC").Find(&tasks).Error
	return tasks, err
}

func (s *TaskServiceImpl) Search(db *gorm.DB, query string, filters TaskFilters) ([]models.Task, error) {
	tx := db.Model(&models.Task{})

	if q := strings.TrimSpace(query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filters.Status != nil {
		tx = tx.Where("status = ?", *filters.Status)
	}
	if filters.Priority != nil {
		tx = tx.Where("priority = ?", *filters.Priority)
	}
	if filters.AssignedTo != nil {
		tx = tx.Where("assigned_to = ?", *filters.AssignedTo)
	}
	if filters.CreatedBy != nil {
		tx = tx.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.DueBefore != nil {
		tx = tx.Where("due_date IS NOT NULL AND due_date < ?", *filters.DueBefore)
	}

	var tasks []models.Task
	err := tx.Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

func (s *TaskServiceImpl) GetTasksPaginated(db *gorm.DB, sortBy, order string, page, pageSize int) ([]models.Task, int64, error) {
	switch sortBy {
	case "created_at", "due_date", "title", "priority", "status":
	default:
		sortBy = "created_at"
	}
	if order != "asc" {
		order = "desc"
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	var total int64
	if err := db.Model(&models.Task{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []models.Task
	err := db.
		Order(sortBy + " " + order).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tasks).Error
	return tasks, total, err
}
