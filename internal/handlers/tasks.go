package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"tasktracker/backend/internal/models"
	"tasktracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskHandler struct {
	db          *gorm.DB
	taskManager services.TaskManagerService
	taskService services.TaskService
}

func NewTaskHandler(db *gorm.DB, taskManager services.TaskManagerService, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{db: db, taskManager: taskManager, taskService: taskService}
}

type createTaskRequest struct {
	Title            string     `json:"title" binding:"required"`
	Description      string     `json:"description"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	DueDate          *time.Time `json:"due_date"`
	AssignedTo       *string    `json:"assigned_to"`
	IsRecurring      bool       `json:"is_recurring"`
	RecurringPattern string     `json:"recurring_pattern"`
	RecurringEndDate *time.Time `json:"recurring_end_date"`
}

type updateTaskRequest struct {
	Title            *string    `json:"title"`
	Description      *string    `json:"description"`
	Status           *string    `json:"status"`
	Priority         *string    `json:"priority"`
	DueDate          *time.Time `json:"due_date"`
	AssignedTo       *string    `json:"assigned_to"`
	ClearAssignee    bool       `json:"clear_assignee"`
	IsRecurring      *bool      `json:"is_recurring"`
	RecurringPattern *string    `json:"recurring_pattern"`
	RecurringEndDate *time.Time `json:"recurring_end_date"`
	Version          *int64     `json:"version"`
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	actingUserID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.CreateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		Status:           models.TaskStatus(req.Status),
		Priority:         models.TaskPriority(req.Priority),
		DueDate:          req.DueDate,
		IsRecurring:      req.IsRecurring,
		RecurringPattern: models.RecurringPattern(req.RecurringPattern),
		RecurringEndDate: req.RecurringEndDate,
	}

	if req.AssignedTo != nil {
		assignee, err := uuid.FromString(*req.AssignedTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assigned_to"})
			return
		}
		input.AssignedTo = &assignee
	}

	task, err := h.taskManager.CreateTask(h.db, input, actingUserID)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actingUserID, ok := currentUserID(c)
	if !ok {
		return
	}

	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := services.UpdateTaskPatch{
		Title:            req.Title,
		Description:      req.Description,
		DueDate:          req.DueDate,
		ClearAssignee:    req.ClearAssignee,
		IsRecurring:      req.IsRecurring,
		RecurringEndDate: req.RecurringEndDate,
		Version:          req.Version,
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		patch.Status = &status
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		patch.Priority = &priority
	}
	if req.RecurringPattern != nil {
		pattern := models.RecurringPattern(*req.RecurringPattern)
		patch.RecurringPattern = &pattern
	}
	if req.AssignedTo != nil {
		assignee, err := uuid.FromString(*req.AssignedTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assigned_to"})
			return
		}
		patch.AssignedTo = &assignee
	}

	task, err := h.taskManager.UpdateTask(h.db, id, patch, actingUserID)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actingUserID, ok := currentUserID(c)
	if !ok {
		return
	}

	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	existed, err := h.taskManager.DeleteTask(h.db, id, actingUserID)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	if !existed {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	task, err := h.taskService.GetTaskByID(h.db, id)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	sortBy := c.DefaultQuery("sortBy", "created_at")
	order := c.DefaultQuery("order", "desc")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))

	tasks, total, err := h.taskService.GetTasksPaginated(h.db, sortBy, order, page, pageSize)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": total,
	})
}

func (h *TaskHandler) GetTasksByUser(c *gin.Context) {
	userID, err := uuid.FromString(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var tasks []models.Task
	switch c.DefaultQuery("relation", "assigned") {
	case "created":
		tasks, err = h.taskService.ListByCreator(h.db, userID)
	default:
		tasks, err = h.taskService.ListByAssignee(h.db, userID)
	}
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetOverdueTasks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListOverdue(h.db, userID, time.Now())
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) SearchTasks(c *gin.Context) {
	query := c.Query("q")

	var filters services.TaskFilters
	if v := c.Query("status"); v != "" {
		status := models.TaskStatus(v)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + v})
			return
		}
		filters.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		priority := models.TaskPriority(v)
		if !priority.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown priority " + v})
			return
		}
		filters.Priority = &priority
	}
	if v := c.Query("assigned_to"); v != "" {
		id, err := uuid.FromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assigned_to"})
			return
		}
		filters.AssignedTo = &id
	}
	if v := c.Query("created_by"); v != "" {
		id, err := uuid.FromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid created_by"})
			return
		}
		filters.CreatedBy = &id
	}
	if v := c.Query("due_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_before"})
			return
		}
		filters.DueBefore = &t
	}

	tasks, err := h.taskService.Search(h.db, query, filters)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}
	str, ok := value.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return uuid.Nil, false
	}
	id, err := uuid.FromString(str)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID"})
		return uuid.Nil, false
	}
	return id, true
}

func handleTaskError(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, services.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "task was modified concurrently"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process task request"})
	}
}
