package handlers

import (
	"net/http"

	"tasktracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RecurringHandler struct {
	db          *gorm.DB
	taskManager services.TaskManagerService
}

func NewRecurringHandler(db *gorm.DB, taskManager services.TaskManagerService) *RecurringHandler {
	return &RecurringHandler{db: db, taskManager: taskManager}
}

// ProcessRecurring is the manual batch trigger: it materializes instances
// for every recurring parent that has none yet. Admin only.
func (h *RecurringHandler) ProcessRecurring(c *gin.Context) {
	created, err := h.taskManager.ProcessRecurringTasks(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process recurring tasks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"instances_created": created})
}
