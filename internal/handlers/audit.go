package handlers

import (
	"net/http"
	"strconv"

	"tasktracker/backend/internal/models"
	"tasktracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type AuditHandler struct {
	db           *gorm.DB
	auditService services.AuditService
}

func NewAuditHandler(db *gorm.DB, auditService services.AuditService) *AuditHandler {
	return &AuditHandler{db: db, auditService: auditService}
}

// GetAuditLogs returns entries newest first, optionally narrowed by entity
// type, entity id or acting user. Admin only (enforced by route middleware).
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	var filter services.AuditFilter

	if v := c.Query("entity_type"); v != "" {
		entityType := models.AuditEntityType(v)
		if entityType != models.EntityTask && entityType != models.EntityUser {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown entity type " + v})
			return
		}
		filter.EntityType = &entityType
	}
	if v := c.Query("entity_id"); v != "" {
		id, err := uuid.FromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity_id"})
			return
		}
		filter.EntityID = &id
	}
	if v := c.Query("user_id"); v != "" {
		id, err := uuid.FromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		filter.UserID = &id
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	logs, err := h.auditService.GetLogs(h.db, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query audit logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}
