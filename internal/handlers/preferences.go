package handlers

import (
	"net/http"

	"tasktracker/backend/internal/models"
	"tasktracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PreferencesHandler struct {
	db          *gorm.DB
	userService services.UserService
}

func NewPreferencesHandler(db *gorm.DB, userService services.UserService) *PreferencesHandler {
	return &PreferencesHandler{db: db, userService: userService}
}

type preferencesRequest struct {
	EmailEnabled bool `json:"email_enabled"`
	PushEnabled  bool `json:"push_enabled"`
	OnAssigned   bool `json:"on_assigned"`
	OnUpdated    bool `json:"on_updated"`
	OnCompleted  bool `json:"on_completed"`
}

func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	prefs, err := h.userService.GetPreferences(h.db, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs, err := h.userService.UpdatePreferences(h.db, userID, models.NotificationPreference{
		EmailEnabled: req.EmailEnabled,
		PushEnabled:  req.PushEnabled,
		OnAssigned:   req.OnAssigned,
		OnUpdated:    req.OnUpdated,
		OnCompleted:  req.OnCompleted,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}
