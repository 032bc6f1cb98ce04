package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/model"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/service"
	apperrors "github.com/stylhelpr/stylhelpr-backend/internal/errors"
	"github.com/stylhelpr/stylhelpr-backend/internal/middleware"
)

type HandoffController struct {
	handoffService service.HandoffService
}

func NewHandoffController(handoffService service.HandoffService) *HandoffController {
	return &HandoffController{
		handoffService: handoffService,
	}
}

// Put stores a prompt for the user's next screen, replacing any pending one
// PUT /handoff/:userId
func (ctrl *HandoffController) Put(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID := c.Param("userId")

	var req model.PutHandoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid handoff request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.RespondWithValidationError(c, apperrors.FieldErrors(err))
		return
	}

	if _, err := ctrl.handoffService.Put(c.Request.Context(), userID, &req); err != nil {
		log.Error("Failed to store handoff", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.HandoffUnavailable, "Handoff is temporarily unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Handoff stored",
	})
}

// Take returns and clears the pending prompt, 204 when there is none
// POST /handoff/:userId/take
func (ctrl *HandoffController) Take(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID := c.Param("userId")

	handoff, err := ctrl.handoffService.Take(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrHandoffEmpty) {
			c.Status(http.StatusNoContent)
			return
		}
		log.Error("Failed to take handoff", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.HandoffUnavailable, "Handoff is temporarily unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"handoff": handoff,
	})
}
