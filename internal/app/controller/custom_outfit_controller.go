package controller

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/model"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/service"
	apperrors "github.com/stylhelpr/stylhelpr-backend/internal/errors"
	"github.com/stylhelpr/stylhelpr-backend/internal/middleware"
	"github.com/stylhelpr/stylhelpr-backend/internal/spreadsheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CustomOutfitController struct {
	outfitService service.CustomOutfitService
}

func NewCustomOutfitController(outfitService service.CustomOutfitService) *CustomOutfitController {
	return &CustomOutfitController{
		outfitService: outfitService,
	}
}

// Create saves a new outfit
// POST /custom-outfits
func (ctrl *CustomOutfitController) Create(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req model.CreateCustomOutfitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create custom outfit request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithValidationError(c, apperrors.FieldErrors(err))
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		log.Warn("Custom outfit failed validation", map[string]interface{}{
			"fields": fields,
		})
		apperrors.RespondWithValidationError(c, fields)
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if actorID, ok := middleware.GetUserID(c); ok && actorID != req.UserID {
		log.Warn("Custom outfit create for another user", map[string]interface{}{
			"actor_id": actorID,
			"user_id":  req.UserID,
		})
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzOwnerOnly, "You can only create outfits for yourself")
		return
	}

	outfit, err := ctrl.outfitService.Create(c.Request.Context(), &req)
	if err != nil {
		log.Error("Failed to create custom outfit", err, map[string]interface{}{
			"user_id": req.UserID,
		})
		apperrors.ParseAndRespond(c, err, "custom outfit")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Custom outfit created",
		"outfit":  outfit,
	})
}

// GetByUser lists a user's outfits, newest first
// GET /custom-outfits/:userId
func (ctrl *CustomOutfitController) GetByUser(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID := c.Param("userId")

	outfits, err := ctrl.outfitService.GetByUser(c.Request.Context(), userID)
	if err != nil {
		log.Error("Failed to fetch custom outfits", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, err, "custom outfit")
		return
	}

	c.JSON(http.StatusOK, outfits)
}

// Count returns how many outfits a user saved
// GET /custom-outfits/count/:userId
func (ctrl *CustomOutfitController) Count(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID := c.Param("userId")

	count, err := ctrl.outfitService.CountByUser(c.Request.Context(), userID)
	if err != nil {
		log.Error("Failed to count custom outfits", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, err, "custom outfit")
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// Update applies a partial patch
// PUT /custom-outfits/:id
func (ctrl *CustomOutfitController) Update(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	id := c.Param("id")

	var req model.UpdateCustomOutfitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update custom outfit request", map[string]interface{}{
			"outfit_id": id,
			"error":     err.Error(),
		})
		apperrors.RespondWithValidationError(c, apperrors.FieldErrors(err))
		return
	}
	fields := req.Validate()
	if req.CanvasData.Valid {
		if err := binding.Validator.ValidateStruct(&req.CanvasData.Value); err != nil {
			for k, v := range apperrors.FieldErrors(err) {
				fields["canvas_data."+k] = v
			}
		}
	}
	if len(fields) > 0 {
		log.Warn("Custom outfit patch failed validation", map[string]interface{}{
			"outfit_id": id,
			"fields":    fields,
		})
		apperrors.RespondWithValidationError(c, fields)
		return
	}

	actorID, _ := middleware.GetUserID(c)
	outfit, err := ctrl.outfitService.Update(c.Request.Context(), actorID, id, &req)
	if err != nil {
		ctrl.respondServiceError(c, err, id)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Custom outfit updated",
		"outfit":  outfit,
	})
}

// Delete removes an outfit. Unknown ids succeed.
// DELETE /custom-outfits/:id
func (ctrl *CustomOutfitController) Delete(c *gin.Context) {
	id := c.Param("id")

	actorID, _ := middleware.GetUserID(c)
	if err := ctrl.outfitService.Delete(c.Request.Context(), actorID, id); err != nil {
		ctrl.respondServiceError(c, err, id)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Custom outfit deleted",
	})
}

// Export streams the user's outfits as an XLSX workbook
// GET /custom-outfits/export/:userId
func (ctrl *CustomOutfitController) Export(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID := c.Param("userId")

	outfits, err := ctrl.outfitService.GetByUser(c.Request.Context(), userID)
	if err != nil {
		log.Error("Failed to fetch custom outfits for export", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, err, "custom outfit")
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteOutfits(&buf, outfits); err != nil {
		log.Error("Failed to build outfit workbook", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "Failed to export outfits")
		return
	}

	filename := fmt.Sprintf("outfits-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())

	log.Info("Custom outfits exported", map[string]interface{}{
		"user_id": userID,
		"count":   len(outfits),
	})
}

func (ctrl *CustomOutfitController) respondServiceError(c *gin.Context, err error, id string) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case errors.Is(err, service.ErrEmptyPatch):
		apperrors.BadRequest(c, apperrors.ValidationEmptyPatch, "At least one field must be provided")
	case errors.Is(err, service.ErrCustomOutfitNotFound):
		apperrors.NotFound(c, apperrors.OutfitNotFound, "Custom outfit not found")
	case errors.Is(err, service.ErrForbiddenOutfit):
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzOwnerOnly, "This outfit belongs to another user")
	default:
		log.Error("Custom outfit operation failed", err, map[string]interface{}{
			"outfit_id": id,
		})
		apperrors.ParseAndRespond(c, err, "custom outfit")
	}
}
