package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/stylhelpr/stylhelpr-backend/internal/errors"
	"github.com/stylhelpr/stylhelpr-backend/internal/middleware"
	"github.com/stylhelpr/stylhelpr-backend/internal/storage"
)

// ThumbnailPresigner is implemented by *storage.S3Storage.
type ThumbnailPresigner interface {
	PresignThumbnailUpload(ctx context.Context, userID, filename, contentType string) (*storage.PresignedURLResponse, error)
}

type UploadController struct {
	storage ThumbnailPresigner
}

func NewUploadController(storage ThumbnailPresigner) *UploadController {
	return &UploadController{
		storage: storage,
	}
}

type ThumbnailUploadRequest struct {
	Filename    string `json:"filename" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required"`
	UserID      string `json:"user_id" binding:"required,max=128"`
}

// ThumbnailUpload generates a presigned URL for an outfit thumbnail
// POST /custom-outfits/thumbnail-upload
func (ctrl *UploadController) ThumbnailUpload(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ThumbnailUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid thumbnail upload request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithValidationError(c, apperrors.FieldErrors(err))
		return
	}

	if actorID, ok := middleware.GetUserID(c); ok && actorID != req.UserID {
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzOwnerOnly, "You can only upload thumbnails for yourself")
		return
	}

	response, err := ctrl.storage.PresignThumbnailUpload(c.Request.Context(), req.UserID, req.Filename, req.ContentType)
	if err != nil {
		var ctErr *storage.ErrContentType
		if errors.As(err, &ctErr) {
			log.Warn("Invalid content type", map[string]interface{}{
				"content_type": req.ContentType,
			})
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only image files are allowed (JPEG, PNG, GIF, WEBP, HEIC)")
			return
		}
		log.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"filename":     req.Filename,
			"content_type": req.ContentType,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to generate upload URL")
		return
	}

	log.Info("Presigned URL generated successfully", map[string]interface{}{
		"user_id": req.UserID,
		"key":     response.Key,
	})

	c.JSON(http.StatusOK, gin.H{
		"upload_url": response.UploadURL,
		"file_url":   response.FileURL,
		"key":        response.Key,
		"expires_at": response.ExpiresAt,
	})
}
