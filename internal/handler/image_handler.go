package handler

import (
	"errors"
	"mime"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/nutriscan-backend/internal/logging"
	"github.com/nutriscan-backend/internal/middleware"
	"github.com/nutriscan-backend/internal/repository"
	"github.com/nutriscan-backend/internal/service"
	"github.com/nutriscan-backend/pkg/response"
)

// ImageHandler streams stored food images back to their owners
type ImageHandler struct {
	analysisService *service.AnalysisService
}

// NewImageHandler creates a new ImageHandler
func NewImageHandler(analysisService *service.AnalysisService) *ImageHandler {
	return &ImageHandler{analysisService: analysisService}
}

// RegisterRoutes registers image routes on the router group
func (h *ImageHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	rg.GET("/image/:fileId", authMiddleware, h.Serve)
}

// Serve streams an image blob by file id, scoped to the caller
// GET /image/:fileId
func (h *ImageHandler) Serve(c *gin.Context) {
	userID := middleware.GetUserID(c)
	fileID := c.Param("fileId")

	img, blob, size, err := h.analysisService.OpenImage(c.Request.Context(), fileID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrFoodImageNotFound) {
			response.NotFound(c, "Cannot find the image you are looking for!", "Food Image Not Found")
			return
		}
		logging.Error("image serve failed for user %d file %s: %v", userID, fileID, err)
		response.InternalError(c, "Failed to load the image")
		return
	}
	defer blob.Close()

	contentType := mime.TypeByExtension(filepath.Ext(img.StorageName()))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(200, size, contentType, blob, nil)
}
