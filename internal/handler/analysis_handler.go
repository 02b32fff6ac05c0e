package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nutriscan-backend/internal/logging"
	"github.com/nutriscan-backend/internal/metrics"
	"github.com/nutriscan-backend/internal/middleware"
	"github.com/nutriscan-backend/internal/repository"
	"github.com/nutriscan-backend/internal/service"
	"github.com/nutriscan-backend/pkg/response"
)

// AnalysisHandler handles the analysis submission, history and
// deletion endpoints
type AnalysisHandler struct {
	analysisService *service.AnalysisService
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// RegisterRoutes registers analysis routes on the router group
func (h *AnalysisHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	analysis := rg.Group("/analysis")
	analysis.Use(authMiddleware)
	{
		analysis.POST("/recommend", h.Recommend)
		analysis.GET("/history", h.History)
		analysis.DELETE("/history/:analysisId", h.Delete)
	}
}

// Recommend handles an analysis submission
// POST /analysis/recommend  (multipart: file + selectedCondition)
func (h *AnalysisHandler) Recommend(c *gin.Context) {
	userID := middleware.GetUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.NotFound(c, "Food Image is needed", "No Image of Food is given!")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, "Failed to read uploaded image")
		return
	}
	defer file.Close()

	condition := c.PostForm("selectedCondition")

	data, err := h.analysisService.Submit(c.Request.Context(), userID, service.Upload{
		FileName: fileHeader.Filename,
		Content:  file,
	}, condition)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCondition) {
			metrics.RecordAnalysisOperation("submit", "rejected")
			response.BadRequest(c, "Invalid request!", service.ErrInvalidCondition.Error())
			return
		}
		metrics.RecordAnalysisOperation("submit", "failed")
		logging.Error("analysis submission failed for user %d: %v", userID, err)
		response.InternalError(c, "Failed to analyse the image")
		return
	}

	metrics.RecordAnalysisOperation("submit", "success")
	response.Created(c, "Image saved successfully!", data)
}

type historyQuery struct {
	Page      int    `form:"page,default=1" binding:"min=1"`
	Limit     int    `form:"limit,default=10" binding:"min=1,max=50"`
	SortBy    string `form:"sortBy,default=createdAt" binding:"oneof=createdAt medicalCondition predictedFood"`
	SortOrder string `form:"sortOrder,default=desc" binding:"oneof=asc desc"`
}

// History lists one page of the user's past analyses
// GET /analysis/history?page&limit&sortBy&sortOrder
func (h *AnalysisHandler) History(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Invalid query parameters", err.Error())
		return
	}

	data, err := h.analysisService.History(c.Request.Context(), userID, service.HistoryQuery{
		Page:      q.Page,
		Limit:     q.Limit,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) {
			response.BadRequest(c, "Invalid query parameters", err.Error())
			return
		}
		logging.Error("history query failed for user %d: %v", userID, err)
		response.InternalError(c, "Failed to load history")
		return
	}

	response.Success(c, "All Your Analysis Sessions", data)
}

// Delete removes one analysis with its image record and blob
// DELETE /analysis/history/:analysisId
func (h *AnalysisHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)

	analysisID, err := strconv.ParseUint(c.Param("analysisId"), 10, 64)
	if err != nil || analysisID == 0 {
		response.BadRequest(c, "Invalid request!", "Analysis ID must be a positive number")
		return
	}

	if err := h.analysisService.Delete(c.Request.Context(), uint(analysisID), userID); err != nil {
		if errors.Is(err, repository.ErrAnalysisNotFound) || errors.Is(err, repository.ErrFoodImageNotFound) {
			response.NotFound(c, "No Such records found to delete!", "No such records")
			return
		}
		metrics.RecordAnalysisOperation("delete", "failed")
		logging.Error("analysis delete failed for user %d: %v", userID, err)
		response.InternalError(c, "Failed to delete the record")
		return
	}

	metrics.RecordAnalysisOperation("delete", "success")
	response.Success(c, "Analysis Record Deleted Successfully!", nil)
}
