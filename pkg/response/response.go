package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the uniform API response structure. Every response,
// success or failure, carries the Success flag so clients can branch
// on it without inspecting status codes.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// Success sends a 200 response with data
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created sends a 201 response with data
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends an error response with the given status code
func Error(c *gin.Context, statusCode int, message string, detail interface{}) {
	c.JSON(statusCode, Envelope{
		Success: false,
		Message: message,
		Error:   detail,
	})
}

// BadRequest sends a 400 error response
func BadRequest(c *gin.Context, message string, detail interface{}) {
	Error(c, http.StatusBadRequest, message, detail)
}

// Unauthorized sends a 401 error response
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// NotFound sends a 404 error response
func NotFound(c *gin.Context, message string, detail interface{}) {
	Error(c, http.StatusNotFound, message, detail)
}

// Conflict sends a 409 error response
func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message, nil)
}

// InternalError sends a 500 error response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message, nil)
}
