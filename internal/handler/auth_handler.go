package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/nutriscan-backend/internal/config"
	"github.com/nutriscan-backend/internal/middleware"
	"github.com/nutriscan-backend/internal/service"
	"github.com/nutriscan-backend/pkg/response"
)

// AuthHandler handles registration, login and session endpoints
type AuthHandler struct {
	authService *service.AuthService
	sessionCfg  config.SessionConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService, sessionCfg config.SessionConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessionCfg:  sessionCfg,
	}
}

// RegisterRoutes registers auth routes on the router group
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", authMiddleware, h.Logout)
	}

	user := rg.Group("/user")
	user.Use(authMiddleware)
	{
		user.GET("/me", h.Me)
	}
}

// Register handles user registration
// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request!", err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			response.Conflict(c, "Username already taken")
			return
		}
		if errors.Is(err, service.ErrEmailTaken) {
			response.Conflict(c, "Email already taken")
			return
		}
		response.InternalError(c, "Failed to register")
		return
	}

	response.Created(c, "Registration successful!", gin.H{
		"id":        user.ID,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"username":  user.Username,
		"email":     user.Email,
	})
}

// Login handles user login and opens a session
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request!", err.Error())
		return
	}

	cookieValue, user, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "Invalid username or password")
			return
		}
		response.InternalError(c, "Failed to login")
		return
	}

	c.SetCookie(h.sessionCfg.CookieName, cookieValue, h.sessionCfg.TTLSeconds, "/", "", false, true)

	response.Success(c, "Logged in successfully!", gin.H{
		"id":        user.ID,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"username":  user.Username,
		"email":     user.Email,
	})
}

// Logout handles user logout
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if cookieValue, err := c.Cookie(h.sessionCfg.CookieName); err == nil {
		_ = h.authService.Logout(c.Request.Context(), cookieValue)
	}
	c.SetCookie(h.sessionCfg.CookieName, "", -1, "/", "", false, true)

	response.Success(c, "Logged out successfully!", nil)
}

// Me returns the logged-in user's profile
// GET /user/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := h.authService.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "Failed to load profile")
		return
	}

	response.Success(c, "Current user", gin.H{
		"id":        user.ID,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"username":  user.Username,
		"email":     user.Email,
		"createdAt": user.CreatedAt,
	})
}
