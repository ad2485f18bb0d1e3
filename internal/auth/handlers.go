package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers exposes the auth HTTP surface.
type Handlers struct {
	service *Service
}

// NewHandlers creates auth handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes mounts the public auth routes and the authenticated
// profile route.
func (h *Handlers) RegisterRoutes(public, authed *gin.RouterGroup) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)
	authed.GET("/auth/me", h.Me)
}

// Register handles POST /auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "VALIDATION", "message": err.Error()})
		return
	}

	operator, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if authErr, ok := err.(AuthError); ok {
			status := http.StatusBadRequest
			if authErr.Code == ErrEmailExists.Code {
				status = http.StatusConflict
			}
			c.JSON(status, gin.H{"error": authErr.Code, "message": authErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL", "message": "registration failed"})
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(operator))
}

// Login handles POST /auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "VALIDATION", "message": err.Error()})
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if authErr, ok := err.(AuthError); ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Code, "message": authErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL", "message": "login failed"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me handles GET /auth/me
func (h *Handlers) Me(c *gin.Context) {
	profile, err := h.service.GetProfile(c.Request.Context(), GetUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrUserNotFound.Code, "message": ErrUserNotFound.Message})
		return
	}

	c.JSON(http.StatusOK, profile)
}
