package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-market/marketplace-backend/internal/auth"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers preference routes on an authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/settings")
	{
		group.GET("/preferences", h.Get)
		group.PUT("/preferences", h.Update)
	}
}

func (h *Handler) Get(c *gin.Context) {
	prefs, err := h.service.Get(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.logger.Error("load preferences failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load preferences"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "preferences": prefs})
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	prefs, err := h.service.Update(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		h.logger.Error("update preferences failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to update preferences"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "preferences": prefs})
}
