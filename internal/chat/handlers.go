package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/riskops/internal/confirm"
)

// Handler provides HTTP endpoints for the assistant.
type Handler struct {
	service *Service
	enabled bool
}

// NewHandler creates a chat handler. When enabled is false every route
// answers 404.
func NewHandler(service *Service, enabled bool) *Handler {
	return &Handler{service: service, enabled: enabled}
}

// RegisterRoutes sets up the chat routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/chat", h.featureGate())
	g.POST("", h.Chat)
	g.POST("/confirm", h.Confirm)
}

func (h *Handler) featureGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Risk chat feature is not enabled",
			})
			return
		}
		c.Next()
	}
}

// Chat handles POST /api/chat
func (h *Handler) Chat(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "user_id and text are required",
		})
		return
	}

	resp, err := h.service.Chat(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrAssistantUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "assistant_unavailable",
				"message": "The assistant is temporarily unavailable. Please try again.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Chat processing failed",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Confirm handles POST /api/chat/confirm
func (h *Handler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "user_id, confirm_id and answer are required",
		})
		return
	}

	resp, err := h.service.Confirm(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, confirm.ErrInvalidAnswer):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "answer must be 'yes' or 'no'",
		})
	case errors.Is(err, confirm.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Confirmation not found or expired",
		})
	case errors.Is(err, confirm.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "You do not have permission to confirm this action",
		})
	case errors.Is(err, ErrDenied):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "denied",
			"message": resp.Message,
		})
	case errors.Is(err, confirm.ErrExpired):
		c.JSON(http.StatusGone, gin.H{
			"error":   "expired",
			"message": "Confirmation expired. Please request the action again.",
		})
	case errors.Is(err, confirm.ErrExecutionFailed):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "execution_failed",
			"message": "Failed to execute action. It was not applied; please request it again.",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to process confirmation",
		})
	}
}
