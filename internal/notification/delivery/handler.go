package delivery

import (
	"net/http"

	"pmchat-backend/internal/notification/repository"
	"pmchat-backend/pkg/apperror"
	"pmchat-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// DeviceHandler registers and removes push notification tokens
type DeviceHandler struct {
	tokenRepo repository.DeviceTokenRepository
}

func NewDeviceHandler(tokenRepo repository.DeviceTokenRepository) *DeviceHandler {
	return &DeviceHandler{tokenRepo: tokenRepo}
}

type RegisterTokenRequest struct {
	Email      string `json:"email"`
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"deviceInfo"`
}

func (h *DeviceHandler) RegisterRoutes(rg gin.IRoutes) {
	rg.POST("/fcm/register", h.RegisterToken)
	rg.DELETE("/fcm/:token", h.UnregisterToken)
}

// RegisterToken stores a device token for the caller. The verified email set
// by the auth middleware wins over the body.
// POST /fcm/register
func (h *DeviceHandler) RegisterToken(c *gin.Context) {
	var req RegisterTokenRequest
	if err := response.Bind(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	email := response.CallerEmail(c, req.Email)
	if email == "" {
		response.Error(c, apperror.Validation("fcm.Register", "email is required"))
		return
	}

	if err := h.tokenRepo.SaveToken(c.Request.Context(), email, req.Token, req.DeviceInfo); err != nil {
		response.Error(c, apperror.Store("fcm.Register", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DELETE /fcm/:token
func (h *DeviceHandler) UnregisterToken(c *gin.Context) {
	if err := h.tokenRepo.DeleteToken(c.Request.Context(), c.Param("token")); err != nil {
		response.Error(c, apperror.Store("fcm.Unregister", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
