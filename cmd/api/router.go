package api

import (
	"net/http"

	"pmchat-backend/internal/app"
	authDelivery "pmchat-backend/internal/auth/delivery"
	conversationDelivery "pmchat-backend/internal/conversation/delivery"
	notificationDelivery "pmchat-backend/internal/notification/delivery"
	projectDelivery "pmchat-backend/internal/project/delivery"
	taskDelivery "pmchat-backend/internal/task/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, a *app.App) {
	// Health check (no auth required)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "auth": a.Auth.Mode(), "providers": a.Providers.Names()})
	})

	protected := r.Group("")
	protected.Use(authDelivery.AuthMiddleware(a.Auth))
	{
		taskDelivery.NewTaskHandler(a.Tasks).RegisterRoutes(protected)

		projectDelivery.NewProjectHandler(a.Projects).RegisterRoutes(protected)
		projectDelivery.NewEmployeeHandler(a.Employees).RegisterRoutes(protected)
		projectDelivery.NewRiskHandler(a.Risks).RegisterRoutes(protected)

		conversationDelivery.NewConversationHandler(a.Conversations, a.Relay).RegisterRoutes(protected)
		conversationDelivery.NewChatHandler(a.Relay).RegisterRoutes(protected)

		// FCM routes need the device token database
		if a.DeviceTokens != nil {
			notificationDelivery.NewDeviceHandler(a.DeviceTokens).RegisterRoutes(protected)
		}
	}
}
