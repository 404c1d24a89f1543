package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	auth := APIKeyAuthMiddleware(h.cfg, h.logger)

	// Отчеты пользователей
	api.POST("/reports", auth, h.submitReport)

	// Инциденты: чтение открыто, изменение статуса по ключу
	incidents := api.Group("/incidents")
	{
		incidents.GET("", h.listIncidents)
		incidents.GET("/:id", h.getIncident)
		incidents.POST("/:id/resolve", auth, h.resolveIncident)
	}

	// Безопасный маршрут
	api.POST("/routes/safe", h.planSafeRoute)

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
