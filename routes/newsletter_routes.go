package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/leads_end/controllers"
	"github.com/BerniceZTT/leads_end/middleware"
)

// RegisterNewsletterRoutes 注册邮件订阅路由
func RegisterNewsletterRoutes(router *gin.Engine, deps Dependencies) {
	nc := controllers.NewNewsletterController(deps.Newsletter)

	newsletter := router.Group("/api/newsletter")
	newsletter.Use(middleware.RateLimit(deps.Limiter))

	newsletter.POST("/subscribe", nc.Subscribe)
	newsletter.POST("/unsubscribe", nc.Unsubscribe)
}
