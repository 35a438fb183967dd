package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/leads_end/controllers"
	"github.com/BerniceZTT/leads_end/middleware"
	"github.com/BerniceZTT/leads_end/utils"
)

// RegisterLeadRoutes 注册线索相关路由
func RegisterLeadRoutes(router *gin.Engine, deps Dependencies) {
	lc := controllers.NewLeadController(deps.Leads)
	leadRoutes := router.Group("/api/leads")

	// 公开路由 - 官网表单，按IP限流
	leadRoutes.POST("", middleware.RateLimit(deps.Limiter), lc.Submit)

	// 需要管理令牌的路由
	admin := leadRoutes.Group("")
	admin.Use(middleware.AuthMiddleware(deps.Issuer))
	admin.Use(middleware.OperationLoggerMiddleware(deps.Leads))

	admin.GET("", middleware.RequireCapability(utils.CapabilityLeadsRead), lc.List)
	admin.GET("/:id", middleware.RequireCapability(utils.CapabilityLeadsRead), lc.Get)
	admin.PATCH("/:id/status", middleware.RequireCapability(utils.CapabilityLeadsWrite), lc.UpdateStatus)
	admin.DELETE("/:id", middleware.RequireCapability(utils.CapabilityLeadsWrite), lc.Delete)
}
