package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BerniceZTT/leads_end/controllers"
	"github.com/BerniceZTT/leads_end/middleware"
	"github.com/BerniceZTT/leads_end/service"
	"github.com/BerniceZTT/leads_end/utils"
)

// Dependencies 路由所需的服务
type Dependencies struct {
	Leads      *service.LeadService
	Newsletter *service.NewsletterService
	Health     *controllers.HealthController
	Issuer     *utils.TokenIssuer
	AdminKey   string
	Limiter    middleware.Limiter
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	// 公开表单
	RegisterLeadRoutes(router, deps)
	RegisterNewsletterRoutes(router, deps)

	// 管理令牌
	RegisterAuthRoutes(router, deps)

	// 健康检查路由
	router.GET("/api/health", deps.Health.Health)
	router.GET("/api/health/ready", deps.Health.Ready)

	// 数据库状态检查路由
	router.GET("/api/db-status", deps.Health.DBStatus)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
