package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/leads_end/controllers"
	"github.com/BerniceZTT/leads_end/middleware"
)

// RegisterAuthRoutes 注册认证路由
func RegisterAuthRoutes(router *gin.Engine, deps Dependencies) {
	ac := controllers.NewAuthController(deps.Issuer, deps.AdminKey)

	auth := router.Group("/api/auth")
	auth.POST("/token", middleware.RateLimit(deps.Limiter), ac.Token)
}
