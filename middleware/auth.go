package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/leads_end/utils"
)

// AuthMiddleware 校验 Bearer 令牌并把负载写入上下文
func AuthMiddleware(issuer *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.Logger.Info().Str("path", c.Request.URL.Path).Msg("缺少Authorization头或格式错误")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Unauthorized",
				"code":    "MISSING_TOKEN",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := issuer.ParseToken(token)
		if err != nil {
			utils.Logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Token验证失败")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid token",
				"code":    "INVALID_TOKEN",
			})
			return
		}

		c.Set(utils.ClaimsKey, claims)
		c.Next()
	}
}

// RequireCapability 要求令牌具备指定能力
func RequireCapability(capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := utils.GetClaims(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Unauthorized",
				"code":    "UNAUTHENTICATED",
			})
			return
		}

		if !claims.Has(capability) {
			utils.Logger.Info().
				Str("subject", claims.Subject).
				Str("capability", capability).
				Msg("权限不足")
			utils.HandleError(c, utils.CreateForbiddenError())
			return
		}
		c.Next()
	}
}
