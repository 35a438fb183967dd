package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/leads_end/utils"
)

// TokenRequest 换取管理令牌
type TokenRequest struct {
	APIKey string `json:"apiKey"`
}

// AuthController 管理令牌签发
type AuthController struct {
	issuer *utils.TokenIssuer
	apiKey string
}

func NewAuthController(issuer *utils.TokenIssuer, apiKey string) *AuthController {
	return &AuthController{issuer: issuer, apiKey: apiKey}
}

// Token 使用管理密钥换取带能力的令牌
func (ac *AuthController) Token(c *gin.Context) {
	provided := c.GetHeader("X-Api-Key")
	if provided == "" {
		var req TokenRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			provided = req.APIKey
		}
	}

	if !utils.CheckAPIKey(provided, ac.apiKey) {
		utils.Logger.Warn().Str("ip", c.ClientIP()).Msg("管理密钥校验失败")
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return
	}

	token, expiresAt, err := ac.issuer.GenerateToken("admin", utils.AdminCapabilities)
	if err != nil {
		utils.ErrorResponse(c, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	utils.Logger.Info().Str("ip", c.ClientIP()).Msg("管理令牌签发成功")
	utils.SuccessResponse(c, gin.H{
		"token":        token,
		"expiresAt":    expiresAt,
		"capabilities": utils.AdminCapabilities,
	}, "")
}
