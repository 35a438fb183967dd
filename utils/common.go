package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// ClaimsKey 认证中间件写入上下文的键
const ClaimsKey = "claims"

// GetClaims 获取当前请求的令牌负载
func GetClaims(c *gin.Context) (*Claims, error) {
	value, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, fmt.Errorf("GetClaims 未授权访问")
	}
	claims, ok := value.(*Claims)
	if !ok {
		return nil, fmt.Errorf("GetClaims 无效的令牌负载类型 %T", value)
	}
	return claims, nil
}

// CursorPageResponse 游标分页响应
func CursorPageResponse(c *gin.Context, items interface{}, nextCursor string, hasMore bool) {
	pagination := gin.H{"hasMore": hasMore}
	if nextCursor != "" {
		pagination["nextCursor"] = nextCursor
	}
	c.JSON(200, gin.H{
		"success":    true,
		"data":       items,
		"pagination": pagination,
	})
}
