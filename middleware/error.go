package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/leads_end/utils"
)

// ErrorHandler 全局错误处理中间件，处理 c.Error 记录但尚未写出的错误
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// 已经写出响应的不重复处理
		if c.Writer.Written() {
			return
		}

		if len(c.Errors) > 0 {
			utils.HandleError(c, c.Errors.Last().Err)
		}
	}
}
