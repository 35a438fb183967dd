package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/leads_end/utils"
)

// OperationRecorder 管理操作记录的落地方
type OperationRecorder interface {
	LogAdminOperation(ctx context.Context, payload map[string]interface{})
}

// 需要记录的HTTP方法
var loggedMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

// OperationLoggerMiddleware 记录管理接口的变更操作
func OperationLoggerMiddleware(recorder OperationRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !loggedMethods[c.Request.Method] {
			c.Next()
			return
		}

		startTime := time.Now()

		blw := &bodyLogWriter{
			body:           bytes.NewBufferString(""),
			ResponseWriter: c.Writer,
		}
		c.Writer = blw

		// 读取并重置请求体
		var requestBody interface{}
		if c.Request.Body != nil {
			raw, err := io.ReadAll(c.Request.Body)
			if err != nil {
				utils.Logger.Error().Err(err).Msg("读取请求体失败")
			} else {
				c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
				if len(raw) > 0 && json.Unmarshal(raw, &requestBody) != nil {
					requestBody = string(raw)
				}
			}
		}

		c.Next()

		operator := "anonymous"
		if claims, err := utils.GetClaims(c); err == nil {
			operator = claims.Subject
		}

		var errorMessage string
		if c.Writer.Status() >= http.StatusBadRequest {
			var resp map[string]interface{}
			if json.Unmarshal(blw.body.Bytes(), &resp) == nil {
				errorMessage, _ = resp["error"].(string)
			}
		}

		recorder.LogAdminOperation(c.Request.Context(), map[string]interface{}{
			"method":       c.Request.Method,
			"path":         c.FullPath(),
			"resourceId":   c.Param("id"),
			"query":        c.Request.URL.RawQuery,
			"operator":     operator,
			"requestBody":  sanitizeData(requestBody),
			"statusCode":   c.Writer.Status(),
			"success":      c.Writer.Status() < http.StatusBadRequest,
			"error":        errorMessage,
			"responseTime": time.Since(startTime).Milliseconds(),
		})
	}
}

// 凭据类字段
var secretKeys = map[string]bool{
	"password": true, "token": true, "authorization": true,
	"secret": true, "key": true, "apikey": true,
}

// sanitizeData 清理数据中的敏感信息
func sanitizeData(data interface{}) interface{} {
	return maskKeys(data, secretKeys)
}

// maskKeys 递归替换 keys 中列出的字段，字段名不区分大小写
func maskKeys(data interface{}, keys map[string]bool) interface{} {
	if data == nil {
		return nil
	}

	if m, ok := data.(map[string]interface{}); ok {
		sanitized := make(map[string]interface{}, len(m))
		for k, v := range m {
			if keys[strings.ToLower(k)] {
				sanitized[k] = "******"
				continue
			}
			sanitized[k] = maskKeys(v, keys)
		}
		return sanitized
	}

	if s, ok := data.([]interface{}); ok {
		sanitized := make([]interface{}, len(s))
		for i, v := range s {
			sanitized[i] = maskKeys(v, keys)
		}
		return sanitized
	}

	return data
}
