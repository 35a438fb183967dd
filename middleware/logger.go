package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BerniceZTT/leads_end/models"
	"github.com/BerniceZTT/leads_end/service"
	"github.com/BerniceZTT/leads_end/utils"
)

const (
	RequestIDKey    = "requestId"
	RequestIDHeader = "X-Request-ID"
	SessionIDHeader = "X-Session-ID"
)

// bodyLogWriter 用于记录响应内容
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现 ResponseWriter 接口
func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// RequestContext 分配请求ID，并把请求来源放进 request context 供事件日志使用
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		client := models.ClientContext{
			RequestID: requestID,
			SessionID: c.GetHeader(SessionIDHeader),
			IPAddress: getClientIP(c),
			UserAgent: c.Request.UserAgent(),
			Referer:   c.Request.Referer(),
			Path:      c.Request.URL.Path,
		}
		c.Request = c.Request.WithContext(service.WithClientContext(c.Request.Context(), client))
		c.Next()
	}
}

// Logger 日志中间件
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		requestID := c.GetString(RequestIDKey)

		// 记录请求头
		headers := make(map[string]string)
		for k, v := range c.Request.Header {
			if len(v) > 0 {
				headers[k] = v[0]
			}
		}

		// 记录请求体
		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			// 恢复请求体以便后续处理
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		blw := &bodyLogWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBufferString(""),
		}
		c.Writer = blw

		utils.LogApiRequest(requestID, method, path, c.Request.URL.Query(), loggableBody(requestBody), headers)

		c.Next()

		utils.LogApiResponse(requestID, method, path, c.Writer.Status(), time.Since(start), loggableBody(blw.body.Bytes()))
	}
}

// 访问日志里不落地的字段：凭据与表单中的个人信息
var accessLogMaskedKeys = map[string]bool{
	"firstname": true, "lastname": true, "email": true, "phone": true,
	"whatsapp": true, "address": true, "message": true, "ipaddress": true,
}

func init() {
	for k := range secretKeys {
		accessLogMaskedKeys[k] = true
	}
}

// loggableBody 把请求或响应体转成可写入访问日志的形式，非JSON内容只记录长度
func loggableBody(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var parsed interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Sprintf("[%d bytes]", len(raw))
	}
	return maskKeys(parsed, accessLogMaskedKeys)
}

// Recovery 恢复中间件
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		utils.Logger.Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Str("requestId", c.GetString(RequestIDKey)).
			Msg("服务崩溃")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal server error",
		})
	})
}

// getClientIP 获取客户端IP地址
func getClientIP(c *gin.Context) string {
	if ip := c.Request.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := c.Request.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}
