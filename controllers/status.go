package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/leads_end/models"
	"github.com/BerniceZTT/leads_end/service"
	"github.com/BerniceZTT/leads_end/utils"
)

// statusForCategory 错误分类到 HTTP 状态码
func statusForCategory(category string) int {
	switch service.Category(category) {
	case service.CategoryInvalidArgument:
		return http.StatusBadRequest
	case service.CategoryNotFound:
		return http.StatusNotFound
	case service.CategoryPermissionDenied:
		return http.StatusForbidden
	case service.CategoryOffline, service.CategoryUnavailable:
		return http.StatusServiceUnavailable
	case service.CategoryTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeSubmission 输出统一提交结果
func writeSubmission(c *gin.Context, result models.SubmissionResult, successStatus int) {
	if result.Success {
		c.JSON(successStatus, result)
		return
	}
	c.JSON(statusForCategory(result.Category), result)
}

// writeClassified 管理接口的错误输出
func writeClassified(c *gin.Context, classified service.ClassifiedError) {
	utils.HandleError(c, utils.NewApiError(
		classified.Message,
		statusForCategory(string(classified.Category)),
		string(classified.Category),
	))
}

const msgInvalidBody = "Invalid request body"
