package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/leads_end/models"
	"github.com/BerniceZTT/leads_end/service"
)

// NewsletterController 邮件订阅接口
type NewsletterController struct {
	newsletter *service.NewsletterService
}

func NewNewsletterController(newsletter *service.NewsletterService) *NewsletterController {
	return &NewsletterController{newsletter: newsletter}
}

func invalidBody() models.SubmissionResult {
	return models.SubmissionResult{Error: msgInvalidBody, Category: string(service.CategoryInvalidArgument)}
}

// Subscribe 订阅
func (nc *NewsletterController) Subscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeSubmission(c, invalidBody(), http.StatusCreated)
		return
	}

	result := nc.newsletter.Subscribe(c.Request.Context(), req)
	status := http.StatusCreated
	if result.AlreadySubscribed {
		status = http.StatusOK
	}
	writeSubmission(c, result, status)
}

// Unsubscribe 退订
func (nc *NewsletterController) Unsubscribe(c *gin.Context) {
	var req models.UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeSubmission(c, invalidBody(), http.StatusOK)
		return
	}
	writeSubmission(c, nc.newsletter.Unsubscribe(c.Request.Context(), req), http.StatusOK)
}
