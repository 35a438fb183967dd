package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/leads_end/models"
	"github.com/BerniceZTT/leads_end/repository"
	"github.com/BerniceZTT/leads_end/service"
	"github.com/BerniceZTT/leads_end/utils"
)

// LeadController 线索接口
type LeadController struct {
	leads *service.LeadService
}

func NewLeadController(leads *service.LeadService) *LeadController {
	return &LeadController{leads: leads}
}

// Submit 官网表单提交
func (lc *LeadController) Submit(c *gin.Context) {
	var payload models.LeadSubmission
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.Logger.Info().Err(err).Msg("线索表单解析失败")
		writeSubmission(c, models.SubmissionResult{
			Error:    msgInvalidBody,
			Category: string(service.CategoryInvalidArgument),
		}, http.StatusCreated)
		return
	}

	result := lc.leads.Submit(c.Request.Context(), payload)
	writeSubmission(c, result, http.StatusCreated)
}

// Get 获取单条线索
func (lc *LeadController) Get(c *gin.Context) {
	lead, err := lc.leads.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeClassified(c, lc.leads.Classify(err))
		return
	}
	utils.SuccessResponse(c, lead, "")
}

// List 分页列出线索
func (lc *LeadController) List(c *gin.Context) {
	opts := service.ListOptions{
		Status:          models.LeadStatus(c.Query("status")),
		Cursor:          c.Query("cursor"),
		Direction:       repository.Descending,
		IncludeArchived: c.Query("includeArchived") == "true",
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			utils.HandleError(c, utils.CreateBadRequestError("limit must be a positive integer"))
			return
		}
		opts.Limit = limit
	}
	switch c.DefaultQuery("order", "desc") {
	case "asc":
		opts.Direction = repository.Ascending
	case "desc":
	default:
		utils.HandleError(c, utils.CreateBadRequestError("order must be asc or desc"))
		return
	}

	page, err := lc.leads.ListPage(c.Request.Context(), opts)
	if err != nil {
		writeClassified(c, lc.leads.Classify(err))
		return
	}
	utils.CursorPageResponse(c, page.Leads, page.NextCursor, page.HasMore)
}

// UpdateStatus 更新线索状态
func (lc *LeadController) UpdateStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleError(c, utils.CreateBadRequestError(msgInvalidBody))
		return
	}

	lead, err := lc.leads.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeClassified(c, lc.leads.Classify(err))
		return
	}
	utils.SuccessResponse(c, lead, "Lead status updated")
}

// Delete 默认软删除，permanent=true 时物理删除
func (lc *LeadController) Delete(c *gin.Context) {
	id := c.Param("id")
	if c.Query("permanent") == "true" {
		if err := lc.leads.Delete(c.Request.Context(), id); err != nil {
			writeClassified(c, lc.leads.Classify(err))
			return
		}
		utils.SuccessResponse(c, gin.H{"id": id}, "Lead deleted")
		return
	}

	lead, err := lc.leads.Archive(c.Request.Context(), id)
	if err != nil {
		writeClassified(c, lc.leads.Classify(err))
		return
	}
	utils.SuccessResponse(c, lead, "Lead archived")
}
