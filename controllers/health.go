package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/leads_end/service"
	"github.com/BerniceZTT/leads_end/utils"
)

// Pinger 存储连通性检查
type Pinger interface {
	Ping(ctx context.Context) error
	Status(ctx context.Context) (map[string]interface{}, error)
}

// HealthController 健康检查
type HealthController struct {
	store   Pinger
	probe   service.NetworkProbe
	timeout time.Duration
}

func NewHealthController(store Pinger, probe service.NetworkProbe, timeout time.Duration) *HealthController {
	return &HealthController{store: store, probe: probe, timeout: timeout}
}

// Health 存活检查
func (hc *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready 就绪检查，存储不可达时返回 503
func (hc *HealthController) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), hc.timeout)
	defer cancel()

	if err := hc.store.Ping(ctx); err != nil {
		utils.Logger.Warn().Err(err).Msg("就绪检查失败")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"online": hc.probe.IsOnline(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "online": hc.probe.IsOnline()})
}

// DBStatus 各集合文档数量
func (hc *HealthController) DBStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), hc.timeout)
	defer cancel()

	status, err := hc.store.Status(ctx)
	if err != nil {
		utils.ErrorResponse(c, "Failed to read database status", http.StatusServiceUnavailable)
		return
	}
	c.JSON(http.StatusOK, status)
}
