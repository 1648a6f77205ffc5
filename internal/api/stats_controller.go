package api

import (
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/service"
	"github.com/gin-gonic/gin"
)

// StatsController 统计控制器，仅管理员
type StatsController struct {
	stats service.StatisticsService
}

// NewStatsController 创建统计控制器
func NewStatsController(stats service.StatisticsService) *StatsController {
	return &StatsController{stats: stats}
}

// Get 返回各 section 状态分布，可按 agency_id 过滤
func (h *StatsController) Get(c *gin.Context) {
	stats, err := h.stats.GetOnboardingStatistics(c.Request.Context(), c.Query("agency_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, stats)
}
