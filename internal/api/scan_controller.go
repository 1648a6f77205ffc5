package api

import (
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/service"
	"github.com/gin-gonic/gin"
)

// ScanController 外部调度器触发开工提醒扫描
type ScanController struct {
	scanner *service.DeadlineScanner
}

// NewScanController 创建扫描控制器
func NewScanController(scanner *service.DeadlineScanner) *ScanController {
	return &ScanController{scanner: scanner}
}

// Trigger 执行一次扫描
func (h *ScanController) Trigger(c *gin.Context) {
	result, err := h.scanner.Scan(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, result)
}
