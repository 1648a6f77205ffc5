package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SLAConfig 各类操作的响应时间目标
type SLAConfig struct {
	TransitionMaxTime time.Duration // 提交、审核、签约等写操作
	QueryMaxTime      time.Duration // 读操作
	ScanMaxTime       time.Duration // 开工提醒扫描
}

// DefaultSLAConfig 返回默认 SLA 配置
func DefaultSLAConfig() *SLAConfig {
	return &SLAConfig{
		TransitionMaxTime: 2 * time.Second,
		QueryMaxTime:      500 * time.Millisecond,
		ScanMaxTime:       30 * time.Second,
	}
}

// getOperation 根据路由模板判断操作类型
func getOperation(method, route string) string {
	switch {
	case route == "":
		return "unknown"
	case strings.HasSuffix(route, "/deadline-scan"):
		return "scan"
	case method == http.MethodGet:
		return "query"
	case strings.HasPrefix(route, "/api/v1/onboarding"):
		return "transition"
	}
	return "unknown"
}

// CheckSLA 检查是否在目标时间内，未知操作不检查
func CheckSLA(operation string, duration time.Duration, config *SLAConfig) bool {
	expected := expectedDuration(operation, config)
	return expected == 0 || duration <= expected
}

func expectedDuration(operation string, config *SLAConfig) time.Duration {
	switch operation {
	case "transition":
		return config.TransitionMaxTime
	case "query":
		return config.QueryMaxTime
	case "scan":
		return config.ScanMaxTime
	}
	return 0
}

// SLAMonitorMiddleware 记录超过目标时间的请求
func SLAMonitorMiddleware(config *SLAConfig, logger logrus.FieldLogger) gin.HandlerFunc {
	if config == nil {
		config = DefaultSLAConfig()
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		operation := getOperation(c.Request.Method, c.FullPath())
		duration := time.Since(start)
		if CheckSLA(operation, duration, config) {
			return
		}
		metrics.RecordSLAViolation(operation)
		logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"operation":  operation,
			"route":      c.FullPath(),
			"duration":   duration.String(),
			"expected":   expectedDuration(operation, config).String(),
		}).Warn("Request exceeded SLA")
	}
}
