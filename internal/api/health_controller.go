package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DependencyChecker 外部依赖健康检查
type DependencyChecker interface {
	CheckHealth(ctx context.Context) bool
}

// HealthController 健康检查控制器
type HealthController struct {
	db       *gorm.DB
	checkers map[string]DependencyChecker
}

// NewHealthController 创建健康检查控制器，nil 的依赖不检查
func NewHealthController(db *gorm.DB, checkers map[string]DependencyChecker) *HealthController {
	filtered := make(map[string]DependencyChecker, len(checkers))
	for name, c := range checkers {
		if c != nil {
			filtered[name] = c
		}
	}
	return &HealthController{db: db, checkers: filtered}
}

// Check 健康检查
func (h *HealthController) Check(c *gin.Context) {
	status := "healthy"
	checks := make(map[string]string)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.checkDatabase(ctx); err != nil {
			status = "unhealthy"
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	for name, checker := range h.checkers {
		if checker.CheckHealth(ctx) {
			checks[name] = "healthy"
		} else {
			status = "unhealthy"
			checks[name] = "unhealthy"
		}
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

func (h *HealthController) checkDatabase(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
