package api

import (
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/auth"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/config"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RouterDeps 路由依赖，nil 的可选项不注册对应路由或中间件
type RouterDeps struct {
	Config        *config.Config
	Logger        logrus.FieldLogger
	Resolver      auth.IdentityResolver
	Onboarding    *OnboardingController
	Scan          *ScanController
	Stats         *StatsController
	Notifications *NotificationController
	Health        *HealthController
	Tracing       *Tracing
	WebSocket     gin.HandlerFunc
}

// SetupRoutes 配置路由
func SetupRoutes(deps RouterDeps) *gin.Engine {
	router := gin.New()
	cfg := deps.Config

	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	if deps.Tracing != nil {
		router.Use(deps.Tracing.Middleware())
	}
	router.Use(RequestLogMiddleware(deps.Logger))
	router.Use(SLAMonitorMiddleware(nil, deps.Logger))
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(cfg.CORS))
	if cfg.RateLimit.Enabled {
		router.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	router.Use(ErrorHandlerMiddleware())

	if deps.Health != nil {
		router.GET("/health", deps.Health.Check)
	}
	router.GET("/metrics", MetricsHandler)

	if deps.WebSocket != nil {
		router.GET("/ws/notifications", deps.WebSocket)
	}

	v1 := router.Group("/api/v1")

	if deps.Scan != nil {
		internal := v1.Group("/internal")
		internal.Use(auth.TriggerSecretMiddleware(cfg.Security.ScanTriggerSecretHash))
		internal.POST("/deadline-scan", deps.Scan.Trigger)
	}

	authed := v1.Group("")
	authed.Use(auth.AuthMiddleware(deps.Resolver))

	reviewers := auth.RequireRoles(onboarding.RoleRecruiter, onboarding.RoleAdmin)
	candidates := auth.RequireRoles(onboarding.RoleCandidate)
	admins := auth.RequireRoles(onboarding.RoleAdmin)

	if h := deps.Onboarding; h != nil {
		records := authed.Group("/onboarding")
		records.POST("", reviewers, h.Create)
		records.GET("", h.List)
		records.GET("/me", candidates, h.Mine)
		if deps.Stats != nil {
			records.GET("/stats", admins, deps.Stats.Get)
		}
		records.GET("/:id", h.Get)
		records.GET("/:id/activity", reviewers, h.Activity)
		records.POST("/:id/sections/:section/submit", candidates, h.Submit)
		records.POST("/:id/sections/:section/review", reviewers, h.Review)
		records.POST("/:id/sections/:section/reopen", admins, h.Reopen)
		records.POST("/:id/sections/:section/upload-url", candidates, h.UploadURL)
		records.POST("/:id/contract/sign", candidates, h.SignContract)
		records.POST("/:id/employment/confirm", candidates, h.ConfirmEmployment)
	}

	if h := deps.Notifications; h != nil {
		notifications := authed.Group("/notifications")
		notifications.GET("", h.List)
		notifications.POST("/:id/read", h.MarkRead)
	}

	return router
}
