package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// section 状态迁移
	sectionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_section_transitions_total",
			Help: "Total number of committed section transitions",
		},
		[]string{"section", "from", "to", "role"},
	)

	// 被拒绝的操作，按错误类型
	operationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_operation_failures_total",
			Help: "Total number of rejected coordinator operations",
		},
		[]string{"operation", "reason"},
	)

	// 通知投递
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_notifications_total",
			Help: "Total number of notification deliveries by channel",
		},
		[]string{"channel", "type", "outcome"}, // outcome: sent, failed, skipped
	)

	// 提交后钩子失败
	hookFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_hook_failures_total",
			Help: "Total number of failed post-commit hooks",
		},
		[]string{"hook"},
	)

	// 钩子队列长度
	hookQueueLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "onboarding_hook_queue_length",
			Help: "Number of post-commit hooks waiting in the queue",
		},
	)

	// 开工提醒
	remindersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_deadline_reminders_total",
			Help: "Total number of deadline reminders dispatched",
		},
		[]string{"urgent"},
	)

	// 超过响应时间目标的请求
	slaViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_sla_violations_total",
			Help: "Total number of requests slower than their operation target",
		},
		[]string{"operation"},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 未完成记录数
	incompleteRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "onboarding_incomplete_records",
			Help: "Number of onboarding records that are not complete",
		},
	)
)

var (
	once sync.Once
)

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(sectionTransitionsTotal)
	prometheus.MustRegister(operationFailuresTotal)
	prometheus.MustRegister(notificationsTotal)
	prometheus.MustRegister(hookFailuresTotal)
	prometheus.MustRegister(hookQueueLength)
	prometheus.MustRegister(remindersTotal)
	prometheus.MustRegister(slaViolationsTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(incompleteRecords)

	// Go 运行时指标，已注册时忽略
	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordTransition 记录已提交的 section 迁移
func RecordTransition(section, from, to, role string) {
	sectionTransitionsTotal.WithLabelValues(section, from, to, role).Inc()
}

// RecordOperationFailure 记录被拒绝的操作
func RecordOperationFailure(operation, reason string) {
	operationFailuresTotal.WithLabelValues(operation, reason).Inc()
}

// RecordNotification 记录通知投递结果
func RecordNotification(channel, notificationType, outcome string) {
	notificationsTotal.WithLabelValues(channel, notificationType, outcome).Inc()
}

// RecordHookFailure 记录钩子失败
func RecordHookFailure(hook string) {
	hookFailuresTotal.WithLabelValues(hook).Inc()
}

// SetHookQueueLength 更新钩子队列长度
func SetHookQueueLength(n int) {
	hookQueueLength.Set(float64(n))
}

// RecordReminder 记录开工提醒
func RecordReminder(urgent bool) {
	remindersTotal.WithLabelValues(strconv.FormatBool(urgent)).Inc()
}

// RecordSLAViolation 记录超时请求
func RecordSLAViolation(operation string) {
	slaViolationsTotal.WithLabelValues(operation).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateIncompleteRecords 更新未完成记录数
func UpdateIncompleteRecords(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	var count int64
	if err := db.Table("onboarding_records").Where("is_complete = ?", false).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count incomplete records: %w", err)
	}
	incompleteRecords.Set(float64(count))
	return nil
}
