package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/api"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/auth"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/config"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/database"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/metrics"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/notification"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/repository"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/service"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/storage"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/utils"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理数据库、服务、外部客户端以及后台任务的生命周期
type Container struct {
	cfg    *config.Config
	logger *logrus.Logger

	db        *gorm.DB
	directory repository.ReviewerDirectory
	records   repository.OnboardingRepository

	fgaClient *auth.OpenFGAClient
	resolver  auth.IdentityResolver
	documents *storage.MinioStore
	hub       *websocket.Hub

	hooks       *service.HookRunner
	coordinator *service.Coordinator
	query       *service.QueryService
	stats       service.StatisticsService
	scanner     *service.DeadlineScanner
	scheduler   *service.DeadlineScheduler
	collector   *metrics.Collector
	tracing     *api.Tracing

	notifications repository.NotificationRepository
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件，可选依赖未配置时跳过
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	// 1. 数据库（带重试）
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	c := &Container{cfg: cfg, logger: logger, db: db}

	codec, err := utils.NewPayloadCodec(cfg.Security.PayloadEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize payload codec: %w", err)
	}

	// 2. 仓储
	c.records = repository.NewOnboardingRepository(db)
	c.directory = repository.NewReviewerDirectory(db)
	c.notifications = repository.NewNotificationRepository(db)
	activities := repository.NewActivityEventRepository(db)

	// 3. OpenFGA，未配置 api_url 时只按机构归属判断
	var checker auth.RelationChecker
	var grantor service.RecordGrantor
	if cfg.OpenFGA.APIURL != "" {
		c.fgaClient, err = auth.NewOpenFGAClientWithRetry(cfg.OpenFGA.APIURL, cfg.OpenFGA.StoreID, cfg.OpenFGA.ModelID, 3, time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenFGA client: %w", err)
		}
		cached := auth.NewCachedOpenFGAClient(c.fgaClient, auth.NewPermissionCache(time.Duration(cfg.OpenFGA.CacheTTL)*time.Second))
		checker = cached
		grantor = cached
	}
	reviewers := auth.NewReviewerAuthorizer(c.directory, checker, logger)

	// 4. Keycloak
	c.resolver = auth.NewKeycloakTokenValidator(cfg.Keycloak.Issuer, cfg.Keycloak.JWKSURL, cfg.Keycloak.AgencyClaim)

	// 5. 通知通道
	c.hub = websocket.NewHub()
	go c.hub.Run()

	notifier := notification.NewMulti(logger)
	if cfg.Notification.InApp {
		notifier.Add("in_app", notification.NewStoreNotifier(c.notifications))
	}
	if cfg.Notification.WebSocket {
		notifier.Add("push", notification.NewPushNotifier(c.hub))
	}
	if sender := notification.NewSMTPSender(cfg.Notification.SMTP); sender != nil {
		book := service.NewCandidateAddressBook(c.records, codec)
		notifier.Add("email", notification.NewEmailNotifier(sender, book, cfg.Notification.SMTP.From, cfg.Notification.SMTP.UrgentOnly, logger))
	}
	logger.WithField("channels", notifier.Channels()).Info("Notification channels configured")
	dispatcher := service.NewDispatcher(notifier, c.directory)

	// 6. 服务
	c.hooks = service.NewHookRunner(service.HookRunnerConfig{
		Async:     cfg.Hooks.Async,
		Workers:   cfg.Hooks.Workers,
		QueueSize: cfg.Hooks.QueueSize,
	}, logger)

	deps := service.CoordinatorDeps{
		Records:    c.records,
		Audit:      service.NewAuditTrailWriter(activities),
		Dispatcher: dispatcher,
		Reviewers:  reviewers,
		Grantor:    grantor,
		Codec:      codec,
		Hooks:      c.hooks,
		Logger:     logger,
	}
	c.coordinator = service.NewCoordinator(deps)
	c.query = service.NewQueryService(c.records, activities, reviewers, codec, logger)
	c.stats = service.NewStatisticsService(db)
	c.scanner = service.NewDeadlineScanner(c.records, dispatcher, cfg.Scanner.LookAhead(), cfg.Scanner.Concurrency, logger)

	// 7. 文档存储，未配置 endpoint 时上传地址接口返回 503
	store, err := storage.NewMinioStore(cfg.Storage)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		logger.Info("Document storage not configured")
	case err != nil:
		return nil, fmt.Errorf("failed to initialize document storage: %w", err)
	default:
		c.documents = store
	}

	// 8. 链路追踪
	if cfg.Tracing.Enabled {
		c.tracing, err = api.InitTracing(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	return c, nil
}

// Start 启动后台任务：指标收集、定时扫描
func (c *Container) Start(ctx context.Context) {
	if c.documents != nil {
		if err := c.documents.EnsureBucket(ctx); err != nil {
			c.logger.WithError(err).Warn("Failed to ensure document bucket")
		}
	}

	c.collector = metrics.NewCollector(c.db, 30*time.Second, c.logger)
	c.collector.Start()

	if c.cfg.Scanner.Enabled {
		c.scheduler = service.NewDeadlineScheduler(c.scanner, time.Duration(c.cfg.Scanner.Interval)*time.Second, c.logger)
		c.scheduler.Start(ctx)
	}
}

// ApplyConfig 应用热更新的配置，只调整日志级别和提醒窗口
func (c *Container) ApplyConfig(cfg *config.Config) {
	api.ApplyLogLevel(c.logger, cfg.Log.Level)
	c.scanner.SetLookAhead(cfg.Scanner.LookAhead())
	c.logger.WithFields(logrus.Fields{
		"log_level":  cfg.Log.Level,
		"look_ahead": cfg.Scanner.LookAhead().String(),
	}).Info("Applied config change")
}

// Router 组装 HTTP 路由
func (c *Container) Router() *gin.Engine {
	checkers := map[string]api.DependencyChecker{}
	if c.fgaClient != nil {
		checkers["openfga"] = c.fgaClient
	}

	var documents storage.DocumentStore
	if c.documents != nil {
		documents = c.documents
	}

	upgrader := websocket.NewUpgrader(c.cfg.CORS.AllowedOrigins)

	return api.SetupRoutes(api.RouterDeps{
		Config:        c.cfg,
		Logger:        c.logger,
		Resolver:      c.resolver,
		Onboarding:    api.NewOnboardingController(c.coordinator, c.query, documents),
		Scan:          api.NewScanController(c.scanner),
		Stats:         api.NewStatsController(c.stats),
		Notifications: api.NewNotificationController(c.notifications),
		Health:        api.NewHealthController(c.db, checkers),
		Tracing:       c.tracing,
		WebSocket:     websocket.WebSocketHandler(c.hub, c.resolver, upgrader, c.logger),
	})
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Scanner 获取开工提醒扫描器
func (c *Container) Scanner() *service.DeadlineScanner {
	return c.scanner
}

// Directory 获取招聘方目录
func (c *Container) Directory() repository.ReviewerDirectory {
	return c.directory
}

// Close 关闭容器，按依赖顺序清理资源
func (c *Container) Close(ctx context.Context) error {
	if c.scheduler != nil {
		c.scheduler.Stop()
	}
	if c.collector != nil {
		c.collector.Stop()
	}
	// 等待已提交的钩子执行完
	if c.hooks != nil {
		c.hooks.Stop()
	}
	if c.hub != nil {
		c.hub.Stop()
	}
	if c.tracing != nil {
		if err := c.tracing.Shutdown(ctx); err != nil {
			c.logger.WithError(err).Warn("Failed to flush traces")
		}
	}
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			return sqlDB.Close()
		}
	}
	return nil
}
