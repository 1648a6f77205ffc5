package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/config"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/model"
	"github.com/StepTenInc/bpoc-mono-ecosystem-turbo-sub015/internal/onboarding"
	gorm_logrus "github.com/onrik/gorm-logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置，未配置的项使用默认值
func GetPoolConfig(cfg config.DatabaseConfig) *PoolConfig {
	pool := &PoolConfig{
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
	if pool.MaxIdleConns == 0 {
		pool.MaxIdleConns = 10
	}
	if pool.MaxOpenConns == 0 {
		pool.MaxOpenConns = 100
	}
	if pool.ConnMaxLifetime == 0 {
		pool.ConnMaxLifetime = 3600
	}
	if pool.ConnMaxIdleTime == 0 {
		pool.ConnMaxIdleTime = 600
	}
	return pool
}

// Connect 连接数据库
// driver 为 sqlite 时用于本地开发
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gorm_logrus.New()}
	if cfg.Debug {
		gormCfg.Logger = gormCfg.Logger.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	case "", "postgres":
		dialector = postgres.Open(BuildDSN(cfg))
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	pool := GetPoolConfig(cfg)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// IsSQLite 判断是否为 SQLite
func IsSQLite(db *gorm.DB) bool {
	name := db.Dialector.Name()
	return name == "sqlite" || name == "sqlite3"
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	if IsSQLite(db) {
		// SQLite 不支持 jsonb，手动建表
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		if err := db.AutoMigrate(
			&model.OnboardingRecordModel{},
			&model.ActivityEventModel{},
			&model.NotificationModel{},
			&model.AgencyRecruiterModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// onboardingRecordsDDL 根据 section 列表生成 SQLite 建表语句
func onboardingRecordsDDL() string {
	var b strings.Builder
	b.WriteString(`CREATE TABLE IF NOT EXISTS onboarding_records (
			id VARCHAR(64) PRIMARY KEY,
			candidate_id VARCHAR(64) NOT NULL,
			job_application_id VARCHAR(64) NOT NULL,
			agency_id VARCHAR(64) NOT NULL,
			position VARCHAR(255),
`)
	for _, s := range onboarding.AllSections {
		fmt.Fprintf(&b, "\t\t\t%s VARCHAR(16) NOT NULL DEFAULT 'PENDING',\n", s.StatusColumn())
		fmt.Fprintf(&b, "\t\t\t%s TEXT,\n", s.FeedbackColumn())
		fmt.Fprintf(&b, "\t\t\t%s TEXT,\n", s.PayloadColumn())
	}
	b.WriteString(`			completion_percent INTEGER NOT NULL DEFAULT 0,
			is_complete BOOLEAN NOT NULL DEFAULT 0,
			contract_signed BOOLEAN NOT NULL DEFAULT 0,
			contract_signed_at DATETIME,
			employment_started BOOLEAN NOT NULL DEFAULT 0,
			employment_start_date DATETIME,
			start_date DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`)
	return b.String()
}

// createSQLiteTables 为 SQLite 手动创建表
func createSQLiteTables(db *gorm.DB) error {
	if err := db.Exec(onboardingRecordsDDL()).Error; err != nil {
		return fmt.Errorf("failed to create onboarding_records table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS onboarding_activity_events (
			id VARCHAR(64) PRIMARY KEY,
			record_id VARCHAR(64) NOT NULL,
			job_application_id VARCHAR(64) NOT NULL,
			action VARCHAR(64) NOT NULL,
			actor_id VARCHAR(64) NOT NULL,
			actor_role VARCHAR(16) NOT NULL,
			description TEXT,
			metadata TEXT,
			request_id VARCHAR(64),
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create onboarding_activity_events table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id VARCHAR(64) PRIMARY KEY,
			recipient_id VARCHAR(64) NOT NULL,
			recipient_role VARCHAR(16) NOT NULL,
			type VARCHAR(64) NOT NULL,
			title VARCHAR(255) NOT NULL,
			message TEXT,
			action_url VARCHAR(512),
			related_id VARCHAR(64),
			is_urgent BOOLEAN NOT NULL DEFAULT 0,
			is_read BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create notifications table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS agency_recruiters (
			agency_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (agency_id, user_id)
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create agency_recruiters table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	indexes := []struct {
		name string
		sql  string
	}{
		{"idx_onboarding_candidate_application", "CREATE UNIQUE INDEX IF NOT EXISTS idx_onboarding_candidate_application ON onboarding_records(candidate_id, job_application_id)"},
		{"idx_onboarding_agency", "CREATE INDEX IF NOT EXISTS idx_onboarding_agency ON onboarding_records(agency_id)"},
		{"idx_onboarding_due", "CREATE INDEX IF NOT EXISTS idx_onboarding_due ON onboarding_records(is_complete, start_date)"},
		{"idx_activity_record", "CREATE INDEX IF NOT EXISTS idx_activity_record ON onboarding_activity_events(record_id, created_at)"},
		{"idx_notifications_recipient", "CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, is_read)"},
		{"idx_agency_recruiters_user", "CREATE INDEX IF NOT EXISTS idx_agency_recruiters_user ON agency_recruiters(user_id)"},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", idx.name, err)
		}
	}

	// PostgreSQL 特定的 GIN 索引
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_activity_metadata_gin ON onboarding_activity_events USING GIN (metadata)").Error; err != nil {
			return fmt.Errorf("failed to create idx_activity_metadata_gin: %w", err)
		}
	}

	return nil
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx) == nil
}
