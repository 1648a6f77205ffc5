package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Env          string             `mapstructure:"env"` // 环境: development, production
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	OpenFGA      OpenFGAConfig      `mapstructure:"openfga"`
	Keycloak     KeycloakConfig     `mapstructure:"keycloak"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Log          LogConfig          `mapstructure:"log"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
	Notification NotificationConfig `mapstructure:"notification"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Scanner      ScannerConfig      `mapstructure:"scanner"`
	Hooks        HooksConfig        `mapstructure:"hooks"`
	Security     SecurityConfig     `mapstructure:"security"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // 秒
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres, sqlite
	SQLitePath      string `mapstructure:"sqlite_path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	Debug           bool   `mapstructure:"debug"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 秒
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 秒
}

// OpenFGAConfig OpenFGA 配置，api_url 为空时只按机构归属判断审核权限
type OpenFGAConfig struct {
	APIURL   string `mapstructure:"api_url"`
	StoreID  string `mapstructure:"store_id"`
	ModelID  string `mapstructure:"model_id"`
	CacheTTL int    `mapstructure:"cache_ttl"` // 秒
}

// KeycloakConfig Keycloak 配置
type KeycloakConfig struct {
	Issuer      string `mapstructure:"issuer"`
	JWKSURL     string `mapstructure:"jwks_url"`
	AgencyClaim string `mapstructure:"agency_claim"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error
	Format string `mapstructure:"format"` // 日志格式: json, text
	Output string `mapstructure:"output"` // 输出位置: stdout, file, both
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// NotificationConfig 通知通道配置
type NotificationConfig struct {
	InApp     bool       `mapstructure:"in_app"`
	WebSocket bool       `mapstructure:"websocket"`
	SMTP      SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig 邮件配置，host 为空时不发送邮件
type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	From       string `mapstructure:"from"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	UrgentOnly bool   `mapstructure:"urgent_only"`
}

// StorageConfig 文档存储配置（S3 兼容）
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	UploadURLExpiry int    `mapstructure:"upload_url_expiry"` // 秒
}

// ScannerConfig 开工提醒扫描配置
type ScannerConfig struct {
	Enabled       bool `mapstructure:"enabled"`        // 是否启用进程内定时扫描
	Interval      int  `mapstructure:"interval"`       // 秒
	LookAheadDays int  `mapstructure:"look_ahead_days"`
	Concurrency   int  `mapstructure:"concurrency"`
}

// HooksConfig 提交后钩子配置
type HooksConfig struct {
	Async     bool `mapstructure:"async"`
	Workers   int  `mapstructure:"workers"`
	QueueSize int  `mapstructure:"queue_size"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	// PayloadEncryptionKey 非空时 section 数据加密存储，至少 32 字节
	PayloadEncryptionKey string `mapstructure:"payload_encryption_key"`
	// ScanTriggerSecretHash 扫描触发密钥的 bcrypt 哈希
	ScanTriggerSecretHash string `mapstructure:"scan_trigger_secret_hash"`
}

// LookAhead 提醒窗口
func (c ScannerConfig) LookAhead() time.Duration {
	return time.Duration(c.LookAheadDays) * 24 * time.Hour
}

// Load 加载配置,支持配置文件和环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.bpoc-onboarding")
		// 忽略配置文件不存在的错误,使用默认值
		_ = v.ReadInConfig()
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Scanner.LookAheadDays <= 0 {
		return fmt.Errorf("scanner.look_ahead_days must be positive, got %d", c.Scanner.LookAheadDays)
	}
	if key := c.Security.PayloadEncryptionKey; key != "" && len(key) < 32 {
		return fmt.Errorf("security.payload_encryption_key must be at least 32 bytes")
	}
	return nil
}

// IsProduction 判断是否为生产环境
func IsProduction(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.Env == "production"
}

// Default 返回默认配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	env := v.GetString("env")
	if env == "" {
		env = os.Getenv("APP_ENV")
		if env == "" {
			env = "development"
		}
	}
	v.SetDefault("env", env)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 5)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.sqlite_path", "onboarding.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "bpoc")
	v.SetDefault("database.sslmode", "disable")

	// 数据库连接池配置（根据环境设置默认值）
	if env == "production" {
		v.SetDefault("database.max_idle_conns", 20)
		v.SetDefault("database.max_open_conns", 200)
		v.SetDefault("database.conn_max_lifetime", 3600)
		v.SetDefault("database.conn_max_idle_time", 300)
	} else {
		v.SetDefault("database.max_idle_conns", 10)
		v.SetDefault("database.max_open_conns", 100)
		v.SetDefault("database.conn_max_lifetime", 3600)
		v.SetDefault("database.conn_max_idle_time", 600)
	}

	v.SetDefault("openfga.api_url", "")
	v.SetDefault("openfga.store_id", "")
	v.SetDefault("openfga.model_id", "")
	v.SetDefault("openfga.cache_ttl", 60)

	v.SetDefault("keycloak.issuer", "")
	v.SetDefault("keycloak.jwks_url", "")
	v.SetDefault("keycloak.agency_claim", "agency_id")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization", "X-Request-ID"})
	v.SetDefault("cors.max_age", 86400)

	if env == "production" {
		v.SetDefault("log.level", "warn")
		v.SetDefault("log.format", "json")
	} else {
		v.SetDefault("log.level", "debug")
		v.SetDefault("log.format", "text")
	}
	v.SetDefault("log.output", "stdout")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "bpoc-onboarding")
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")

	v.SetDefault("notification.in_app", true)
	v.SetDefault("notification.websocket", true)
	v.SetDefault("notification.smtp.port", "587")
	v.SetDefault("notification.smtp.urgent_only", true)

	v.SetDefault("storage.bucket_name", "onboarding-documents")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.upload_url_expiry", 900)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("scanner.enabled", false)
	v.SetDefault("scanner.interval", 86400)
	v.SetDefault("scanner.look_ahead_days", 3)
	v.SetDefault("scanner.concurrency", 8)

	v.SetDefault("hooks.async", true)
	v.SetDefault("hooks.workers", 4)
	v.SetDefault("hooks.queue_size", 1000)
}
