package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Reports     ReportsConfig
	Scheduler   SchedulerConfig
	Definitions DefinitionsConfig
	MetricsDB   DatabaseConfig
	TicketDB    DatabaseConfig
	Redis       RedisConfig
	S3          S3Config
	NATS        NATSConfig
	SMTP        SMTPConfig
	Delivery    DeliveryConfig
	DynamoDB    DynamoDBConfig
	CloudWatch  CloudWatchConfig
	Security    SecurityConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type ReportsConfig struct {
	OutputDir     string
	LogoDir       string
	Timezone      string
	TargetSamples int
	// ManualRateLimitPerMinute ограничивает ручную генерацию через HTTP
	ManualRateLimitPerMinute int
}

type SchedulerConfig struct {
	Enabled     bool
	DailySpec   string
	WeeklySpec  string
	MonthlySpec string
}

// DefinitionsConfig selects where report definitions live: "file" or "dynamodb".
type DefinitionsConfig struct {
	Backend string
	Dir     string
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	URLMode         string
	PresignedTTL    time.Duration
}

type NATSConfig struct {
	Enabled bool
	URL     string
	Stream  string
	MaxAge  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
	FromName string
	StartTLS bool
	Timeout  time.Duration
}

type DeliveryConfig struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

type DynamoDBConfig struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
}

type CloudWatchConfig struct {
	MetricsEnabled  bool
	LogsEnabled     bool
	Namespace       string
	LogGroupName    string
	LogStreamName   string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Environment     string
}

type SecurityConfig struct {
	AuthEnabled bool
	AuthToken   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	var errs []string
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
		}
		return d
	}
	integer := func(key string, def int) int {
		raw := getEnv(key, strconv.Itoa(def))
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
		}
		return n
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    duration("SERVER_WRITE_TIMEOUT", "5m"),
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: duration("SERVER_SHUTDOWN_TIMEOUT", "30s"),
		},
		Reports: ReportsConfig{
			OutputDir:                getEnv("REPORTS_OUTPUT_DIR", "./var/reports"),
			LogoDir:                  getEnv("REPORTS_LOGO_DIR", "./var/logos"),
			Timezone:                 getEnv("REPORTS_TIMEZONE", "America/Sao_Paulo"),
			TargetSamples:            integer("REPORTS_TARGET_SAMPLES", 500),
			ManualRateLimitPerMinute: integer("REPORTS_MANUAL_RATE_LIMIT_PER_MINUTE", 6),
		},
		Scheduler: SchedulerConfig{
			Enabled:     getEnvBool("SCHEDULER_ENABLED", true),
			DailySpec:   getEnv("SCHEDULER_DAILY_SPEC", "0 7 * * *"),
			WeeklySpec:  getEnv("SCHEDULER_WEEKLY_SPEC", "53 12 * * 1"),
			MonthlySpec: getEnv("SCHEDULER_MONTHLY_SPEC", "0 11 1 * *"),
		},
		Definitions: DefinitionsConfig{
			Backend: strings.ToLower(getEnv("DEFINITIONS_BACKEND", "file")),
			Dir:     getEnv("DEFINITIONS_DIR", "./var/definitions"),
		},
		MetricsDB: loadDatabase("METRICS_DB", "zabbix", duration),
		TicketDB:  loadDatabase("TICKET_DB", "servicedesk", duration),
		Redis: RedisConfig{
			Enabled:   getEnvBool("REDIS_ENABLED", false),
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnv("REDIS_PORT", "6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        integer("REDIS_DB", 0),
			TTL:       duration("REDIS_TTL", "24h"),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", ""),
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "ru-central1"),
			Endpoint:        getEnv("S3_ENDPOINT", "https://storage.yandexcloud.net"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "reports"),
			URLMode:         getEnv("S3_URL_MODE", "presigned"),
			PresignedTTL:    duration("S3_PRESIGNED_TTL", "168h"),
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Stream:  getEnv("NATS_STREAM", "REPORTS"),
			MaxAge:  duration("NATS_MAX_AGE", "720h"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnv("SMTP_PORT", "25"),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "reports@localhost"),
			FromName: getEnv("SMTP_FROM_NAME", "Monitoring Reports"),
			StartTLS: getEnvBool("SMTP_STARTTLS", true),
			Timeout:  duration("SMTP_TIMEOUT", "30s"),
		},
		Delivery: DeliveryConfig{
			QueueSize:   integer("DELIVERY_QUEUE_SIZE", 64),
			Workers:     integer("DELIVERY_WORKERS", 2),
			SendTimeout: duration("DELIVERY_SEND_TIMEOUT", "2m"),
		},
		DynamoDB: DynamoDBConfig{
			TableName:       getEnv("DYNAMODB_TABLE", "report_definitions"),
			Region:          getEnv("DYNAMODB_REGION", getEnv("AWS_REGION", "us-east-1")),
			Endpoint:        getEnv("DYNAMODB_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			StrongReads:     getEnvBool("DYNAMODB_STRONG_READS", true),
		},
		CloudWatch: CloudWatchConfig{
			MetricsEnabled:  getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			LogsEnabled:     getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			Namespace:       getEnv("CLOUDWATCH_NAMESPACE", "MonitoringReports/Dispatch"),
			LogGroupName:    getEnv("CLOUDWATCH_LOG_GROUP", "/monitoring-reports/dispatcher"),
			LogStreamName:   getEnv("CLOUDWATCH_LOG_STREAM", hostname()),
			Region:          getEnv("CLOUDWATCH_REGION", getEnv("AWS_REGION", "us-east-1")),
			Endpoint:        getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Environment:     getEnv("ENVIRONMENT", "production"),
		},
		Security: SecurityConfig{
			AuthEnabled: getEnvBool("AUTH_ENABLED", false),
			AuthToken:   getEnv("AUTH_BEARER_TOKEN", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if c.Security.AuthEnabled && c.Security.AuthToken == "" {
		return fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}
	if _, err := time.LoadLocation(c.Reports.Timezone); err != nil {
		return fmt.Errorf("invalid REPORTS_TIMEZONE: %w", err)
	}
	switch c.Definitions.Backend {
	case "file":
		if c.Definitions.Dir == "" {
			return fmt.Errorf("DEFINITIONS_DIR is required for the file backend")
		}
	case "dynamodb":
		if c.DynamoDB.TableName == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("unsupported DEFINITIONS_BACKEND %q", c.Definitions.Backend)
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when S3_ENABLED=true")
	}
	if c.Delivery.QueueSize <= 0 {
		return fmt.Errorf("DELIVERY_QUEUE_SIZE must be positive")
	}
	return nil
}

// Location returns the business timezone of period resolution.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reports.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func loadDatabase(prefix, defaultName string, duration func(key, def string) time.Duration) DatabaseConfig {
	return DatabaseConfig{
		Enabled:         getEnvBool(prefix+"_ENABLED", true),
		Host:            getEnv(prefix+"_HOST", "localhost"),
		Port:            getEnv(prefix+"_PORT", "5432"),
		User:            getEnv(prefix+"_USER", "postgres"),
		Password:        getEnv(prefix+"_PASSWORD", "postgres"),
		Database:        getEnv(prefix+"_NAME", defaultName),
		SSLMode:         getEnv(prefix+"_SSLMODE", "disable"),
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: duration(prefix+"_CONN_MAX_LIFETIME", "5m"),
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "report-dispatcher"
	}
	return name
}
