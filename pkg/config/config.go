package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Billing       BillingConfig
	Notifications NotificationConfig
	Stats         StatsConfig
	Calendar      CalendarConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the verification side of tokens minted by the auth service.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BillingConfig carries the bank details printed on invoices and encoded in the transfer QR.
type BillingConfig struct {
	InvoicePrefix   string
	BankCode        string
	BankName        string
	AccountNumber   string
	AccountName     string
	QRTemplate      string
	LineDescription string
}

// NotificationConfig tunes the best-effort session event dispatcher.
type NotificationConfig struct {
	Enabled    bool
	Channel    string
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// StatsConfig governs caching of monthly billing statistics.
type StatsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// CalendarConfig controls the iCalendar feed of sessions.
type CalendarConfig struct {
	Name     string
	Timezone string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Billing = BillingConfig{
		InvoicePrefix:   v.GetString("BILLING_INVOICE_PREFIX"),
		BankCode:        v.GetString("BILLING_BANK_CODE"),
		BankName:        v.GetString("BILLING_BANK_NAME"),
		AccountNumber:   v.GetString("BILLING_ACCOUNT_NUMBER"),
		AccountName:     v.GetString("BILLING_ACCOUNT_NAME"),
		QRTemplate:      v.GetString("BILLING_QR_TEMPLATE"),
		LineDescription: v.GetString("BILLING_LINE_DESCRIPTION"),
	}

	cfg.Notifications = NotificationConfig{
		Enabled:    v.GetBool("NOTIFY_ENABLED"),
		Channel:    v.GetString("NOTIFY_CHANNEL"),
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		BufferSize: v.GetInt("NOTIFY_BUFFER_SIZE"),
		MaxRetries: v.GetInt("NOTIFY_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), time.Second),
	}

	cfg.Stats = StatsConfig{
		CacheEnabled: v.GetBool("ENABLE_STATS_CACHE"),
		CacheTTL:     parseDuration(v.GetString("STATS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Calendar = CalendarConfig{
		Name:     v.GetString("CALENDAR_NAME"),
		Timezone: v.GetString("CALENDAR_TIMEZONE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutor_pro")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "tutor-pro-auth")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BILLING_INVOICE_PREFIX", "INV")
	v.SetDefault("BILLING_BANK_CODE", "970436")
	v.SetDefault("BILLING_BANK_NAME", "Vietcombank")
	v.SetDefault("BILLING_ACCOUNT_NUMBER", "1041819355")
	v.SetDefault("BILLING_ACCOUNT_NAME", "")
	v.SetDefault("BILLING_QR_TEMPLATE", "compact2")
	v.SetDefault("BILLING_LINE_DESCRIPTION", "Buổi học")

	v.SetDefault("NOTIFY_ENABLED", true)
	v.SetDefault("NOTIFY_CHANNEL", "tutor:session-events")
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFY_MAX_RETRIES", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "1s")

	v.SetDefault("ENABLE_STATS_CACHE", true)
	v.SetDefault("STATS_CACHE_TTL", "5m")

	v.SetDefault("CALENDAR_NAME", "Lịch dạy")
	v.SetDefault("CALENDAR_TIMEZONE", "Asia/Ho_Chi_Minh")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
