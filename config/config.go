package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort     string `mapstructure:"APP_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Redis configuration.
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB     int    `mapstructure:"REDIS_CACHE_DB"`
	RedisRateLimitDB int    `mapstructure:"REDIS_RATE_LIMIT_DB"`

	// SMTP configuration for the email channel.
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	// Firebase service account for the push channel.
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`

	// Content scan API endpoint.
	ScanAPIURL string `mapstructure:"SCAN_API_URL"`

	// Rate limiting (fixed window).
	CreateRateWindow     time.Duration `mapstructure:"CREATE_RATE_WINDOW"`
	CreateRateCeiling    int64         `mapstructure:"CREATE_RATE_CEILING"`
	BroadcastRateWindow  time.Duration `mapstructure:"BROADCAST_RATE_WINDOW"`
	BroadcastRateCeiling int64         `mapstructure:"BROADCAST_RATE_CEILING"`
	WSRateWindow         time.Duration `mapstructure:"WS_RATE_WINDOW"`
	WSRateCeiling        int64         `mapstructure:"WS_RATE_CEILING"`

	// Circuit breaker defaults, applied to every registered dependency.
	BreakerFailureThreshold  int           `mapstructure:"BREAKER_FAILURE_THRESHOLD"`
	BreakerRecoveryTimeout   time.Duration `mapstructure:"BREAKER_RECOVERY_TIMEOUT"`
	BreakerSuccessesRequired int           `mapstructure:"BREAKER_SUCCESSES_REQUIRED"`

	// Retry with backoff.
	RetryMaxAttempts int           `mapstructure:"RETRY_MAX_ATTEMPTS"`
	RetryBaseDelay   time.Duration `mapstructure:"RETRY_BASE_DELAY"`
	RetryMaxDelay    time.Duration `mapstructure:"RETRY_MAX_DELAY"`
	RetryMultiplier  float64       `mapstructure:"RETRY_MULTIPLIER"`
	RetryJitter      bool          `mapstructure:"RETRY_JITTER"`

	// Live connections.
	ConnIdleTimeout   time.Duration `mapstructure:"CONN_IDLE_TIMEOUT"`
	HeartbeatInterval time.Duration `mapstructure:"HEARTBEAT_INTERVAL"`

	// Reminder sweep.
	SweepInterval  time.Duration `mapstructure:"SWEEP_INTERVAL"`
	SweepBatchSize int           `mapstructure:"SWEEP_BATCH_SIZE"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_RATE_LIMIT_DB", 1)
	viper.SetDefault("SMTP_HOST", "localhost")
	viper.SetDefault("SMTP_PORT", "587")
	viper.SetDefault("SMTP_FROM", "no-reply@notifyhub.local")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")
	viper.SetDefault("SCAN_API_URL", "")
	viper.SetDefault("CREATE_RATE_WINDOW", "60s")
	viper.SetDefault("CREATE_RATE_CEILING", 10)
	viper.SetDefault("BROADCAST_RATE_WINDOW", "60s")
	viper.SetDefault("BROADCAST_RATE_CEILING", 5)
	viper.SetDefault("WS_RATE_WINDOW", "60s")
	viper.SetDefault("WS_RATE_CEILING", 30)
	viper.SetDefault("BREAKER_FAILURE_THRESHOLD", 5)
	viper.SetDefault("BREAKER_RECOVERY_TIMEOUT", "30s")
	viper.SetDefault("BREAKER_SUCCESSES_REQUIRED", 2)
	viper.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	viper.SetDefault("RETRY_BASE_DELAY", "200ms")
	viper.SetDefault("RETRY_MAX_DELAY", "5s")
	viper.SetDefault("RETRY_MULTIPLIER", 2.0)
	viper.SetDefault("RETRY_JITTER", true)
	viper.SetDefault("CONN_IDLE_TIMEOUT", "90s")
	viper.SetDefault("HEARTBEAT_INTERVAL", "30s")
	viper.SetDefault("SWEEP_INTERVAL", "60s")
	viper.SetDefault("SWEEP_BATCH_SIZE", 50)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
