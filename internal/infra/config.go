package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	DBMaxConns  int
	RedisURL    string
	QueueKey    string
	CronSecret  string

	JobMaxAttempts    int
	BackoffBase       time.Duration
	BackoffMax        time.Duration
	GenerationTimeout time.Duration
	UploadTimeout     time.Duration
	JobLeaseTimeout   time.Duration
	SchedulerInterval time.Duration
	ImageErrorMaxLen  int

	StoragePath      string
	StorageBaseURL   string
	S3Bucket         string
	S3Endpoint       string
	S3Region         string
	S3AccessKey      string
	S3SecretKey      string
	S3PublicBaseURL  string
	S3UsePathStyle   bool
	GeminiAPIKey     string
	GeminiModel      string
	GeminiBaseURL    string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        port,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
		QueueKey:    getEnv("QUEUE_KEY", "image-jobs:queue"),
		CronSecret:  strings.TrimSpace(os.Getenv("CRON_SECRET")),

		JobMaxAttempts:    getEnvInt("JOB_MAX_ATTEMPTS", 3),
		BackoffBase:       getEnvDuration("BACKOFF_BASE", 5*time.Second),
		BackoffMax:        getEnvDuration("BACKOFF_MAX", 5*time.Minute),
		GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 90*time.Second),
		UploadTimeout:     getEnvDuration("UPLOAD_TIMEOUT", 60*time.Second),
		JobLeaseTimeout:   getEnvDuration("JOB_LEASE_TIMEOUT", 10*time.Minute),
		SchedulerInterval: getEnvDuration("SCHEDULER_INTERVAL", 15*time.Second),
		ImageErrorMaxLen:  getEnvInt("IMAGE_ERROR_MAX_LEN", 500),

		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		S3Bucket:         strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:      os.Getenv("S3_SECRET_KEY"),
		S3PublicBaseURL:  os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:   getEnvBool("S3_USE_PATH_STYLE", true),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JobMaxAttempts < 1 {
		return nil, fmt.Errorf("JOB_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.BackoffBase <= 0 {
		return nil, fmt.Errorf("BACKOFF_BASE must be positive")
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		return nil, fmt.Errorf("BACKOFF_MAX must not be lower than BACKOFF_BASE")
	}
	if cfg.GenerationTimeout+cfg.UploadTimeout >= cfg.JobLeaseTimeout {
		return nil, fmt.Errorf("JOB_LEASE_TIMEOUT must exceed GENERATION_TIMEOUT plus UPLOAD_TIMEOUT")
	}
	if cfg.ImageErrorMaxLen < 16 {
		cfg.ImageErrorMaxLen = 16
	}

	return cfg, nil
}

// QueueDurable reports whether a durable queue backend is configured.
func (c *Config) QueueDurable() bool {
	return c != nil && c.RedisURL != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("30s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
