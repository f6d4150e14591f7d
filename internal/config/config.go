package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	StoreDriver     string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir   string        `mapstructure:"MIGRATIONS_DIR"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	SearchCacheTTL  time.Duration `mapstructure:"SEARCH_CACHE_TTL"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	VisionAPIKey    string        `mapstructure:"VISION_API_KEY"`
	VisionEndpoint  string        `mapstructure:"VISION_ENDPOINT"`
	OCRTimeout      time.Duration `mapstructure:"OCR_TIMEOUT"`
	KFDAAPIKey      string        `mapstructure:"KFDA_API_KEY"`
	KFDABaseURL     string        `mapstructure:"KFDA_BASE_URL"`
	UploadWorkers   int           `mapstructure:"UPLOAD_WORKERS"`
	UploadQueueSize int           `mapstructure:"UPLOAD_QUEUE_SIZE"`
	MaxUploadSize   int64         `mapstructure:"MAX_UPLOAD_SIZE"`
	DemoUserID      string        `mapstructure:"DEMO_USER_ID"`
	DemoUsername    string        `mapstructure:"DEMO_USERNAME"`
	DemoPassword    string        `mapstructure:"DEMO_PASSWORD"`
	ExportTimezone  string        `mapstructure:"EXPORT_TIMEZONE"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RegistryTimeout time.Duration `mapstructure:"REGISTRY_TIMEOUT"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	MaxBodySize     int64         `mapstructure:"MAX_BODY_SIZE"`
}

var keys = []string{
	"PORT", "ENV", "STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"MIGRATIONS_DIR", "REDIS_URL", "SEARCH_CACHE_TTL", "CORS_ORIGINS",
	"VISION_API_KEY", "VISION_ENDPOINT", "OCR_TIMEOUT", "KFDA_API_KEY",
	"KFDA_BASE_URL", "UPLOAD_WORKERS", "UPLOAD_QUEUE_SIZE", "MAX_UPLOAD_SIZE",
	"DEMO_USER_ID", "DEMO_USERNAME", "DEMO_PASSWORD", "EXPORT_TIMEZONE",
	"REQUEST_TIMEOUT", "REGISTRY_TIMEOUT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"MAX_BODY_SIZE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MIGRATIONS_DIR", "")
	v.SetDefault("SEARCH_CACHE_TTL", "10m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("VISION_ENDPOINT", "https://vision.googleapis.com")
	v.SetDefault("OCR_TIMEOUT", "30s")
	v.SetDefault("KFDA_BASE_URL", "http://apis.data.go.kr/1471000/DrugPrdtPrmsnInfoService05")
	v.SetDefault("UPLOAD_WORKERS", 4)
	v.SetDefault("UPLOAD_QUEUE_SIZE", 64)
	v.SetDefault("MAX_UPLOAD_SIZE", 10<<20)
	v.SetDefault("DEMO_USER_ID", "demo-user-id")
	v.SetDefault("DEMO_USERNAME", "demo")
	v.SetDefault("DEMO_PASSWORD", "demo")
	v.SetDefault("EXPORT_TIMEZONE", "Asia/Seoul")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("REGISTRY_TIMEOUT", "10s")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("MAX_BODY_SIZE", 1<<20)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.IsDev() && cfg.StoreDriver == StoreMemory {
		log.Println("WARNING: using the in-memory store; all data is lost on restart.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// UsesPostgres reports whether repositories are backed by Postgres.
func (c *Config) UsesPostgres() bool {
	return c.StoreDriver == StorePostgres
}

// Validate checks that the configuration is usable before any component is
// constructed from it.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", StorePostgres)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMemory, StorePostgres, c.StoreDriver)
	}
	if c.UploadWorkers <= 0 {
		return fmt.Errorf("UPLOAD_WORKERS must be positive, got %d", c.UploadWorkers)
	}
	if c.UploadQueueSize <= 0 {
		return fmt.Errorf("UPLOAD_QUEUE_SIZE must be positive, got %d", c.UploadQueueSize)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive, got %d", c.MaxUploadSize)
	}
	if c.DemoUserID == "" {
		return fmt.Errorf("DEMO_USER_ID must not be empty")
	}
	if c.MaxBodySize <= 0 {
		return fmt.Errorf("MAX_BODY_SIZE must be positive, got %d", c.MaxBodySize)
	}
	if _, err := time.LoadLocation(c.ExportTimezone); err != nil {
		return fmt.Errorf("EXPORT_TIMEZONE %q: %w", c.ExportTimezone, err)
	}
	return nil
}

// ExportLocation returns the time zone symptom exports are rendered in.
func (c *Config) ExportLocation() *time.Location {
	loc, err := time.LoadLocation(c.ExportTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
