package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"go-pms-api/pkg/database"
)

// Config holds runtime configuration for every process of the server.
type Config struct {
	Port      string `envconfig:"PORT" default:"3000"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	DBHost           string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort           int           `envconfig:"DB_PORT" default:"5432"`
	DBUser           string        `envconfig:"DB_USER" default:"postgres"`
	DBPassword       string        `envconfig:"DB_PASSWORD"`
	DBName           string        `envconfig:"DB_NAME" default:"pms"`
	DBSSLMode        string        `envconfig:"DB_SSLMODE" default:"disable"`
	DBTimeZone       string        `envconfig:"DB_TIMEZONE" default:"UTC"`
	DBPoolSize       int           `envconfig:"DB_POOL_SIZE" default:"10"`
	DBConnectTimeout time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"10s"`
	DBMaxQueryTime   time.Duration `envconfig:"DB_MAX_QUERY_TIME" default:"30s"`

	JWTSecret       string        `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer       string        `envconfig:"JWT_ISSUER" default:"go-pms-api"`
	AccessTokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"1h"`
	RefreshTokenTTL time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"168h"`

	AdminFirstname string `envconfig:"ADMIN_FIRSTNAME" default:"Super"`
	AdminLastname  string `envconfig:"ADMIN_LASTNAME" default:"Admin"`
	AdminUsername  string `envconfig:"ADMIN_USERNAME" default:"superadmin"`
	AdminEmail     string `envconfig:"ADMIN_EMAIL" default:"admin@example.com"`
	AdminPassword  string `envconfig:"ADMIN_PASSWORD"`

	RedisAddr          string        `envconfig:"REDIS_ADDR"`
	PermissionCacheTTL time.Duration `envconfig:"PERMISSION_CACHE_TTL" default:"5m"`

	MetricsAddr     string        `envconfig:"METRICS_ADDR"`
	Workers         int           `envconfig:"WORKERS" default:"0"`
	RestartBackoff  time.Duration `envconfig:"RESTART_BACKOFF" default:"1s"`
	FaultDelay      time.Duration `envconfig:"FAULT_DELAY" default:"1s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// a missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret must be provided")
	}
	if cfg.DBPoolSize <= 0 {
		return nil, errors.New("db pool size must be positive")
	}
	return &cfg, nil
}

// Database returns the connection settings for the ConnectionManager.
func (c *Config) Database() database.Config {
	return database.Config{
		Host:           c.DBHost,
		Port:           c.DBPort,
		User:           c.DBUser,
		Password:       c.DBPassword,
		Name:           c.DBName,
		SSLMode:        c.DBSSLMode,
		TimeZone:       c.DBTimeZone,
		PoolSize:       c.DBPoolSize,
		ConnectTimeout: c.DBConnectTimeout,
		MaxQueryTime:   c.DBMaxQueryTime,
	}
}
