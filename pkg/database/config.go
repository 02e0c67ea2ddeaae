package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config carries the connection settings supplied by the application config.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	TimeZone       string
	PoolSize       int
	ConnectTimeout time.Duration
	MaxQueryTime   time.Duration
}

// DSN renders the keyword/value connection string understood by pgx.
// statement_timeout is passed as a runtime parameter so the server aborts slow queries.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	tz := c.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslMode, tz,
	)
	if secs := int(c.ConnectTimeout / time.Second); secs > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", secs)
	}
	if ms := c.MaxQueryTime.Milliseconds(); ms > 0 {
		dsn += fmt.Sprintf(" statement_timeout=%d", ms)
	}
	return dsn
}

// PostgresDialector is the production dialector.
func PostgresDialector(cfg Config) gorm.Dialector {
	return postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // Disables implicit prepared statements for pooled proxies
	})
}
