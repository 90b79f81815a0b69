package conn

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"main/pkg/exception"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// Config defines connection settings for PostgreSQL.
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`
}

// Client wraps a PostgreSQL connection pool.
type Client struct {
	cfg Config
	db  *gorm.DB
}

// New opens a PostgreSQL connection pool from the provided settings.
func New(cfg Config) (*Client, error) {
	if cfg.Database == "" {
		return nil, exception.ErrInvalidConfig
	}
	db, err := gorm.Open(postgres.Open(cfg.dsn()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, db: db}, nil
}

// DB returns the underlying gorm handle.
func (c *Client) DB() *gorm.DB {
	if c == nil {
		return nil
	}
	return c.db
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (cfg Config) dsn() string {
	host := cfg.Host
	if host == "" {
		host = defaultPostgresHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPostgresPort
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	parts := []string{
		fmt.Sprintf("host=%s", host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("sslmode=%s", sslMode),
	}
	if cfg.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", cfg.User))
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	}
	parts = append(parts, fmt.Sprintf("dbname=%s", cfg.Database))
	return strings.Join(parts, " ")
}
