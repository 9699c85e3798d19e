// internal/infrastructure/database/gormdb/connection.go
package gormdb

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	connectAttempts = 5
	retryDelay      = 2 * time.Second
)

// Client wraps the relational database connection
type Client struct {
	DB     *gorm.DB
	logger *logrus.Logger
}

// Dialector picks the gorm dialect for the configured driver
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	dsn := cfg.GetDatabaseDSN()
	switch cfg.Database.Driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Database.Driver)
	}
}

// NewConnection opens the database, retrying while it comes up
func NewConnection(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogLevel(cfg),
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := gorm.Open(dialector, gormConfig)
		if err == nil {
			if err = configurePool(db, cfg.Database); err == nil {
				logger.WithFields(logrus.Fields{
					"driver": cfg.Database.Driver,
					"host":   cfg.Database.Host,
					"name":   cfg.Database.Name,
				}).Info("Database connection established")
				return &Client{DB: db, logger: logger}, nil
			}
		}

		lastErr = err
		logger.WithError(err).WithField("attempt", attempt).Warn("Database not reachable, retrying")
		time.Sleep(retryDelay)
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, lastErr)
}

func configurePool(db *gorm.DB, cfg config.DatabaseConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func gormLogLevel(cfg *config.Config) gormlogger.LogLevel {
	if cfg.App.Debug {
		return gormlogger.Info
	}
	return gormlogger.Warn
}

// GetDB returns the gorm handle
func (c *Client) GetDB() *gorm.DB {
	return c.DB
}

// Health pings the database
func (c *Client) Health(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
