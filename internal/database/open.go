package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/AAreesha/Cross-Reference-Database-System/config"
)

// 支持的驱动
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Config 数据库连接配置
type Config struct {
	// Driver 取值 postgres | mysql | sqlite
	Driver string `yaml:"driver" json:"driver" env:"DRIVER"`

	// DSN 连接串；sqlite 为文件路径
	DSN string `yaml:"dsn" json:"dsn" env:"DSN"`

	// SlowThreshold 慢查询阈值，超过时记录告警
	SlowThreshold time.Duration `yaml:"slow_threshold" json:"slow_threshold" env:"SLOW_THRESHOLD"`

	Pool PoolConfig `yaml:"pool" json:"pool"`
}

// DefaultConfig 返回默认数据库配置（本地 sqlite 文件）
func DefaultConfig() Config {
	return Config{
		Driver:        DriverSQLite,
		DSN:           "crossref.db",
		SlowThreshold: 200 * time.Millisecond,
		Pool:          DefaultPoolConfig(),
	}
}

// ConfigFrom 将应用配置中的数据库段转换为连接配置
func ConfigFrom(c config.DatabaseConfig) Config {
	pool := DefaultPoolConfig()
	if c.MaxIdleConns > 0 {
		pool.MaxIdleConns = c.MaxIdleConns
	}
	if c.MaxOpenConns > 0 {
		pool.MaxOpenConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime > 0 {
		pool.ConnMaxLifetime = c.ConnMaxLifetime
	}
	if c.ConnMaxIdleTime > 0 {
		pool.ConnMaxIdleTime = c.ConnMaxIdleTime
	}
	return Config{
		Driver:        c.Driver,
		DSN:           c.DSN(),
		SlowThreshold: c.SlowThreshold,
		Pool:          pool,
	}
}

// Dialector 根据驱动名创建 GORM 方言
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(driver) {
	case DriverPostgres, "postgresql":
		return postgres.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(dsn), nil
	case DriverSQLite, "sqlite3":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open 打开数据库并应用连接池配置
func Open(cfg Config, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialector, err := Dialector(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(logger, cfg.SlowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	return db, nil
}

// newGormLogger 将 GORM 日志写入 zap，仅输出告警及以上级别
func newGormLogger(logger *zap.Logger, slow time.Duration) gormlogger.Interface {
	return gormlogger.New(
		zap.NewStdLog(logger.With(zap.String("component", "gorm"))),
		gormlogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}
