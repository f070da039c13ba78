package migration

import (
	"strings"

	"go.uber.org/zap"

	"github.com/AAreesha/Cross-Reference-Database-System/internal/database"
)

// NewMigratorFromDatabaseConfig 使用与 GORM 相同的数据库配置创建迁移器
func NewMigratorFromDatabaseConfig(cfg database.Config, logger *zap.Logger) (*DefaultMigrator, error) {
	dbType, err := ParseDatabaseType(cfg.Driver)
	if err != nil {
		return nil, err
	}

	return NewMigrator(Config{
		DatabaseType: dbType,
		DSN:          migrationDSN(dbType, cfg.DSN),
	}, logger)
}

// migrationDSN 补齐迁移所需的连接参数：MySQL 迁移文件包含多条语句
func migrationDSN(t DatabaseType, dsn string) string {
	if t != DatabaseTypeMySQL || strings.Contains(dsn, "multiStatements=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "multiStatements=true"
}
