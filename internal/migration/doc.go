// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

/*
包 migration 管理 records 与 ingest_jobs 两张表的 schema 版本，
基于 golang-migrate 实现，支持 PostgreSQL、MySQL 与 SQLite。

# 概述

各方言的 SQL 文件通过 embed.FS 内嵌在 migrations/<dialect>/ 下，
命名为 <version>_<name>.{up,down}.sql。NewMigratorFromDatabaseConfig
复用 internal/database.Config，GORM 与迁移使用同一份 DSN。

# 核心类型

  - Migrator / DefaultMigrator：Up、Down、Steps、Force、Version、Status、Info
  - CLI：供 `crossref migrate <action>` 使用的格式化输出
*/
package migration
