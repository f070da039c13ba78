// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

/*
包 database 负责打开 GORM 数据库并管理连接池。

# 概述

Open 根据 Config.Driver 选择方言（postgres、mysql 或纯 Go 的 sqlite），
并把 GORM 日志接入 zap。PoolManager 在其上配置 database/sql 连接池，
后台定时探活，并将打开与空闲连接数上报到 metrics.Collector。

# 核心类型

  - Config：驱动、DSN、慢查询阈值与连接池配置
  - PoolManager：DB()、Ping()、Stats()、Close()
  - PoolConfig：最大空闲/打开连接数、生命周期与健康检查间隔
*/
package database
