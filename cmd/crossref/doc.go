// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

/*
Package main 提供 Cross-Reference 服务端与命令行入口。

# 概述

cmd/crossref 是跨库检索系统的可执行入口，提供 HTTP API 服务、
离线导入与检索、数据库迁移、健康检查和版本查询等子命令。程序支持
YAML 配置文件与 CROSSREF_* 环境变量、.env 本地开发文件、结构化日志（zap）、
Prometheus 指标采集与 OpenTelemetry 链路追踪。

# 核心类型

  - Server: 组合 crossref.Engine、API 服务器与运维服务器，负责优雅关闭

# 主要能力

  - 子命令：serve、ingest、search、suggestions、insert、migrate、health、version
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、Metrics、
    RequestLogger、CORS、RateLimiter（基于 IP）
  - 写接口可选 JWT（HS256）保护
  - 运维端口独立暴露 /metrics（Prometheus）与 /health
  - 优雅关闭：信号监听 → 关闭 API → 关闭运维端点 → 等待导入任务 → 关闭缓存与数据库
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
