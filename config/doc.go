// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

// Package config 提供 Cross-Reference 系统的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → CROSSREF_* 环境变量 的顺序叠加，
// Validate 一次性汇总所有非法字段。
package config
