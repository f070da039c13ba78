// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖检索、入库、
模型调用、缓存与数据库五个维度。

# 概述

Collector 通过 promauto 注册到默认 Registry，所有指标按 namespace 隔离。
Record 系列方法允许 nil 接收者，组件可以不注入 Collector 直接运行。

# 主要指标

  - 检索：retrievals_total / retrieval_duration_seconds 按结果类型
    （results、no_data、no_matches、service_degraded）分组；
    retrieval_partition_failures_total 按 partition/signal 分组。
  - 模型调用：model_requests_total 按 embedding/generation 与状态分组。
  - 入库：ingest_jobs_total 按终态分组，ingest_rows_total 区分 inserted/skipped。
  - 缓存：命中与未命中计数。
  - 数据库：连接池 Gauge 与查询耗时 Histogram。
*/
package metrics
