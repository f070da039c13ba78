// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

/*
Package types 提供跨引用数据库系统的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 rag、ingest、llm 与根包
提供统一的类型契约，避免循环依赖。

# 核心类型

  - Partition        : 数据源分区标签（db1..db4），固定迭代顺序
  - Record / RecordKey: 已嵌入记录及其 (Partition, ID) 身份键
  - JobState / JobStatus: 异步导入任务状态机快照
  - Error / ErrorCode: 结构化错误体系，按错误码支持 errors.Is

# 主要能力

  - 分区校验：ParsePartition / AllPartitions
  - 错误工具链：WrapError / IsErrorCode / GetErrorCode / HTTPStatus
  - 文本截断：TruncateText（按字符，UTF-8 安全）
*/
package types
