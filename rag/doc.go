// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

/*
包 rag 实现跨分区的记录存储、混合检索与上下文格式化。

# 核心类型

  - RecordStore：按分区组织的记录索引接口，提供 InsertMany、
    NearestByVector、SearchLexical、Count。
  - MemoryStore：内存实现，每个分区一个按写入顺序排列的切片。
  - GormStore：基于 GORM 的 records 表实现，单事务批量写入。
  - HybridRetriever：对 db1..db4 并发执行向量与词法检索并融合。
  - Outcome：检索结果，Kind 为 results、no_data、no_matches 或 service_degraded。

# 融合规则

向量命中基础分 1.0；同时为词法命中时加 Boost×词法得分（默认 0.4）；
纯词法命中得分为 Boost×词法得分。分区内保留前 10 条，
全局稳定排序后按 (partition, id) 去重并截断到 5 条。

# 上下文格式

FormatContext 将结果渲染为 "[n] text"，n 为分区引用编号，
按分区首次出现顺序从 1 开始分配。
*/
package rag
