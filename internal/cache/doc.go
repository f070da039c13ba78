// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

/*
包 cache 提供基于 Redis 的查询结果缓存。

# 概述

Manager 封装 go-redis 客户端，以 "query:<查询>" 为键保存序列化后的搜索
结果（默认 TTL 一小时），并在集合 "cached_queries" 中记录所有缓存过的
查询，供搜索建议使用。

# 错误语义

缓存是旁路能力：读取时的 Redis 错误、连接中断或 JSON 格式不符都按
未命中处理并记录日志，调用方只会看到 (value, false)。写入错误会返回，
但上层可以忽略。

# 主要能力

  - Get / Set：字符串读写，Set 通过 pipeline 同时执行 SET EX 与 SADD
  - GetJSON / SetJSON：严格 JSON 编解码（拒绝未知字段）
  - KnownQueries：按大小写不敏感顺序返回已缓存查询
  - 健康检查：后台定时 Ping，异常时通过 zap 日志告警
  - 命中率：通过 metrics.Collector 记录 hit / miss
*/
package cache
