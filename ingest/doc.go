// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

/*
包 ingest 实现异步表格导入。

# 概述

Coordinator 接收上传的 csv / xls / xlsx 文件与目标分区，登记一个 pending
任务后立即返回任务 id，实际工作交给 internal/pool.WorkerPool 在后台执行：

	pending → running → completed(inserted) | failed(reason)

# 行清洗

NormalizeRows 丢弃全空行、完全重复的行，以及拼接后为空或为 "nan" 的行。
保留行以 "<任务 id>#row<N>" 作为记录 id，入库文本截断为 10000 个字符，
嵌入使用完整文本。单行嵌入失败只会跳过该行；整批记录通过一次
RecordStore.InsertMany 写入，写入失败时任务失败且写入数为 0。

# 任务表

  - MemoryJobStore：进程内 map，适用于单实例与测试
  - GormJobStore：ingest_jobs 表，服务重启后仍可查询
*/
package ingest
