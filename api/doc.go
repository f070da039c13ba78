// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

/*
Package api 定义 Cross-Reference HTTP API 的请求与响应类型。

# 概述

api 包只包含传输层数据结构，处理逻辑位于 api/handlers。
搜索响应直接复用根包的 crossref.SearchResponse，任务状态复用
types.JobStatus，这里仅补充 HTTP 专有的请求体与回执。

# 核心类型

  - SearchRequest       : POST /semantic-search 的 JSON 请求体
  - SuggestionsResponse : GET /suggestions 的历史查询列表
  - IngestAccepted      : POST /files/ingest 的 202 回执
  - InsertRecordRequest : POST /insert-record 的 JSON 请求体
  - InsertRecordResponse: 单条写入成功回执
*/
package api
