// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 Cross-Reference HTTP API 的请求处理器实现。

# 概述

handlers 包把 crossref.Engine 暴露为 HTTP 端点：语义搜索、查询建议、
文件导入、任务状态与单条记录写入。所有 Handler 均遵循标准 net/http
接口，路由使用 Go 1.22 的方法 + 路径模式。

# 路由

  - POST /semantic-search    : 混合检索 + 回答生成（?query= 或 JSON 体）
  - GET  /semantic-search    : 同上，仅支持 ?query=
  - GET  /suggestions        : 已缓存的历史查询
  - POST /files/ingest       : multipart 上传 csv/xls/xlsx，返回 202 与任务 ID
  - GET  /files/status/{id}  : 导入任务状态
  - POST /insert-record      : 同步写入单条记录

# 主要能力

  - 统一响应格式：WriteSuccess / WriteStatus / WriteError / WriteJSON
  - types.ErrorCode → HTTP 状态码映射（types.HTTPStatus）
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）、ValidateContentType
  - 写接口可选 JWT（HS256）保护
*/
package handlers
