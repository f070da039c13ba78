// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

/*
包 server 提供运维 HTTP 端点。

查询、导入等业务能力通过根包 crossref.Engine 以库的形式暴露，
本包只承载运维面：

  - GET /metrics：Prometheus 指标（promhttp）
  - GET /health：依次执行注册的依赖探活（Redis、数据库），任一失败返回 503

Manager 负责监听、后台服务与优雅关闭。
*/
package server
