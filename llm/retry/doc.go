// Package retry 为外部模型调用提供指数退避重试。
//
// 默认只重试 types.Error 中标记为 Retryable 的错误（网络失败、HTTP 5xx、429），
// 重试耗尽后返回最后一次的原始错误。
package retry
