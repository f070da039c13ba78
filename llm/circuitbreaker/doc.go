// Package circuitbreaker 提供连续失败计数型熔断器。
//
// 连续失败达到 Threshold 后进入 Open，ResetTimeout 之后放行有限的半开试探；
// 试探成功恢复 Closed，失败则重新 Open。
package circuitbreaker
