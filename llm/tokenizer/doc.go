// Package tokenizer 提供统一的 Token 计数与切分接口，
// 支持 tiktoken 精确切分与 CJK 感知估算器，用于嵌入前的文本分块。
package tokenizer
