// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

/*
包 generation 基于检索得到的编号上下文生成自然语言回答。

  - OpenAIGenerator：调用 /v1/chat/completions，系统提示要求按 [n] 标注来源。
  - ExtractiveGenerator：离线实现，直接摘取上下文前若干段。

所有失败以 types.ErrGenerationUnavailable 返回，调用方据此回退为仅返回检索结果。
*/
package generation
