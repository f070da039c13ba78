// Copyright (c) Cross-Reference Database System Authors.
// Licensed under the MIT License.

/*
包 embedding 将文本映射为向量，是检索与入库共用的嵌入层。

# 核心类型

  - Provider：嵌入服务接口，定义 Embed、EmbedQuery、EmbedDocuments。
  - OpenAIProvider：调用 /v1/embeddings，默认 text-embedding-3-small（1536 维）。
  - HashProvider：本地特征哈希实现，输出确定性向量，适合离线运行与测试。
  - Adapter：按 token 将长文本切块（默认 800），逐块嵌入后取逐元素平均。

# 错误语义

所有服务端与聚合失败均以 types.ErrEmbeddingUnavailable 返回，
429 与 5xx 标记为可重试。Adapter 每次调用受 Timeout 约束，
并通过 golang.org/x/time/rate 控制调用速率。

# 使用方式

	provider := embedding.NewOpenAIProvider(embedding.OpenAIConfig{APIKey: key})
	adapter := embedding.NewAdapter(provider, tok, embedding.DefaultAdapterConfig(), logger)
	vec, err := adapter.Embed(ctx, "record text")
*/
package embedding
