package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/AAreesha/Cross-Reference-Database-System/llm/retry"
	"github.com/AAreesha/Cross-Reference-Database-System/llm/tokenizer"
	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// Adapter 将任意长度文本映射为单个向量：
// 按 token 切块，逐块调用 Provider，再对块向量逐元素取算术平均（不再归一化）.
type Adapter struct {
	provider  Provider
	tokenizer tokenizer.Tokenizer
	limiter   *rate.Limiter
	retryer   *retry.Retryer
	cfg       AdapterConfig
	logger    *zap.Logger
}

// NewAdapter 创建嵌入适配器。tok 为 nil 时使用估算分词器.
func NewAdapter(provider Provider, tok tokenizer.Tokenizer, cfg AdapterConfig, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tok == nil {
		tok = tokenizer.NewEstimatorTokenizer()
	}
	defaults := DefaultAdapterConfig()
	if cfg.ChunkTokens <= 0 {
		cfg.ChunkTokens = defaults.ChunkTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaults.Burst
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	logger = logger.With(zap.String("component", "embedding_adapter"))
	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.MaxRetries

	return &Adapter{
		provider:  provider,
		tokenizer: tok,
		limiter:   rate.NewLimiter(limit, cfg.Burst),
		retryer:   retry.New(policy, logger),
		cfg:       cfg,
		logger:    logger,
	}
}

// Name 返回底层提供者名称.
func (a *Adapter) Name() string {
	return a.provider.Name()
}

// Dimensions 返回底层提供者的向量维度.
func (a *Adapter) Dimensions() int {
	return a.provider.Dimensions()
}

// Embed 返回 text 的聚合向量。任何失败都包装为 EMBEDDING_UNAVAILABLE.
func (a *Adapter) Embed(ctx context.Context, text string) ([]float32, error) {
	chunks, err := a.tokenizer.Split(text, a.cfg.ChunkTokens)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeEmbeddingUnavailable, "split text into chunks", err)
	}
	if len(chunks) == 0 {
		return nil, types.NewError(types.ErrCodeEmbeddingUnavailable, "nothing to embed")
	}

	var sum []float64
	for i, chunk := range chunks {
		vec, err := a.embedChunk(ctx, chunk)
		if err != nil {
			a.logger.Warn("chunk embedding failed",
				zap.Int("chunk", i),
				zap.Int("chunks", len(chunks)),
				zap.Error(err))
			return nil, asUnavailable(err)
		}
		if len(vec) == 0 {
			return nil, types.NewError(types.ErrCodeEmbeddingUnavailable,
				fmt.Sprintf("empty vector for chunk %d", i))
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		} else if len(vec) != len(sum) {
			return nil, types.NewError(types.ErrCodeEmbeddingUnavailable,
				fmt.Sprintf("dimension mismatch: chunk %d has %d, expected %d", i, len(vec), len(sum)))
		}
		for j, v := range vec {
			sum[j] += v
		}
	}

	n := float64(len(chunks))
	mean := make([]float32, len(sum))
	for j, v := range sum {
		mean[j] = float32(v / n)
	}

	a.logger.Debug("text embedded",
		zap.Int("chunks", len(chunks)),
		zap.Int("dimensions", len(mean)))
	return mean, nil
}

func (a *Adapter) embedChunk(ctx context.Context, chunk string) ([]float64, error) {
	resp, err := retry.Do(ctx, a.retryer, func(ctx context.Context) (*EmbeddingResponse, error) {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
		return a.provider.Embed(callCtx, &EmbeddingRequest{
			Input:     []string{chunk},
			InputType: InputTypeDocument,
		})
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != 1 {
		return nil, types.NewError(types.ErrCodeEmbeddingUnavailable,
			fmt.Sprintf("expected 1 embedding, got %d", len(resp.Embeddings)))
	}
	return resp.Embeddings[0].Embedding, nil
}

func asUnavailable(err error) error {
	if types.IsErrorCode(err, types.ErrCodeEmbeddingUnavailable) {
		return err
	}
	return types.WrapError(types.ErrCodeEmbeddingUnavailable, "embedding call failed", err)
}
