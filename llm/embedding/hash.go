package embedding

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// HashProvider 以特征哈希生成确定性词袋向量，无需网络.
// 相同文本总是得到相同向量；共享词项越多，余弦距离越小.
type HashProvider struct {
	*BaseProvider
}

// NewHashProvider creates a local hashing provider.
func NewHashProvider(cfg HashConfig) *HashProvider {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultHashConfig().Dimensions
	}
	return &HashProvider{
		BaseProvider: NewBaseProvider(BaseConfig{
			Name:       "hash-embedding",
			Model:      "feature-hash",
			Dimensions: cfg.Dimensions,
		}),
	}
}

// Embed 对每个输入独立计算哈希向量并做 L2 归一化.
func (p *HashProvider) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	embeddings := make([]EmbeddingData, len(req.Input))
	for i, text := range req.Input {
		embeddings[i] = EmbeddingData{Index: i, Embedding: p.vector(text)}
	}
	return &EmbeddingResponse{
		Provider:   p.Name(),
		Model:      p.model,
		Embeddings: embeddings,
		CreatedAt:  time.Now(),
	}, nil
}

func (p *HashProvider) vector(text string) []float64 {
	vec := make([]float64, p.dimensions)
	for _, tok := range hashTokens(text) {
		h := xxhash.Sum64String(tok)
		sign := 1.0
		if h>>63 == 1 {
			sign = -1.0
		}
		vec[h%uint64(p.dimensions)] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func hashTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// EmbedQuery embeds a single query.
func (p *HashProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	return p.BaseProvider.EmbedQuery(ctx, query, p.Embed)
}

// EmbedDocuments embeds multiple documents.
func (p *HashProvider) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	return p.BaseProvider.EmbedDocuments(ctx, documents, p.Embed)
}
