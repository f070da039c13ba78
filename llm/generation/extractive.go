package generation

import (
	"context"
	"strings"

	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// ExtractiveGenerator 不调用外部服务，直接返回上下文中的前 MaxPassages 段.
// 用于离线部署与测试.
type ExtractiveGenerator struct {
	MaxPassages int
}

// NewExtractiveGenerator creates an offline generator.
func NewExtractiveGenerator(maxPassages int) *ExtractiveGenerator {
	if maxPassages <= 0 {
		maxPassages = 3
	}
	return &ExtractiveGenerator{MaxPassages: maxPassages}
}

func (g *ExtractiveGenerator) Name() string { return "extractive" }

func (g *ExtractiveGenerator) Generate(ctx context.Context, contextText, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", types.WrapError(types.ErrCodeGenerationUnavailable, "context done", err)
	}
	passages := strings.Split(strings.TrimSpace(contextText), "\n\n")
	if len(passages) == 0 || passages[0] == "" {
		return "", types.NewError(types.ErrCodeGenerationUnavailable, "no context to answer from")
	}
	if len(passages) > g.MaxPassages {
		passages = passages[:g.MaxPassages]
	}
	return strings.Join(passages, "\n"), nil
}
