package generation

import (
	"context"

	"go.uber.org/zap"

	"github.com/AAreesha/Cross-Reference-Database-System/llm/circuitbreaker"
	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// BreakerGenerator 在连续的 GENERATION_UNAVAILABLE 之后暂停调用下游模型，
// 熔断期间立即返回 GENERATION_UNAVAILABLE，检索结果照常返回.
type BreakerGenerator struct {
	next    Generator
	breaker *circuitbreaker.Breaker
}

// NewBreakerGenerator 用熔断器包装 next
func NewBreakerGenerator(next Generator, cfg circuitbreaker.Config, logger *zap.Logger) *BreakerGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.IsFailure = func(err error) bool {
		return types.IsErrorCode(err, types.ErrCodeGenerationUnavailable)
	}
	return &BreakerGenerator{
		next:    next,
		breaker: circuitbreaker.New(cfg, logger.With(zap.String("generator", next.Name()))),
	}
}

func (g *BreakerGenerator) Name() string { return g.next.Name() }

// State 返回熔断器状态
func (g *BreakerGenerator) State() circuitbreaker.State { return g.breaker.State() }

// Generate 实现 Generator
func (g *BreakerGenerator) Generate(ctx context.Context, contextText, query string) (string, error) {
	var answer string
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		answer, err = g.next.Generate(ctx, contextText, query)
		return err
	})
	switch err {
	case nil:
		return answer, nil
	case circuitbreaker.ErrCircuitOpen, circuitbreaker.ErrTooManyCallsInHalfOpen:
		return "", types.WrapError(types.ErrCodeGenerationUnavailable, "answer generation suspended", err)
	default:
		return "", err
	}
}

var _ Generator = (*BreakerGenerator)(nil)
