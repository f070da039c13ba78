package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State 熔断器状态
type State int

const (
	// StateClosed 关闭状态（正常工作）
	StateClosed State = iota
	// StateOpen 打开状态（熔断中）
	StateOpen
	// StateHalfOpen 半开状态（试探性恢复）
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config 熔断器配置
type Config struct {
	// Threshold 连续失败次数阈值（触发熔断）
	Threshold int

	// ResetTimeout 熔断恢复等待时间（Open -> HalfOpen）
	ResetTimeout time.Duration

	// HalfOpenMaxCalls 半开状态下允许的最大并发试探数
	HalfOpenMaxCalls int

	// IsFailure 判定错误是否计入失败；为空时除 context.Canceled 外均计入
	IsFailure func(error) bool

	// OnStateChange 状态变更回调（同步调用，勿阻塞）
	OnStateChange func(from, to State)
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Threshold:        5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// 错误定义
var (
	ErrCircuitOpen            = errors.New("circuit breaker is open")
	ErrTooManyCallsInHalfOpen = errors.New("too many calls while circuit breaker is half-open")
)

// Breaker 熔断器
type Breaker struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu               sync.Mutex
	state            State
	failures         int
	openedAt         time.Time
	halfOpenInFlight int
}

// New 创建熔断器
func New(cfg Config, logger *zap.Logger) *Breaker {
	defaults := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaults.Threshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaults.ResetTimeout
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = defaults.HalfOpenMaxCalls
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "circuit_breaker")),
		now:    time.Now,
		state:  StateClosed,
	}
}

// Call 执行 fn；熔断打开时直接返回 ErrCircuitOpen
func (b *Breaker) Call(ctx context.Context, fn func(context.Context) error) error {
	halfOpen, err := b.beforeCall()
	if err != nil {
		return err
	}

	err = fn(ctx)
	b.afterCall(halfOpen, err == nil || !b.cfg.IsFailure(err))
	return err
}

// State 返回当前状态
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset 手动恢复到关闭状态
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.halfOpenInFlight = 0
	b.setState(StateClosed)
}

func (b *Breaker) beforeCall() (halfOpen bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			return false, ErrCircuitOpen
		}
		b.setState(StateHalfOpen)
		b.halfOpenInFlight = 0
		fallthrough
	case StateHalfOpen:
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxCalls {
			return false, ErrTooManyCallsInHalfOpen
		}
		b.halfOpenInFlight++
		return true, nil
	default:
		return false, nil
	}
}

func (b *Breaker) afterCall(halfOpen, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if halfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}

	if success {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.logger.Info("circuit breaker recovered")
			b.setState(StateClosed)
		}
		return
	}

	b.failures++
	switch {
	case b.state == StateHalfOpen:
		b.logger.Warn("half-open probe failed, reopening")
		b.trip()
	case b.state == StateClosed && b.failures >= b.cfg.Threshold:
		b.logger.Warn("circuit breaker opened",
			zap.Int("failures", b.failures),
			zap.Int("threshold", b.cfg.Threshold))
		b.trip()
	}
}

// trip 调用方需持有锁
func (b *Breaker) trip() {
	b.openedAt = b.now()
	b.halfOpenInFlight = 0
	b.setState(StateOpen)
}

// setState 调用方需持有锁
func (b *Breaker) setState(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
