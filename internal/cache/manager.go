package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AAreesha/Cross-Reference-Database-System/internal/metrics"
	"github.com/AAreesha/Cross-Reference-Database-System/internal/tlsutil"
)

// =============================================================================
// 💾 结果缓存管理器
// =============================================================================

const (
	// KeyPrefix 查询结果键前缀
	KeyPrefix = "query:"
	// KnownQueriesKey 已缓存查询集合
	KnownQueriesKey = "cached_queries"

	cacheType = "result"
)

// Manager 基于 Redis 的查询结果缓存。
// 任何 Redis 错误都按未命中处理，不会中断查询流程。
type Manager struct {
	redis     *redis.Client
	config    Config
	collector *metrics.Collector
	logger    *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// Config 缓存配置
type Config struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr"`

	// 密码
	Password string `yaml:"password" json:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 结果过期时间
	TTL time.Duration `yaml:"ttl" json:"ttl"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// 健康检查间隔，0 表示不启动
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`

	// 是否使用 TLS 连接
	TLS bool `yaml:"tls" json:"tls"`
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		TTL:                 time.Hour,
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// NewManager 创建缓存管理器。
// 启动时 Ping 失败只记录告警，缓存在 Redis 恢复前一直表现为未命中。
func NewManager(config Config, collector *metrics.Collector, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}

	opts := &redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	}
	if config.TLS {
		opts.TLSConfig = tlsutil.DefaultTLSConfig()
	}
	client := redis.NewClient(opts)

	m := &Manager{
		redis:     client,
		config:    config,
		collector: collector,
		logger:    logger.With(zap.String("component", "cache")),
		done:      make(chan struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		m.logger.Warn("redis unreachable, cache will degrade to misses",
			zap.String("addr", config.Addr), zap.Error(err))
	}

	if config.HealthCheckInterval > 0 {
		go m.healthCheckLoop()
	}

	m.logger.Info("cache manager initialized",
		zap.String("addr", config.Addr),
		zap.Duration("ttl", config.TTL),
	)

	return m
}

// Key 返回查询对应的缓存键
func Key(query string) string {
	return KeyPrefix + query
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// Get 读取查询的缓存值。未命中、Redis 错误或已关闭时返回 false。
func (m *Manager) Get(ctx context.Context, query string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		m.collector.RecordCacheMiss(cacheType)
		return "", false
	}

	val, err := m.redis.Get(ctx, Key(query)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			m.logger.Warn("cache get failed", zap.String("query", query), zap.Error(err))
		}
		m.collector.RecordCacheMiss(cacheType)
		return "", false
	}

	m.collector.RecordCacheHit(cacheType)
	return val, true
}

// Set 写入查询结果并加入已缓存查询集合，两条命令在同一个 pipeline 中发送。
func (m *Manager) Set(ctx context.Context, query, value string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	_, err := m.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, Key(query), value, m.config.TTL)
		pipe.SAdd(ctx, KnownQueriesKey, query)
		return nil
	})
	if err != nil {
		m.logger.Warn("cache set failed", zap.String("query", query), zap.Error(err))
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// GetJSON 读取并严格解码 JSON 值，格式不符同样视为未命中。
func (m *Manager) GetJSON(ctx context.Context, query string, dest any) bool {
	val, ok := m.Get(ctx, query)
	if !ok {
		return false
	}

	if err := decodeStrict(val, dest); err != nil {
		m.logger.Warn("discarding malformed cache entry", zap.String("query", query), zap.Error(err))
		return false
	}
	return true
}

// decodeStrict 只接受单个非 null 的 JSON 值，未知字段与尾随数据均视为损坏.
func decodeStrict(val string, dest any) error {
	if strings.TrimSpace(val) == "null" {
		return errors.New("null cache value")
	}
	dec := json.NewDecoder(strings.NewReader(val))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after cache value")
	}
	return nil
}

// SetJSON 以 JSON 编码写入
func (m *Manager) SetJSON(ctx context.Context, query string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return m.Set(ctx, query, string(data))
}

// KnownQueries 返回曾被缓存的查询，按大小写不敏感排序。出错时返回空列表。
func (m *Manager) KnownQueries(ctx context.Context) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return []string{}
	}

	members, err := m.redis.SMembers(ctx, KnownQueriesKey).Result()
	if err != nil {
		m.logger.Warn("cache suggestions failed", zap.Error(err))
		return []string{}
	}

	sort.Slice(members, func(i, j int) bool {
		li, lj := strings.ToLower(members[i]), strings.ToLower(members[j])
		if li != lj {
			return li < lj
		}
		return members[i] < members[j]
	})
	return members
}

// Ping 检查 Redis 连接
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	return m.redis.Ping(ctx).Err()
}

// Close 关闭缓存管理器
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	close(m.done)
	m.logger.Info("closing cache manager")

	return m.redis.Close()
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

func (m *Manager) healthCheckLoop() {
	ticker := time.NewTicker(m.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := m.Ping(ctx); err != nil {
			if !errors.Is(err, ErrClosed) {
				m.logger.Error("cache health check failed", zap.Error(err))
			}
		} else {
			m.logger.Debug("cache health check passed")
		}
		cancel()
	}
}

// ErrClosed 缓存管理器已关闭
var ErrClosed = errors.New("cache manager is closed")
