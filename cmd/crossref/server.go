package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	crossref "github.com/AAreesha/Cross-Reference-Database-System"
	"github.com/AAreesha/Cross-Reference-Database-System/api/handlers"
	"github.com/AAreesha/Cross-Reference-Database-System/config"
	"github.com/AAreesha/Cross-Reference-Database-System/internal/metrics"
	"github.com/AAreesha/Cross-Reference-Database-System/internal/server"
	"github.com/AAreesha/Cross-Reference-Database-System/internal/telemetry"
)

const (
	// metricsNamespace Prometheus 指标前缀
	metricsNamespace = "crossref"

	defaultShutdownTimeout = 15 * time.Second
)

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs, configPath := newFlagSet("serve", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting Cross-Reference",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	srv := NewServer(cfg, logger)
	if err := srv.Start(ctx); err != nil {
		srv.Shutdown()
		return fmt.Errorf("failed to start server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	srv.Wait(ctx)
	srv.Shutdown()

	logger.Info("Cross-Reference stopped")
	return nil
}

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 组合引擎、API 服务器与运维服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	engine    *crossref.Engine
	collector *metrics.Collector
	telemetry *telemetry.Providers

	httpManager    *server.Manager
	metricsManager *server.Manager

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 初始化依赖并启动两个 HTTP 服务器（非阻塞）
func (s *Server) Start(ctx context.Context) error {
	// 1. OpenTelemetry
	providers, err := telemetry.Init(s.cfg.Telemetry, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	s.telemetry = providers

	// 2. 指标收集器
	s.collector = metrics.NewCollector(metricsNamespace, s.logger)

	// 3. 引擎：存储、检索、缓存、导入
	s.engine, err = crossref.New(ctx, s.cfg,
		crossref.WithLogger(s.logger),
		crossref.WithMetrics(s.collector),
	)
	if err != nil {
		return fmt.Errorf("failed to init engine: %w", err)
	}

	// 4. API 服务器
	if err := s.startHTTPServer(); err != nil {
		return err
	}

	// 5. 运维服务器（/metrics、/health）
	return s.startMetricsServer()
}

func (s *Server) startHTTPServer() error {
	router := handlers.NewRouter(s.engine, handlers.RouterConfig{
		MaxUploadBytes: s.cfg.Server.MaxUploadBytes,
		JWT: server.JWTConfig{
			Secret:   s.cfg.Server.JWT.Secret,
			Issuer:   s.cfg.Server.JWT.Issuer,
			Audience: s.cfg.Server.JWT.Audience,
		},
	}, s.logger)

	middlewares := []server.Middleware{
		server.Recovery(s.logger),
		server.RequestID(),
		server.SecurityHeaders(),
		server.OTelTracing(),
		server.Metrics(s.collector),
		server.RequestLogger(s.logger),
		server.CORS(s.cfg.Server.CORSAllowedOrigins),
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		rlCtx, cancel := context.WithCancel(context.Background())
		s.rateLimiterCancel = cancel
		middlewares = append(middlewares,
			server.RateLimiter(rlCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger))
	}

	s.httpManager = server.NewManager(server.Chain(router, middlewares...), server.Config{
		Name:            "api",
		Addr:            s.cfg.Server.HTTPAddr,
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

func (s *Server) startMetricsServer() error {
	if s.cfg.Server.MetricsAddr == "" {
		return nil
	}
	ops := server.NewOpsHandler(s.engine.HealthChecks(), s.collector, s.logger)
	s.metricsManager = server.NewManager(ops, server.Config{
		Name:            "ops",
		Addr:            s.cfg.Server.MetricsAddr,
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// Wait 阻塞到收到信号或任一服务器异常退出
func (s *Server) Wait(ctx context.Context) {
	var httpErrs, opsErrs <-chan error
	if s.httpManager != nil {
		httpErrs = s.httpManager.Errors()
	}
	if s.metricsManager != nil {
		opsErrs = s.metricsManager.Errors()
	}

	select {
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received")
	case err := <-httpErrs:
		s.logger.Error("HTTP server exited", zap.Error(err))
	case err := <-opsErrs:
		s.logger.Error("Metrics server exited", zap.Error(err))
	}
}

// Shutdown 优雅关闭：API → 运维端点 → 引擎 → 遥测
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	var errs []error
	if s.httpManager != nil {
		errs = append(errs, s.httpManager.Shutdown(ctx))
	}
	if s.metricsManager != nil {
		errs = append(errs, s.metricsManager.Shutdown(ctx))
	}
	if s.engine != nil {
		errs = append(errs, s.engine.Close(ctx))
	}
	if s.telemetry != nil {
		errs = append(errs, s.telemetry.Shutdown(ctx))
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Error("Graceful shutdown finished with errors", zap.Error(err))
		return
	}
	s.logger.Info("Graceful shutdown completed")
}
