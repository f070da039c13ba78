package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/AAreesha/Cross-Reference-Database-System/internal/server"
)

// Service API 所需的全部引擎能力，*crossref.Engine 实现了它
type Service interface {
	SearchService
	IngestService
}

// RouterConfig 路由配置
type RouterConfig struct {
	// 上传文件大小上限
	MaxUploadBytes int64
	// 写接口的 JWT 校验，Secret 为空时不校验
	JWT server.JWTConfig
}

// NewRouter 注册全部 API 路由
// 读接口公开；写接口（上传、单条写入）在配置了 JWT 密钥时需要 Bearer 令牌
func NewRouter(svc Service, cfg RouterConfig, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	search := NewSearchHandler(svc, logger)
	ingest := NewIngestHandler(svc, cfg.MaxUploadBytes, logger)

	protect := func(h http.HandlerFunc) http.Handler { return h }
	if cfg.JWT.Secret != "" {
		auth := server.JWTAuth(cfg.JWT, logger)
		protect = func(h http.HandlerFunc) http.Handler { return auth(h) }
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /semantic-search", search.HandleSearch)
	mux.HandleFunc("GET /semantic-search", search.HandleSearch)
	mux.HandleFunc("GET /suggestions", search.HandleSuggestions)
	mux.HandleFunc("GET /files/status/{id}", ingest.HandleStatus)
	mux.Handle("POST /files/ingest", protect(ingest.HandleUpload))
	mux.Handle("POST /insert-record", protect(ingest.HandleInsertRecord))
	return mux
}
