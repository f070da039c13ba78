package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	crossref "github.com/AAreesha/Cross-Reference-Database-System"
	"github.com/AAreesha/Cross-Reference-Database-System/api"
)

// =============================================================================
// 🔎 语义搜索 Handler
// =============================================================================

// SearchService 搜索处理器依赖的引擎能力
type SearchService interface {
	Search(ctx context.Context, query string) (*crossref.SearchResponse, error)
	KnownQueries(ctx context.Context) []string
}

// SearchHandler 语义搜索与查询建议处理器
type SearchHandler struct {
	service SearchService
	logger  *zap.Logger
}

// NewSearchHandler 创建搜索处理器
func NewSearchHandler(service SearchService, logger *zap.Logger) *SearchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchHandler{
		service: service,
		logger:  logger.With(zap.String("component", "search_handler")),
	}
}

// HandleSearch 处理语义搜索请求
// 查询既可以放在 ?query= 中，也可以放在 JSON 请求体里
// @Summary 语义搜索
// @Description 跨 db1..db4 执行混合检索并生成回答
// @Tags 搜索
// @Accept json
// @Produce json
// @Param query query string false "查询文本"
// @Param request body api.SearchRequest false "搜索请求"
// @Success 200 {object} crossref.SearchResponse "搜索结果"
// @Failure 400 {object} Response "空查询"
// @Failure 500 {object} Response "内部错误"
// @Router /semantic-search [post]
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if strings.TrimSpace(query) == "" && r.Method == http.MethodPost && r.ContentLength != 0 {
		if !ValidateContentType(w, r) {
			return
		}
		var req api.SearchRequest
		if err := DecodeJSONBody(w, r, &req); err != nil {
			return
		}
		query = req.Query
	}

	resp, err := h.service.Search(r.Context(), query)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	h.logger.Debug("semantic search",
		zap.String("kind", string(resp.Kind)),
		zap.Bool("cached", resp.Cached),
		zap.Int("results", len(resp.Results)),
	)
	WriteSuccess(w, r, resp)
}

// HandleSuggestions 返回已缓存的历史查询
// @Summary 查询建议
// @Tags 搜索
// @Produce json
// @Success 200 {object} api.SuggestionsResponse "历史查询"
// @Router /suggestions [get]
func (h *SearchHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, api.SuggestionsResponse{
		Suggestions: h.service.KnownQueries(r.Context()),
	})
}
