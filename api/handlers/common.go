package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/AAreesha/Cross-Reference-Database-System/internal/server"
	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// =============================================================================
// 📦 通用响应结构
// =============================================================================

// Response 统一 API 响应结构
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorInfo 错误信息结构
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// 非 types.Error 的兜底错误码
const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeInternal       = "INTERNAL"
)

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	// 头已写出，编码失败时无法再改响应
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess 写入 200 成功响应
func WriteSuccess(w http.ResponseWriter, r *http.Request, data any) {
	WriteStatus(w, r, http.StatusOK, data)
}

// WriteStatus 以指定状态码写入成功响应
func WriteStatus(w http.ResponseWriter, r *http.Request, status int, data any) {
	WriteJSON(w, status, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: server.RequestIDFromContext(r.Context()),
	})
}

// WriteError 写入错误响应，状态码由 types.HTTPStatus 决定
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	status := types.HTTPStatus(err)
	info := &ErrorInfo{
		Code:      string(types.GetErrorCode(err)),
		Retryable: types.IsRetryable(err),
	}

	var te *types.Error
	if errors.As(err, &te) {
		info.Message = te.Message
	} else {
		info.Code = codeInternal
		info.Message = "internal server error"
	}
	// 5xx 不向调用方暴露底层原因
	if status < http.StatusInternalServerError && te != nil && te.Cause != nil {
		info.Details = te.Cause.Error()
	}

	if logger != nil {
		fields := []zap.Field{
			zap.String("code", info.Code),
			zap.Int("status", status),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		}
		if status >= http.StatusInternalServerError {
			logger.Error("API error", fields...)
		} else {
			logger.Debug("API client error", fields...)
		}
	}

	WriteJSON(w, status, Response{
		Success:   false,
		Error:     info,
		Timestamp: time.Now(),
		RequestID: server.RequestIDFromContext(r.Context()),
	})
}

// writeBadRequest 写入请求格式错误
func writeBadRequest(w http.ResponseWriter, r *http.Request, message string, cause error) {
	info := &ErrorInfo{Code: codeInvalidRequest, Message: message}
	if cause != nil {
		info.Details = cause.Error()
	}
	WriteJSON(w, http.StatusBadRequest, Response{
		Success:   false,
		Error:     info,
		Timestamp: time.Now(),
		RequestID: server.RequestIDFromContext(r.Context()),
	})
}

// =============================================================================
// 🛡️ 请求验证辅助函数
// =============================================================================

// maxJSONBodyBytes JSON 请求体上限
const maxJSONBodyBytes = 1 << 20

// DecodeJSONBody 解码 JSON 请求体（1 MB 限制 + 严格模式）
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		err := errors.New("request body is empty")
		writeBadRequest(w, r, err.Error(), nil)
		return err
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		writeBadRequest(w, r, "invalid JSON body", err)
		return err
	}
	return nil
}

// ValidateContentType 验证 Content-Type
func ValidateContentType(w http.ResponseWriter, r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		writeBadRequest(w, r, "Content-Type must be application/json", nil)
		return false
	}
	return true
}
