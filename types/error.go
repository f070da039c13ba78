package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unified error code across the system.
type ErrorCode string

// 用户输入错误
const (
	ErrCodeEmptyQuery       ErrorCode = "EMPTY_QUERY"
	ErrCodeInvalidPartition ErrorCode = "INVALID_PARTITION"
	ErrCodeInvalidFileType  ErrorCode = "INVALID_FILE_TYPE"
	ErrCodeUnknownJob       ErrorCode = "UNKNOWN_JOB"
	ErrCodeInvalidRecord    ErrorCode = "INVALID_RECORD"
)

// 外部依赖与存储错误
const (
	ErrCodeEmbeddingUnavailable  ErrorCode = "EMBEDDING_UNAVAILABLE"
	ErrCodeGenerationUnavailable ErrorCode = "GENERATION_UNAVAILABLE"
	ErrCodeStorageWriteFailed    ErrorCode = "STORAGE_WRITE_FAILED"
	ErrCodeStorageReadFailed     ErrorCode = "STORAGE_READ_FAILED"
	ErrCodeIngestionRejected     ErrorCode = "INGESTION_REJECTED"
	ErrCodeDecodeFailed          ErrorCode = "DECODE_FAILED"
)

// Error represents a structured error with code, message, and cause.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误码匹配，使 errors.Is(err, ErrEmptyQuery) 对任意同码错误成立。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// 哨兵错误，仅用于 errors.Is 比较。
var (
	ErrEmptyQuery            = NewError(ErrCodeEmptyQuery, "query must not be empty")
	ErrInvalidPartition      = NewError(ErrCodeInvalidPartition, "invalid partition tag")
	ErrInvalidFileType       = NewError(ErrCodeInvalidFileType, "only csv, xls or xlsx files are accepted")
	ErrUnknownJob            = NewError(ErrCodeUnknownJob, "unknown job id")
	ErrInvalidRecord         = NewError(ErrCodeInvalidRecord, "record id and text must not be empty")
	ErrEmbeddingUnavailable  = NewError(ErrCodeEmbeddingUnavailable, "embedding provider unavailable")
	ErrGenerationUnavailable = NewError(ErrCodeGenerationUnavailable, "generation provider unavailable")
	ErrStorageWriteFailed    = NewError(ErrCodeStorageWriteFailed, "storage write failed")
	ErrStorageReadFailed     = NewError(ErrCodeStorageReadFailed, "storage read failed")
	ErrIngestionRejected     = NewError(ErrCodeIngestionRejected, "ingestion queue unavailable")
	ErrDecodeFailed          = NewError(ErrCodeDecodeFailed, "file could not be decoded")
)

// WrapError 以给定错误码包装底层错误。
func WrapError(code ErrorCode, message string, cause error) *Error {
	return NewError(code, message).WithCause(cause)
}

// IsErrorCode 判断错误链中是否包含指定错误码。
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HTTPStatus 将错误码映射为 HTTP 状态码，供上层传输层使用。
func HTTPStatus(err error) int {
	switch GetErrorCode(err) {
	case ErrCodeEmptyQuery, ErrCodeInvalidPartition, ErrCodeInvalidFileType, ErrCodeInvalidRecord:
		return http.StatusBadRequest
	case ErrCodeUnknownJob:
		return http.StatusNotFound
	case ErrCodeIngestionRejected:
		return http.StatusTooManyRequests
	case ErrCodeDecodeFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeEmbeddingUnavailable, ErrCodeGenerationUnavailable:
		return http.StatusServiceUnavailable
	case "":
		if err == nil {
			return http.StatusOK
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
