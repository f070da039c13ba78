package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/AAreesha/Cross-Reference-Database-System/api"
	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// =============================================================================
// 📥 文件导入 Handler
// =============================================================================

// IngestService 导入处理器依赖的引擎能力
type IngestService interface {
	SubmitIngest(ctx context.Context, data []byte, filename, partition string) (string, error)
	IngestStatus(ctx context.Context, jobID string) (types.JobStatus, error)
	InsertRecord(ctx context.Context, partition, id, text string) error
}

// IngestHandler 文件导入、任务状态与单条写入处理器
type IngestHandler struct {
	service        IngestService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewIngestHandler 创建导入处理器
func NewIngestHandler(service IngestService, maxUploadBytes int64, logger *zap.Logger) *IngestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &IngestHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(zap.String("component", "ingest_handler")),
	}
}

// HandleUpload 接收 multipart 文件并排队导入
// @Summary 上传文件
// @Description 上传 csv/xls/xlsx 文件到指定分区，异步导入
// @Tags 导入
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "csv、xls 或 xlsx 文件"
// @Param partition formData string true "分区 db1..db4"
// @Success 202 {object} api.IngestAccepted "已受理"
// @Failure 400 {object} Response "文件类型或分区无效"
// @Failure 413 {object} Response "文件过大"
// @Failure 429 {object} Response "导入队列已满"
// @Router /files/ingest [post]
func (h *IngestHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteJSON(w, http.StatusRequestEntityTooLarge, Response{
				Success: false,
				Error:   &ErrorInfo{Code: codeInvalidRequest, Message: "file exceeds upload limit"},
			})
			return
		}
		writeBadRequest(w, r, "expected a multipart form", err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, r, "missing form field \"file\"", err)
		return
	}
	defer file.Close()

	partition := r.FormValue("partition")
	if partition == "" {
		// 兼容旧客户端字段名
		partition = r.FormValue("source_tag")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeBadRequest(w, r, "failed to read uploaded file", err)
		return
	}

	jobID, err := h.service.SubmitIngest(r.Context(), data, header.Filename, partition)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	h.logger.Info("upload accepted",
		zap.String("job_id", jobID),
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
	)
	WriteStatus(w, r, http.StatusAccepted, api.IngestAccepted{
		UploadID:  jobID,
		Status:    types.JobPending,
		Partition: strings.ToLower(strings.TrimSpace(partition)),
		Filename:  header.Filename,
	})
}

// HandleStatus 返回导入任务状态
// @Summary 导入任务状态
// @Tags 导入
// @Produce json
// @Param id path string true "任务 ID"
// @Success 200 {object} types.JobStatus "任务状态"
// @Failure 404 {object} Response "任务不存在"
// @Router /files/status/{id} [get]
func (h *IngestHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.IngestStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, status)
}

// HandleInsertRecord 同步写入单条记录
// @Summary 写入单条记录
// @Tags 导入
// @Accept json
// @Produce json
// @Param request body api.InsertRecordRequest true "记录"
// @Success 201 {object} api.InsertRecordResponse "写入成功"
// @Failure 400 {object} Response "分区或记录无效"
// @Failure 503 {object} Response "向量化不可用"
// @Router /insert-record [post]
func (h *IngestHandler) HandleInsertRecord(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r) {
		return
	}
	var req api.InsertRecordRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		return
	}

	if err := h.service.InsertRecord(r.Context(), req.Partition, req.ID, req.Text); err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	WriteStatus(w, r, http.StatusCreated, api.InsertRecordResponse{
		Status:    "success",
		ID:        strings.TrimSpace(req.ID),
		Partition: strings.ToLower(strings.TrimSpace(req.Partition)),
	})
}
