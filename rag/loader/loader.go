package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// Row 表格中的一行数据，Index 为从 1 开始的数据行序号（不含表头）.
type Row struct {
	Index int      `json:"index"`
	Cells []string `json:"cells"`
}

// Table 解码后的表格，首行视为表头.
type Table struct {
	Header []string `json:"header"`
	Rows   []Row    `json:"rows"`
}

// RowDecoder 将文件内容解码为表格.
type RowDecoder interface {
	// Decode 解码文件内容，失败时返回 DECODE_FAILED.
	Decode(ctx context.Context, data []byte) (*Table, error)

	// SupportedTypes 返回支持的扩展名（含点号，如 ".csv"）.
	SupportedTypes() []string
}

// DecoderRegistry 按扩展名路由到对应的 RowDecoder.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[string]RowDecoder // extension (lowercase, with dot) -> decoder
}

// NewDecoderRegistry 创建注册了 csv、xlsx、xls 解码器的注册表.
func NewDecoderRegistry() *DecoderRegistry {
	r := &DecoderRegistry{
		decoders: make(map[string]RowDecoder),
	}

	builtins := []RowDecoder{
		NewCSVDecoder(CSVDecoderConfig{}),
		NewXLSXDecoder(),
		NewXLSDecoder(),
	}
	for _, d := range builtins {
		for _, ext := range d.SupportedTypes() {
			r.decoders[strings.ToLower(ext)] = d
		}
	}

	return r
}

// Register 添加或替换某个扩展名的解码器.
func (r *DecoderRegistry) Register(ext string, decoder RowDecoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[strings.ToLower(ext)] = decoder
}

// Supports 判断文件名的扩展名是否已注册.
func (r *DecoderRegistry) Supports(filename string) bool {
	_, err := r.lookup(filename)
	return err == nil
}

// Decode 根据文件扩展名选择解码器.
func (r *DecoderRegistry) Decode(ctx context.Context, filename string, data []byte) (*Table, error) {
	d, err := r.lookup(filename)
	if err != nil {
		return nil, err
	}
	return d.Decode(ctx, data)
}

func (r *DecoderRegistry) lookup(filename string) (RowDecoder, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return nil, types.NewError(types.ErrCodeInvalidFileType,
			fmt.Sprintf("cannot determine file type for %q", filename))
	}

	r.mu.RLock()
	d, ok := r.decoders[ext]
	r.mu.RUnlock()

	if !ok {
		return nil, types.NewError(types.ErrCodeInvalidFileType,
			fmt.Sprintf("unsupported file type %q", ext))
	}
	return d, nil
}

// SupportedTypes 返回所有已注册扩展名（已排序）.
func (r *DecoderRegistry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.decoders))
	for ext := range r.decoders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// newTable 以首行为表头构建表格，其余行按 1 起编号.
func newTable(records [][]string) *Table {
	if len(records) == 0 {
		return &Table{}
	}
	t := &Table{
		Header: records[0],
		Rows:   make([]Row, 0, len(records)-1),
	}
	for i, cells := range records[1:] {
		t.Rows = append(t.Rows, Row{Index: i + 1, Cells: cells})
	}
	return t
}

func decodeError(format string, err error) error {
	return types.WrapError(types.ErrCodeDecodeFailed, format+" decode failed", err)
}
