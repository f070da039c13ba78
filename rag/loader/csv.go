package loader

import (
	"bytes"
	"context"
	"encoding/csv"

	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// CSVDecoderConfig configures the CSV decoder.
type CSVDecoderConfig struct {
	// Delimiter is the field separator. Defaults to ','.
	Delimiter rune
}

// CSVDecoder decodes CSV files. The first row is treated as a header.
type CSVDecoder struct {
	config CSVDecoderConfig
}

// NewCSVDecoder creates a CSVDecoder with the given config.
func NewCSVDecoder(config CSVDecoderConfig) *CSVDecoder {
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	return &CSVDecoder{config: config}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode parses CSV content; rows may have varying field counts.
func (d *CSVDecoder) Decode(ctx context.Context, data []byte) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.WrapError(types.ErrCodeDecodeFailed, "csv decode cancelled", err)
	}

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.Comma = d.config.Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, decodeError("csv", err)
	}
	return newTable(records), nil
}

// SupportedTypes returns the CSV extension.
func (d *CSVDecoder) SupportedTypes() []string {
	return []string{".csv"}
}
