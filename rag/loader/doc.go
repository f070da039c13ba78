// Package loader decodes tabular upload files into rows for ingestion.
//
// Supported formats:
//   - CSV (.csv) via encoding/csv
//   - Excel 2007+ (.xlsx) via excelize
//   - Excel 97-2003 (.xls) via extrame/xls
//
// The first row of every file is the header; data rows are numbered from 1.
// Use DecoderRegistry to route decoding by file extension:
//
//	registry := loader.NewDecoderRegistry()
//	table, err := registry.Decode(ctx, "upload.xlsx", data)
//
// Unknown extensions fail with types.ErrInvalidFileType and unreadable
// content fails with types.ErrDecodeFailed.
package loader
