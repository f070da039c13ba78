package loader

import (
	"bytes"
	"context"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// XLSXDecoder 解码 Office Open XML 工作簿，只读取第一个工作表.
type XLSXDecoder struct{}

// NewXLSXDecoder creates an .xlsx decoder.
func NewXLSXDecoder() *XLSXDecoder { return &XLSXDecoder{} }

func (d *XLSXDecoder) Decode(ctx context.Context, data []byte) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.WrapError(types.ErrCodeDecodeFailed, "xlsx decode cancelled", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, decodeError("xlsx", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, decodeError("xlsx", err)
	}
	return newTable(rows), nil
}

func (d *XLSXDecoder) SupportedTypes() []string {
	return []string{".xlsx"}
}

// XLSDecoder 解码 BIFF8 (.xls) 工作簿，只读取第一个工作表.
type XLSDecoder struct {
	charset string
}

// NewXLSDecoder creates an .xls decoder.
func NewXLSDecoder() *XLSDecoder { return &XLSDecoder{charset: "utf-8"} }

func (d *XLSDecoder) Decode(ctx context.Context, data []byte) (table *Table, err error) {
	if err := ctx.Err(); err != nil {
		return nil, types.WrapError(types.ErrCodeDecodeFailed, "xls decode cancelled", err)
	}

	// 解析器在遇到损坏的 BIFF 结构时会 panic
	defer func() {
		if r := recover(); r != nil {
			table, err = nil, decodeError("xls", fmt.Errorf("malformed workbook: %v", r))
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), d.charset)
	if err != nil {
		return nil, decodeError("xls", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return &Table{}, nil
	}

	records := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		records = append(records, cells)
	}
	return newTable(records), nil
}

func (d *XLSDecoder) SupportedTypes() []string {
	return []string{".xls"}
}
