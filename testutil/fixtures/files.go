// Package fixtures 提供测试用的上传文件与样例记录。
package fixtures

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/xuri/excelize/v2"
)

// CSV 以表头加数据行构造 CSV 文件内容
func CSV(header []string, rows ...[]string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(header)
	for _, r := range rows {
		_ = w.Write(r)
	}
	w.Flush()
	return buf.Bytes()
}

// Workbook 构造单工作表的 XLSX 文件，首行即表头
func Workbook(t testing.TB, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// VendorsCSV 两条有效行、一条空行、一条 "nan" 行
func VendorsCSV() []byte {
	return CSV([]string{"name", "city"},
		[]string{"Acme Logistics", "Lahore"},
		[]string{"", ""},
		[]string{"nan", ""},
		[]string{"Beta Freight", "Karachi"},
	)
}
