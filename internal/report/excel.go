package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// xlsx 单个工作表的行数上限
const maxExcelRows = 1048576

// ExcelEncoder 用 StreamWriter 逐行写 Sheet1，Flush 时输出整个工作簿
type ExcelEncoder struct {
	f      *excelize.File
	sw     *excelize.StreamWriter
	w      io.Writer
	rowIdx int
	err    error
}

func NewExcelEncoder(w io.Writer) (*ExcelEncoder, error) {
	f := excelize.NewFile()
	sw, err := f.NewStreamWriter("Sheet1")
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &ExcelEncoder{f: f, sw: sw, w: w, rowIdx: 1}, nil
}

func (e *ExcelEncoder) WriteHeader(columns []string) error {
	row := make([]interface{}, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	return e.setRow(row)
}

func (e *ExcelEncoder) WriteRow(values []interface{}) error {
	row := make([]interface{}, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case nil, []byte, string:
			s := toString(val)
			// 以公式字符开头的文本加前缀，避免被 Excel 当作公式
			if len(s) > 0 && (s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@') {
				s = "'" + s
			}
			row[i] = s
		default:
			row[i] = v
		}
	}
	return e.setRow(row)
}

func (e *ExcelEncoder) setRow(row []interface{}) error {
	if e.err != nil {
		return e.err
	}
	if e.rowIdx > maxExcelRows {
		e.err = fmt.Errorf("excel row limit exceeded (%d rows)", maxExcelRows)
		return e.err
	}
	cell, err := excelize.CoordinatesToCellName(1, e.rowIdx)
	if err != nil {
		e.err = err
		return err
	}
	if err := e.sw.SetRow(cell, row); err != nil {
		e.err = err
		return err
	}
	e.rowIdx++
	return nil
}

func (e *ExcelEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if err := e.sw.Flush(); err != nil {
		e.err = err
		return err
	}
	_, err := e.f.WriteTo(e.w)
	if err != nil {
		e.err = err
	}
	return err
}

// Close 只释放工作簿，不会输出，需要先 Flush
func (e *ExcelEncoder) Close() error {
	return e.f.Close()
}
