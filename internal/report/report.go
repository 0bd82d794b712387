// Package report 把查询结果或压测统计写成 text、csv、xlsx、pdf
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Kaguya154/dbic"
	"github.com/Kaguya154/dbic/types"
)

// Encoder 各输出格式共用的写入接口。WriteHeader 只调用一次且在所有行之前。
type Encoder interface {
	WriteHeader(columns []string) error
	WriteRow(values []interface{}) error
	// Flush 把缓冲内容写到底层 writer，xlsx/pdf 在此时才真正输出
	Flush() error
	io.Closer
}

// Formats 支持的格式名
var Formats = []string{"text", "csv", "xlsx", "pdf"}

// New 按格式名创建 Encoder
func New(format string, w io.Writer) (Encoder, error) {
	switch strings.ToLower(format) {
	case "", "text", "txt":
		return NewTextEncoder(w), nil
	case "csv":
		return NewCSVEncoder(w), nil
	case "xlsx", "excel":
		return NewExcelEncoder(w)
	case "pdf":
		return NewPDFEncoder(w), nil
	}
	return nil, fmt.Errorf("unknown report format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

// WriteCursor 读完游标剩余的行并写入 enc，返回写入行数。不调用 Flush。
func WriteCursor(enc Encoder, cur *dbic.Cursor) (int, error) {
	if err := enc.WriteHeader(cur.ColumnNames()); err != nil {
		return 0, err
	}
	n := 0
	err := cur.ForEach(func(row *types.Row) error {
		n++
		return enc.WriteRow(row.Values())
	})
	return n, err
}

// toString NULL 输出为 NULL，时间按秒格式化
func toString(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case time.Duration:
		return v.Round(time.Microsecond).String()
	}
	return fmt.Sprint(val)
}
