package report

import (
	"io"
	"strings"
	"text/tabwriter"
)

var flatten = strings.NewReplacer("\t", " ", "\n", " ")

// TextEncoder 对齐的纯文本表格，供终端查看
type TextEncoder struct {
	tw *tabwriter.Writer
}

func NewTextEncoder(w io.Writer) *TextEncoder {
	return &TextEncoder{tw: tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)}
}

func (e *TextEncoder) WriteHeader(columns []string) error {
	if err := e.writeLine(columns); err != nil {
		return err
	}
	sep := make([]string, len(columns))
	for i, c := range columns {
		sep[i] = strings.Repeat("-", len(c))
	}
	return e.writeLine(sep)
}

func (e *TextEncoder) WriteRow(values []interface{}) error {
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = flatten.Replace(toString(v))
	}
	return e.writeLine(fields)
}

func (e *TextEncoder) writeLine(fields []string) error {
	_, err := io.WriteString(e.tw, strings.Join(fields, "\t")+"\n")
	return err
}

func (e *TextEncoder) Flush() error {
	return e.tw.Flush()
}

func (e *TextEncoder) Close() error {
	return e.Flush()
}
