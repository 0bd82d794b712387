package report

import (
	"io"

	"github.com/go-pdf/fpdf"
)

const pdfRowHeight = 7.0

// PDFEncoder 横向 A4 的简单表格，列宽平均分配。内置字体只支持 Latin-1。
type PDFEncoder struct {
	pdf     *fpdf.Fpdf
	w       io.Writer
	flushed bool
}

func NewPDFEncoder(w io.Writer) *PDFEncoder {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 10)
	pdf.AddPage()
	return &PDFEncoder{pdf: pdf, w: w}
}

func (e *PDFEncoder) colWidth(n int) float64 {
	if n == 0 {
		n = 1
	}
	pageWidth, _ := e.pdf.GetPageSize()
	left, _, right, _ := e.pdf.GetMargins()
	return (pageWidth - left - right) / float64(n)
}

func (e *PDFEncoder) WriteHeader(columns []string) error {
	width := e.colWidth(len(columns))
	e.pdf.SetFont("Arial", "B", 10)
	for _, c := range columns {
		e.pdf.CellFormat(width, pdfRowHeight, c, "1", 0, "C", false, 0, "")
	}
	e.pdf.Ln(-1)
	e.pdf.SetFont("Arial", "", 10)
	return e.pdf.Error()
}

func (e *PDFEncoder) WriteRow(values []interface{}) error {
	width := e.colWidth(len(values))
	for _, v := range values {
		e.pdf.CellFormat(width, pdfRowHeight, toString(v), "1", 0, "L", false, 0, "")
	}
	e.pdf.Ln(-1)
	return e.pdf.Error()
}

// Flush 输出整个文档，只能调用一次
func (e *PDFEncoder) Flush() error {
	if e.flushed {
		return nil
	}
	e.flushed = true
	return e.pdf.Output(e.w)
}

func (e *PDFEncoder) Close() error {
	return e.Flush()
}
