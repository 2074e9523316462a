package table

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var ErrNoPages = errors.New("document has no readable pages")

// PDFExtractor reads one table per page. Ruling lines drawn on the page
// delimit cells; pages without rulings are split on whitespace gaps.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) ExtractTables(data []byte) (tables []Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			tables = nil
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	failed := 0
	for i := 1; i <= reader.NumPage(); i++ {
		t := extractPage(reader, i)
		if t.Err != nil {
			failed++
		}
		if t.Err == nil && len(t.Rows) == 0 {
			continue
		}
		tables = append(tables, t)
	}

	if reader.NumPage() == 0 || failed == reader.NumPage() {
		return tables, ErrNoPages
	}
	return tables, nil
}

func extractPage(reader *pdf.Reader, num int) (t Table) {
	t.Page = num
	defer func() {
		if r := recover(); r != nil {
			t.Rows = nil
			t.Err = fmt.Errorf("page %d: %v", num, r)
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return t
	}

	content := page.Content()
	t.Rows = buildRows(content.Text, pageRects(page))
	return t
}
