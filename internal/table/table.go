// Package table turns blocklist documents into rows of cells.
package table

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber // non-text content such as row numbers
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	default:
		return "unknown"
	}
}

type Cell struct {
	Kind Kind
	Text string
}

var Empty = Cell{Kind: KindEmpty}

// NewCell classifies raw cell content. Blank content is empty, content that
// parses as a number is KindNumber, everything else is text.
func NewCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Empty
	}
	if isNumber(s) {
		return Cell{Kind: KindNumber, Text: s}
	}
	return Cell{Kind: KindText, Text: s}
}

func isNumber(s string) bool {
	s = strings.TrimSuffix(strings.ReplaceAll(s, " ", ""), ".")
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func (c Cell) IsEmpty() bool {
	return c.Kind == KindEmpty
}

type Table struct {
	Page int
	Rows [][]Cell
	// Err is set when the page could not be turned into a table. The other
	// tables of the document are still usable.
	Err error
}

func (t Table) NumColumns() int {
	n := 0
	for _, row := range t.Rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// Column returns column i of every row; short rows yield empty cells.
func (t Table) Column(i int) ([]Cell, error) {
	if i < 0 || i >= t.NumColumns() {
		return nil, fmt.Errorf("table on page %d has no column %d (%d columns)", t.Page, i, t.NumColumns())
	}

	col := make([]Cell, len(t.Rows))
	for r, row := range t.Rows {
		if i < len(row) {
			col[r] = row[i]
		} else {
			col[r] = Empty
		}
	}
	return col, nil
}

// FirstColumnEmpty reports whether column 0 holds no content at all.
func (t Table) FirstColumnEmpty() bool {
	for _, row := range t.Rows {
		if len(row) > 0 && !row[0].IsEmpty() {
			return false
		}
	}
	return true
}

// DomainColumn picks the column to read domains from. Some tables carry a
// leading blank annotation column that shifts the layout one column right.
func (t Table) DomainColumn(primary int) int {
	if t.FirstColumnEmpty() {
		return primary + 1
	}
	return primary
}

// Extractor parses a document into tables.
type Extractor interface {
	ExtractTables(data []byte) ([]Table, error)
}
