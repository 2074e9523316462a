package table

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const glyphWidth = 5.0

// text lays s out one glyph per rune starting at x, like a page content stream.
func text(x, y float64, s string) []pdf.Text {
	var out []pdf.Text
	for _, r := range s {
		out = append(out, pdf.Text{Font: "Helvetica", FontSize: 10, X: x, Y: y, W: glyphWidth, S: string(r)})
		x += glyphWidth
	}
	return out
}

func rect(x0, y0, x1, y1 float64) pdf.Rect {
	return pdf.Rect{Min: pdf.Point{X: x0, Y: y0}, Max: pdf.Point{X: x1, Y: y1}}
}

func concat(parts ...[]pdf.Text) []pdf.Text {
	var out []pdf.Text
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestSplitWords(t *testing.T) {
	line := concat(text(10, 100, "visit example.com"), text(200, 100, "today"))
	words := splitWords(line)

	require.Len(t, words, 3)
	assert.Equal(t, "visit", words[0].text)
	assert.Equal(t, "example.com", words[1].text)
	assert.Equal(t, "today", words[2].text)
	assert.InDelta(t, 40.0, words[1].x0, 0.001)
}

func TestGroupLinesTopToBottom(t *testing.T) {
	texts := concat(text(10, 500, "low"), text(10, 700.8, "top"), text(60, 700, "right"))
	lines := groupLines(texts)

	require.Len(t, lines, 2)
	assert.Equal(t, "t", lines[0][0].S)
	assert.Equal(t, "r", lines[0][3].S)
	assert.Equal(t, "l", lines[1][0].S)
}

func TestBuildRowsLattice(t *testing.T) {
	texts := concat(
		text(40, 750, "Blocklist"),
		text(65, 695, "example.com"),
		text(205, 695, "note"),
		text(65, 675, "test.org"),
	)
	rects := []pdf.Rect{
		rect(0, 0, 600, 800), // page frame
		rect(40, 650, 40.5, 710),
		rect(60, 650, 60.5, 710),
		rect(200, 650, 200.5, 710),
		rect(300, 650, 300.5, 710),
		rect(40, 710, 300, 710.5),
		rect(40, 690, 300, 690.5),
		rect(40, 670, 300, 670.5),
		rect(40, 650, 300, 650.5),
	}

	rows := buildRows(texts, rects)

	require.Len(t, rows, 2)
	assert.Equal(t, []Cell{Empty, {Kind: KindText, Text: "example.com"}, {Kind: KindText, Text: "note"}}, rows[0])
	assert.Equal(t, []Cell{Empty, {Kind: KindText, Text: "test.org"}, Empty}, rows[1])

	tb := Table{Rows: rows}
	assert.Equal(t, 1, tb.DomainColumn(0))
}

func TestBuildRowsLatticeWithoutHorizontalRulings(t *testing.T) {
	texts := concat(
		text(45, 700, "1"),
		text(65, 700, "a.cz"),
		text(45, 680, "2"),
		text(65, 680, "b.cz"),
	)
	rects := []pdf.Rect{
		rect(40, 660, 40.5, 720),
		rect(60, 660, 60.5, 720),
		rect(200, 660, 200.5, 720),
	}

	rows := buildRows(texts, rects)

	require.Len(t, rows, 2)
	assert.Equal(t, KindNumber, rows[0][0].Kind)
	assert.Equal(t, "a.cz", rows[0][1].Text)
	assert.Equal(t, "b.cz", rows[1][1].Text)
}

func TestBuildRowsStream(t *testing.T) {
	texts := concat(
		text(80, 720, "Domain list"),
		text(40, 700, "1"),
		text(80, 700, "example.com"),
		text(40, 685, "2"),
		text(80, 685, "foo.org"),
	)

	rows := buildRows(texts, nil)

	require.Len(t, rows, 3)
	assert.Equal(t, []Cell{Empty, {Kind: KindText, Text: "Domain list"}}, rows[0])
	assert.Equal(t, []Cell{{Kind: KindNumber, Text: "1"}, {Kind: KindText, Text: "example.com"}}, rows[1])
	assert.Equal(t, "foo.org", rows[2][1].Text)
}

func TestBuildRowsEmptyPage(t *testing.T) {
	assert.Nil(t, buildRows(nil, []pdf.Rect{rect(0, 0, 10, 10)}))
}

func TestPDFExtractorRejectsGarbage(t *testing.T) {
	e := NewPDFExtractor()

	_, err := e.ExtractTables([]byte("definitely not a pdf"))
	require.Error(t, err)

	_, err = e.ExtractTables(nil)
	require.Error(t, err)
}

func TestBuildRowsGridWithoutTextFallsBackToStream(t *testing.T) {
	texts := concat(text(40, 500, "1"), text(120, 500, "example.com"))
	rects := []pdf.Rect{
		rect(300, 650, 300.5, 710),
		rect(400, 650, 400.5, 710),
	}

	rows := buildRows(texts, rects)

	require.Len(t, rows, 1)
	assert.Equal(t, []Cell{{Kind: KindNumber, Text: "1"}, {Kind: KindText, Text: "example.com"}}, rows[0])
}
