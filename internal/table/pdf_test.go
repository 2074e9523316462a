package table

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a minimal PDF with one page per content stream. Every
// page shares a monospaced font resource /F1 with 600 unit glyphs.
func buildPDF(contents ...string) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, len(contents))
	for i := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(contents)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Courier /Encoding /WinAnsiEncoding" +
		" /FirstChar 32 /LastChar 126 /Widths [" + strings.TrimSpace(strings.Repeat("600 ", 95)) + "] >>")

	for i, content := range contents {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792]"+
			" /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

// pageSpace maps page (device) coordinates back to the user space a content
// stream draws in after its cm operator.
type pageSpace struct {
	cm     string
	toUser func(x, y float64) (float64, float64)
	scale  float64
}

var (
	plainSpace   = pageSpace{toUser: func(x, y float64) (float64, float64) { return x, y }, scale: 1}
	halfSpace    = pageSpace{cm: "0.5 0 0 0.5 0 0 cm", toUser: func(x, y float64) (float64, float64) { return 2 * x, 2 * y }, scale: 0.5}
	flippedSpace = pageSpace{cm: "1 0 0 -1 0 792 cm", toUser: func(x, y float64) (float64, float64) { return x, 792 - y }, scale: 1}
)

func (s pageSpace) fill(x0, y0, x1, y1 float64) string {
	ux0, uy0 := s.toUser(x0, y0)
	ux1, uy1 := s.toUser(x1, y1)
	x, y := min(ux0, ux1), min(uy0, uy1)
	return fmt.Sprintf("%g %g %g %g re f\n", x, y, max(ux0, ux1)-x, max(uy0, uy1)-y)
}

func (s pageSpace) show(x, y float64, text string) string {
	ux, uy := s.toUser(x, y)
	return fmt.Sprintf("BT /F1 %g Tf %g %g Td (%s) Tj ET\n", 10/s.scale, ux, uy, text)
}

func (s pageSpace) wrap(body string) string {
	if s.cm == "" {
		return body
	}
	return "q " + s.cm + "\n" + body + "Q\n"
}

// ruledTable draws a titled two row, two column grid.
func ruledTable(s pageSpace) string {
	var b strings.Builder
	b.WriteString(s.show(50, 740, "Blocklist"))
	for _, x := range []float64{50, 200, 260} {
		b.WriteString(s.fill(x, 660, x+0.5, 700))
	}
	for _, y := range []float64{660, 680, 700} {
		b.WriteString(s.fill(50, y, 260, y+0.5))
	}
	b.WriteString(s.show(55, 686, "host1.com"))
	b.WriteString(s.show(205, 686, "1"))
	b.WriteString(s.show(55, 666, "HOST2.COM"))
	b.WriteString(s.show(205, 666, "2"))
	return s.wrap(b.String())
}

func TestExtractTablesLattice(t *testing.T) {
	want := [][]Cell{
		{{Kind: KindText, Text: "host1.com"}, {Kind: KindNumber, Text: "1"}},
		{{Kind: KindText, Text: "HOST2.COM"}, {Kind: KindNumber, Text: "2"}},
	}

	tests := []struct {
		name  string
		space pageSpace
	}{
		{"plain", plainSpace},
		{"scaled by cm", halfSpace},
		{"y flipped by cm", flippedSpace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables, err := NewPDFExtractor().ExtractTables(buildPDF(ruledTable(tt.space)))
			require.NoError(t, err)
			require.Len(t, tables, 1)

			assert.NoError(t, tables[0].Err)
			assert.Equal(t, 1, tables[0].Page)
			assert.Equal(t, want, tables[0].Rows)
		})
	}
}

func TestExtractTablesStream(t *testing.T) {
	s := plainSpace
	content := s.show(50, 700, "1") + s.show(120, 700, "alpha.cz") +
		s.show(50, 680, "2") + s.show(120, 680, "beta.cz")

	tables, err := NewPDFExtractor().ExtractTables(buildPDF(content))
	require.NoError(t, err)
	require.Len(t, tables, 1)

	assert.Equal(t, [][]Cell{
		{{Kind: KindNumber, Text: "1"}, {Kind: KindText, Text: "alpha.cz"}},
		{{Kind: KindNumber, Text: "2"}, {Kind: KindText, Text: "beta.cz"}},
	}, tables[0].Rows)
}

func TestExtractTablesSkipsEmptyPages(t *testing.T) {
	tables, err := NewPDFExtractor().ExtractTables(buildPDF("", ruledTable(plainSpace)))
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, 2, tables[0].Page)

	tables, err = NewPDFExtractor().ExtractTables(buildPDF(""))
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestExtractTablesPageFailures(t *testing.T) {
	broken := "1 0 0 cm\n"

	tables, err := NewPDFExtractor().ExtractTables(buildPDF(broken, ruledTable(plainSpace)))
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Error(t, tables[0].Err)
	assert.Equal(t, 1, tables[0].Page)
	assert.NoError(t, tables[1].Err)
	assert.Len(t, tables[1].Rows, 2)

	_, err = NewPDFExtractor().ExtractTables(buildPDF(broken))
	assert.ErrorIs(t, err, ErrNoPages)
}

func TestTransformRect(t *testing.T) {
	half := affine{a: 0.5, d: 0.5}
	r := transformRect(half, 100, 1320, 101, 1400)
	assert.InDelta(t, 50, r.Min.X, 1e-9)
	assert.InDelta(t, 660, r.Min.Y, 1e-9)
	assert.InDelta(t, 50.5, r.Max.X, 1e-9)
	assert.InDelta(t, 700, r.Max.Y, 1e-9)

	flip := affine{a: 1, d: -1, f: 792}
	r = transformRect(flip, 50, 92, 50.5, 132)
	assert.InDelta(t, 660, r.Min.Y, 1e-9)
	assert.InDelta(t, 700, r.Max.Y, 1e-9)

	// cm composes onto the current matrix
	nested := affine{a: 2, d: 2, e: 10}.then(flip)
	x, y := nested.apply(1, 1)
	assert.InDelta(t, 12, x, 1e-9)
	assert.InDelta(t, 790, y, 1e-9)
}
