package table

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

const (
	lineTolerance   = 2.0 // baseline drift within one text line
	rulingThickness = 2.0 // max thickness of a rectangle drawn as a line
	edgeTolerance   = 1.5 // rulings closer than this are the same edge
	wordGapFactor   = 0.3 // gap, in font sizes, that separates words
	cellGapFactor   = 1.0 // gap, in font sizes, that separates stream cells
	anchorTolerance = 6.0
)

type word struct {
	x0, x1 float64
	y      float64
	size   float64
	text   string
}

func (w word) center() float64 {
	return (w.x0 + w.x1) / 2
}

// buildRows lays out positioned glyphs into rows of cells.
func buildRows(texts []pdf.Text, rects []pdf.Rect) [][]Cell {
	lines := groupLines(texts)
	if len(lines) == 0 {
		return nil
	}

	words := make([][]word, len(lines))
	for i, ln := range lines {
		words[i] = splitWords(ln)
	}

	r := findRulings(rects, texts)
	if len(r.vertical) >= 2 {
		// a grid that holds none of the text is decoration, not the table
		if rows := lattice(words, r); len(rows) > 0 {
			return rows
		}
	}
	return stream(words)
}

// groupLines returns glyph lines top to bottom, each sorted left to right.
func groupLines(texts []pdf.Text) [][]pdf.Text {
	glyphs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			glyphs = append(glyphs, t)
		}
	}
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].Y > glyphs[j].Y })

	var lines [][]pdf.Text
	var lineY float64
	for _, g := range glyphs {
		if len(lines) == 0 || math.Abs(g.Y-lineY) > lineTolerance {
			lines = append(lines, nil)
			lineY = g.Y
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], g)
	}

	for _, ln := range lines {
		sort.SliceStable(ln, func(i, j int) bool { return ln[i].X < ln[j].X })
	}
	return lines
}

func splitWords(line []pdf.Text) []word {
	var out []word
	var cur *word

	flush := func() {
		if cur != nil && strings.TrimSpace(cur.text) != "" {
			out = append(out, *cur)
		}
		cur = nil
	}

	for _, g := range line {
		if strings.TrimFunc(g.S, unicode.IsSpace) == "" {
			flush()
			continue
		}

		size := g.FontSize
		if size <= 0 {
			size = 1
		}
		if cur != nil && g.X-cur.x1 > wordGapFactor*size {
			flush()
		}
		if cur == nil {
			cur = &word{x0: g.X, x1: g.X, y: g.Y, size: size}
		}
		cur.text += g.S
		cur.x1 = math.Max(cur.x1, g.X+g.W)
	}
	flush()

	return out
}

type rulings struct {
	vertical   []float64 // x positions, ascending
	horizontal []float64 // y positions, descending
	top        float64
	bottom     float64
}

// findRulings collects table grid lines. Rectangles enclosing every glyph are
// page frames or backgrounds and are ignored.
func findRulings(rects []pdf.Rect, texts []pdf.Text) rulings {
	var r rulings
	r.top = math.Inf(-1)
	r.bottom = math.Inf(1)

	extendY := func(y0, y1 float64) {
		r.bottom = math.Min(r.bottom, y0)
		r.top = math.Max(r.top, y1)
	}

	for _, rect := range rects {
		x0, x1 := math.Min(rect.Min.X, rect.Max.X), math.Max(rect.Min.X, rect.Max.X)
		y0, y1 := math.Min(rect.Min.Y, rect.Max.Y), math.Max(rect.Min.Y, rect.Max.Y)
		w, h := x1-x0, y1-y0

		switch {
		case w <= rulingThickness && h > rulingThickness:
			r.vertical = append(r.vertical, (x0+x1)/2)
			extendY(y0, y1)
		case h <= rulingThickness && w > rulingThickness:
			r.horizontal = append(r.horizontal, (y0+y1)/2)
		case w > rulingThickness && h > rulingThickness:
			if enclosesAll(x0, y0, x1, y1, texts) {
				continue
			}
			r.vertical = append(r.vertical, x0, x1)
			r.horizontal = append(r.horizontal, y0, y1)
			extendY(y0, y1)
		}
	}

	r.vertical = dedupe(r.vertical, false)
	r.horizontal = dedupe(r.horizontal, true)
	return r
}

func enclosesAll(x0, y0, x1, y1 float64, texts []pdf.Text) bool {
	if len(texts) == 0 {
		return false
	}
	for _, t := range texts {
		if t.X < x0 || t.X > x1 || t.Y < y0 || t.Y > y1 {
			return false
		}
	}
	return true
}

func dedupe(vals []float64, descending bool) []float64 {
	if len(vals) == 0 {
		return nil
	}
	sort.Float64s(vals)

	out := []float64{vals[0]}
	for _, v := range vals[1:] {
		if v-out[len(out)-1] > edgeTolerance {
			out = append(out, v)
		}
	}

	if descending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// interval returns i such that edges[i] <= v < edges[i+1] for ascending
// edges, or -1 when v is outside.
func interval(edges []float64, v float64) int {
	for i := 0; i+1 < len(edges); i++ {
		if v >= edges[i] && v < edges[i+1] {
			return i
		}
	}
	return -1
}

func lattice(lines [][]word, r rulings) [][]Cell {
	cols := len(r.vertical) - 1
	byRuling := len(r.horizontal) >= 2

	type key struct{ row, col int }
	parts := map[key][]string{}
	maxRow := -1

	for li, ln := range lines {
		for _, w := range ln {
			if w.y < r.bottom-lineTolerance || w.y > r.top+lineTolerance {
				continue
			}
			col := interval(r.vertical, w.center())
			if col < 0 {
				continue
			}

			row := li
			if byRuling {
				row = rowIndex(r.horizontal, w.y)
				if row < 0 {
					continue
				}
			}

			k := key{row, col}
			parts[k] = append(parts[k], w.text)
			if row > maxRow {
				maxRow = row
			}
		}
	}

	var out [][]Cell
	for row := 0; row <= maxRow; row++ {
		cells := make([]Cell, cols)
		blank := true
		for col := 0; col < cols; col++ {
			cells[col] = NewCell(strings.Join(parts[key{row, col}], " "))
			if !cells[col].IsEmpty() {
				blank = false
			}
		}
		if !blank {
			out = append(out, cells)
		}
	}
	return out
}

// rowIndex maps a baseline to the band between descending horizontal rulings.
func rowIndex(edges []float64, y float64) int {
	for i := 0; i+1 < len(edges); i++ {
		if y <= edges[i] && y > edges[i+1] {
			return i
		}
	}
	return -1
}

type phrase struct {
	x0   float64
	text string
}

func stream(lines [][]word) [][]Cell {
	phrases := make([][]phrase, len(lines))
	var starts []float64

	for i, ln := range lines {
		for j, w := range ln {
			if j > 0 && w.x0-ln[j-1].x1 <= cellGapFactor*w.size {
				last := &phrases[i][len(phrases[i])-1]
				last.text += " " + w.text
				continue
			}
			phrases[i] = append(phrases[i], phrase{x0: w.x0, text: w.text})
			starts = append(starts, w.x0)
		}
	}

	anchors := clusterAnchors(starts)

	out := make([][]Cell, 0, len(lines))
	for _, ps := range phrases {
		cells := make([][]string, len(anchors))
		for _, p := range ps {
			col := anchorIndex(anchors, p.x0)
			cells[col] = append(cells[col], p.text)
		}

		row := make([]Cell, len(anchors))
		for i, c := range cells {
			row[i] = NewCell(strings.Join(c, " "))
		}
		out = append(out, row)
	}
	return out
}

func clusterAnchors(starts []float64) []float64 {
	if len(starts) == 0 {
		return nil
	}
	sort.Float64s(starts)

	anchors := []float64{starts[0]}
	for _, s := range starts[1:] {
		if s-anchors[len(anchors)-1] > anchorTolerance {
			anchors = append(anchors, s)
		}
	}
	return anchors
}

func anchorIndex(anchors []float64, x float64) int {
	idx := 0
	for i, a := range anchors {
		if a <= x {
			idx = i
		}
	}
	return idx
}
