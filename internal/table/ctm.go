package table

import (
	"math"

	"github.com/ledongthuc/pdf"
)

// affine is a PDF transformation matrix [a b c d e f], mapping (x, y) to
// (a*x + c*y + e, b*x + d*y + f).
type affine struct {
	a, b, c, d, e, f float64
}

var identity = affine{a: 1, d: 1}

// then returns the transform that applies m first and n second.
func (m affine) then(n affine) affine {
	return affine{
		a: m.a*n.a + m.b*n.c,
		b: m.a*n.b + m.b*n.d,
		c: m.c*n.a + m.d*n.c,
		d: m.c*n.b + m.d*n.d,
		e: m.e*n.a + m.f*n.c + n.e,
		f: m.e*n.b + m.f*n.d + n.f,
	}
}

func (m affine) apply(x, y float64) (float64, float64) {
	return m.a*x + m.c*y + m.e, m.b*x + m.d*y + m.f
}

// pageRects returns the rectangles painted by re operators in device space,
// the same space Content reports glyph positions in. Content itself returns
// rectangles in user space, which disagrees with the text as soon as the
// page applies a cm.
func pageRects(page pdf.Page) []pdf.Rect {
	ctm := identity
	var saved []affine
	var rects []pdf.Rect

	pdf.Interpret(page.V.Key("Contents"), func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}

		switch op {
		case "q":
			saved = append(saved, ctm)
		case "Q":
			if len(saved) > 0 {
				ctm = saved[len(saved)-1]
				saved = saved[:len(saved)-1]
			}
		case "cm":
			if len(args) != 6 {
				return
			}
			m := affine{
				a: args[0].Float64(), b: args[1].Float64(),
				c: args[2].Float64(), d: args[3].Float64(),
				e: args[4].Float64(), f: args[5].Float64(),
			}
			ctm = m.then(ctm)
		case "re":
			if len(args) != 4 {
				return
			}
			x, y := args[0].Float64(), args[1].Float64()
			w, h := args[2].Float64(), args[3].Float64()
			rects = append(rects, transformRect(ctm, x, y, x+w, y+h))
		}
	})

	return rects
}

// transformRect maps a user space rectangle through m and returns its
// bounding box.
func transformRect(m affine, x0, y0, x1, y1 float64) pdf.Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [][2]float64{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y1}} {
		x, y := m.apply(p[0], p[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return pdf.Rect{Min: pdf.Point{X: minX, Y: minY}, Max: pdf.Point{X: maxX, Y: maxY}}
}
