// Package devices holds interactive Intcode devices: simulations whose input
// is computed from their own state and whose outputs drive that state.
package devices

import (
	"fmt"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("intcode.devices")

// Point is a grid coordinate.
type Point struct {
	X, Y int64
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// bounds returns the inclusive bounding box of keys. ok is false when there
// are none.
func bounds[V any](cells map[Point]V) (lo, hi Point, ok bool) {
	for p := range cells {
		if !ok {
			lo, hi, ok = p, p, true
			continue
		}
		lo.X, lo.Y = min(lo.X, p.X), min(lo.Y, p.Y)
		hi.X, hi.Y = max(hi.X, p.X), max(hi.Y, p.Y)
	}
	return lo, hi, ok
}

// render draws cells row by row from top to bottom. yDown selects whether
// the Y axis grows downward (screen coordinates) or upward.
func render[V any](cells map[Point]V, yDown bool, glyph func(V, bool) byte) string {
	lo, hi, ok := bounds(cells)
	if !ok {
		return ""
	}
	var sb strings.Builder
	row := func(y int64) {
		for x := lo.X; x <= hi.X; x++ {
			v, present := cells[Point{x, y}]
			sb.WriteByte(glyph(v, present))
		}
		sb.WriteByte('\n')
	}
	if yDown {
		for y := lo.Y; y <= hi.Y; y++ {
			row(y)
		}
	} else {
		for y := hi.Y; y >= lo.Y; y-- {
			row(y)
		}
	}
	return sb.String()
}
