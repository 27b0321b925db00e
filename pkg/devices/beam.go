package devices

import (
	"fmt"

	"github.com/chazu/intcode/pkg/intcode"
)

// maxBeamRows bounds FitSquare's search.
const maxBeamRows = 1 << 16

// Affected deploys a drone to (x, y) and reports whether the tractor beam
// pulls it. Every deployment is a fresh run of program under opts.
func Affected(program []int64, x, y int64, opts ...intcode.Option) (bool, error) {
	res, err := intcode.Run(program, intcode.NewBuffered(x, y), opts...)
	if err != nil {
		return false, fmt.Errorf("beam: drone at %s: %w", Point{x, y}, err)
	}
	if len(res.Output) == 0 {
		return false, fmt.Errorf("beam: drone at %s: no output", Point{x, y})
	}
	return res.Output[0] == 1, nil
}

// Scan counts the points of the w by h area nearest the emitter that the
// beam affects.
func Scan(program []int64, w, h int64, opts ...intcode.Option) (int, error) {
	n := 0
	for y := int64(0); y < h; y++ {
		for x := int64(0); x < w; x++ {
			hit, err := Affected(program, x, y, opts...)
			if err != nil {
				return 0, err
			}
			if hit {
				n++
			}
		}
	}
	return n, nil
}

// FitSquare finds the top-left corner of the size by size square closest
// to the emitter that fits entirely inside the beam.
//
// It walks the beam's left edge row by row, treating each edge point as the
// square's bottom-left corner and testing the opposite corner.
func FitSquare(program []int64, size int64, opts ...intcode.Option) (Point, error) {
	if size <= 0 {
		return Point{}, fmt.Errorf("beam: size %d", size)
	}
	var x int64
	for y := size - 1; y < maxBeamRows; y++ {
		// Rows near the emitter may miss the beam entirely.
		edge, found := x, false
		for ; edge <= x+y+size; edge++ {
			hit, err := Affected(program, edge, y, opts...)
			if err != nil {
				return Point{}, err
			}
			if hit {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		x = edge

		top := y - size + 1
		hit, err := Affected(program, x+size-1, top, opts...)
		if err != nil {
			return Point{}, err
		}
		if hit {
			return Point{x, top}, nil
		}
	}
	return Point{}, fmt.Errorf("beam: no %dx%d square within %d rows", size, size, maxBeamRows)
}
