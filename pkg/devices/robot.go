package devices

import (
	"fmt"

	"github.com/chazu/intcode/pkg/intcode"
)

// Panel colours.
const (
	Black int64 = 0
	White int64 = 1
)

// Direction is the robot's heading.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

var steps = [...]Point{Up: {0, 1}, Right: {1, 0}, Down: {0, -1}, Left: {-1, 0}}

// Turn rotates the heading: 0 turns left, 1 turns right.
func (d Direction) Turn(code int64) (Direction, error) {
	switch code {
	case 0:
		return (d + 3) % 4, nil
	case 1:
		return (d + 1) % 4, nil
	default:
		return d, fmt.Errorf("unknown turn code %d", code)
	}
}

// Robot is the hull-painting robot. Its camera reports the colour of the
// panel underneath it; the program answers with a colour to paint and a
// direction to turn, after which the robot steps forward one panel.
type Robot struct {
	pos     Point
	heading Direction
	panels  map[Point]int64
	painted map[Point]bool
	turning bool
	base    int64
	err     error
}

// NewRobot returns a robot facing up at the origin, standing on a panel of
// colour start. Every other panel starts black.
func NewRobot(start int64) *Robot {
	r := &Robot{
		panels:  make(map[Point]int64),
		painted: make(map[Point]bool),
	}
	if start != Black {
		r.panels[Point{}] = start
	}
	return r
}

func (r *Robot) Input() (int64, bool) {
	return r.panels[r.pos], true
}

func (r *Robot) Output(v int64) {
	if !r.turning {
		r.panels[r.pos] = v
		r.painted[r.pos] = true
		r.turning = true
		return
	}
	r.turning = false
	heading, err := r.heading.Turn(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("robot at %s: %w", r.pos, err)
	}
	r.heading = heading
	r.pos = r.pos.Add(steps[r.heading])
}

func (r *Robot) RelativeBase() int64 { return r.base }

func (r *Robot) AdjustRelativeBase(delta int64) { r.base += delta }

// Err returns the first invalid command the program sent, if any.
func (r *Robot) Err() error { return r.err }

// PaintedCount returns how many distinct panels were painted at least once.
func (r *Robot) PaintedCount() int {
	return len(r.painted)
}

// Colour returns the colour of the panel at p.
func (r *Robot) Colour(p Point) int64 {
	return r.panels[p]
}

// Position returns where the robot stands and which way it faces.
func (r *Robot) Position() (Point, Direction) {
	return r.pos, r.heading
}

// Render draws the hull with '#' for white panels and ' ' otherwise.
func (r *Robot) Render() string {
	return render(r.panels, false, func(c int64, _ bool) byte {
		if c == White {
			return '#'
		}
		return ' '
	})
}

// Paint runs program on a fresh robot.
func Paint(program []int64, start int64, opts ...intcode.Option) (*Robot, error) {
	r := NewRobot(start)
	if _, err := intcode.Run(program, r, opts...); err != nil {
		return r, err
	}
	log.Debugf("robot painted %d panels", r.PaintedCount())
	return r, r.Err()
}
