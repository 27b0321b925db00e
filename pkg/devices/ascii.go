package devices

import (
	"fmt"
	"strings"

	"github.com/chazu/intcode/pkg/intcode"
)

// EncodeASCII converts text to one input value per byte.
func EncodeASCII(text string) []int64 {
	out := make([]int64, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = int64(text[i])
	}
	return out
}

// SplitASCII separates printable output from values outside the ASCII
// range, which ASCII-capable programs use to report numeric answers.
func SplitASCII(output []int64) (text string, other []int64) {
	var sb strings.Builder
	for _, v := range output {
		if v >= 0 && v < 128 {
			sb.WriteByte(byte(v))
		} else {
			other = append(other, v)
		}
	}
	return sb.String(), other
}

// Scaffold is a camera view of the scaffolding: '#' for scaffold, '.' for
// open space, one of ^v<> for the vacuum robot on scaffold, and 'X' for a
// robot tumbling through space.
type Scaffold struct {
	cells map[Point]byte
	robot Point
	found bool
}

// ParseScaffold reads a camera view. Rows grow downward.
func ParseScaffold(view string) (*Scaffold, error) {
	s := &Scaffold{cells: make(map[Point]byte)}
	var cur Point
	for i := 0; i < len(view); i++ {
		c := view[i]
		switch c {
		case '\n':
			cur.Y++
			cur.X = 0
			continue
		case '.', '#', 'X':
		case '^', 'v', '<', '>':
			s.robot, s.found = cur, true
		default:
			return nil, fmt.Errorf("scaffold: unexpected %q at %s", c, cur)
		}
		s.cells[cur] = c
		cur.X++
	}
	return s, nil
}

// IsScaffold reports whether p holds scaffold, including under the robot.
func (s *Scaffold) IsScaffold(p Point) bool {
	switch s.cells[p] {
	case '#', '^', 'v', '<', '>':
		return true
	}
	return false
}

// Robot returns the vacuum robot's position, if it is on the scaffold.
func (s *Scaffold) Robot() (Point, bool) {
	return s.robot, s.found
}

var neighbours = [...]Point{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// Intersections returns scaffold cells whose four neighbours are scaffold.
func (s *Scaffold) Intersections() []Point {
	var out []Point
	for p := range s.cells {
		if !s.IsScaffold(p) {
			continue
		}
		all := true
		for _, d := range neighbours {
			if !s.IsScaffold(p.Add(d)) {
				all = false
				break
			}
		}
		if all {
			out = append(out, p)
		}
	}
	return out
}

// AlignmentSum is the sum of x*y over all intersections.
func (s *Scaffold) AlignmentSum() int64 {
	var sum int64
	for _, p := range s.Intersections() {
		sum += p.X * p.Y
	}
	return sum
}

// Camera runs program without input and parses the view it prints.
func Camera(program []int64, opts ...intcode.Option) (*Scaffold, string, error) {
	res, err := intcode.Run(program, intcode.NewBuffered(), opts...)
	if err != nil {
		return nil, "", err
	}
	view, _ := SplitASCII(res.Output)
	view = strings.TrimRight(view, "\n")
	s, err := ParseScaffold(view)
	if err != nil {
		return nil, view, err
	}
	return s, view, nil
}

// Routine is a movement program for the vacuum robot: a main routine made
// of calls to A, B and C, and the three movement functions.
type Routine struct {
	Main, A, B, C string
	Video         bool // continuous video feed
}

// Lines returns the routine as the robot expects it, one line per prompt.
func (r Routine) Lines() []string {
	video := "n"
	if r.Video {
		video = "y"
	}
	return []string{r.Main, r.A, r.B, r.C, video}
}

// Input encodes the routine as newline-terminated ASCII.
func (r Routine) Input() []int64 {
	return EncodeASCII(strings.Join(r.Lines(), "\n") + "\n")
}

// Movement wakes the robot by setting address 0 to 2, feeds it routine and
// returns the amount of dust it reports, which is its last output.
func Movement(program []int64, routine Routine, opts ...intcode.Option) (int64, error) {
	if len(program) == 0 {
		return 0, fmt.Errorf("ascii: empty program")
	}
	patched := append([]int64(nil), program...)
	patched[0] = 2

	res, err := intcode.Run(patched, intcode.NewBuffered(routine.Input()...), opts...)
	if err != nil {
		return 0, err
	}
	if len(res.Output) == 0 {
		return 0, fmt.Errorf("ascii: robot reported nothing")
	}
	return res.Output[len(res.Output)-1], nil
}
