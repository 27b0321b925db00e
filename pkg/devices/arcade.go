package devices

import (
	"fmt"

	"github.com/chazu/intcode/pkg/intcode"
)

// Tile is what the arcade draws at a screen position.
type Tile int64

const (
	TileEmpty  Tile = 0
	TileWall   Tile = 1
	TileBlock  Tile = 2 // broken by the ball
	TilePaddle Tile = 3
	TileBall   Tile = 4
)

var tileGlyphs = [...]byte{
	TileEmpty:  ' ',
	TileWall:   '#',
	TileBlock:  'X',
	TilePaddle: '_',
	TileBall:   'o',
}

// scorePos is the screen position whose "tile" is the score.
var scorePos = Point{-1, 0}

// Arcade is the arcade cabinet. The program emits (x, y, tile) triples,
// with (-1, 0, n) setting the score, and reads the joystick: -1 left,
// 0 neutral, 1 right. The joystick follows the ball with the paddle.
type Arcade struct {
	pending [3]int64
	n       int

	screen map[Point]Tile
	ball   Point
	paddle Point
	score  int64
	base   int64
	err    error

	// OnFrame, if set, is called each time the program reads the joystick.
	OnFrame func(*Arcade)
}

// NewArcade returns a cabinet with a blank screen.
func NewArcade() *Arcade {
	return &Arcade{screen: make(map[Point]Tile)}
}

func (a *Arcade) Input() (int64, bool) {
	if a.OnFrame != nil {
		a.OnFrame(a)
	}
	switch {
	case a.paddle.X < a.ball.X:
		return 1, true
	case a.paddle.X > a.ball.X:
		return -1, true
	default:
		return 0, true
	}
}

func (a *Arcade) Output(v int64) {
	a.pending[a.n] = v
	a.n++
	if a.n < len(a.pending) {
		return
	}
	a.n = 0

	pos := Point{a.pending[0], a.pending[1]}
	if pos == scorePos {
		a.score = a.pending[2]
		return
	}
	t := Tile(a.pending[2])
	if t < TileEmpty || t > TileBall {
		if a.err == nil {
			a.err = fmt.Errorf("arcade: invalid tile %d at %s", a.pending[2], pos)
		}
		return
	}
	a.screen[pos] = t
	switch t {
	case TileBall:
		a.ball = pos
	case TilePaddle:
		a.paddle = pos
	}
}

func (a *Arcade) RelativeBase() int64 { return a.base }

func (a *Arcade) AdjustRelativeBase(delta int64) { a.base += delta }

// Outputs reports the final score.
func (a *Arcade) Outputs() []int64 {
	return []int64{a.score}
}

// Err returns the first invalid tile drawn, if any.
func (a *Arcade) Err() error { return a.err }

// Score returns the last score displayed.
func (a *Arcade) Score() int64 { return a.score }

// Count returns how many screen positions currently show t.
func (a *Arcade) Count(t Tile) int {
	n := 0
	for _, v := range a.screen {
		if v == t {
			n++
		}
	}
	return n
}

// Blocks returns the number of block tiles on screen.
func (a *Arcade) Blocks() int {
	return a.Count(TileBlock)
}

// Render draws the screen followed by the score line.
func (a *Arcade) Render() string {
	return render(a.screen, true, func(t Tile, _ bool) byte {
		return tileGlyphs[t]
	}) + fmt.Sprintf("Score: %d\n", a.score)
}

// Play runs program on a fresh cabinet.
func Play(program []int64, opts ...intcode.Option) (*Arcade, error) {
	return play(NewArcade(), program, opts...)
}

func play(a *Arcade, program []int64, opts ...intcode.Option) (*Arcade, error) {
	if _, err := intcode.Run(program, a, opts...); err != nil {
		return a, err
	}
	return a, a.Err()
}

// FreePlay inserts quarters by setting address 0 to 2, then plays until the
// program halts and returns the final score.
func FreePlay(program []int64, onFrame func(*Arcade), opts ...intcode.Option) (int64, error) {
	if len(program) == 0 {
		return 0, fmt.Errorf("arcade: empty program")
	}
	patched := append([]int64(nil), program...)
	patched[0] = 2

	a := NewArcade()
	a.OnFrame = onFrame
	if _, err := play(a, patched, opts...); err != nil {
		return 0, err
	}
	log.Infof("arcade finished with score %d, %d blocks left", a.score, a.Blocks())
	return a.score, nil
}
