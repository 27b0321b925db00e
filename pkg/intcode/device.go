package intcode

// Device is the interpreter's view of the outside world. It supplies input,
// consumes output, and holds the relative base register.
type Device interface {
	// Input returns the next input value. ok is false when none is
	// available, which aborts the run with ErrInputExhausted.
	Input() (v int64, ok bool)
	// Output accepts a value produced by the program.
	Output(v int64)
	// RelativeBase returns the current relative base.
	RelativeBase() int64
	// AdjustRelativeBase adds delta to the relative base.
	AdjustRelativeBase(delta int64)
}

// Reporter is implemented by devices that expose accumulated output after
// a run. Run copies it into Result.Output.
type Reporter interface {
	Outputs() []int64
}

// Buffered is a Device with a fixed input queue and a growing output log.
type Buffered struct {
	inputs  []int64
	next    int
	outputs []int64
	base    int64
}

// NewBuffered returns a Buffered device that yields inputs in order.
func NewBuffered(inputs ...int64) *Buffered {
	in := make([]int64, len(inputs))
	copy(in, inputs)
	return &Buffered{inputs: in}
}

func (b *Buffered) Input() (int64, bool) {
	if b.next >= len(b.inputs) {
		return 0, false
	}
	v := b.inputs[b.next]
	b.next++
	return v, true
}

func (b *Buffered) Output(v int64) {
	b.outputs = append(b.outputs, v)
}

func (b *Buffered) RelativeBase() int64 { return b.base }

func (b *Buffered) AdjustRelativeBase(delta int64) { b.base += delta }

// Outputs returns a copy of everything written so far.
func (b *Buffered) Outputs() []int64 {
	out := make([]int64, len(b.outputs))
	copy(out, b.outputs)
	return out
}

// Remaining returns the number of unconsumed inputs.
func (b *Buffered) Remaining() int {
	return len(b.inputs) - b.next
}
