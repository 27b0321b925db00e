package intcode

import (
	"context"
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("intcode.vm")

// Result is what a halted program leaves behind.
type Result struct {
	Memory []int64 // Final memory, including any cells grown during the run
	Output []int64 // The device's reported output, nil if it reports none
	Steps  int64   // Number of instructions executed, including Halt
}

// Option configures a single run.
type Option func(*config)

type config struct {
	trace       bool
	memoryLimit int64
	stepLimit   int64
	ctx         context.Context
}

// ctxCheckInterval is how many instructions run between context checks.
const ctxCheckInterval = 1024

func newConfig(opts []Option) config {
	cfg := config{memoryLimit: DefaultMemoryLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithTrace logs every executed instruction at debug level.
func WithTrace() Option {
	return func(c *config) { c.trace = true }
}

// WithMemoryLimit caps memory growth at cells. Zero or a value above
// MaxMemoryCells falls back to MaxMemoryCells.
func WithMemoryLimit(cells int64) Option {
	return func(c *config) { c.memoryLimit = cells }
}

// WithStepLimit aborts the run with ErrStepLimit after n instructions.
// Zero means unlimited.
func WithStepLimit(n int64) Option {
	return func(c *config) { c.stepLimit = n }
}

// WithContext aborts the run once ctx is done. The fault wraps ctx.Err().
func WithContext(ctx context.Context) Option {
	return func(c *config) { c.ctx = ctx }
}

// Limits reports the memory and step limits opts resolve to, with the
// defaults applied. A step limit of zero means unlimited.
func Limits(opts ...Option) (memoryCells, steps int64) {
	cfg := newConfig(opts)
	return effectiveLimit(cfg.memoryLimit), cfg.stepLimit
}

// outcome tells the loop what to do with the program counter.
type outcome int

const (
	advance outcome = iota
	jump
	halt
)

// Machine is one interpreter instance. It owns its memory exclusively for
// the duration of a run.
type Machine struct {
	mem   *Memory
	dev   Device
	pc    int64
	steps int64
	cfg   config

	params [maxParams]int64
}

// NewMachine prepares a machine for program. The program slice is copied.
func NewMachine(program []int64, dev Device, opts ...Option) *Machine {
	cfg := newConfig(opts)
	mem := NewMemory(program)
	mem.SetLimit(cfg.memoryLimit)
	return &Machine{mem: mem, dev: dev, cfg: cfg}
}

// Run executes program on dev until Halt or a fatal fault.
func Run(program []int64, dev Device, opts ...Option) (*Result, error) {
	return NewMachine(program, dev, opts...).Run()
}

// RunWithInputs runs program against a Buffered device holding inputs.
func RunWithInputs(program []int64, inputs ...int64) (*Result, error) {
	return Run(program, NewBuffered(inputs...))
}

// Run is the main execution loop. A Machine is single-use.
func (m *Machine) Run() (*Result, error) {
	for {
		if m.cfg.stepLimit > 0 && m.steps >= m.cfg.stepLimit {
			return nil, &Fault{PC: m.pc, Err: fmt.Errorf("%w: %d", ErrStepLimit, m.cfg.stepLimit)}
		}
		if m.cfg.ctx != nil && m.steps%ctxCheckInterval == 0 {
			if err := m.cfg.ctx.Err(); err != nil {
				return nil, &Fault{PC: m.pc, Err: err}
			}
		}

		word, err := m.mem.Load(m.pc)
		if err != nil {
			return nil, &Fault{PC: m.pc, Err: err}
		}
		in, err := Decode(word)
		if err != nil {
			return nil, &Fault{PC: m.pc, Word: word, Err: err}
		}

		n := in.Op.Params()
		for i := 0; i < n; i++ {
			if m.params[i], err = m.mem.Load(m.pc + 1 + int64(i)); err != nil {
				return nil, &Fault{PC: m.pc, Word: word, Op: in.Op, Err: err}
			}
		}

		if m.cfg.trace {
			log.Debugf("[%06d] %-4s %v base=%d", m.pc, in.Op, m.params[:n], m.dev.RelativeBase())
		}

		m.steps++
		out, target, err := m.execute(in)
		if err != nil {
			return nil, &Fault{PC: m.pc, Word: word, Op: in.Op, Err: err}
		}

		switch out {
		case advance:
			m.pc += int64(in.Op.Len())
		case jump:
			if target < 0 {
				return nil, &Fault{PC: m.pc, Word: word, Op: in.Op,
					Err: fmt.Errorf("%w: jump to %d", ErrAddressUnderflow, target)}
			}
			m.pc = target
		case halt:
			return m.result(), nil
		}
	}
}

func (m *Machine) result() *Result {
	res := &Result{
		Memory: m.mem.Cells(),
		Steps:  m.steps,
	}
	if r, ok := m.dev.(Reporter); ok {
		res.Output = r.Outputs()
	}
	return res
}

// load resolves parameter i of in to a value.
func (m *Machine) load(in Instruction, i int) (int64, error) {
	p := m.params[i]
	switch in.Mode(i) {
	case ModeImmediate:
		return p, nil
	case ModeRelative:
		return m.mem.Load(m.dev.RelativeBase() + p)
	default:
		return m.mem.Load(p)
	}
}

// store writes v through parameter i of in.
func (m *Machine) store(in Instruction, i int, v int64) error {
	p := m.params[i]
	switch in.Mode(i) {
	case ModeImmediate:
		return fmt.Errorf("%w: parameter %d", ErrInvalidWriteTarget, i+1)
	case ModeRelative:
		return m.mem.Store(m.dev.RelativeBase()+p, v)
	default:
		return m.mem.Store(p, v)
	}
}

// loadPair resolves the first two parameters.
func (m *Machine) loadPair(in Instruction) (a, b int64, err error) {
	if a, err = m.load(in, 0); err != nil {
		return 0, 0, err
	}
	if b, err = m.load(in, 1); err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// execute performs one decoded instruction.
func (m *Machine) execute(in Instruction) (outcome, int64, error) {
	switch in.Op {
	case OpAdd, OpMul, OpLessThan, OpEquals:
		a, b, err := m.loadPair(in)
		if err != nil {
			return 0, 0, err
		}
		var v int64
		switch in.Op {
		case OpAdd:
			v = a + b
		case OpMul:
			v = a * b
		case OpLessThan:
			v = boolToInt(a < b)
		case OpEquals:
			v = boolToInt(a == b)
		}
		return advance, 0, m.store(in, 2, v)

	case OpInput:
		v, ok := m.dev.Input()
		if !ok {
			return 0, 0, ErrInputExhausted
		}
		return advance, 0, m.store(in, 0, v)

	case OpOutput:
		v, err := m.load(in, 0)
		if err != nil {
			return 0, 0, err
		}
		m.dev.Output(v)
		return advance, 0, nil

	case OpJumpIfTrue, OpJumpIfFalse:
		a, err := m.load(in, 0)
		if err != nil {
			return 0, 0, err
		}
		if (a != 0) != (in.Op == OpJumpIfTrue) {
			return advance, 0, nil
		}
		target, err := m.load(in, 1)
		if err != nil {
			return 0, 0, err
		}
		return jump, target, nil

	case OpAdjustBase:
		a, err := m.load(in, 0)
		if err != nil {
			return 0, 0, err
		}
		m.dev.AdjustRelativeBase(a)
		return advance, 0, nil

	case OpHalt:
		return halt, 0, nil
	}
	return 0, 0, fmt.Errorf("%w: %d", ErrInvalidOpcode, int64(in.Op))
}
