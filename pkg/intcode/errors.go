package intcode

import (
	"errors"
	"fmt"
)

// Fatal conditions. None of them is recoverable mid-run; a malformed program
// or a starved device aborts execution.
var (
	ErrInvalidOpcode      = errors.New("invalid opcode")
	ErrInvalidMode        = errors.New("invalid addressing mode")
	ErrInvalidWriteTarget = errors.New("write through immediate mode")
	ErrInputExhausted     = errors.New("input exhausted")
	ErrAddressUnderflow   = errors.New("negative address")
	ErrMemoryLimit        = errors.New("memory limit exceeded")
	ErrStepLimit          = errors.New("step limit exceeded")
	ErrParse              = errors.New("malformed program text")
)

// Fault reports a fatal condition together with the instruction that
// raised it.
type Fault struct {
	PC   int64  // Address of the faulting instruction word
	Word int64  // The raw instruction word
	Op   Opcode // Decoded opcode, zero if decoding failed
	Err  error  // One of the Err* sentinels, possibly wrapped
}

func (f *Fault) Error() string {
	if f.Op == 0 {
		return fmt.Sprintf("intcode: pc=%d word=%d: %v", f.PC, f.Word, f.Err)
	}
	return fmt.Sprintf("intcode: pc=%d %s: %v", f.PC, f.Op, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsFault extracts the Fault from err, if any.
func IsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
