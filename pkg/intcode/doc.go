// Package intcode implements the Intcode stored-program computer.
//
// A program is a sequence of signed 64-bit integers that serves as both code
// and data. Memory grows on demand: reads past the end yield zero, writes
// past the end extend it.
//
// # Instruction format
//
// The low two decimal digits of an instruction word select the opcode. The
// remaining digits, read from the hundreds place upward, give one addressing
// mode per parameter:
//
//   - 0 position: the parameter is an address
//   - 1 immediate: the parameter is the value (never valid as a write target)
//   - 2 relative: the parameter is an offset from the relative base
//
// So 1002 is MUL with modes (position, immediate, position).
//
// # Devices
//
// The interpreter does all I/O through a Device, which also owns the
// relative base register. Buffered covers the common "run with these
// inputs, collect the outputs" case; package pipeline couples machines over
// channels and package devices holds interactive simulations.
//
// # Faults
//
// Every error is fatal. Run returns a *Fault that wraps one of the Err*
// sentinels, so callers test with errors.Is.
//
// The older 32-bit position/immediate-only machine is a strict subset of
// this one and needs no separate implementation.
package intcode
