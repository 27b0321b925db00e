package intcode

import "fmt"

// Opcode is the operation selector held in the low two decimal digits of an
// instruction word.
type Opcode int64

const (
	OpAdd         Opcode = 1  // dst := a + b
	OpMul         Opcode = 2  // dst := a * b
	OpInput       Opcode = 3  // dst := next device input
	OpOutput      Opcode = 4  // device <- a
	OpJumpIfTrue  Opcode = 5  // if a != 0 { pc = b }
	OpJumpIfFalse Opcode = 6  // if a == 0 { pc = b }
	OpLessThan    Opcode = 7  // dst := a < b
	OpEquals      Opcode = 8  // dst := a == b
	OpAdjustBase  Opcode = 9  // relative base += a
	OpHalt        Opcode = 99 // stop
)

// OpcodeInfo provides metadata about each opcode for decoding and listings.
type OpcodeInfo struct {
	Name   string // Human-readable name
	Params int    // Number of parameter words following the instruction word
	Writes int    // Index of the parameter written to, or -1
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpAdd:         {"ADD", 3, 2},
	OpMul:         {"MUL", 3, 2},
	OpInput:       {"IN", 1, 0},
	OpOutput:      {"OUT", 1, -1},
	OpJumpIfTrue:  {"JT", 2, -1},
	OpJumpIfFalse: {"JF", 2, -1},
	OpLessThan:    {"LT", 3, 2},
	OpEquals:      {"EQ", 3, 2},
	OpAdjustBase:  {"ARB", 1, -1},
	OpHalt:        {"HALT", 0, -1},
}

// GetOpcodeInfo returns metadata for an opcode and whether it is defined.
func GetOpcodeInfo(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	return info, ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	if info, ok := opcodeInfoTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int64(op))
}

// Params returns the number of parameters the opcode takes.
func (op Opcode) Params() int {
	return opcodeInfoTable[op].Params
}

// Len returns the total length of an instruction (1 + parameters).
func (op Opcode) Len() int {
	return 1 + op.Params()
}

// IsJump reports whether the opcode may redirect the program counter.
func (op Opcode) IsJump() bool {
	return op == OpJumpIfTrue || op == OpJumpIfFalse
}

// AllOpcodes returns every defined opcode in numeric order.
func AllOpcodes() []Opcode {
	return []Opcode{
		OpAdd, OpMul, OpInput, OpOutput,
		OpJumpIfTrue, OpJumpIfFalse, OpLessThan, OpEquals,
		OpAdjustBase, OpHalt,
	}
}

// Mode is the addressing mode of a single parameter.
type Mode int64

const (
	ModePosition  Mode = 0 // parameter is an address
	ModeImmediate Mode = 1 // parameter is the value itself
	ModeRelative  Mode = 2 // parameter is an offset from the relative base
)

// String returns the name of a mode.
func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeImmediate:
		return "immediate"
	case ModeRelative:
		return "relative"
	default:
		return fmt.Sprintf("Mode(%d)", int64(m))
	}
}

// Valid reports whether m is one of the three defined modes.
func (m Mode) Valid() bool {
	return m >= ModePosition && m <= ModeRelative
}
