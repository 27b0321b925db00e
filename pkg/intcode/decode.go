package intcode

import "fmt"

// maxParams is the largest parameter count of any opcode.
const maxParams = 3

// Instruction is a decoded instruction word.
type Instruction struct {
	Op    Opcode
	Modes [maxParams]Mode // Only the first Op.Params() entries are meaningful
}

// Mode returns the addressing mode of parameter i.
func (in Instruction) Mode(i int) Mode {
	return in.Modes[i]
}

// Decode splits an instruction word into its opcode and per-parameter modes.
// The hundreds digit holds the mode of the first parameter, the thousands
// digit the second, and so on. Missing digits mean position mode; digits
// past the opcode's parameter count are ignored.
func Decode(word int64) (Instruction, error) {
	var in Instruction
	op := Opcode(word % 100)
	info, ok := GetOpcodeInfo(op)
	if !ok || word < 0 {
		return in, fmt.Errorf("%w: %d", ErrInvalidOpcode, word%100)
	}
	in.Op = op

	digits := word / 100
	for i := 0; i < info.Params; i++ {
		m := Mode(digits % 10)
		if !m.Valid() {
			return in, fmt.Errorf("%w: digit %d for parameter %d", ErrInvalidMode, int64(m), i+1)
		}
		in.Modes[i] = m
		digits /= 10
	}
	return in, nil
}

// Encode builds an instruction word from an opcode and parameter modes.
// It is the inverse of Decode for valid inputs.
func Encode(op Opcode, modes ...Mode) int64 {
	word := int64(op)
	scale := int64(100)
	for _, m := range modes {
		word += int64(m) * scale
		scale *= 10
	}
	return word
}
