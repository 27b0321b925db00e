package intcode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of program.
func Disassemble(program []int64) string {
	return DisassembleWithName(program, "")
}

// DisassembleWithName returns a listing with a name header.
//
// Operands are printed bare for position mode, with a '#' prefix for
// immediate mode and a '~' prefix for relative mode. Words that do not
// decode are listed as DATA. Intcode does not separate code from data, so
// the listing is a linear sweep and may misread data as instructions.
func DisassembleWithName(program []int64, name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; %d words\n\n", len(program)))

	addr := 0
	for addr < len(program) {
		line, n := disassembleInstruction(program, addr)
		sb.WriteString(fmt.Sprintf("%06d  %s\n", addr, line))
		addr += n
	}
	return sb.String()
}

// disassembleInstruction formats the instruction at addr and returns its
// length in words.
func disassembleInstruction(program []int64, addr int) (string, int) {
	word := program[addr]
	in, err := Decode(word)
	if err != nil || addr+in.Op.Len() > len(program) {
		return fmt.Sprintf("%-4s %d", "DATA", word), 1
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-4s", in.Op))
	for i := 0; i < in.Op.Params(); i++ {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		p := program[addr+1+i]
		switch in.Mode(i) {
		case ModeImmediate:
			sb.WriteString(fmt.Sprintf("#%d", p))
		case ModeRelative:
			sb.WriteString(fmt.Sprintf("~%d", p))
		default:
			sb.WriteString(fmt.Sprintf("%d", p))
		}
	}
	return sb.String(), in.Op.Len()
}
