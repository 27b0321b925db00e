package intcode

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseProgram parses comma-separated signed integers. Whitespace around
// tokens is ignored. Any token that is not an integer is fatal.
func ParseProgram(text string) ([]int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty program", ErrParse)
	}
	fields := strings.Split(text, ",")
	program := make([]int64, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: token %d %q: %v", ErrParse, i, f, err)
		}
		program = append(program, v)
	}
	return program, nil
}

// ParsePrograms reads one program per non-blank line.
func ParsePrograms(r io.Reader) ([][]int64, error) {
	var programs [][]int64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		p, err := ParseProgram(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		programs = append(programs, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return programs, nil
}

// ReadProgram reads the first program from r.
func ReadProgram(r io.Reader) ([]int64, error) {
	programs, err := ParsePrograms(r)
	if err != nil {
		return nil, err
	}
	if len(programs) == 0 {
		return nil, fmt.Errorf("%w: no program found", ErrParse)
	}
	return programs[0], nil
}

// FormatProgram renders a program in its comma-separated text form.
func FormatProgram(program []int64) string {
	var sb strings.Builder
	for i, v := range program {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(v, 10))
	}
	return sb.String()
}
