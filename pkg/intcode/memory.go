package intcode

import "fmt"

// DefaultMemoryLimit caps how far a program may grow its memory, in cells.
const DefaultMemoryLimit = 1 << 24

// MaxMemoryCells is the hard ceiling on memory size. Limits of zero or
// above it are clamped to it.
const MaxMemoryCells = 1 << 30

func effectiveLimit(cells int64) int64 {
	if cells <= 0 || cells > MaxMemoryCells {
		return MaxMemoryCells
	}
	return cells
}

// Memory is the program's address space: a contiguous slice of cells that
// grows on write. Cells past the end read as zero.
type Memory struct {
	cells []int64
	limit int64
}

// NewMemory returns a Memory holding a copy of program.
func NewMemory(program []int64) *Memory {
	cells := make([]int64, len(program))
	copy(cells, program)
	return &Memory{cells: cells, limit: DefaultMemoryLimit}
}

// SetLimit changes the maximum number of cells. Zero or less means
// MaxMemoryCells.
func (m *Memory) SetLimit(cells int64) {
	m.limit = effectiveLimit(cells)
}

// Len returns the number of cells currently backed by storage.
func (m *Memory) Len() int {
	return len(m.cells)
}

// Load reads the cell at addr. It never grows memory.
func (m *Memory) Load(addr int64) (int64, error) {
	if addr < 0 {
		return 0, fmt.Errorf("%w: load %d", ErrAddressUnderflow, addr)
	}
	if addr >= int64(len(m.cells)) {
		return 0, nil
	}
	return m.cells[addr], nil
}

// Store writes v at addr, zero-extending memory if addr is past the end.
func (m *Memory) Store(addr, v int64) error {
	if addr < 0 {
		return fmt.Errorf("%w: store %d", ErrAddressUnderflow, addr)
	}
	if err := m.grow(addr); err != nil {
		return err
	}
	m.cells[addr] = v
	return nil
}

func (m *Memory) grow(addr int64) error {
	if addr < int64(len(m.cells)) {
		return nil
	}
	if addr >= m.limit {
		return fmt.Errorf("%w: address %d, limit %d", ErrMemoryLimit, addr, m.limit)
	}
	if addr < int64(cap(m.cells)) {
		m.cells = m.cells[:addr+1]
		return nil
	}
	newCap := 2 * int64(cap(m.cells))
	if newCap <= addr {
		newCap = addr + 1
	}
	if newCap > m.limit {
		newCap = m.limit
	}
	cells := make([]int64, addr+1, newCap)
	copy(cells, m.cells)
	m.cells = cells
	return nil
}

// Cells returns the backing slice. The caller must not retain it across
// further writes.
func (m *Memory) Cells() []int64 {
	return m.cells
}
