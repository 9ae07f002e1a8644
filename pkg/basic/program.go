package basic

import (
	"sort"
	"strings"
)

// Program is the ordered store of parsed lines, keyed by line number.
// Ordering is numeric regardless of insertion order, so a program can be
// typed out of sequence.
type Program struct {
	lines map[int]*Line
	order []int // line numbers, ascending
}

// NewProgram creates an empty program store.
func NewProgram() *Program {
	return &Program{lines: make(map[int]*Line)}
}

// Set inserts the line, replacing any existing line with the same number.
func (p *Program) Set(line *Line) {
	if _, exists := p.lines[line.Number]; !exists {
		i := sort.SearchInts(p.order, line.Number)
		p.order = append(p.order, 0)
		copy(p.order[i+1:], p.order[i:])
		p.order[i] = line.Number
	}
	p.lines[line.Number] = line
}

// Delete removes the line with the given number, if present.
func (p *Program) Delete(number int) {
	if _, exists := p.lines[number]; !exists {
		return
	}
	delete(p.lines, number)
	i := sort.SearchInts(p.order, number)
	p.order = append(p.order[:i], p.order[i+1:]...)
}

// Get returns the line with the given number.
func (p *Program) Get(number int) (*Line, bool) {
	line, ok := p.lines[number]
	return line, ok
}

// Has reports whether a line with the given number is stored.
func (p *Program) Has(number int) bool {
	_, ok := p.lines[number]
	return ok
}

// First returns the smallest stored line number.
func (p *Program) First() (int, bool) {
	if len(p.order) == 0 {
		return 0, false
	}
	return p.order[0], true
}

// NextAfter returns the smallest stored line number strictly greater than
// the argument. The second result is false at the end of the program.
func (p *Program) NextAfter(number int) (int, bool) {
	i := sort.SearchInts(p.order, number+1)
	if i >= len(p.order) {
		return 0, false
	}
	return p.order[i], true
}

// Len returns the number of stored lines.
func (p *Program) Len() int {
	return len(p.order)
}

// Clear removes all lines.
func (p *Program) Clear() {
	p.lines = make(map[int]*Line)
	p.order = p.order[:0]
}

// Source returns the program text, one line per stored line, in ascending
// line-number order.
func (p *Program) Source() string {
	var sb strings.Builder
	for i, number := range p.order {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.TrimSpace(p.lines[number].Source))
	}
	return sb.String()
}
