package sqlgen

import (
	"bytes"
	"strings"
)

const indentSize = 2

// Printer accumulates SQL text one clause at a time. Formatted output puts
// every clause on its own line; compact output joins clauses with spaces.
type Printer struct {
	output  *bytes.Buffer
	compact bool
	depth   int
	started bool
}

func newPrinter(compact bool) *Printer {
	return &Printer{output: &bytes.Buffer{}, compact: compact}
}

// Clause writes one clause, handling the separator and indentation.
func (p *Printer) Clause(s string) {
	if s == "" {
		return
	}
	if p.started {
		if p.compact {
			p.output.WriteByte(' ')
		} else {
			p.output.WriteByte('\n')
		}
	}
	p.writeIndented(s)
	p.started = true
}

func (p *Printer) writeIndented(s string) {
	if p.compact || p.depth == 0 {
		p.output.WriteString(s)
		return
	}
	pad := strings.Repeat(" ", p.depth*indentSize)
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			p.output.WriteByte('\n')
		}
		p.output.WriteString(pad)
		p.output.WriteString(line)
	}
}

// String returns the accumulated SQL.
func (p *Printer) String() string {
	return p.output.String()
}
