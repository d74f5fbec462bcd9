package convert

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/nao1215/markcrawl/internal/dom"
)

// minColumnWidth keeps the separator row a valid GFM delimiter row.
const minColumnWidth = 3

// tableState is the grid accumulated while a <table> is walked.
type tableState struct {
	rows  [][]string
	row   []string
	inRow bool
}

// tableBlock renders a table in two passes: the walk fills the grid, then
// the grid is laid out with per-column widths.
func (f *formatter) tableBlock(id dom.NodeID) {
	b := block{kind: blockTable}
	f.enter(b)

	prev := f.table
	f.table = &tableState{}
	// Anything outside a cell is dropped.
	f.capture(func() { f.children(id) })
	rows := f.table.rows
	f.table = prev

	if len(rows) > 0 {
		f.endLine()
		f.raw(renderTable(rows))
	}
	f.exit(b)
}

func (f *formatter) tableRow(id dom.NodeID) {
	b := block{kind: blockTableRow}
	f.blocks = append(f.blocks, b)

	t := f.table
	prevRow, prevIn := t.row, t.inRow
	t.row, t.inRow = nil, true
	f.children(id)
	if len(t.row) > 0 {
		t.rows = append(t.rows, t.row)
	}
	t.row, t.inRow = prevRow, prevIn

	f.blocks = f.blocks[:len(f.blocks)-1]
	f.last = b
}

func (f *formatter) tableCell(id dom.NodeID, header bool) {
	b := block{kind: blockTableCell}
	if header {
		b.kind = blockTableHeader
	}
	f.blocks = append(f.blocks, b)

	text, _ := f.capture(func() { f.children(id) })
	cell := cleanCell(text)
	if f.table.inRow {
		f.table.row = append(f.table.row, cell)
	} else {
		f.table.rows = append(f.table.rows, []string{cell})
	}

	f.blocks = f.blocks[:len(f.blocks)-1]
	f.last = b
}

// cleanCell folds a rendered cell onto one line and escapes pipes.
func cleanCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// renderTable lays out rows as a left-aligned pipe table. The first row is
// the header. Short rows are padded with empty cells.
func renderTable(rows [][]string) string {
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	widths := make([]int, cols)
	for c := range widths {
		widths[c] = minColumnWidth
	}
	for _, r := range rows {
		for c, cell := range r {
			widths[c] = max(widths[c], runewidth.StringWidth(cell))
		}
	}

	var b strings.Builder
	writeRow := func(r []string) {
		b.WriteByte('|')
		for c := 0; c < cols; c++ {
			cell := ""
			if c < len(r) {
				cell = r[c]
			}
			b.WriteByte(' ')
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[c]-runewidth.StringWidth(cell)))
			b.WriteString(" |")
		}
		b.WriteByte('\n')
	}

	writeRow(rows[0])
	b.WriteByte('|')
	for _, w := range widths {
		b.WriteByte(' ')
		b.WriteString(strings.Repeat("-", w))
		b.WriteString(" |")
	}
	b.WriteByte('\n')
	for _, r := range rows[1:] {
		writeRow(r)
	}

	return b.String()
}
