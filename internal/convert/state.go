package convert

// blockKind is the structural category of an open or emitted block.
type blockKind uint8

const (
	blockNone blockKind = iota
	blockParagraph
	blockHeader
	blockList
	blockCodeBlock
	blockTable
	blockQuote
	blockPre
	blockContainer
	blockTableRow
	blockTableCell
	blockTableHeader
)

func (k blockKind) String() string {
	switch k {
	case blockNone:
		return "none"
	case blockParagraph:
		return "paragraph"
	case blockHeader:
		return "header"
	case blockList:
		return "list"
	case blockCodeBlock:
		return "code-block"
	case blockTable:
		return "table"
	case blockQuote:
		return "quote"
	case blockPre:
		return "pre"
	case blockContainer:
		return "container"
	case blockTableRow:
		return "table-row"
	case blockTableCell:
		return "table-cell"
	case blockTableHeader:
		return "table-header"
	default:
		return "unknown"
	}
}

// listKind distinguishes bullet lists from numbered lists.
type listKind uint8

const (
	listUnordered listKind = iota
	listOrdered
)

// indentWidth is the indentation a list of this kind contributes to the
// items of lists nested inside it.
func (k listKind) indentWidth() int {
	if k == listOrdered {
		return 3
	}
	return 2
}

// block is one state of the formatter. level is set for headers, list for
// lists.
type block struct {
	kind  blockKind
	level int
	list  listKind
}

// spacing is the separation written at a block boundary.
type spacing uint8

const (
	spaceNone spacing = iota
	spaceLine
	spaceBlank
)

// spacingBefore returns the separation written when next is entered right
// after last was emitted.
func spacingBefore(last, next block) spacing {
	switch next.kind {
	case blockNone, blockTableRow, blockTableCell, blockTableHeader:
		return spaceNone
	case blockList:
		if last.kind == blockList && last.list == next.list {
			return spaceLine
		}
		return spaceBlank
	case blockParagraph, blockHeader, blockCodeBlock, blockPre, blockTable, blockQuote, blockContainer:
		return spaceBlank
	default:
		return spaceNone
	}
}

// spacingAfter returns the separation written when b is closed.
func spacingAfter(b block) spacing {
	switch b.kind {
	case blockParagraph, blockHeader, blockCodeBlock, blockPre, blockTable, blockQuote, blockContainer:
		return spaceBlank
	case blockList:
		return spaceLine
	default:
		return spaceNone
	}
}
