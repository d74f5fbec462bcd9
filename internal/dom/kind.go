package dom

import "golang.org/x/net/html/atom"

// ElementKind is the closed set of element categories the converter
// dispatches on.
type ElementKind uint8

// Element kinds.
const (
	KindUnknown ElementKind = iota
	KindHeading
	KindParagraph
	KindPre
	KindCode
	KindBlockquote
	KindAnchor
	KindImage
	KindStrong
	KindEmphasis
	KindMark
	KindStrike
	KindInsert
	KindTable
	KindTableRow
	KindTableCell
	KindTableHeader
	KindUnorderedList
	KindOrderedList
	KindListItem
	KindContainer
	KindLineBreak
	KindScript
	KindStyle
	KindHead
	KindTitle
	KindMeta
	KindLink
	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:       "unknown",
	KindHeading:       "heading",
	KindParagraph:     "paragraph",
	KindPre:           "pre",
	KindCode:          "code",
	KindBlockquote:    "blockquote",
	KindAnchor:        "anchor",
	KindImage:         "image",
	KindStrong:        "strong",
	KindEmphasis:      "emphasis",
	KindMark:          "mark",
	KindStrike:        "strike",
	KindInsert:        "insert",
	KindTable:         "table",
	KindTableRow:      "table-row",
	KindTableCell:     "table-cell",
	KindTableHeader:   "table-header",
	KindUnorderedList: "unordered-list",
	KindOrderedList:   "ordered-list",
	KindListItem:      "list-item",
	KindContainer:     "container",
	KindLineBreak:     "line-break",
	KindScript:        "script",
	KindStyle:         "style",
	KindHead:          "head",
	KindTitle:         "title",
	KindMeta:          "meta",
	KindLink:          "link",
}

// String returns a short lowercase name.
func (k ElementKind) String() string {
	if k >= kindCount {
		return "invalid"
	}
	return kindNames[k]
}

var kindByAtom = map[atom.Atom]ElementKind{
	atom.H1:         KindHeading,
	atom.H2:         KindHeading,
	atom.H3:         KindHeading,
	atom.H4:         KindHeading,
	atom.H5:         KindHeading,
	atom.H6:         KindHeading,
	atom.P:          KindParagraph,
	atom.Pre:        KindPre,
	atom.Code:       KindCode,
	atom.Blockquote: KindBlockquote,
	atom.A:          KindAnchor,
	atom.Img:        KindImage,
	atom.Strong:     KindStrong,
	atom.B:          KindStrong,
	atom.Em:         KindEmphasis,
	atom.I:          KindEmphasis,
	atom.Mark:       KindMark,
	atom.Del:        KindStrike,
	atom.S:          KindStrike,
	atom.Ins:        KindInsert,
	atom.U:          KindInsert,
	atom.Table:      KindTable,
	atom.Tr:         KindTableRow,
	atom.Td:         KindTableCell,
	atom.Th:         KindTableHeader,
	atom.Ul:         KindUnorderedList,
	atom.Ol:         KindOrderedList,
	atom.Li:         KindListItem,
	atom.Div:        KindContainer,
	atom.Article:    KindContainer,
	atom.Section:    KindContainer,
	atom.Br:         KindLineBreak,
	atom.Script:     KindScript,
	atom.Style:      KindStyle,
	atom.Head:       KindHead,
	atom.Title:      KindTitle,
	atom.Meta:       KindMeta,
	atom.Link:       KindLink,
}

// KindOf maps a parsed tag atom to its ElementKind.
func KindOf(a atom.Atom) ElementKind {
	if k, ok := kindByAtom[a]; ok {
		return k
	}
	return KindUnknown
}

// HeadingLevel returns 1-6 for h1-h6 and 0 for any other tag.
func HeadingLevel(tag string) int {
	if len(tag) != 2 || tag[0] != 'h' || tag[1] < '1' || tag[1] > '6' {
		return 0
	}
	return int(tag[1] - '0')
}
