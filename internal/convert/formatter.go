package convert

import (
	"strconv"
	"strings"

	"github.com/nao1215/markcrawl/internal/dom"
	"github.com/nao1215/markcrawl/internal/model"
)

// formatter renders one dom.Tree. It is not safe for concurrent use and is
// discarded after a single conversion.
type formatter struct {
	tree *dom.Tree
	cfg  model.ConvertConfig

	// out is the current sink. Quotes, anchors and table cells render
	// their children into a temporary sink and post-process the result.
	out *[]byte

	blocks []block
	last   block
	lists  []listLevel
	table  *tableState
	inCode bool

	// itemStart is the sink offset right after the current list marker,
	// or -1. While the sink ends there, block spacing is suppressed so the
	// first block of an item shares the marker line.
	itemStart int

	// pending is a whitespace byte owed before the next content write.
	pending byte
	// suppress drops pending whitespace at line starts and right after an
	// opening delimiter.
	suppress bool

	// openStart and openEnd delimit the run of opening delimiters just
	// written, or are -1. Leading whitespace of the first text inside the
	// run is moved in front of it.
	openStart, openEnd int

	links []string
}

type listLevel struct {
	kind    listKind
	counter int
}

func newFormatter(tree *dom.Tree, cfg model.ConvertConfig) *formatter {
	buf := make([]byte, 0, 4096)
	return &formatter{
		tree:      tree,
		cfg:       cfg,
		out:       &buf,
		itemStart: -1,
		suppress:  true,
		openStart: -1,
		openEnd:   -1,
		links:     []string{},
	}
}

// render walks the whole tree and returns the raw body.
func (f *formatter) render() string {
	f.walk(f.tree.Root())
	return string(*f.out)
}

func (f *formatter) walk(id dom.NodeID) {
	n := f.tree.Node(id)
	switch n.Type {
	case dom.DocumentNode:
		f.children(id)
	case dom.ElementNode:
		f.element(id, n)
	case dom.TextNode:
		f.text(n.Data)
	case dom.CommentNode:
		if !f.cfg.CleaningRules.RemoveComments {
			f.emit("<!--" + n.Data + "-->")
		}
	case dom.ProcessingInstructionNode, dom.DoctypeNode:
	}
}

func (f *formatter) children(id dom.NodeID) {
	for _, c := range f.tree.Node(id).Children {
		f.walk(c)
	}
}

func (f *formatter) element(id dom.NodeID, n *dom.Node) {
	switch n.Kind {
	case dom.KindHeading:
		f.heading(id, n)
	case dom.KindParagraph:
		f.block(id, block{kind: blockParagraph})
	case dom.KindContainer:
		f.block(id, block{kind: blockContainer})
	case dom.KindPre:
		f.preformatted(id, n)
	case dom.KindCode:
		f.inlineCode(id)
	case dom.KindBlockquote:
		f.quote(id)
	case dom.KindAnchor:
		f.anchor(id, n)
	case dom.KindImage:
		f.image(n)
	case dom.KindStrong:
		f.inline(id, "**")
	case dom.KindEmphasis:
		f.inline(id, "*")
	case dom.KindMark:
		f.inline(id, "==")
	case dom.KindStrike:
		f.inline(id, "~~")
	case dom.KindInsert:
		f.inline(id, "__")
	case dom.KindTable:
		f.tableBlock(id)
	case dom.KindTableRow:
		if f.table == nil {
			f.block(id, block{kind: blockContainer})
			return
		}
		f.tableRow(id)
	case dom.KindTableCell, dom.KindTableHeader:
		if f.table == nil {
			f.block(id, block{kind: blockContainer})
			return
		}
		f.tableCell(id, n.Kind == dom.KindTableHeader)
	case dom.KindUnorderedList:
		f.list(id, listUnordered)
	case dom.KindOrderedList:
		f.list(id, listOrdered)
	case dom.KindListItem:
		if len(f.lists) == 0 {
			f.children(id)
			return
		}
		f.listItem(id)
	case dom.KindLineBreak:
		f.lineBreak()
	case dom.KindScript:
		if !f.cfg.CleaningRules.RemoveScripts {
			f.children(id)
		}
	case dom.KindStyle:
		if !f.cfg.CleaningRules.RemoveStyles {
			f.children(id)
		}
	case dom.KindHead, dom.KindTitle, dom.KindMeta, dom.KindLink:
		// Document metadata is collected separately.
	default:
		f.children(id)
	}
}

// enter opens b, writing the separation owed to the previous block.
func (f *formatter) enter(b block) {
	f.space(spacingBefore(f.last, b))
	f.blocks = append(f.blocks, b)
}

// exit closes b and records it as the last emitted block.
func (f *formatter) exit(b block) {
	f.blocks = f.blocks[:len(f.blocks)-1]
	f.space(spacingAfter(b))
	f.last = b
}

func (f *formatter) space(s spacing) {
	// Items of a list stay tight.
	if s == spaceBlank && len(f.lists) > 0 {
		s = spaceLine
	}
	switch s {
	case spaceLine:
		f.newline()
	case spaceBlank:
		f.blankLine()
	case spaceNone:
	}
}

func (f *formatter) block(id dom.NodeID, b block) {
	f.enter(b)
	f.children(id)
	f.exit(b)
}

func (f *formatter) heading(id dom.NodeID, n *dom.Node) {
	level := dom.HeadingLevel(n.Tag)
	if !f.cfg.PreserveHeadings || level == 0 || level > f.cfg.HeadingLimit() {
		f.children(id)
		return
	}

	b := block{kind: blockHeader, level: level}
	f.enter(b)
	f.marker(strings.Repeat("#", level) + " ")
	f.children(id)
	f.exit(b)
}

func (f *formatter) preformatted(id dom.NodeID, n *dom.Node) {
	b := block{kind: blockPre}
	if f.tree.FirstChildOfKind(id, dom.KindCode) != dom.NoNode {
		b.kind = blockCodeBlock
	}
	lang := codeLanguage(f.tree, id, n)

	f.enter(b)
	prevCode := f.inCode
	f.inCode = true
	body, _ := f.capture(func() { f.children(id) })
	f.inCode = prevCode

	fence := "```" + lang + "\n" + strings.Trim(body, "\n") + "\n```"
	if indent := f.itemIndent(); indent > 0 {
		fence = indentLines(fence, strings.Repeat(" ", indent))
	}
	f.endLine()
	f.raw(fence)
	f.exit(b)
}

// itemIndent is the column where the content of the current list item
// starts, or 0 outside lists.
func (f *formatter) itemIndent() int {
	indent := 0
	for _, l := range f.lists {
		indent += l.kind.indentWidth()
	}
	return indent
}

func (f *formatter) inlineCode(id dom.NodeID) {
	if f.inCode {
		f.children(id)
		return
	}
	f.inCode = true
	f.inline(id, "`")
	f.inCode = false
}

// inline wraps the children of id in delim. Nothing is written when the
// children render nothing.
func (f *formatter) inline(id dom.NodeID, delim string) {
	start, pending, suppress := len(*f.out), f.pending, f.suppress
	openStart, openEnd := f.openStart, f.openEnd

	f.flush()
	at := len(*f.out)
	if f.openEnd != at {
		f.openStart = at
	}
	*f.out = append(*f.out, delim...)
	f.openEnd = len(*f.out)
	f.suppress = true

	mark := len(*f.out)
	f.children(id)
	if len(*f.out) == mark {
		*f.out = (*f.out)[:start]
		f.pending, f.suppress = pending, suppress
		f.openStart, f.openEnd = openStart, openEnd
		return
	}
	f.raw(delim)
}

func (f *formatter) quote(id dom.NodeID) {
	b := block{kind: blockQuote}
	f.enter(b)
	body, _ := f.capture(func() { f.children(id) })
	body = strings.Trim(body, "\n")
	if body != "" {
		f.endLine()
		lines := strings.Split(body, "\n")
		for i, line := range lines {
			if i > 0 {
				f.raw("\n")
			}
			line = strings.TrimRight(line, " \t")
			if line == "" {
				f.raw(">")
				continue
			}
			f.raw("> " + line)
		}
	}
	f.exit(b)
}

func (f *formatter) anchor(id dom.NodeID, n *dom.Node) {
	href, ok := n.Attr("href")
	href = strings.TrimSpace(href)
	if !f.cfg.IncludeLinks || !ok {
		f.children(id)
		return
	}

	f.links = append(f.links, href)
	text, trailing := f.capture(func() { f.children(id) })
	text = strings.Join(strings.Fields(text), " ")
	if text != "" && text != href {
		f.emit("[" + text + "](" + href + ")")
	} else {
		f.emit("<" + href + ">")
	}
	if trailing != 0 {
		f.pending = ' '
	}
}

func (f *formatter) image(n *dom.Node) {
	src, ok := n.Attr("src")
	src = strings.TrimSpace(src)
	if !ok || src == "" {
		return
	}
	alt, _ := n.Attr("alt")
	alt = strings.Join(strings.Fields(alt), " ")

	f.newline()
	f.emit("![" + alt + "](" + src + ")")
	f.newline()
}

func (f *formatter) list(id dom.NodeID, kind listKind) {
	b := block{kind: blockList, list: kind}
	f.enter(b)
	f.lists = append(f.lists, listLevel{kind: kind})
	f.children(id)
	f.lists = f.lists[:len(f.lists)-1]
	f.exit(b)
}

func (f *formatter) listItem(id dom.NodeID) {
	depth := len(f.lists) - 1
	f.lists[depth].counter++
	level := f.lists[depth]

	indent := f.itemIndent() - level.kind.indentWidth()
	marker := "* "
	if level.kind == listOrdered {
		marker = strconv.Itoa(level.counter) + ". "
	}

	f.endLine()
	f.marker(strings.Repeat(" ", indent) + marker)
	f.itemStart = len(*f.out)
	f.children(id)
	f.endLine()
}

func (f *formatter) lineBreak() {
	switch {
	case f.inCode, !f.cfg.CleanWhitespace:
		f.raw("\n")
	case f.cfg.CleaningRules.PreserveLineBreaks:
		f.endLine()
	default:
		f.pending = ' '
	}
}

// text writes a text node according to the whitespace policy.
func (f *formatter) text(s string) {
	if f.inCode || !f.cfg.CleanWhitespace {
		if s != "" {
			f.emit(s)
		}
		return
	}

	collapsed := collapseWhitespace(s, f.cfg.CleaningRules.PreserveLineBreaks)
	trimmed := strings.Trim(collapsed, " \n")
	if trimmed == "" {
		return
	}
	if collapsed[0] == ' ' || collapsed[0] == '\n' {
		if f.openEnd >= 0 && f.openEnd == len(*f.out) {
			f.hoistSpace()
		} else {
			f.pending = collapsed[0]
		}
	}
	f.emit(trimmed)
	if last := collapsed[len(collapsed)-1]; last == ' ' || last == '\n' {
		f.pending = last
	}
}

// hoistSpace inserts a space in front of the opening delimiters just
// written, unless they already follow whitespace.
func (f *formatter) hoistSpace() {
	buf := *f.out
	at := f.openStart
	if at <= 0 || buf[at-1] == ' ' || buf[at-1] == '\n' {
		return
	}
	buf = append(buf, 0)
	copy(buf[at+1:], buf[at:])
	buf[at] = ' '
	*f.out = buf
	f.openEnd++
}

// flush pays pending whitespace unless it is suppressed.
func (f *formatter) flush() {
	if f.pending != 0 && !f.suppress {
		*f.out = append(*f.out, f.pending)
	}
	f.pending = 0
}

// emit writes content, first paying any pending whitespace.
func (f *formatter) emit(s string) {
	f.flush()
	f.suppress = false
	*f.out = append(*f.out, s...)
}

// raw writes s without paying pending whitespace.
func (f *formatter) raw(s string) {
	*f.out = append(*f.out, s...)
	f.suppress = false
}

// marker writes a line prefix such as "# " or "* ".
func (f *formatter) marker(s string) {
	*f.out = append(*f.out, s...)
	f.pending = 0
	f.suppress = true
}

func (f *formatter) atItemStart() bool {
	return f.itemStart >= 0 && f.itemStart == len(*f.out)
}

// endLine terminates the current line unless the sink is already at a
// line start.
func (f *formatter) endLine() {
	f.pending = 0
	f.suppress = true
	buf := *f.out
	if len(buf) == 0 || buf[len(buf)-1] == '\n' {
		return
	}
	buf = trimRightBytes(buf, " \t")
	*f.out = append(buf, '\n')
}

// newline is endLine except on a fresh list item line.
func (f *formatter) newline() {
	if f.atItemStart() {
		return
	}
	f.endLine()
}

// blankLine ends the current paragraph with exactly one empty line.
func (f *formatter) blankLine() {
	if f.atItemStart() {
		return
	}
	f.pending = 0
	f.suppress = true
	buf := trimRightBytes(*f.out, " \t\n")
	if len(buf) == 0 {
		*f.out = buf
		return
	}
	*f.out = append(buf, '\n', '\n')
}

// capture renders fn into a fresh sink and returns its content together
// with the whitespace still pending at its end.
func (f *formatter) capture(fn func()) (string, byte) {
	prevOut, prevItem := f.out, f.itemStart
	prevPending, prevSuppress := f.pending, f.suppress
	prevOpenStart, prevOpenEnd := f.openStart, f.openEnd

	buf := make([]byte, 0, 64)
	f.out = &buf
	f.itemStart = -1
	f.pending = 0
	f.suppress = true
	f.openStart, f.openEnd = -1, -1

	fn()
	trailing := f.pending

	f.out, f.itemStart = prevOut, prevItem
	f.pending, f.suppress = prevPending, prevSuppress
	f.openStart, f.openEnd = prevOpenStart, prevOpenEnd
	return string(buf), trailing
}

// indentLines prefixes every non-empty line of s.
func indentLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func trimRightBytes(b []byte, cutset string) []byte {
	for len(b) > 0 && strings.IndexByte(cutset, b[len(b)-1]) >= 0 {
		b = b[:len(b)-1]
	}
	return b
}

// collapseWhitespace folds every run of HTML whitespace into one byte: a
// newline when the run contains one and keepNewlines is set, else a space.
func collapseWhitespace(s string, keepNewlines bool) string {
	var b strings.Builder
	b.Grow(len(s))
	inRun, sawNewline := false, false
	flush := func() {
		if sawNewline && keepNewlines {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
		inRun, sawNewline = false, false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case ' ', '\t', '\n', '\r', '\f':
			inRun = true
			if c == '\n' {
				sawNewline = true
			}
		default:
			if inRun {
				flush()
			}
			b.WriteByte(c)
		}
	}
	if inRun {
		flush()
	}
	return b.String()
}

// codeLanguage reads a "language-X" (or "lang-X") class from a <pre> or
// its first <code> child.
func codeLanguage(tree *dom.Tree, id dom.NodeID, n *dom.Node) string {
	if lang := languageFromClass(n); lang != "" {
		return lang
	}
	if c := tree.FirstChildOfKind(id, dom.KindCode); c != dom.NoNode {
		return languageFromClass(tree.Node(c))
	}
	return ""
}

func languageFromClass(n *dom.Node) string {
	class, _ := n.Attr("class")
	for _, c := range strings.Fields(class) {
		for _, prefix := range []string{"language-", "lang-"} {
			if lang, ok := strings.CutPrefix(c, prefix); ok && lang != "" {
				return lang
			}
		}
	}
	return ""
}
