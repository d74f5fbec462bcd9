// Package convert turns HTML documents into Markdown.
//
// Conversion walks a dom.Tree depth-first and feeds a formatter that keeps
// an explicit block state machine: a stack of open block types, the last
// emitted block type (which decides blank-line spacing), the stack of open
// lists (for indentation and numbering), the table being accumulated, and
// the in-code flag that suspends whitespace normalization.
//
// Conversion never fails on malformed markup. The parser repairs the tree
// and the formatter renders whatever structure it finds. The only error is
// a failure to read the input.
//
// Alongside the Markdown the converter returns the anchor hrefs in the
// order they were encountered and, when requested, the page metadata
// collected from <title> and <meta> tags.
package convert
