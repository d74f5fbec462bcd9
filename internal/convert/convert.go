package convert

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/nao1215/markcrawl/internal/dom"
	"github.com/nao1215/markcrawl/internal/model"
)

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// Convert converts an HTML document to Markdown using cfg.
func Convert(html string, cfg model.ConvertConfig) (*model.ConversionResult, error) {
	return ConvertReader(strings.NewReader(html), cfg)
}

// ConvertReader is Convert over a reader. The reader must yield UTF-8.
func ConvertReader(r io.Reader, cfg model.ConvertConfig) (*model.ConversionResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tree, err := dom.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return ConvertTree(tree, cfg), nil
}

// ConvertTree converts an already parsed document. It cannot fail.
func ConvertTree(tree *dom.Tree, cfg model.ConvertConfig) *model.ConversionResult {
	f := newFormatter(tree, cfg)
	body := strings.TrimSpace(f.render())

	result := &model.ConversionResult{Links: f.links}
	var prefix string
	if cfg.IncludeMetadata {
		result.Metadata = ExtractMetadata(tree)
		prefix = result.Metadata.Format()
	}

	out := prefix + body
	if !cfg.CleaningRules.PreserveLineBreaks {
		out = excessNewlines.ReplaceAllString(out, "\n\n")
	}
	result.Markdown = strings.TrimSpace(out)

	return result
}
