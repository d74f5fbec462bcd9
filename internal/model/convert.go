package model

import "fmt"

const (
	// MinHeadingLevel and MaxHeadingLevel bound ConvertConfig.MaxHeadingLevel.
	MinHeadingLevel = 1
	MaxHeadingLevel = 6
)

// CleaningRules controls which non-content nodes are removed before rendering.
type CleaningRules struct {
	// RemoveScripts drops <script> elements and their text.
	RemoveScripts bool `json:"remove_scripts" yaml:"removeScripts"`

	// RemoveStyles drops <style> elements and their text.
	RemoveStyles bool `json:"remove_styles" yaml:"removeStyles"`

	// RemoveComments drops HTML comments. When false, comments are
	// passed through verbatim.
	RemoveComments bool `json:"remove_comments" yaml:"removeComments"`

	// PreserveLineBreaks keeps newlines found in text nodes and disables
	// the final blank-line collapsing pass.
	PreserveLineBreaks bool `json:"preserve_line_breaks" yaml:"preserveLineBreaks"`
}

// ConvertConfig is the immutable per-request configuration of the converter.
type ConvertConfig struct {
	// IncludeLinks renders anchors as Markdown links and collects their
	// hrefs into ConversionResult.Links.
	IncludeLinks bool `json:"include_links" yaml:"includeLinks"`

	// CleanWhitespace normalizes whitespace in text nodes outside code.
	CleanWhitespace bool `json:"clean_whitespace" yaml:"cleanWhitespace"`

	// CleaningRules selects what is pruned from the document.
	CleaningRules CleaningRules `json:"cleaning_rules" yaml:"cleaningRules"`

	// PreserveHeadings renders <h1>-<h6> as ATX headings.
	PreserveHeadings bool `json:"preserve_headings" yaml:"preserveHeadings"`

	// IncludeMetadata prepends the title/author/date/description block.
	IncludeMetadata bool `json:"include_metadata" yaml:"includeMetadata"`

	// MaxHeadingLevel is the deepest heading rendered as a heading.
	// Deeper headings render as plain text. Zero means MaxHeadingLevel.
	MaxHeadingLevel int `json:"max_heading_level" yaml:"maxHeadingLevel"`
}

// DefaultConvertConfig returns the configuration used when a request does
// not carry one: links, metadata and all headings on, every cleaning rule on.
func DefaultConvertConfig() ConvertConfig {
	return ConvertConfig{
		IncludeLinks:    true,
		CleanWhitespace: true,
		CleaningRules: CleaningRules{
			RemoveScripts:      true,
			RemoveStyles:       true,
			RemoveComments:     true,
			PreserveLineBreaks: true,
		},
		PreserveHeadings: true,
		IncludeMetadata:  true,
		MaxHeadingLevel:  MaxHeadingLevel,
	}
}

// Validate reports whether the configuration is usable.
func (c ConvertConfig) Validate() error {
	if c.MaxHeadingLevel < 0 || c.MaxHeadingLevel > MaxHeadingLevel {
		return &InputError{
			Field:   "max_heading_level",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinHeadingLevel, MaxHeadingLevel, c.MaxHeadingLevel),
		}
	}
	return nil
}

// HeadingLimit returns the effective heading ceiling.
func (c ConvertConfig) HeadingLimit() int {
	if c.MaxHeadingLevel == 0 {
		return MaxHeadingLevel
	}
	return c.MaxHeadingLevel
}

// ConversionResult is the output of one HTML to Markdown conversion.
type ConversionResult struct {
	// Markdown is the rendered document.
	Markdown string `json:"markdown"`

	// Links holds anchor hrefs in document-encounter order.
	// Empty unless IncludeLinks was set.
	Links []string `json:"links"`

	// Metadata is nil unless IncludeMetadata was set.
	Metadata *PageMetadata `json:"metadata,omitempty"`
}
