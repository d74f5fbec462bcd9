package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Page is a single fetched and converted document.
// The fetch step fills the response fields, the convert step fills
// Markdown, Links and Metadata.
type Page struct {
	// URL is the URL the page was requested with.
	URL string `json:"url"`

	// Depth is the link distance from the crawl seed. Zero for the seed
	// and for single-page conversions.
	Depth int `json:"depth"`

	// StatusCode is the final HTTP status code.
	StatusCode int `json:"status_code"`

	// Headers contains the response headers in canonical form.
	Headers map[string][]string `json:"headers,omitempty"`

	// ContentType is the Content-Type response header.
	ContentType string `json:"content_type"`

	// HTML is the decoded UTF-8 body. After main-content extraction it
	// holds the extracted fragment. The convert step clears it. Not
	// serialized.
	HTML string `json:"-"`

	// Markdown is the converted document.
	Markdown string `json:"markdown"`

	// Links are the hrefs found during conversion, in document order.
	Links []string `json:"links,omitempty"`

	// Metadata is set when the conversion collected metadata.
	Metadata *PageMetadata `json:"metadata,omitempty"`

	// Hash is the SHA-256 of Markdown, used for change detection.
	Hash string `json:"hash"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`
}

// NewPage creates a Page for url at the given crawl depth.
func NewPage(url string, depth int) *Page {
	return &Page{URL: url, Depth: depth}
}

// ComputeHash calculates and sets the SHA-256 hash of the Markdown.
func (p *Page) ComputeHash() {
	if p.Markdown == "" {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256([]byte(p.Markdown))
	p.Hash = hex.EncodeToString(hash[:])
}

// Title returns the metadata title, or an empty string.
func (p *Page) Title() string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata.Title
}

// GetHeader returns the first value of the specified header.
// Returns empty string if the header is not present.
func (p *Page) GetHeader(name string) string {
	if values, ok := p.Headers[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}
