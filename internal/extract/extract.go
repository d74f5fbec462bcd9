// Package extract isolates the main content of an HTML page using
// go-readability, so navigation, sidebars and footers do not reach the
// Markdown output.
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// ErrNoContent is returned when no readable content is found.
var ErrNoContent = errors.New("no readable content found")

// Article is the readable part of a page.
type Article struct {
	Title    string
	Byline   string
	Excerpt  string
	SiteName string
	// Content is an HTML fragment holding the main content.
	Content string
}

// MainContent runs readability over htmlDoc. pageURL is used to resolve
// relative links and images in the returned fragment.
func MainContent(htmlDoc, pageURL string) (*Article, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(htmlDoc), u)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}
	if !hasText(article.Content) {
		return nil, ErrNoContent
	}

	return &Article{
		Title:    strings.TrimSpace(article.Title),
		Byline:   strings.TrimSpace(article.Byline),
		Excerpt:  strings.TrimSpace(article.Excerpt),
		SiteName: strings.TrimSpace(article.SiteName),
		Content:  article.Content,
	}, nil
}

// hasText reports whether the fragment contains any non-whitespace text.
func hasText(fragment string) bool {
	if strings.TrimSpace(fragment) == "" {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return false
	}
	return strings.TrimSpace(doc.Text()) != ""
}
