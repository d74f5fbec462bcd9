package convert

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/markcrawl/internal/dom"
	"github.com/nao1215/markcrawl/internal/model"
)

// ExtractMetadata collects page metadata from a parsed document.
//
// Sources are read in priority order: Open Graph and article properties,
// then plain <meta name> tags, then <title>. Each field keeps the first
// non-empty value it receives. Tags from article:tag and keywords are
// merged without duplicates.
func ExtractMetadata(tree *dom.Tree) *model.PageMetadata {
	doc := goquery.NewDocumentFromNode(tree.Source())
	meta := &model.PageMetadata{}

	doc.Find("meta[property]").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		property, _ := s.Attr("property")
		switch strings.ToLower(strings.TrimSpace(property)) {
		case "og:title":
			meta.SetTitle(content)
		case "og:description":
			meta.SetDescription(content)
		case "article:author":
			meta.SetAuthor(content)
		case "article:published_time":
			meta.SetDate(content)
		case "article:tag":
			meta.AddTag(content)
		}
	})

	doc.Find("meta[name]").Not("[property]").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		name, _ := s.Attr("name")
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "description":
			meta.SetDescription(content)
		case "author":
			meta.SetAuthor(content)
		case "keywords":
			meta.AddKeywords(content)
		}
	})

	title := doc.Find("title").First().Text()
	meta.SetTitle(strings.Join(strings.Fields(title), " "))

	return meta
}
