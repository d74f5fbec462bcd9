// Package report renders crawl summaries.
//
// NewCrawlReport turns a crawler.Result into a CrawlReport holding per-page
// statistics and classified failures. Writers render it:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: GitHub-flavored Markdown with tables and a depth chart
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed with MultiWriter.
package report
