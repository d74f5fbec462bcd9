// Package model defines the core data structures shared by the converter,
// the crawler, the HTTP server and the history store.
//
// This package contains the following main types:
//   - ConvertConfig: per-request conversion switches
//   - ConversionResult: Markdown plus the link and metadata side-channel
//   - PageMetadata: title/author/date/description/tags of one document
//   - CrawlRequest: seed URL and traversal limits
//   - Page: a fetched and converted page as it moves through the pipeline
//
// The models are serializable to JSON for the HTTP API and reports, and to
// YAML for the configuration file.
package model
