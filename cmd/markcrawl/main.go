// Package main provides the entry point for the markcrawl CLI.
//
// markcrawl converts web pages to Markdown. It can convert single pages,
// crawl a site breadth-first, or serve both operations over HTTP.
//
// Usage:
//
//	markcrawl convert <url>...
//	markcrawl crawl <url> --limit 20 --depth 2
//	markcrawl serve --listen :8080
//
// See --help for all available options.
package main

// main is the entry point for markcrawl.
func main() {
	Execute()
}
