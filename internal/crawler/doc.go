// Package crawler provides breadth-first crawling on top of the page
// pipeline.
//
// # Architecture
//
// The Spider type coordinates a crawl. It keeps a FIFO frontier of
// (URL, depth) entries and a visited set holding every URL ever enqueued.
// A URL enters the frontier only on its first insertion into the visited
// set, so no URL is fetched twice during one crawl.
//
// Each page is processed by a Processor, normally the fetch, extract and
// convert pipeline built by NewPipelineFactory. Links are taken from the
// converted page, so a crawl with link rendering disabled never leaves
// the seed.
//
// # Link filtering
//
// Discovered hrefs pass these checks in order:
//   - absolute http(s) links are taken as-is, relative ones are resolved
//     against the page URL only when FollowRelative is set
//   - candidates longer than 512 characters are dropped
//   - candidates that do not re-parse are dropped
//   - scheme and host must equal the seed's
//   - only http and https are crawled
//   - site ignore and follow patterns are applied to the path
//
// # Concurrency
//
// With a concurrency of 1 pages are returned in breadth-first order.
// With more workers, the frontier is still consumed in FIFO order but
// pages are returned in completion order. Entries are only dispatched
// while accepted plus in-flight pages stay below the limit.
//
// # Usage
//
//	spider := crawler.NewSpider(crawler.NewPipelineFactory(client, opts),
//		crawler.WithConcurrency(4))
//	result, err := spider.Crawl(ctx, model.CrawlRequest{URL: "https://example.com", Limit: 10, MaxDepth: 2})
package crawler
