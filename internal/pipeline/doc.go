// Package pipeline turns a URL into a converted page by running a fixed
// sequence of steps: fetch, optional main-content extraction, conversion.
//
// Each stage is implemented as a Step that receives the page being built
// and fills in its part. The crawler runs one Pipeline per crawl and calls
// Execute for every URL it dequeues; BatchProcessor runs a pipeline for each
// URL of a list with bounded concurrency using errgroup.
package pipeline
