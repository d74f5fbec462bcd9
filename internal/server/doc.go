// Package server provides the markcrawl HTTP API.
//
// Routes:
//
//	GET  /https://example.com/page   convert a URL given in the path
//	GET  /?url=https://example.com   convert a URL given as a query parameter
//	GET  /                           usage text
//	POST /                           {"url": "...", "config": {...}}
//	POST /crawl                      {"url": "...", "limit": N, "max_depth": N, ...}
//	OPTIONS *                        CORS pre-flight
//
// Successful conversions answer text/markdown. Errors answer text/plain
// with a status derived from the failure: 400 for invalid input, 404, 403
// and 503 mirroring the upstream response and 500 otherwise. Any text body
// is converted regardless of its declared media type.
package server
