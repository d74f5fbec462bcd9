// Package database provides SQLite-based crawl history for markcrawl.
//
// CrawlDB stores:
//   - crawl sessions, one per crawl run, identified by a UUID
//   - converted pages of every session, unique per session and URL
//
// The store uses modernc.org/sqlite, a CGO-free driver, so the binary stays
// statically linkable. The database is a single file in the XDG data
// directory.
package database
