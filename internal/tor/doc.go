// Package tor routes markcrawl traffic through a SOCKS5 proxy.
//
// Dialer wraps golang.org/x/net/proxy for an existing proxy such as a local
// Tor daemon (--proxy 127.0.0.1:9050). EmbeddedTor starts a private Tor
// daemon through tornago (--tor) and hands out a Dialer for its SOCKS port.
//
// The package is designed to be used with dependency injection: build a
// Dialer once and pass its DialContext to fetch.NewHTTPClient rather than
// using global state.
package tor
