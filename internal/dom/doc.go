// Package dom holds a read-only, index-addressed view of a parsed HTML
// document.
//
// The tree is built once from golang.org/x/net/html output. Nodes live in a
// single slice and refer to each other by NodeID, so walkers only need the
// Tree and an ID and never follow pointers. Every element carries an
// ElementKind from a closed set; tags outside the set map to KindUnknown.
package dom
