package crawler

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// maxLinkLength discards absurdly long candidate URLs before parsing.
const maxLinkLength = 512

var absoluteLink = regexp.MustCompile(`(?i)^https?://`)

// linkFilter turns hrefs found on a page into crawlable, normalized URLs.
type linkFilter struct {
	// seed is the parsed crawl seed. When its host is set, candidates must
	// share its scheme and host.
	seed *url.URL

	followRelative bool

	// ignorePatterns and followPatterns are site glob patterns matched
	// against the URL path.
	ignorePatterns []string
	followPatterns []string
}

// accept returns the normalized form of href found on the page at base, or
// false when the link must not be crawled. Checks run in a fixed order:
// absolute/relative resolution, length guard, re-parse, scheme and host,
// http(s) only, site patterns.
func (f *linkFilter) accept(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	candidate := href
	if !absoluteLink.MatchString(href) {
		if !f.followRelative || base == nil {
			return "", false
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return "", false
		}
		candidate = resolved.String()
	}

	if len(candidate) > maxLinkLength {
		return "", false
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return "", false
	}

	if f.seed.Host != "" {
		if !strings.EqualFold(u.Scheme, f.seed.Scheme) || !strings.EqualFold(u.Host, f.seed.Host) {
			return "", false
		}
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}

	if !f.shouldCrawl(u) {
		return "", false
	}

	return normalizeURL(u), true
}

// shouldCrawl checks if a URL should be crawled based on ignore/follow patterns.
//
// Logic:
//  1. If the path matches any ignore pattern, skip it
//  2. If follow patterns are set and the path matches none, skip it
//  3. Otherwise, crawl it
func (f *linkFilter) shouldCrawl(u *url.URL) bool {
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range f.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(f.followPatterns) > 0 {
		for _, pattern := range f.followPatterns {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}

	return true
}

// normalizeURL normalizes a URL for deduplication: the fragment is
// dropped, scheme and host are lowercased and an empty path becomes "/".
func normalizeURL(u *url.URL) string {
	n := *u
	n.Fragment = ""
	n.RawFragment = ""
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	if n.Path == "" && n.Opaque == "" {
		n.Path = "/"
	}
	return n.String()
}

// normalizeRawURL is normalizeURL for a string. Unparseable input is
// returned unchanged.
func normalizeRawURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return normalizeURL(u)
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard" and "/admin"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	// "/admin/*" also covers deeper paths such as "/admin/a/b".
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		ext := strings.TrimPrefix(pattern, "*")
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Patterns without a slash are matched against the last segment too.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}

// visitedSet records every URL ever enqueued during one crawl. It only
// grows. Add is the deduplication gate: a URL is enqueued only when Add
// reports a first insertion.
type visitedSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

func newVisitedSet() *visitedSet {
	return &visitedSet{urls: make(map[string]struct{})}
}

// Add inserts u and reports whether it was absent.
func (v *visitedSet) Add(u string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.urls[u]; ok {
		return false
	}
	v.urls[u] = struct{}{}
	return true
}

// Len returns the number of distinct URLs seen.
func (v *visitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.urls)
}
