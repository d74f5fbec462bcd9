package model

// CrawlRequest describes one breadth-first crawl.
type CrawlRequest struct {
	// URL is the absolute http(s) seed URL.
	URL string `json:"url"`

	// Limit caps the number of converted pages returned. Zero returns
	// nothing and fetches nothing.
	Limit int `json:"limit"`

	// MaxDepth is the deepest link distance from the seed that is fetched.
	// Zero fetches the seed only.
	MaxDepth int `json:"max_depth"`

	// Config is applied to every page of the crawl.
	Config ConvertConfig `json:"config"`

	// FollowRelative resolves relative hrefs against the page URL.
	// When false only absolute links are followed.
	FollowRelative bool `json:"follow_relative"`
}

// Validate checks the request bounds. The seed URL itself is validated by
// the crawler, which owns URL parsing rules.
func (r CrawlRequest) Validate() error {
	if r.URL == "" {
		return &InputError{Field: "url", Message: "is required"}
	}
	if r.Limit < 0 {
		return &InputError{Field: "limit", Message: "must be non-negative"}
	}
	if r.MaxDepth < 0 {
		return &InputError{Field: "max_depth", Message: "must be non-negative"}
	}
	return r.Config.Validate()
}
