package report

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/markcrawl/internal/crawler"
	"github.com/nao1215/markcrawl/internal/fetch"
)

// Status is the overall outcome of a crawl.
type Status string

const (
	// StatusComplete means the frontier was exhausted or the limit reached.
	StatusComplete Status = "complete"
	// StatusCancelled means the crawl was interrupted.
	StatusCancelled Status = "cancelled"
	// StatusTimedOut means the crawl deadline expired.
	StatusTimedOut Status = "timed out"
	// StatusError means the crawl stopped with an error.
	StatusError Status = "error"
)

// CrawlReport summarizes one crawl for output.
type CrawlReport struct {
	// Seed is the normalized seed URL.
	Seed string `json:"seed"`

	// SessionID is the history session the crawl was stored under, if any.
	SessionID string `json:"session_id,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Duration is the wall time rendered as a Go duration string.
	Duration string `json:"duration"`

	Status Status `json:"status"`

	// Error holds the crawl error when Status is not complete.
	Error string `json:"error,omitempty"`

	// Discovered counts distinct URLs enqueued, the seed included.
	Discovered int `json:"discovered"`

	Pages    []PageSummary    `json:"pages"`
	Failures []FailureSummary `json:"failures"`
}

// PageSummary describes one converted page.
type PageSummary struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
	Title string `json:"title,omitempty"`
	// Words is the number of whitespace separated words in the Markdown.
	Words int    `json:"words"`
	Links int    `json:"links"`
	Hash  string `json:"hash"`
	// Markdown is only set when the report includes content.
	Markdown string `json:"markdown,omitempty"`
}

// FailureSummary describes one skipped page.
type FailureSummary struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
	// Kind classifies the failure, e.g. "not found" or "rate limited".
	Kind   string `json:"kind"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error"`
}

// DepthCount is the number of pages converted at one depth.
type DepthCount struct {
	Depth int `json:"depth"`
	Pages int `json:"pages"`
}

// Option configures NewCrawlReport.
type Option func(*reportOptions)

type reportOptions struct {
	content   bool
	sessionID string
}

// WithContent includes the Markdown of every page.
func WithContent(include bool) Option {
	return func(o *reportOptions) {
		o.content = include
	}
}

// WithSessionID records the history session ID.
func WithSessionID(id string) Option {
	return func(o *reportOptions) {
		o.sessionID = id
	}
}

// NewCrawlReport builds a report from a crawl result. crawlErr is the error
// returned by Crawl alongside the result, and decides the status.
func NewCrawlReport(result *crawler.Result, crawlErr error, opts ...Option) *CrawlReport {
	var o reportOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := &CrawlReport{
		Seed:       result.Seed,
		SessionID:  o.sessionID,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Duration:   result.Duration().Round(time.Millisecond).String(),
		Status:     statusOf(crawlErr),
		Discovered: result.Discovered,
		Pages:      make([]PageSummary, 0, len(result.Pages)),
		Failures:   make([]FailureSummary, 0, len(result.Failures)),
	}
	if crawlErr != nil {
		r.Error = crawlErr.Error()
	}

	for _, p := range result.Pages {
		s := PageSummary{
			URL:   p.URL,
			Depth: p.Depth,
			Title: p.Title(),
			Words: len(strings.Fields(p.Markdown)),
			Links: len(p.Links),
			Hash:  p.Hash,
		}
		if o.content {
			s.Markdown = p.Markdown
		}
		r.Pages = append(r.Pages, s)
	}

	for _, f := range result.Failures {
		kind, status := classifyFailure(f.Err)
		r.Failures = append(r.Failures, FailureSummary{
			URL:    f.URL,
			Depth:  f.Depth,
			Kind:   kind,
			Status: status,
			Error:  f.Err.Error(),
		})
	}

	return r
}

func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusComplete
	case errors.Is(err, context.Canceled):
		return StatusCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimedOut
	default:
		return StatusError
	}
}

func classifyFailure(err error) (string, int) {
	var fetchErr *fetch.Error
	switch {
	case errors.As(err, &fetchErr):
		return fetchErr.Kind.String(), fetchErr.Status
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout", 0
	default:
		return "other", 0
	}
}

// TotalWords sums the words of all pages.
func (r *CrawlReport) TotalWords() int {
	total := 0
	for _, p := range r.Pages {
		total += p.Words
	}
	return total
}

// DepthCounts returns the number of pages per depth, shallowest first.
func (r *CrawlReport) DepthCounts() []DepthCount {
	counts := make(map[int]int)
	for _, p := range r.Pages {
		counts[p.Depth]++
	}

	result := make([]DepthCount, 0, len(counts))
	for depth, n := range counts {
		result = append(result, DepthCount{Depth: depth, Pages: n})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Depth < result[j].Depth
	})
	return result
}

// FailuresByKind groups failures by kind. Kinds are returned in
// alphabetical order.
func (r *CrawlReport) FailuresByKind() ([]string, map[string][]FailureSummary) {
	groups := make(map[string][]FailureSummary)
	for _, f := range r.Failures {
		groups[f.Kind] = append(groups[f.Kind], f)
	}

	kinds := make([]string, 0, len(groups))
	for k := range groups {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds, groups
}

// HasFailures reports whether any page was skipped.
func (r *CrawlReport) HasFailures() bool {
	return len(r.Failures) > 0
}
