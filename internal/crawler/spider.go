package crawler

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/markcrawl/internal/config"
	"github.com/nao1215/markcrawl/internal/fetch"
	"github.com/nao1215/markcrawl/internal/model"
	"github.com/nao1215/markcrawl/internal/pipeline"
)

// ErrInvalidSeedURL is wrapped by the InputError returned for a seed that
// is not an absolute http(s) URL.
var ErrInvalidSeedURL = errors.New("invalid seed URL")

// Processor fetches and converts one page in place.
// *pipeline.Pipeline satisfies it.
type Processor interface {
	Execute(ctx context.Context, page *model.Page) error
}

// ProcessorFactory builds the Processor used for every page of a crawl.
// It receives the conversion settings of the crawl request.
type ProcessorFactory func(cfg model.ConvertConfig) Processor

// NewPipelineFactory returns a ProcessorFactory that builds the standard
// fetch, extract and convert pipeline around fetcher.
func NewPipelineFactory(fetcher pipeline.Fetcher, opts pipeline.PageOptions) ProcessorFactory {
	return func(cfg model.ConvertConfig) Processor {
		return pipeline.NewPagePipeline(fetcher, cfg, opts)
	}
}

// Spider performs breadth-first crawls.
// A Spider holds no per-crawl state and can run several crawls at once.
type Spider struct {
	// factory builds the page processor of each crawl.
	factory ProcessorFactory

	// concurrency is the number of pages processed at once.
	// 1 gives strict breadth-first order.
	concurrency int

	// delay is the minimum time between two fetch starts.
	delay time.Duration

	// sites holds per-site depth limits and URL patterns.
	sites *config.File

	// ignorePatterns are URL path patterns skipped on every site.
	// Patterns use glob syntax (e.g., "/admin/*", "*.pdf").
	ignorePatterns []string

	// followPatterns restrict every crawl to matching paths.
	// Empty means all paths are allowed (subject to ignorePatterns).
	followPatterns []string

	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithConcurrency sets the number of pages processed at once.
// Values below 1 are ignored.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDelay sets the minimum delay between fetch starts.
func WithDelay(delay time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = delay
	}
}

// WithSiteConfigs sets the per-site configuration.
func WithSiteConfigs(sites *config.File) SpiderOption {
	return func(s *Spider) {
		s.sites = sites
	}
}

// WithIgnorePatterns sets URL patterns to skip during crawling.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL patterns to follow during crawling.
// If set, only URLs whose path matches one of these patterns are crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider that processes pages with processors built by
// factory.
func NewSpider(factory ProcessorFactory, opts ...SpiderOption) *Spider {
	s := &Spider{
		factory:     factory,
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Failure records a page that could not be fetched or converted.
type Failure struct {
	URL   string
	Depth int
	Err   error
}

// Result is the outcome of one crawl.
type Result struct {
	// Seed is the normalized seed URL.
	Seed string

	// Pages are the converted pages. With concurrency 1 they are in
	// breadth-first order, otherwise in completion order.
	Pages []*model.Page

	// Failures are the pages skipped because of an error.
	Failures []Failure

	// Discovered counts distinct URLs enqueued, the seed included.
	Discovered int

	StartedAt  time.Time
	FinishedAt time.Time
}

// PageSeparator joins page documents in Markdown.
const PageSeparator = "\n\n---\n\n"

// Documents returns the Markdown of every page in result order.
func (r *Result) Documents() []string {
	docs := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		docs = append(docs, p.Markdown)
	}
	return docs
}

// Markdown joins all page documents with PageSeparator.
func (r *Result) Markdown() string {
	return strings.Join(r.Documents(), PageSeparator)
}

// Duration returns the wall time of the crawl.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

type entry struct {
	url   string
	depth int
}

// crawl is the state of one Crawl call.
type crawl struct {
	spider    *Spider
	processor Processor
	filter    *linkFilter
	limit     int
	maxDepth  int
	visited   *visitedSet
	queue     []entry
	result    *Result
	logger    *slog.Logger
}

// Crawl performs a breadth-first crawl starting at req.URL.
//
// At most req.Limit pages are returned and a page is never fetched twice.
// Pages that fail are logged, recorded in Result.Failures and skipped.
// When ctx ends, the pages converted so far are returned together with
// the context error.
func (s *Spider) Crawl(ctx context.Context, req model.CrawlRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	seed, err := parseSeed(req.URL)
	if err != nil {
		return nil, err
	}

	site := s.siteConfig(seed.Host)
	maxDepth := req.MaxDepth
	if site.Depth > 0 && site.Depth < maxDepth {
		maxDepth = site.Depth
	}

	c := &crawl{
		spider:    s,
		processor: s.factory(req.Config),
		filter: &linkFilter{
			seed:           seed,
			followRelative: req.FollowRelative,
			ignorePatterns: append(append([]string(nil), s.ignorePatterns...), site.IgnorePatterns...),
			followPatterns: append(append([]string(nil), s.followPatterns...), site.FollowPatterns...),
		},
		limit:    req.Limit,
		maxDepth: maxDepth,
		visited:  newVisitedSet(),
		result:   &Result{StartedAt: time.Now()},
		logger:   s.logger.With("seed", seed.String()),
	}

	start := normalizeURL(seed)
	c.result.Seed = start
	c.visited.Add(start)
	c.queue = append(c.queue, entry{url: start, depth: 0})

	c.logger.Info("crawl started",
		"limit", c.limit,
		"max_depth", c.maxDepth,
		"concurrency", s.concurrency,
	)

	if s.concurrency <= 1 {
		err = c.runSequential(ctx)
	} else {
		err = c.runConcurrent(ctx)
	}

	c.result.Discovered = c.visited.Len()
	c.result.FinishedAt = time.Now()

	c.logger.Info("crawl finished",
		"pages", len(c.result.Pages),
		"failures", len(c.result.Failures),
		"discovered", c.result.Discovered,
		"duration", c.result.Duration(),
	)

	return c.result, err
}

func (s *Spider) siteConfig(host string) config.SiteConfig {
	if s.sites == nil {
		return config.SiteConfig{}
	}
	return s.sites.GetSiteConfig(host)
}

// parseSeed accepts only absolute http(s) URLs with a host.
func parseSeed(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &model.InputError{Field: "url", Message: "cannot be parsed", Err: errors.Join(ErrInvalidSeedURL, err)}
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, &model.InputError{Field: "url", Message: "must use http or https", Err: ErrInvalidSeedURL}
	}
	if u.Host == "" {
		return nil, &model.InputError{Field: "url", Message: "must include a host", Err: ErrInvalidSeedURL}
	}
	return u, nil
}

// runSequential processes the queue one page at a time.
func (c *crawl) runSequential(ctx context.Context) error {
	fetched := 0
	for len(c.queue) > 0 && len(c.result.Pages) < c.limit {
		if err := ctx.Err(); err != nil {
			return err
		}

		e := c.queue[0]
		c.queue = c.queue[1:]

		if fetched > 0 && c.spider.delay > 0 {
			if err := fetch.SleepContext(ctx, c.spider.delay); err != nil {
				return err
			}
		}
		fetched++

		page, err := c.visit(ctx, e)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			c.fail(e, err)
			continue
		}
		c.accept(page)
	}
	return ctx.Err()
}

type outcome struct {
	entry entry
	page  *model.Page
	err   error
}

// runConcurrent dispatches queue entries to a fixed set of workers.
// Entries are only dispatched while accepted plus in-flight pages stay
// under the limit, so no page is fetched that could never be returned.
func (c *crawl) runConcurrent(ctx context.Context) error {
	jobs := make(chan entry)
	done := make(chan outcome)

	g, gctx := errgroup.WithContext(ctx)
	for range c.spider.concurrency {
		g.Go(func() error {
			for e := range jobs {
				page, err := c.visit(gctx, e)
				select {
				case done <- outcome{entry: e, page: page, err: err}:
				case <-gctx.Done():
					return nil
				}
			}
			return nil
		})
	}

	var (
		runErr       error
		inFlight     int
		dispatched   int
		lastDispatch time.Time
	)

loop:
	for {
		canDispatch := len(c.queue) > 0 && len(c.result.Pages)+inFlight < c.limit
		if !canDispatch && inFlight == 0 {
			break
		}

		var (
			sendCh chan<- entry
			next   entry
			timer  *time.Timer
			waitC  <-chan time.Time
		)
		if canDispatch {
			wait := time.Duration(0)
			if dispatched > 0 && c.spider.delay > 0 {
				wait = c.spider.delay - time.Since(lastDispatch)
			}
			if wait > 0 {
				timer = time.NewTimer(wait)
				waitC = timer.C
			} else {
				sendCh = jobs
				next = c.queue[0]
			}
		}

		select {
		case sendCh <- next:
			c.queue = c.queue[1:]
			inFlight++
			dispatched++
			lastDispatch = time.Now()
		case <-waitC:
		case o := <-done:
			inFlight--
			switch {
			case o.err != nil:
				if ctx.Err() == nil {
					c.fail(o.entry, o.err)
				}
			case len(c.result.Pages) < c.limit:
				c.accept(o.page)
			}
		case <-ctx.Done():
			runErr = ctx.Err()
		}

		if timer != nil {
			timer.Stop()
		}
		if runErr != nil {
			break loop
		}
	}

	close(jobs)
	_ = g.Wait()

	if runErr != nil {
		return runErr
	}
	return ctx.Err()
}

// visit runs the processor for one queue entry.
func (c *crawl) visit(ctx context.Context, e entry) (*model.Page, error) {
	c.logger.Debug("fetching page", "url", e.url, "depth", e.depth)

	page := model.NewPage(e.url, e.depth)
	if err := c.processor.Execute(ctx, page); err != nil {
		return nil, err
	}
	return page, nil
}

func (c *crawl) fail(e entry, err error) {
	c.logger.Warn("skipping page",
		"url", e.url,
		"depth", e.depth,
		"error", err,
	)
	c.result.Failures = append(c.result.Failures, Failure{URL: e.url, Depth: e.depth, Err: err})
}

// accept stores a converted page and enqueues its links when the page is
// above the depth limit.
func (c *crawl) accept(page *model.Page) {
	c.result.Pages = append(c.result.Pages, page)

	if page.Depth >= c.maxDepth {
		return
	}

	base, err := url.Parse(page.URL)
	if err != nil {
		return
	}

	for _, href := range page.Links {
		link, ok := c.filter.accept(base, href)
		if !ok {
			continue
		}
		if c.visited.Add(link) {
			c.queue = append(c.queue, entry{url: link, depth: page.Depth + 1})
		}
	}
}
