package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/markcrawl/internal/convert"
	"github.com/nao1215/markcrawl/internal/extract"
	"github.com/nao1215/markcrawl/internal/fetch"
	"github.com/nao1215/markcrawl/internal/model"
)

// Fetcher retrieves one URL. *fetch.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Response, error)
}

// FetchStep downloads the page and stores the decoded body.
type FetchStep struct {
	fetcher Fetcher
}

// NewFetchStep creates a new fetch step.
func NewFetchStep(fetcher Fetcher) *FetchStep {
	return &FetchStep{fetcher: fetcher}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do executes the fetch step.
func (s *FetchStep) Do(ctx context.Context, page *model.Page) error {
	resp, err := s.fetcher.Fetch(ctx, page.URL)
	if err != nil {
		return err
	}

	page.StatusCode = resp.StatusCode
	page.Headers = resp.Header
	page.ContentType = resp.ContentType
	page.HTML = resp.Body
	page.FetchedAt = resp.FetchedAt
	return nil
}

// MainContentStep replaces the page body with its readable main content.
// The document head is kept so metadata extraction still sees it. When no
// main content is found the full document is converted.
type MainContentStep struct {
	logger *slog.Logger
}

// MainContentStepOption configures a MainContentStep.
type MainContentStepOption func(*MainContentStep)

// WithMainContentLogger sets a custom logger for the step.
func WithMainContentLogger(logger *slog.Logger) MainContentStepOption {
	return func(s *MainContentStep) {
		s.logger = logger
	}
}

// NewMainContentStep creates a new main-content step.
func NewMainContentStep(opts ...MainContentStepOption) *MainContentStep {
	s := &MainContentStep{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *MainContentStep) Name() string {
	return "main_content"
}

// Do executes the main-content step.
func (s *MainContentStep) Do(_ context.Context, page *model.Page) error {
	article, err := extract.MainContent(page.HTML, page.URL)
	if err != nil {
		s.logger.Debug("main content extraction skipped", "url", page.URL, "error", err)
		return nil
	}

	head := ""
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML)); err == nil {
		head, _ = goquery.OuterHtml(doc.Find("head").First()) //nolint:errcheck // empty head is fine
	}

	page.HTML = "<html>" + head + "<body>" + article.Content + "</body></html>"
	return nil
}

// ConvertStep renders the page body to Markdown.
type ConvertStep struct {
	cfg model.ConvertConfig
}

// NewConvertStep creates a new convert step. The configuration is applied
// to every page.
func NewConvertStep(cfg model.ConvertConfig) *ConvertStep {
	return &ConvertStep{cfg: cfg}
}

// Name returns the step name.
func (s *ConvertStep) Name() string {
	return "convert"
}

// Do executes the convert step.
func (s *ConvertStep) Do(_ context.Context, page *model.Page) error {
	result, err := convert.Convert(page.HTML, s.cfg)
	if err != nil {
		return err
	}

	page.Markdown = result.Markdown
	page.Links = result.Links
	page.Metadata = result.Metadata
	page.ComputeHash()
	// The raw body is not needed once converted.
	page.HTML = ""
	return nil
}

// PageOptions selects the optional steps of a page pipeline.
type PageOptions struct {
	// MainContent inserts a MainContentStep between fetch and convert.
	MainContent bool

	// Logger is used by the pipeline and its steps. Nil means slog.Default().
	Logger *slog.Logger
}

// NewPagePipeline assembles the standard fetch → [main content] → convert
// pipeline.
func NewPagePipeline(fetcher Fetcher, cfg model.ConvertConfig, opts PageOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := New(WithLogger(logger))
	p.AddStep(NewFetchStep(fetcher))
	if opts.MainContent {
		p.AddStep(NewMainContentStep(WithMainContentLogger(logger)))
	}
	p.AddStep(NewConvertStep(cfg))
	return p
}
