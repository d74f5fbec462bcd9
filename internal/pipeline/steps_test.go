package pipeline

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/markcrawl/internal/fetch"
	"github.com/nao1215/markcrawl/internal/model"
)

// fakeFetcher serves canned bodies keyed by URL.
type fakeFetcher struct {
	pages       map[string]string
	contentType string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*fetch.Response, error) {
	body, ok := f.pages[url]
	if !ok {
		return nil, &fetch.Error{URL: url, Status: http.StatusNotFound, Kind: fetch.KindNotFound, Attempts: 1, Err: fetch.ErrNotFound}
	}
	ct := f.contentType
	if ct == "" {
		ct = "text/html; charset=utf-8"
	}
	return &fetch.Response{
		URL:         url,
		StatusCode:  http.StatusOK,
		Header:      http.Header{"Content-Type": []string{ct}},
		ContentType: ct,
		Body:        body,
		Attempts:    1,
		FetchedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

func TestFetchStep(t *testing.T) {
	t.Parallel()

	t.Run("fills the page", func(t *testing.T) {
		t.Parallel()

		step := NewFetchStep(&fakeFetcher{pages: map[string]string{"https://example.com/": "<p>hi</p>"}})
		page := model.NewPage("https://example.com/", 0)

		if err := step.Do(context.Background(), page); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if page.HTML != "<p>hi</p>" || page.StatusCode != http.StatusOK {
			t.Errorf("page = %+v", page)
		}
		if page.GetHeader("Content-Type") != "text/html; charset=utf-8" {
			t.Errorf("headers = %v", page.Headers)
		}
		if page.FetchedAt.IsZero() {
			t.Error("FetchedAt not set")
		}
	})

	t.Run("passes fetch errors through", func(t *testing.T) {
		t.Parallel()

		step := NewFetchStep(&fakeFetcher{})
		err := step.Do(context.Background(), model.NewPage("https://example.com/missing", 0))

		var fetchErr *fetch.Error
		if !errors.As(err, &fetchErr) || fetchErr.Kind != fetch.KindNotFound {
			t.Errorf("expected KindNotFound, got %v", err)
		}
	})

	t.Run("accepts any text media type", func(t *testing.T) {
		t.Parallel()

		step := NewFetchStep(&fakeFetcher{
			pages:       map[string]string{"https://example.com/notes.txt": "plain notes"},
			contentType: "text/plain; charset=utf-8",
		})
		page := model.NewPage("https://example.com/notes.txt", 0)
		if err := step.Do(context.Background(), page); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if page.HTML != "plain notes" || page.ContentType != "text/plain; charset=utf-8" {
			t.Errorf("page = %+v", page)
		}
	})
}

func TestConvertStep(t *testing.T) {
	t.Parallel()

	page := model.NewPage("https://example.com/", 0)
	page.HTML = `<html><head><title>Greeting</title></head><body><h1>Hi</h1><p>Hello <a href="/x">there</a></p></body></html>`

	if err := NewConvertStep(model.DefaultConvertConfig()).Do(context.Background(), page); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if page.Markdown != "# Greeting\n\n# Hi\n\nHello [there](/x)" {
		t.Errorf("Markdown = %q", page.Markdown)
	}
	if len(page.Links) != 1 || page.Links[0] != "/x" {
		t.Errorf("Links = %v", page.Links)
	}
	if page.Title() != "Greeting" {
		t.Errorf("Title() = %q", page.Title())
	}
	if len(page.Hash) != 64 {
		t.Errorf("Hash = %q", page.Hash)
	}
	if page.HTML != "" {
		t.Errorf("raw HTML kept after conversion: %q", page.HTML)
	}
}

func TestConvertStepRejectsBadConfig(t *testing.T) {
	t.Parallel()

	cfg := model.DefaultConvertConfig()
	cfg.MaxHeadingLevel = 7
	page := model.NewPage("https://example.com/", 0)
	page.HTML = "<p>x</p>"

	var inputErr *model.InputError
	if err := NewConvertStep(cfg).Do(context.Background(), page); !errors.As(err, &inputErr) {
		t.Errorf("expected *model.InputError, got %v", err)
	}
}

const longArticle = `<html><head><title>Notes</title></head><body>
<div class="sidebar"><a href="/menu">Sidebar junk</a></div>
<article>
<p>The river rose overnight and by morning the lower meadow had turned into a shallow lake,
reflecting the grey sky and the line of poplars that marks the old property boundary.</p>
<p>We walked the upper path instead, counting herons along the bank. There were eleven in total,
most of them standing perfectly still in the shallows while the current pulled at the reeds.</p>
<p>By noon the water had started to recede, leaving a thin film of silt on the grass and a smell
of wet earth that hung over the valley until the wind picked up again in the late afternoon.</p>
</article></body></html>`

func TestMainContentStep(t *testing.T) {
	t.Parallel()

	t.Run("keeps the head and the article", func(t *testing.T) {
		t.Parallel()

		page := model.NewPage("https://example.com/notes", 0)
		page.HTML = longArticle

		if err := NewMainContentStep().Do(context.Background(), page); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if !strings.Contains(page.HTML, "<title>Notes</title>") {
			t.Errorf("head was dropped: %q", page.HTML)
		}
		if !strings.Contains(page.HTML, "counting herons") {
			t.Errorf("article was dropped: %q", page.HTML)
		}
		if strings.Contains(page.HTML, "Sidebar junk") {
			t.Errorf("sidebar was kept: %q", page.HTML)
		}
	})

	t.Run("keeps the document when nothing is found", func(t *testing.T) {
		t.Parallel()

		page := model.NewPage("https://example.com/", 0)
		page.HTML = "<html><body></body></html>"

		if err := NewMainContentStep().Do(context.Background(), page); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if page.HTML != "<html><body></body></html>" {
			t.Errorf("HTML = %q", page.HTML)
		}
	})
}

func TestNewPagePipeline(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{"https://example.com/": "<h1>Hi</h1>"}}

	plain := NewPagePipeline(fetcher, model.DefaultConvertConfig(), PageOptions{})
	if got := plain.StepNames(); strings.Join(got, ",") != "fetch,convert" {
		t.Errorf("StepNames() = %v", got)
	}

	withMain := NewPagePipeline(fetcher, model.DefaultConvertConfig(), PageOptions{MainContent: true})
	if got := withMain.StepNames(); strings.Join(got, ",") != "fetch,main_content,convert" {
		t.Errorf("StepNames() = %v", got)
	}

	page := model.NewPage("https://example.com/", 0)
	if err := plain.Execute(context.Background(), page); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if page.Markdown != "# Hi" {
		t.Errorf("Markdown = %q", page.Markdown)
	}
}
