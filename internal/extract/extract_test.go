package extract

import (
	"errors"
	"strings"
	"testing"
)

const articlePage = `<!DOCTYPE html>
<html><head><title>Field Notes</title></head>
<body>
  <div class="sidebar"><a href="/a">Sidebar junk</a> <a href="/b">More junk</a></div>
  <article>
    <h1>Field Notes</h1>
    <p>The river rose overnight and by morning the lower meadow had turned into a shallow lake,
    reflecting the grey sky and the line of poplars that marks the old property boundary.</p>
    <p>We walked the upper path instead, counting herons along the bank. There were eleven in total,
    most of them standing perfectly still in the shallows while the current pulled at the reeds.</p>
    <p>By noon the water had started to recede, leaving a thin film of silt on the grass and a smell
    of wet earth that hung over the valley until the wind picked up again in the late afternoon.</p>
  </article>
  <div class="footer">Copyright footer text</div>
</body></html>`

func TestMainContent(t *testing.T) {
	t.Parallel()

	article, err := MainContent(articlePage, "https://example.com/notes")
	if err != nil {
		t.Fatalf("MainContent() error = %v", err)
	}

	if !strings.Contains(article.Content, "counting herons") {
		t.Errorf("Content lost the article body: %q", article.Content)
	}
	if strings.Contains(article.Content, "Sidebar junk") {
		t.Errorf("Content kept the sidebar: %q", article.Content)
	}
	if article.Title != "Field Notes" {
		t.Errorf("Title = %q", article.Title)
	}
}

func TestMainContentErrors(t *testing.T) {
	t.Parallel()

	t.Run("invalid page URL", func(t *testing.T) {
		t.Parallel()

		if _, err := MainContent(articlePage, "://bad"); err == nil {
			t.Error("expected an error for an invalid URL")
		}
	})

	t.Run("empty document", func(t *testing.T) {
		t.Parallel()

		_, err := MainContent("<html><body></body></html>", "https://example.com/")
		if err == nil {
			t.Fatal("expected an error for an empty document")
		}
		if !errors.Is(err, ErrNoContent) && !strings.Contains(err.Error(), "readability") {
			t.Errorf("unexpected error %v", err)
		}
	})
}
