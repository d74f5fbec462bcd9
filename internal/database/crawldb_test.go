package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/markcrawl/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func testPage(url string, depth int, markdown string) *model.Page {
	p := &model.Page{
		URL:         url,
		Depth:       depth,
		StatusCode:  200,
		ContentType: "text/html",
		Headers:     map[string][]string{"Server": {"test"}},
		Markdown:    markdown,
		Metadata:    &model.PageMetadata{Title: "Title of " + url},
		FetchedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	p.ComputeHash()
	return p
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns ErrNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		id, err := db.CreateSession(context.Background(), "https://example.com/", time.Now())
		if err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		s, err := db.FindSession(context.Background(), id)
		if err != nil {
			t.Fatalf("FindSession() error = %v", err)
		}
		if s.SeedURL != "https://example.com/" {
			t.Errorf("SeedURL = %q", s.SeedURL)
		}
	})
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	id, err := db.CreateSession(ctx, "https://example.com/", started)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if len(id) != 36 {
		t.Errorf("expected a UUID, got %q", id)
	}

	for _, p := range []*model.Page{
		testPage("https://example.com/", 0, "# Home"),
		testPage("https://example.com/a", 1, "# A"),
	} {
		if err := db.InsertPage(ctx, id, p); err != nil {
			t.Fatalf("InsertPage() error = %v", err)
		}
	}

	finished := started.Add(3 * time.Second)
	if err := db.FinishSession(ctx, id, finished, 1); err != nil {
		t.Fatalf("FinishSession() error = %v", err)
	}

	s, err := db.FindSession(ctx, id[:8])
	if err != nil {
		t.Fatalf("FindSession() error = %v", err)
	}
	if s.PageCount != 2 || s.FailedCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", s.PageCount, s.FailedCount)
	}
	if !s.StartedAt.Equal(started) || !s.FinishedAt.Equal(finished) {
		t.Errorf("times = %v..%v", s.StartedAt, s.FinishedAt)
	}

	pages, err := db.GetSessionPages(ctx, id)
	if err != nil {
		t.Fatalf("GetSessionPages() error = %v", err)
	}
	if len(pages) != 2 || pages[0].URL != "https://example.com/" || pages[1].Depth != 1 {
		t.Fatalf("pages = %+v", pages)
	}
	if pages[0].Title != "Title of https://example.com/" {
		t.Errorf("Title = %q", pages[0].Title)
	}
	if pages[0].Headers["Server"][0] != "test" {
		t.Errorf("Headers = %v", pages[0].Headers)
	}
}

func TestFinishSessionUnknown(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	err := db.FinishSession(context.Background(), "nope", time.Now(), 0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertPageUpsert(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	id, err := db.CreateSession(ctx, "https://example.com/", time.Now())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if err := db.InsertPage(ctx, id, testPage("https://example.com/", 0, "old")); err != nil {
		t.Fatalf("InsertPage() error = %v", err)
	}
	if err := db.InsertPage(ctx, id, testPage("https://example.com/", 0, "new")); err != nil {
		t.Fatalf("InsertPage() error = %v", err)
	}

	pages, err := db.GetSessionPages(ctx, id)
	if err != nil {
		t.Fatalf("GetSessionPages() error = %v", err)
	}
	if len(pages) != 1 || pages[0].Markdown != "new" {
		t.Errorf("pages = %+v", pages)
	}
}

func TestSaveCrawl(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	started := time.Now().Add(-time.Minute)

	pages := []*model.Page{
		testPage("https://example.com/", 0, "# Home"),
		testPage("https://example.com/b", 1, "# B"),
		testPage("https://example.com/c", 1, "# C"),
	}
	id, err := db.SaveCrawl(ctx, "https://example.com/", pages, 2, started, time.Now())
	if err != nil {
		t.Fatalf("SaveCrawl() error = %v", err)
	}

	s, err := db.FindSession(ctx, id)
	if err != nil {
		t.Fatalf("FindSession() error = %v", err)
	}
	if s.PageCount != 3 || s.FailedCount != 2 {
		t.Errorf("counts = %d/%d", s.PageCount, s.FailedCount)
	}

	page, err := db.GetPage(ctx, id, "https://example.com/c")
	if err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	if page.Markdown != "# C" || page.Hash != pages[2].Hash {
		t.Errorf("page = %+v", page)
	}

	if _, err := db.GetPage(ctx, id, "https://example.com/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListSessions(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := range 3 {
		id, err := db.CreateSession(ctx, "https://example.com/", base.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
		ids = append(ids, id)
	}

	all, err := db.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}
	if all[0].ID != ids[2] || all[2].ID != ids[0] {
		t.Errorf("sessions are not newest first")
	}

	limited, err := db.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(limited))
	}
}

func TestFindSession(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.FindSession(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty prefix: expected ErrNotFound, got %v", err)
	}
	if _, err := db.FindSession(ctx, "0000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown prefix: expected ErrNotFound, got %v", err)
	}

	for range 2 {
		if _, err := db.CreateSession(ctx, "https://example.com/", time.Now()); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}
	// An unescaped "%" would match both sessions.
	if _, err := db.FindSession(ctx, "%"); !errors.Is(err, ErrNotFound) {
		t.Errorf("literal percent: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	id, err := db.SaveCrawl(ctx, "https://example.com/",
		[]*model.Page{testPage("https://example.com/", 0, "# Home")}, 0, time.Now(), time.Now())
	if err != nil {
		t.Fatalf("SaveCrawl() error = %v", err)
	}

	if err := db.DeleteSession(ctx, id); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	pages, err := db.GetSessionPages(ctx, id)
	if err != nil {
		t.Fatalf("GetSessionPages() error = %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("pages were not cascaded, got %d", len(pages))
	}
	if err := db.DeleteSession(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestHasChanged(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	page := testPage("https://example.com/", 0, "# Home")
	changed, err := db.HasChanged(ctx, page)
	if err != nil {
		t.Fatalf("HasChanged() error = %v", err)
	}
	if !changed {
		t.Error("a never stored page should count as changed")
	}

	if _, err := db.SaveCrawl(ctx, page.URL, []*model.Page{page}, 0, time.Now(), time.Now()); err != nil {
		t.Fatalf("SaveCrawl() error = %v", err)
	}

	changed, err = db.HasChanged(ctx, testPage("https://example.com/", 0, "# Home"))
	if err != nil {
		t.Fatalf("HasChanged() error = %v", err)
	}
	if changed {
		t.Error("identical markdown should not count as changed")
	}

	changed, err = db.HasChanged(ctx, testPage("https://example.com/", 0, "# Home v2"))
	if err != nil {
		t.Fatalf("HasChanged() error = %v", err)
	}
	if !changed {
		t.Error("different markdown should count as changed")
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"stored layout", "2026-01-02T03:04:05.000000000Z", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"sqlite default", "2026-01-02 03:04:05", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"rfc3339", "2026-01-02T03:04:05Z", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"empty", "", time.Time{}},
		{"garbage", "yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	now := time.Now()
	if got := parseTimestamp(formatTimestamp(now)); !got.Equal(now.UTC().Truncate(time.Nanosecond)) {
		t.Errorf("round trip = %v, want %v", got, now)
	}
}
