package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/markcrawl/internal/model"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Changes to defaults must be intentional: these tests fail when they drift.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default ListenAddress is :8080", func(t *testing.T) {
		t.Parallel()
		if cfg.ListenAddress != ":8080" {
			t.Errorf("expected ListenAddress to be ':8080', got '%s'", cfg.ListenAddress)
		}
	})

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default Concurrency selects the sequential crawl", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 1 {
			t.Errorf("expected Concurrency to be 1, got %d", cfg.Concurrency)
		}
	})

	t.Run("default crawl bounds", func(t *testing.T) {
		t.Parallel()
		if cfg.CrawlLimit != 10 || cfg.MaxDepth != 1 {
			t.Errorf("expected limit 10 depth 1, got %d/%d", cfg.CrawlLimit, cfg.MaxDepth)
		}
	})

	t.Run("default UseTor is false", func(t *testing.T) {
		t.Parallel()
		if cfg.UseTor {
			t.Error("expected UseTor to be false")
		}
	})

	t.Run("default TorStartupTimeout is 3 minutes", func(t *testing.T) {
		t.Parallel()
		if cfg.TorStartupTimeout != 3*time.Minute {
			t.Errorf("expected TorStartupTimeout to be 3m, got %v", cfg.TorStartupTimeout)
		}
	})

	t.Run("default DBDir is the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
	})
}

// TestConfigValidate tests the Validate method. Each case breaks one rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "defaults are valid", modify: func(*Config) {}},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative timeout", modify: func(c *Config) { c.Timeout = -time.Second }, wantErr: ErrInvalidTimeout},
		{name: "zero batch size", modify: func(c *Config) { c.BatchSize = 0 }, wantErr: ErrInvalidBatchSize},
		{name: "zero concurrency", modify: func(c *Config) { c.Concurrency = 0 }, wantErr: ErrInvalidConcurrency},
		{name: "negative limit", modify: func(c *Config) { c.CrawlLimit = -1 }, wantErr: ErrInvalidCrawlLimit},
		{name: "zero limit is valid", modify: func(c *Config) { c.CrawlLimit = 0 }},
		{name: "negative depth", modify: func(c *Config) { c.MaxDepth = -1 }, wantErr: ErrInvalidMaxDepth},
		{
			name:    "json and markdown both enabled",
			modify:  func(c *Config) { c.JSONReport, c.MarkdownReport = true, true },
			wantErr: ErrConflictingReportFormats,
		},
		{name: "json only is valid", modify: func(c *Config) { c.JSONReport = true }},
		{
			name:    "proxy and tor both enabled",
			modify:  func(c *Config) { c.ProxyAddress, c.UseTor = "127.0.0.1:9050", true },
			wantErr: ErrConflictingProxy,
		},
		{name: "negative crawl delay", modify: func(c *Config) { c.CrawlDelay = -time.Millisecond }, wantErr: ErrInvalidCrawlDelay},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEffectiveMaxBodySize(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.MaxBodySize = 0
	if got := cfg.EffectiveMaxBodySize(); got != DefaultMaxBodySize {
		t.Errorf("expected default %d, got %d", DefaultMaxBodySize, got)
	}
	cfg.MaxBodySize = 1024
	if got := cfg.EffectiveMaxBodySize(); got != 1024 {
		t.Errorf("expected 1024, got %d", got)
	}
}

// TestFileGetSiteConfig tests the GetSiteConfig method.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("returns defaults when site not found", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{
				Depth:  50,
				Cookie: "default_cookie=abc",
			},
			Sites: map[string]SiteConfig{},
		}

		cfg := file.GetSiteConfig("unknown.example.com")
		if cfg.Depth != 50 {
			t.Errorf("expected depth 50, got %d", cfg.Depth)
		}
		if cfg.Cookie != "default_cookie=abc" {
			t.Errorf("expected default cookie, got %q", cfg.Cookie)
		}
	})

	t.Run("returns site-specific config", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{Depth: 50, Cookie: "default_cookie=abc"},
			Sites: map[string]SiteConfig{
				"docs.example.com": {Depth: 3, Cookie: "session=xyz"},
			},
		}

		cfg := file.GetSiteConfig("docs.example.com")
		if cfg.Depth != 3 {
			t.Errorf("expected depth 3, got %d", cfg.Depth)
		}
		if cfg.Cookie != "session=xyz" {
			t.Errorf("expected site cookie, got %q", cfg.Cookie)
		}
	})

	t.Run("host lookup ignores case and port", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Sites: map[string]SiteConfig{
				"Docs.Example.com": {Cookie: "session=xyz"},
			},
		}

		if cfg := file.GetSiteConfig("docs.example.COM:8443"); cfg.Cookie != "session=xyz" {
			t.Errorf("expected site cookie, got %q", cfg.Cookie)
		}
	})

	t.Run("merges headers from defaults and site", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{
				Headers: map[string]string{"X-Default": "value1"},
			},
			Sites: map[string]SiteConfig{
				"docs.example.com": {
					Headers: map[string]string{"X-Custom": "value2"},
				},
			},
		}

		cfg := file.GetSiteConfig("docs.example.com")
		if cfg.Headers["X-Default"] != "value1" {
			t.Errorf("expected default header, got %v", cfg.Headers)
		}
		if cfg.Headers["X-Custom"] != "value2" {
			t.Errorf("expected custom header, got %v", cfg.Headers)
		}
		if _, leaked := file.Defaults.Headers["X-Custom"]; leaked {
			t.Error("site header leaked into defaults")
		}
	})

	t.Run("site headers override default headers", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{
				Headers: map[string]string{"Authorization": "default-token"},
			},
			Sites: map[string]SiteConfig{
				"docs.example.com": {
					Headers: map[string]string{"Authorization": "site-token"},
				},
			},
		}

		cfg := file.GetSiteConfig("docs.example.com")
		if cfg.Headers["Authorization"] != "site-token" {
			t.Errorf("expected site token to override, got %q", cfg.Headers["Authorization"])
		}
	})

	t.Run("site patterns override defaults", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{
				IgnorePatterns: []string{"/default/*"},
				FollowPatterns: []string{"/default-follow/*"},
			},
			Sites: map[string]SiteConfig{
				"docs.example.com": {
					IgnorePatterns: []string{"/admin/*"},
					FollowPatterns: []string{"/api/*"},
				},
			},
		}

		cfg := file.GetSiteConfig("docs.example.com")
		if len(cfg.IgnorePatterns) != 1 || cfg.IgnorePatterns[0] != "/admin/*" {
			t.Errorf("expected site ignore patterns, got %v", cfg.IgnorePatterns)
		}
		if len(cfg.FollowPatterns) != 1 || cfg.FollowPatterns[0] != "/api/*" {
			t.Errorf("expected site follow patterns, got %v", cfg.FollowPatterns)
		}
	})

	t.Run("nil sites map", func(t *testing.T) {
		t.Parallel()

		file := &File{Defaults: SiteConfig{Depth: 2}}
		if cfg := file.GetSiteConfig("docs.example.com"); cfg.Depth != 2 {
			t.Errorf("expected depth 2, got %d", cfg.Depth)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, content string) string {
		t.Helper()
		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		return configPath
	}

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.markcrawl")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := write(t, `convert:
  includeLinks: false
  maxHeadingLevel: 3
  cleaningRules:
    removeComments: false
defaults:
  cookie: "default=abc"
sites:
  docs.example.com:
    depth: 2
    cookie: "session=xyz"
    headers:
      Authorization: "Bearer token"
    ignorePatterns:
      - "/admin/*"
    followPatterns:
      - "/guide/*"
`)

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Convert.IncludeLinks {
			t.Error("expected includeLinks false")
		}
		if cfg.Convert.MaxHeadingLevel != 3 {
			t.Errorf("expected maxHeadingLevel 3, got %d", cfg.Convert.MaxHeadingLevel)
		}
		if cfg.Convert.CleaningRules.RemoveComments {
			t.Error("expected removeComments false")
		}
		// Keys absent from the file keep their defaults.
		if !cfg.Convert.IncludeMetadata || !cfg.Convert.CleaningRules.RemoveScripts {
			t.Errorf("expected absent keys to keep defaults, got %+v", cfg.Convert)
		}
		if cfg.Defaults.Cookie != "default=abc" {
			t.Errorf("expected default cookie, got %q", cfg.Defaults.Cookie)
		}

		site, ok := cfg.Sites["docs.example.com"]
		if !ok {
			t.Fatal("expected docs.example.com in sites")
		}
		if site.Depth != 2 {
			t.Errorf("expected site depth 2, got %d", site.Depth)
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Errorf("expected Authorization header")
		}
		if len(site.IgnorePatterns) != 1 || len(site.FollowPatterns) != 1 {
			t.Errorf("expected 1 ignore and 1 follow pattern, got %v %v", site.IgnorePatterns, site.FollowPatterns)
		}
	})

	t.Run("missing convert section keeps defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile(write(t, "defaults:\n  depth: 25\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Convert != model.DefaultConvertConfig() {
			t.Errorf("expected default convert config, got %+v", cfg.Convert)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})

	t.Run("rejects out-of-range heading level", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(write(t, "convert:\n  maxHeadingLevel: 9\n"))
		var inputErr *model.InputError
		if !errors.As(err, &inputErr) {
			t.Errorf("expected *model.InputError, got %v", err)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadConfigFile(write(t, `invalid: yaml: content: [}`)); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
		"cache":  XDGCacheDir(),
	} {
		if dir == "" {
			t.Errorf("%s dir is empty", name)
		}
		if filepath.Base(dir) != AppName {
			t.Errorf("%s dir %q does not end in %q", name, dir, AppName)
		}
	}
}
