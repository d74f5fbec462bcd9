package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultListenAddress is where `markcrawl serve` listens.
	DefaultListenAddress = ":8080"

	// DefaultTimeout bounds a single HTTP request, retries excluded.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlLimit is the number of pages a CLI crawl returns when
	// --limit is not given. HTTP crawl requests must always carry a limit.
	DefaultCrawlLimit = 10

	// DefaultMaxDepth is the CLI crawl depth when --depth is not given.
	DefaultMaxDepth = 1

	// DefaultConcurrency of 1 selects the sequential crawl loop, whose
	// result order is the BFS order.
	DefaultConcurrency = 1

	// DefaultBatchSize is the number of URLs converted concurrently by
	// `markcrawl convert` when several URLs are given.
	DefaultBatchSize = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "markcrawl"

	// DefaultCrawlDelay is the politeness delay between crawl dispatches.
	DefaultCrawlDelay = 0 * time.Second

	// DefaultMaxBodySize limits the maximum response body size to read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultShutdownTimeout is how long the server waits for in-flight
	// requests after a shutdown signal.
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds all configuration options for markcrawl.
// It is populated from CLI flags and passed through the application via
// dependency injection rather than global state.
//
// A single flat struct is used instead of nested per-command structs; each
// command reads the fields it needs.
type Config struct {
	// ListenAddress is the "host:port" the HTTP server binds to.
	ListenAddress string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// CrawlLimit caps the number of pages a crawl returns.
	CrawlLimit int

	// MaxDepth is the deepest link distance from the seed that is fetched.
	MaxDepth int

	// Concurrency is the number of crawl workers. 1 runs the sequential loop.
	Concurrency int

	// FollowRelative resolves relative hrefs during a crawl.
	FollowRelative bool

	// MainContent runs readability extraction before conversion.
	MainContent bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of URLs converted concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .markcrawl in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the converter defaults and site-specific settings
	// loaded from the config file. Nil when no file was found.
	SiteConfigs *File

	// JSONReport prints the crawl summary as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the crawl summary as a Markdown report.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report or the converted
	// document. Directories are created automatically.
	ReportFile string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes every request through it.
	//
	// Note: The embedded Tor daemon takes 1-3 minutes to bootstrap.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor daemon
	// to start and bootstrap. Only used when UseTor is true.
	TorStartupTimeout time.Duration

	// DBDir is the directory path for storing the SQLite crawl history.
	// Defaults to XDG data directory (~/.local/share/markcrawl on Linux).
	DBDir string

	// SaveToDB stores every crawl in the history database.
	SaveToDB bool

	// CrawlDelay is the delay between crawl dispatches.
	CrawlDelay time.Duration

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default.
	MaxBodySize int64

	// FingerprintSeed seeds the browser fingerprint generator. Zero picks a
	// seed from the clock.
	FingerprintSeed uint64

	// ShutdownTimeout bounds graceful server shutdown.
	ShutdownTimeout time.Duration
}

// NewConfig creates a new Config with default values.
// A constructor is used instead of zero values because many defaults are
// non-zero. It also documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		ListenAddress:     DefaultListenAddress,
		Timeout:           DefaultTimeout,
		CrawlLimit:        DefaultCrawlLimit,
		MaxDepth:          DefaultMaxDepth,
		Concurrency:       DefaultConcurrency,
		BatchSize:         DefaultBatchSize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		CrawlDelay:        DefaultCrawlDelay,
		MaxBodySize:       DefaultMaxBodySize,
		ShutdownTimeout:   DefaultShutdownTimeout,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for markcrawl.
// On Linux: ~/.local/share/markcrawl
// On macOS: ~/Library/Application Support/markcrawl
// On Windows: %LOCALAPPDATA%\markcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for markcrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for markcrawl.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error, because fixing
// one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.CrawlLimit < 0 {
		return ErrInvalidCrawlLimit
	}

	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

// EffectiveMaxBodySize returns MaxBodySize, or the default when unset.
func (c *Config) EffectiveMaxBodySize() int64 {
	if c.MaxBodySize <= 0 {
		return DefaultMaxBodySize
	}
	return c.MaxBodySize
}
