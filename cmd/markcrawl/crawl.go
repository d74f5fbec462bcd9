package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/markcrawl/internal/config"
	"github.com/nao1215/markcrawl/internal/crawler"
	"github.com/nao1215/markcrawl/internal/database"
	"github.com/nao1215/markcrawl/internal/model"
	"github.com/nao1215/markcrawl/internal/pipeline"
	"github.com/nao1215/markcrawl/internal/report"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url]",
		Short: "Crawl a site breadth-first and convert every page to Markdown",
		Long: `Crawl starts at a seed URL and follows links breadth-first within the
seed's scheme and host, converting every page to Markdown.

Pages are printed in crawl order, separated by horizontal rules. With
--json or --markdown a crawl report is printed instead.

Links are discovered from the rendered Markdown, so --no-links stops the
crawl at the seed. Relative links are only followed with --follow-relative.

Examples:
  # Crawl up to 20 pages, two links deep
  markcrawl crawl --limit 20 --depth 2 --follow-relative https://example.com/docs/

  # Crawl with four workers and a polite delay
  markcrawl crawl -n 4 --delay 500ms -r https://example.com

  # Skip API pages, save the crawl to history and print a JSON report
  markcrawl crawl -r --ignore "/api/*" --save --json https://example.com

Configuration file (.markcrawl) example:
  sites:
    docs.example.com:
      cookie: "session=abc123"
      depth: 3
      ignorePatterns:
        - "/private/*"`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	addTransportFlags(cmd)
	addConvertFlags(cmd)

	// Crawl behavior flags
	cmd.Flags().IntP("limit", "l", config.DefaultCrawlLimit,
		"Maximum number of pages to convert")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the seed (0 converts the seed only)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of pages fetched concurrently (1 keeps breadth-first order)")
	cmd.Flags().BoolP("follow-relative", "r", false,
		"Follow relative links")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Delay between page fetches")
	cmd.Flags().StringSlice("ignore", nil,
		"URL path patterns to skip (repeatable)")
	cmd.Flags().StringSlice("follow", nil,
		"URL path patterns to follow; when set, only matching paths are crawled (repeatable)")

	// History flags
	cmd.Flags().Bool("save", false,
		"Save the crawl to the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	// Output flags
	cmd.Flags().BoolP("json", "j", false,
		"Print a JSON crawl report including page content (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print a Markdown crawl report (mutually exclusive with --json)")
	cmd.Flags().BoolP("summary", "s", false,
		"Print a text summary of the crawl to stderr")
	cmd.Flags().StringP("output", "o", "",
		"Write output to the specified file path (creates directories if needed)")

	return cmd
}

// crawlOptions holds the crawl command flags that have no Config field.
type crawlOptions struct {
	ignore  []string
	follow  []string
	summary bool
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, opts, err := buildCrawlConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	cc, err := convertConfig(cmd, cfg)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)

	ctx, stop := signalContext(cmd)
	defer stop()

	client, cleanup, err := newFetchClient(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	spider := crawler.NewSpider(
		crawler.NewPipelineFactory(client, pipeline.PageOptions{
			MainContent: cfg.MainContent,
			Logger:      logger,
		}),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithDelay(cfg.CrawlDelay),
		crawler.WithSiteConfigs(cfg.SiteConfigs),
		crawler.WithIgnorePatterns(opts.ignore),
		crawler.WithFollowPatterns(opts.follow),
		crawler.WithLogger(logger),
	)

	req := model.CrawlRequest{
		URL:            normalizeTarget(args[0]),
		Limit:          cfg.CrawlLimit,
		MaxDepth:       cfg.MaxDepth,
		Config:         cc,
		FollowRelative: cfg.FollowRelative,
	}

	return runCrawl(ctx, cmd, cfg, opts, spider, req, logger)
}

// buildCrawlConfig reads the shared flags and the crawl-specific ones.
func buildCrawlConfig(cmd *cobra.Command) (*config.Config, crawlOptions, error) {
	var opts crawlOptions

	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, opts, err
	}

	flags := cmd.Flags()
	if cfg.CrawlLimit, err = flags.GetInt("limit"); err != nil {
		return nil, opts, err
	}
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, opts, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, opts, err
	}
	if cfg.FollowRelative, err = flags.GetBool("follow-relative"); err != nil {
		return nil, opts, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, opts, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, opts, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, opts, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, opts, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, opts, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, opts, err
	}
	if opts.ignore, err = flags.GetStringSlice("ignore"); err != nil {
		return nil, opts, err
	}
	if opts.follow, err = flags.GetStringSlice("follow"); err != nil {
		return nil, opts, err
	}
	if opts.summary, err = flags.GetBool("summary"); err != nil {
		return nil, opts, err
	}

	return cfg, opts, nil
}

// runCrawl performs the crawl, saves it and writes the output.
func runCrawl(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts crawlOptions, spider *crawler.Spider, req model.CrawlRequest, logger *slog.Logger) error {
	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Crawling %s (limit %d, depth %d)...\n", req.URL, req.Limit, req.MaxDepth)

	result, crawlErr := spider.Crawl(ctx, req)
	if result == nil {
		return crawlErr
	}

	fmt.Fprintf(stderr, "Crawl completed in %s: %d page(s), %d failure(s)\n",
		result.Duration().Round(time.Millisecond), len(result.Pages), len(result.Failures))

	var sessionID string
	if cfg.SaveToDB {
		// Partial results of an interrupted crawl are saved too.
		id, err := saveCrawl(context.WithoutCancel(ctx), stderr, cfg.DBDir, result, logger)
		if err != nil {
			logger.Error("failed to save crawl", "seed", result.Seed, "error", err)
		}
		sessionID = id
	}

	rep := report.NewCrawlReport(result, crawlErr,
		report.WithSessionID(sessionID),
		report.WithContent(cfg.JSONReport),
	)

	if err := outputCrawl(cmd, cfg, result, rep); err != nil {
		return err
	}

	if opts.summary {
		if _, err := report.NewSimpleWriter(stderr, report.WithVerbose(cfg.Verbose)).Write(rep); err != nil {
			logger.Error("summary failed", "error", err)
		}
	}

	if crawlErr != nil {
		return fmt.Errorf("crawl interrupted: %w", crawlErr)
	}
	return nil
}

// outputCrawl writes the requested report, or the joined page documents.
func outputCrawl(cmd *cobra.Command, cfg *config.Config, result *crawler.Result, rep *report.CrawlReport) error {
	if !cfg.JSONReport && !cfg.MarkdownReport && len(result.Pages) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "Crawl completed, but no results were generated.")
		return nil
	}

	w, closeFn, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}

	switch {
	case cfg.JSONReport:
		_, err = report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion())).Write(rep)
	case cfg.MarkdownReport:
		_, err = report.NewMarkdownWriter(w).Write(rep)
	default:
		_, err = io.WriteString(w, result.Markdown()+"\n")
	}

	return errors.Join(err, closeFn())
}

// saveCrawl stores result in the history database and reports how many
// pages changed since they were last stored.
func saveCrawl(ctx context.Context, stderr io.Writer, dbDir string, result *crawler.Result, logger *slog.Logger) (string, error) {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	changed := 0
	for _, page := range result.Pages {
		ok, err := db.HasChanged(ctx, page)
		if err != nil {
			return "", fmt.Errorf("failed to compare page %s: %w", page.URL, err)
		}
		if ok {
			changed++
		}
	}

	id, err := db.SaveCrawl(ctx, result.Seed, result.Pages, len(result.Failures), result.StartedAt, result.FinishedAt)
	if err != nil {
		return "", err
	}

	logger.Info("crawl saved to database", "crawl_id", id, "path", db.Path())
	fmt.Fprintf(stderr, "Saved crawl %s (%d of %d page(s) changed since the last crawl)\n",
		id, changed, len(result.Pages))
	return id, nil
}
