package main

import (
	"fmt"

	"github.com/nao1215/markcrawl/internal/config"
	"github.com/nao1215/markcrawl/internal/crawler"
	seclog "github.com/nao1215/markcrawl/internal/log"
	"github.com/nao1215/markcrawl/internal/pipeline"
	"github.com/nao1215/markcrawl/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion and crawl API over HTTP",
		Long: `Serve starts an HTTP server that converts pages on request.

Endpoints:
  GET  /{URL}          convert the page at URL (e.g., /https://example.com)
  GET  /?url={URL}     same, with the URL as a query parameter
  POST /               {"url": "...", "config": {...}}
  POST /crawl          {"url": "...", "limit": N, "max_depth": N, "follow_relative": true}

Converter flags set the defaults used when a request carries no config.
Requests are logged as JSON to stderr.

Examples:
  # Listen on port 3000
  markcrawl serve --listen :3000

  # Crawl with four workers per request
  markcrawl serve --concurrency 4`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addTransportFlags(cmd)
	addConvertFlags(cmd)

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"Address to listen on")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of pages fetched concurrently per crawl request")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Delay between page fetches of a crawl")
	cmd.Flags().Duration("shutdown-timeout", config.DefaultShutdownTimeout,
		"Time allowed for in-flight requests on shutdown")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if cfg.ListenAddress, err = flags.GetString("listen"); err != nil {
		return err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return err
	}
	if cfg.ShutdownTimeout, err = flags.GetDuration("shutdown-timeout"); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	defaults, err := convertConfig(cmd, cfg)
	if err != nil {
		return err
	}

	logger := seclog.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)

	ctx, stop := signalContext(cmd)
	defer stop()

	client, cleanup, err := newFetchClient(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	pageOptions := pipeline.PageOptions{
		MainContent: cfg.MainContent,
		Logger:      logger,
	}

	spider := crawler.NewSpider(
		crawler.NewPipelineFactory(client, pageOptions),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithDelay(cfg.CrawlDelay),
		crawler.WithSiteConfigs(cfg.SiteConfigs),
		crawler.WithLogger(logger),
	)

	srv := server.New(cfg.ListenAddress, client, spider,
		server.WithLogger(logger),
		server.WithPageOptions(pageOptions),
		server.WithDefaultConvertConfig(defaults),
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
	)

	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s\n", cfg.ListenAddress)
	return srv.Run(ctx)
}
