package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nao1215/markcrawl/internal/config"
	"github.com/nao1215/markcrawl/internal/convert"
	"github.com/nao1215/markcrawl/internal/crawler"
	"github.com/nao1215/markcrawl/internal/model"
	"github.com/nao1215/markcrawl/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewConvertCmd creates the convert command.
func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [url]...",
		Short: "Convert one or more web pages to Markdown",
		Long: `Convert fetches each URL and prints its Markdown rendition.

Several URLs are converted concurrently and printed in argument order,
separated by horizontal rules. A URL without a scheme is fetched over https.

Examples:
  # Convert a single page
  markcrawl convert https://example.com

  # Convert several pages, four at a time, into one file
  markcrawl convert -o out.md https://a.example https://b.example

  # Keep only the main article content, without links
  markcrawl convert --main-content --no-links https://example.com/post

  # Convert a local HTML file, or stdin with "-"
  markcrawl convert --file page.html
  curl -s https://example.com | markcrawl convert --file -`,
		Args: cobra.ArbitraryArgs,
		RunE: runConvertCmd,
	}

	addTransportFlags(cmd)
	addConvertFlags(cmd)

	cmd.Flags().StringP("file", "f", "",
		"Convert a local HTML file instead of fetching (use - for stdin)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of URLs converted concurrently")
	cmd.Flags().StringP("output", "o", "",
		"Write Markdown to the specified file path (creates directories if needed)")

	return cmd
}

// runConvertCmd executes the convert command.
func runConvertCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	file, err := cmd.Flags().GetString("file")
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

	if file != "" {
		if len(args) > 0 {
			return errors.New("--file cannot be combined with URL arguments")
		}
		return convertFile(cmd, cfg, cc, file)
	}

	if len(args) == 0 {
		return errors.New("no URLs provided (specify one or more URLs, or --file)")
	}

	targets := make([]string, len(args))
	for i, arg := range args {
		targets[i] = normalizeTarget(arg)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	client, cleanup, err := newFetchClient(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	factory := func() *pipeline.Pipeline {
		return pipeline.NewPagePipeline(client, cc, pipeline.PageOptions{
			MainContent: cfg.MainContent,
			Logger:      logger,
		})
	}

	return convertURLs(ctx, cmd, cfg, factory, targets, logger)
}

// convertURLs converts targets and writes the documents in input order.
func convertURLs(ctx context.Context, cmd *cobra.Command, cfg *config.Config, factory func() *pipeline.Pipeline, targets []string, logger *slog.Logger) error {
	var (
		docs   []string
		failed int
		runErr error
	)

	if len(targets) == 1 {
		page := model.NewPage(targets[0], 0)
		if err := factory().Execute(ctx, page); err != nil {
			return fmt.Errorf("failed to convert %s: %w", targets[0], err)
		}
		docs = append(docs, page.Markdown)
	} else {
		bp := pipeline.NewBatchProcessor(factory,
			pipeline.WithConcurrency(cfg.BatchSize),
			pipeline.WithBatchLogger(logger),
		)
		var results []pipeline.BatchResult
		results, runErr = bp.ProcessBatch(ctx, targets)
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "Conversion error for %s: %v\n", r.URL, r.Err)
				continue
			}
			if r.Page != nil {
				docs = append(docs, r.Page.Markdown)
			}
		}
	}

	if len(docs) > 0 {
		if err := writeOutput(cmd, cfg.ReportFile, strings.Join(docs, crawler.PageSeparator)); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", failed, len(targets))
	}
	return nil
}

// convertFile converts a local HTML file, or stdin when path is "-".
func convertFile(cmd *cobra.Command, cfg *config.Config, cc model.ConvertConfig, path string) error {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path) //nolint:gosec // user-chosen input path
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	result, err := convert.ConvertReader(r, cc)
	if err != nil {
		return fmt.Errorf("failed to convert %s: %w", path, err)
	}
	return writeOutput(cmd, cfg.ReportFile, result.Markdown)
}

// writeOutput writes doc with a trailing newline to path or stdout.
func writeOutput(cmd *cobra.Command, path, doc string) error {
	w, closeFn, err := openOutput(cmd, path)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, doc+"\n"); err != nil {
		_ = closeFn() //nolint:errcheck // the write error wins
		return fmt.Errorf("failed to write output: %w", err)
	}
	return closeFn()
}

// normalizeTarget adds https:// to a bare host or path such as
// "example.com/docs".
func normalizeTarget(arg string) string {
	arg = strings.TrimSpace(arg)
	if strings.Contains(arg, "://") {
		return arg
	}
	return "https://" + arg
}
