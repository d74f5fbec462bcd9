package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/markcrawl/internal/model"
)

// defaultBatchConcurrency is used when no concurrency is configured.
const defaultBatchConcurrency = 4

// BatchResult is the outcome for one URL of a batch.
type BatchResult struct {
	// URL is the requested URL.
	URL string
	// Page is the converted page, nil on failure.
	Page *model.Page
	// Err is the pipeline error, nil on success.
	Err error
}

// BatchProcessor converts many URLs concurrently.
// It uses errgroup to manage goroutines and respect the concurrency limit.
type BatchProcessor struct {
	// pipelineFactory creates the pipeline for each URL.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent conversions.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent conversions.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called once per URL so that pipeline
// state never leaks between conversions.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     defaultBatchConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch converts every URL and returns one result per URL, in input
// order. A failed URL does not stop the others; the returned error is only
// set when the context ends.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string) ([]BatchResult, error) {
	results := make([]BatchResult, len(urls))
	err := bp.ProcessBatchWithCallback(ctx, urls, func(result BatchResult, index int) {
		// Each goroutine writes its own slot.
		results[index] = result
	})
	return results, err
}

// ProcessBatchWithCallback converts every URL and calls callback for each
// completed one. The callback runs on the goroutine that finished the URL,
// so it must be safe for concurrent use if it touches shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	urls []string,
	callback func(result BatchResult, index int),
) error {
	bp.logger.Info("starting batch conversion",
		"total_urls", len(urls),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range urls {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				callback(BatchResult{URL: target, Err: ctx.Err()}, i)
				return ctx.Err()
			default:
			}

			page := model.NewPage(target, 0)
			err := bp.pipelineFactory().Execute(ctx, page)
			if err != nil {
				bp.logger.Warn("conversion failed", "url", target, "error", err)
				callback(BatchResult{URL: target, Err: err}, i)
				// Other URLs keep going.
				return nil
			}

			callback(BatchResult{URL: target, Page: page}, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch conversion complete",
		"total_urls", len(urls),
		"elapsed", time.Since(startTime),
	)

	return err
}
