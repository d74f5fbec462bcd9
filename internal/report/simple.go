package report

import (
	"fmt"
	"io"
	"strings"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose lists every page, not only the totals.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writePages(&sb, report)
	w.writeFailures(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         MARKCRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed:       %s\n", report.Seed)
	fmt.Fprintf(sb, "Started:    %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:   %s\n", report.Duration)
	if report.SessionID != "" {
		fmt.Fprintf(sb, "Session:    %s\n", report.SessionID)
	}

	switch report.Status {
	case StatusComplete:
		sb.WriteString("Status:     Complete\n")
	case StatusError:
		fmt.Fprintf(sb, "Status:     ERROR - %s\n", report.Error)
	default:
		fmt.Fprintf(sb, "Status:     %s (partial results)\n", strings.ToUpper(string(report.Status)))
	}

	sb.WriteString("\n")
}

// writeSummary writes the totals.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *CrawlReport) {
	w.writeSection(sb, "SUMMARY")

	fmt.Fprintf(sb, "  PAGES:      %d\n", len(report.Pages))
	fmt.Fprintf(sb, "  FAILURES:   %d\n", len(report.Failures))
	fmt.Fprintf(sb, "  DISCOVERED: %d\n", report.Discovered)
	fmt.Fprintf(sb, "  WORDS:      %d\n", report.TotalWords())
	sb.WriteString("\n")

	for _, dc := range report.DepthCounts() {
		fmt.Fprintf(sb, "  depth %d: %d page(s)\n", dc.Depth, dc.Pages)
	}
	if len(report.Pages) > 0 {
		sb.WriteString("\n")
	}
}

// writePages lists converted pages in verbose mode.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *CrawlReport) {
	if !w.verbose {
		return
	}
	if len(report.Pages) == 0 && !w.showEmpty {
		return
	}

	w.writeSection(sb, "PAGES")

	if len(report.Pages) == 0 {
		sb.WriteString("  No pages converted\n\n")
		return
	}

	for _, p := range report.Pages {
		fmt.Fprintf(sb, "  [+] %s\n", p.URL)
		if p.Title != "" {
			fmt.Fprintf(sb, "      Title: %s\n", p.Title)
		}
		fmt.Fprintf(sb, "      Depth: %d  Words: %d  Links: %d\n", p.Depth, p.Words, p.Links)
	}
	sb.WriteString("\n")
}

// writeFailures writes failures grouped by kind.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *CrawlReport) {
	if !report.HasFailures() && !w.showEmpty {
		return
	}

	w.writeSection(sb, "FAILURES")

	if !report.HasFailures() {
		sb.WriteString("  No failures\n\n")
		return
	}

	kinds, groups := report.FailuresByKind()
	for _, kind := range kinds {
		fmt.Fprintf(sb, "[!] %s\n", titleCase(kind))
		for _, f := range groups[kind] {
			fmt.Fprintf(sb, "  * %s\n", f.URL)
			if w.verbose {
				fmt.Fprintf(sb, "    Error: %s\n", f.Error)
			}
		}
		sb.WriteString("\n")
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by markcrawl\n")
	sb.WriteString("https://github.com/nao1215/markcrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
