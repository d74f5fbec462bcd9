package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown.
// It uses the nao1215/markdown builder for tables, alerts and the mermaid
// depth chart.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writePages(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *CrawlReport) {
	md.H1("Crawl Report")
	md.PlainText("")

	rows := [][]string{
		{"Seed", "`" + report.Seed + "`"},
		{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", report.Duration},
		{"Status", w.getStatusText(report)},
	}
	if report.SessionID != "" {
		rows = append(rows, []string{"Session", "`" + report.SessionID + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *CrawlReport) string {
	switch report.Status {
	case StatusComplete:
		return "✅ Complete"
	case StatusError:
		return "❌ Error - " + escapeCell(report.Error)
	default:
		return "⚠️ " + titleCase(string(report.Status)) + " (partial results)"
	}
}

// writeSummary writes the totals, the depth chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *CrawlReport) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages", strconv.Itoa(len(report.Pages))},
			{"Failures", strconv.Itoa(len(report.Failures))},
			{"Discovered URLs", strconv.Itoa(report.Discovered)},
			{"Words", strconv.Itoa(report.TotalWords())},
		},
	})
	md.PlainText("")

	if counts := report.DepthCounts(); len(counts) > 1 {
		w.writePieChart(md, counts)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of pages per depth.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts []DepthCount) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages by Depth"),
		piechart.WithShowData(true),
	)

	for _, dc := range counts {
		chart.LabelAndIntValue("Depth "+strconv.Itoa(dc.Depth), uint64(dc.Pages))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the crawl outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *CrawlReport) {
	switch {
	case report.Status == StatusError:
		md.Cautionf("The crawl stopped with an error: %s", report.Error)
	case report.Status != StatusComplete:
		md.Warningf("The crawl was %s. %d page(s) were converted before it stopped.",
			report.Status, len(report.Pages))
	case len(report.Pages) == 0:
		md.Importantf("No page could be converted from %s.", report.Seed)
	case report.HasFailures():
		md.Note(strconv.Itoa(len(report.Failures)) + " page(s) were skipped. See the failures section.")
	default:
		md.Tip("Every discovered page within the limits was converted.")
	}
	md.PlainText("")
}

// writePages writes a table of converted pages.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *CrawlReport) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages converted.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Pages))
	for i, p := range report.Pages {
		title := p.Title
		if title == "" {
			title = "-"
		}
		rows[i] = []string{
			escapeCell(truncateString(p.URL, 60)),
			strconv.Itoa(p.Depth),
			escapeCell(truncateString(title, 40)),
			strconv.Itoa(p.Words),
			strconv.Itoa(p.Links),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Title", "Words", "Links"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes failures grouped by kind.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *CrawlReport) {
	if !report.HasFailures() {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	kinds, groups := report.FailuresByKind()
	for _, kind := range kinds {
		md.H3(titleCase(kind))
		md.PlainText("")

		rows := make([][]string, 0, len(groups[kind]))
		for _, f := range groups[kind] {
			status := "-"
			if f.Status != 0 {
				status = strconv.Itoa(f.Status)
			}
			rows = append(rows, []string{
				escapeCell(truncateString(f.URL, 60)),
				strconv.Itoa(f.Depth),
				status,
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Depth", "Status"},
			Rows:   rows,
		})
		md.PlainText("")

		for _, f := range groups[kind] {
			md.Details(f.URL, f.Error)
		}
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [markcrawl](https://github.com/nao1215/markcrawl)*")
}

// escapeCell keeps pipes from splitting table cells.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
