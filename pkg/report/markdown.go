package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"inatscraper/pkg/ledger"
)

// MarkdownWriter renders a summary as GitHub flavoured Markdown
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the full summary
func (w *MarkdownWriter) Write(s *ledger.Summary) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeCategories(md, s)
	w.writeFailures(md, s)
	w.writeAlert(md, s)

	return md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *ledger.Summary) {
	md.H1("iNaturalist Scrape Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + s.Run.ID + "`"},
			{"Status", s.Run.Status},
			{"Started", formatTimestamp(s.Run.StartedAt)},
			{"Finished", formatTimestamp(s.Run.FinishedAt)},
			{"Duration", formatDuration(s.Run.Duration())},
			{"Place", strconv.Itoa(s.Run.PlaceID)},
			{"Taxon", strconv.Itoa(s.Run.TaxonID)},
			{"Quota", strconv.Itoa(s.Run.Quota)},
			{"Output", "`" + s.Run.OutputDir + "`"},
			{"Downloaded", strconv.Itoa(s.TotalDownloaded())},
			{"Failed", strconv.Itoa(s.TotalFailed())},
			{"Bytes", formatBytes(s.TotalBytes)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, s *ledger.Summary) {
	md.H2("Categories")
	md.PlainText("")

	if len(s.Categories) == 0 {
		md.PlainText("No categories were processed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		rows = append(rows, []string{
			strconv.Itoa(c.Rank + 1),
			c.Name,
			"`" + c.Directory + "`",
			strconv.Itoa(c.Downloaded) + "/" + strconv.Itoa(s.Run.Quota),
			strconv.Itoa(c.Failed),
			strconv.Itoa(c.Pages),
			yesNo(c.Exhausted),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Species", "Directory", "Downloaded", "Failed", "Pages", "Exhausted"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, s *ledger.Summary) {
	if len(s.FailuresByKind) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	rows := [][]string{}
	for _, kc := range sortedKinds(s.FailuresByKind) {
		rows = append(rows, []string{kc.Kind, strconv.Itoa(kc.Count)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *ledger.Summary) {
	switch {
	case s.Run.Status == ledger.StatusFailed:
		md.Cautionf("Run failed after saving %d image(s).", s.TotalDownloaded())
	case s.Run.Status == ledger.StatusCancelled:
		md.Warningf("Run was cancelled after saving %d image(s).", s.TotalDownloaded())
	case s.TotalFailed() > 0:
		md.Note(strconv.Itoa(s.TotalFailed()) + " asset(s) could not be downloaded and were skipped.")
	default:
		md.Tip("All attempted assets were saved.")
	}
	md.PlainText("")
}
