package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"inatscraper/pkg/ledger"
)

// TextWriter renders a summary as aligned plain text for the terminal
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the full summary
func (w *TextWriter) Write(s *ledger.Summary) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s (%s)\n", s.Run.ID, s.Run.Status)
	fmt.Fprintf(&b, "  Started:  %s\n", formatTimestamp(s.Run.StartedAt))
	fmt.Fprintf(&b, "  Finished: %s\n", formatTimestamp(s.Run.FinishedAt))
	fmt.Fprintf(&b, "  Duration: %s\n", formatDuration(s.Run.Duration()))
	fmt.Fprintf(&b, "  Place %d, taxon %d, quota %d\n", s.Run.PlaceID, s.Run.TaxonID, s.Run.Quota)
	fmt.Fprintf(&b, "  Output:   %s\n", s.Run.OutputDir)
	fmt.Fprintf(&b, "  Saved %d image(s), %d failure(s), %s\n\n",
		s.TotalDownloaded(), s.TotalFailed(), formatBytes(s.TotalBytes))

	if len(s.Categories) > 0 {
		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tSPECIES\tDOWNLOADED\tFAILED\tPAGES\tEXHAUSTED")
		for _, c := range s.Categories {
			fmt.Fprintf(tw, "%d\t%s\t%d/%d\t%d\t%d\t%s\n",
				c.Rank+1, c.Name, c.Downloaded, s.Run.Quota, c.Failed, c.Pages, yesNo(c.Exhausted))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		b.WriteString("\n")
	}

	if len(s.FailuresByKind) > 0 {
		b.WriteString("Failures by kind:\n")
		for _, kc := range sortedKinds(s.FailuresByKind) {
			fmt.Fprintf(&b, "  %-10s %d\n", kc.Kind, kc.Count)
		}
	}

	_, err := io.WriteString(w.output, b.String())
	return err
}
