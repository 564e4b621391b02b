// Package report renders run summaries read from the ledger.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"inatscraper/pkg/ledger"
)

// Writer renders a ledger summary to some destination
type Writer interface {
	Write(s *ledger.Summary) error
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// New returns the Markdown writer when markdown is set, the text writer otherwise
func New(output io.Writer, markdown bool) Writer {
	if markdown {
		return NewMarkdownWriter(output)
	}
	return NewTextWriter(output)
}

type kindCount struct {
	Kind  string
	Count int
}

// sortedKinds orders failure kinds by count, then name
func sortedKinds(byKind map[string]int) []kindCount {
	out := make([]kindCount, 0, len(byKind))
	for k, n := range byKind {
		out = append(out, kindCount{Kind: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05 MST")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

// formatBytes renders a byte count with a binary unit suffix
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
