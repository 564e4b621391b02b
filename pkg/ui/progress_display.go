package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const barWidth = 20

// ProgressDisplay renders a single redrawn progress line for one category
type ProgressDisplay struct {
	mu         sync.Mutex
	out        io.Writer
	label      string
	quota      int
	downloaded int
	failed     int
	page       int
	bytes      int64
	startTime  time.Time
	live       bool
	finished   bool
}

// NewProgressDisplay creates a display for one category. With live unset
// only the final line is written.
func NewProgressDisplay(out io.Writer, label string, quota int, live bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:       out,
		label:     label,
		quota:     quota,
		startTime: time.Now(),
		live:      live,
	}
}

// Page records that a result page is being fetched
func (p *ProgressDisplay) Page(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.page = n
	p.redraw()
}

// Saved records one stored asset
func (p *ProgressDisplay) Saved(size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.downloaded++
	p.bytes += size
	p.redraw()
}

// Failed records one skipped asset
func (p *ProgressDisplay) Failed(kind string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failed++
	p.redraw()
}

// Finish prints the final count. Later calls are no-ops.
func (p *ProgressDisplay) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished {
		return
	}
	p.finished = true

	if p.live {
		fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 100))
	}

	line := fmt.Sprintf("%s %s %d/%d images • %s • %s",
		Green("✓"),
		Cyan(p.label),
		p.downloaded,
		p.quota,
		formatBytes(p.bytes),
		formatDuration(time.Since(p.startTime)),
	)
	if p.failed > 0 {
		line += " • " + Red(fmt.Sprintf("%d failed", p.failed))
	}
	fmt.Fprintln(p.out, line)
}

// Downloaded returns the number of saved assets seen so far
func (p *ProgressDisplay) Downloaded() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.downloaded
}

// Line returns the current progress line without writing it
func (p *ProgressDisplay) Line() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.line()
}

func (p *ProgressDisplay) redraw() {
	if !p.live || p.finished {
		return
	}
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 100), p.line())
}

func (p *ProgressDisplay) line() string {
	line := fmt.Sprintf("%s [%s] %d/%d • page %d",
		Cyan(p.label),
		progressBar(p.downloaded, p.quota),
		p.downloaded,
		p.quota,
		p.page,
	)
	if p.failed > 0 {
		line += " • " + Red(fmt.Sprintf("%d errors", p.failed))
	}
	return line
}

func progressBar(done, total int) string {
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// formatBytes formats bytes in a human-readable way
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
