package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withColor(t *testing.T, enabled bool) {
	t.Helper()
	prev := colorEnabled.Load()
	SetColorEnabled(enabled)
	t.Cleanup(func() { SetColorEnabled(prev) })
}

func TestColorize(t *testing.T) {
	withColor(t, true)
	assert.Equal(t, "\033[32mok\033[0m", Green("ok"))

	SetColorEnabled(false)
	assert.Equal(t, "ok", Green("ok"))
}

func TestPrintHelpers(t *testing.T) {
	withColor(t, false)

	var buf bytes.Buffer
	prev := Output()
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })

	PrintError("Failed to fetch", "timeout")
	PrintInfo("Output", "inaturalist_images")
	PrintWarning("Slow host")

	assert.Equal(t, "Failed to fetch: timeout\nOutput: inaturalist_images\nSlow host\n", buf.String())
}

func TestProgressDisplayLive(t *testing.T) {
	withColor(t, false)

	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, "Amanita muscaria", 4, true)
	p.Page(1)
	p.Saved(1024)
	p.Saved(1024)
	p.Failed("status")

	assert.Equal(t, 2, p.Downloaded())
	assert.Equal(t, "Amanita muscaria [━━━━━━━━━━──────────] 2/4 • page 1 • 1 errors", p.Line())
	assert.Contains(t, buf.String(), "\r")

	p.Finish()
	p.Finish()
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "✓"))
	assert.Contains(t, out, "Amanita muscaria 2/4 images • 2.0 KB")
	assert.Contains(t, out, "1 failed")
}

func TestProgressDisplayQuietOnlyPrintsFinalLine(t *testing.T) {
	withColor(t, false)

	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, "Boletus edulis", 2, false)
	p.Page(1)
	p.Saved(10)

	assert.Empty(t, buf.String())

	p.Finish()
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.NotContains(t, buf.String(), "\r")
}

func TestProgressBarClamps(t *testing.T) {
	assert.Equal(t, strings.Repeat("━", barWidth), progressBar(5, 2))
	assert.Equal(t, strings.Repeat("─", barWidth), progressBar(0, 0))
}

func TestStatusTracker(t *testing.T) {
	withColor(t, false)

	st := NewStatusTracker(3)
	assert.Equal(t, "[1/3] Amanita muscaria", st.Header("Amanita muscaria"))

	st.CategoryDone(5)
	st.CategoryDone(2)
	assert.Equal(t, "[3/3] Russula", st.Header("Russula"))
	assert.Equal(t, 7, st.TotalDownloaded)
	assert.Contains(t, st.Summary(), "Saved 7 images across 2/3 categories")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h1m", formatDuration(61*time.Minute))
}
