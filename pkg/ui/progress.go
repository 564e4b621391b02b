package ui

import (
	"fmt"
	"time"
)

// StatusTracker keeps run-wide counts across categories
type StatusTracker struct {
	TotalCategories int
	Completed       int
	TotalDownloaded int
	StartTime       time.Time
}

// NewStatusTracker creates a tracker for a run over total categories
func NewStatusTracker(total int) *StatusTracker {
	return &StatusTracker{
		TotalCategories: total,
		StartTime:       time.Now(),
	}
}

// CategoryDone adds one finished category and its download count
func (st *StatusTracker) CategoryDone(downloaded int) {
	st.Completed++
	st.TotalDownloaded += downloaded
}

// Header returns the "[i/n] name" prefix for the next category
func (st *StatusTracker) Header(name string) string {
	return fmt.Sprintf("%s %s",
		Magenta(fmt.Sprintf("[%d/%d]", st.Completed+1, st.TotalCategories)),
		name)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// GetDownloadRate returns the average download rate (items per minute)
func (st *StatusTracker) GetDownloadRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.TotalDownloaded) / elapsed
}

// Summary returns the closing line of a run
func (st *StatusTracker) Summary() string {
	return fmt.Sprintf("Saved %d images across %d/%d categories in %s",
		st.TotalDownloaded, st.Completed, st.TotalCategories,
		formatDuration(st.GetElapsedTime()))
}
