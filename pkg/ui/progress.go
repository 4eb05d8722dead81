package ui

import (
	"fmt"
	"strings"
	"time"

	"peoplescraper/pkg/models"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// StatusTracker prints one progress line per target as pages complete.
type StatusTracker struct {
	TotalRecords int
	Targets      int
	StartTime    time.Time

	target string
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		StartTime: time.Now(),
	}
}

// Bar renders page out of lastPage. An undiscovered lastPage renders empty.
func Bar(page, lastPage int) string {
	filled := 0
	if lastPage > 0 {
		filled = page * barWidth / lastPage
	}
	filled = min(max(filled, 0), barWidth)
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)
}

// Update redraws the progress line for state. Pages before CurrentPage are done.
func (st *StatusTracker) Update(state *models.CrawlState) {
	if state == nil {
		return
	}
	target := state.Target.String()
	if st.target != "" && st.target != target {
		fmt.Fprintln(out)
	}
	st.target = target

	if state.Status == models.StatusDone {
		st.Targets++
		st.TotalRecords += len(state.Collected)
		fmt.Fprintf(out, "\r%s %s %d records\n", Green("[DONE]"), target, len(state.Collected))
		st.target = ""
		return
	}

	done := state.CurrentPage - 1
	fmt.Fprintf(out, "\r%s %s [%s] %d/%d | %d records",
		Magenta("[EXTRACTING]"),
		Cyan(target),
		Bar(done, state.LastPage),
		done,
		state.LastPage,
		len(state.Collected))
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// GetRecordRate returns the average records per minute
func (st *StatusTracker) GetRecordRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.TotalRecords) / elapsed
}
