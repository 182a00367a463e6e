package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker keeps the tallies of one batch
type StatusTracker struct {
	mu        sync.Mutex
	total     int
	success   int
	failure   int
	startTime time.Time
}

// NewStatusTracker creates a tracker for a batch of total usernames
func NewStatusTracker(total int) *StatusTracker {
	return &StatusTracker{
		total:     total,
		startTime: time.Now(),
	}
}

// Record counts one finished username
func (st *StatusTracker) Record(ok bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if ok {
		st.success++
	} else {
		st.failure++
	}
}

// Counts returns the success and failure tallies
func (st *StatusTracker) Counts() (success, failure int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.success, st.failure
}

// Processed returns how many usernames have finished
func (st *StatusTracker) Processed() int {
	s, f := st.Counts()
	return s + f
}

// GetProgress returns a formatted progress bar for the batch
func (st *StatusTracker) GetProgress() string {
	const width = 20
	done := st.Processed()

	filled := 0
	if st.total > 0 {
		filled = done * width / st.total
	}
	if filled > width {
		filled = width
	}

	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, done, st.total)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.startTime)
}

// EstimateRemaining projects the time left assuming each remaining
// username costs perItem
func (st *StatusTracker) EstimateRemaining(perItem time.Duration) time.Duration {
	remaining := st.total - st.Processed()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(remaining) * perItem
}
