package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports how many kernels of a bulk import have completed.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	current        int
	failed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
// total: total number of kernels to import
// reportInterval: report progress every N kernels
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.failed = 0
	p.lastReported = 0
}

// Done records one finished kernel import.
func (p *ProgressTracker) Done(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	if p.current < p.total {
		p.current++
	}
	if failed {
		p.failed++
	}

	// Report if we've crossed a report interval
	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish marks the operation as complete and prints final progress.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// Counts returns the completed and failed totals so far.
func (p *ProgressTracker) Counts() (current, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.failed
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	rate := float64(p.current) / elapsed.Seconds()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rImported: %d/%d (%.1f%%) - %d failed - %.1f kernels/s",
		p.current, p.total, percentage, p.failed, rate)
}
