package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports a burst of rate limit checks.
type ProgressReporter interface {
	Start(total int64)
	Record(passed bool)
	Error(err error)
	Finish()
}

// SimpleProgress renders a single updating line.
type SimpleProgress struct {
	mu       sync.Mutex
	total    int64
	passed   int64
	rejected int64
	failed   int64
	started  time.Time
	now      func() time.Time
	writer   io.Writer
}

// NewProgressReporter creates a reporter that writes to w.
// If w is nil, it defaults to os.Stderr.
func NewProgressReporter(w io.Writer) *SimpleProgress {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{writer: w, now: time.Now}
}

// Start resets the counters for total checks.
func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.passed, p.rejected, p.failed = 0, 0, 0
	p.started = p.now()
	p.render()
}

// Record counts one completed check.
func (p *SimpleProgress) Record(passed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if passed {
		p.passed++
	} else {
		p.rejected++
	}
	p.render()
}

// Error counts one failed check.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failed++
	p.render()
}

// Finish ends the progress line.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.render()
	fmt.Fprintln(p.writer)
}

// Counts returns the admitted, rejected and failed totals.
func (p *SimpleProgress) Counts() (passed, rejected, failed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.passed, p.rejected, p.failed
}

func (p *SimpleProgress) render() {
	if p.total <= 0 {
		return
	}

	done := p.passed + p.rejected + p.failed
	const barWidth = 30
	filled := int(barWidth * done / p.total)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)

	rate := 0.0
	if elapsed := p.now().Sub(p.started).Seconds(); elapsed > 0 {
		rate = float64(done) / elapsed
	}

	fmt.Fprintf(p.writer, "\r[%s] %d/%d passed=%d rejected=%d errors=%d %.1f req/s",
		bar, done, p.total, p.passed, p.rejected, p.failed, rate)
}
