package runner

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ecmatools/run262/types"
)

// ProgressIndicator receives completed test runs as they happen. Workers call
// Record concurrently, so implementations must be safe for concurrent use and
// must not block.
type ProgressIndicator interface {
	Start(total int)
	Record(run types.TestRun)
	Stop()
}

// NopProgress discards all progress events.
type NopProgress struct{}

func (NopProgress) Start(int)            {}
func (NopProgress) Record(types.TestRun) {}
func (NopProgress) Stop()                {}

// TickerProgress logs a summary line at a fixed interval while the run is
// in flight.
type TickerProgress struct {
	Interval time.Duration
	Log      log.Logger

	total     int64
	completed atomic.Int64
	passed    atomic.Int64
	failed    atomic.Int64
	started   time.Time
	done      chan struct{}
	wg        sync.WaitGroup
}

func (p *TickerProgress) Start(total int) {
	p.total = int64(total)
	p.started = time.Now()
	p.done = make(chan struct{})
	interval := p.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.emit()
			case <-p.done:
				return
			}
		}
	}()
}

func (p *TickerProgress) Record(run types.TestRun) {
	p.completed.Add(1)
	switch run.Outcome {
	case types.OutcomePassed:
		p.passed.Add(1)
	case types.OutcomeFailed:
		p.failed.Add(1)
	}
}

func (p *TickerProgress) Stop() {
	close(p.done)
	p.wg.Wait()
	p.emit()
}

func (p *TickerProgress) emit() {
	completed := p.completed.Load()
	percent := 0.0
	if p.total > 0 {
		percent = float64(completed) / float64(p.total) * 100
	}
	p.Log.Info("Progress",
		"completed", completed,
		"total", p.total,
		"percent", fmt.Sprintf("%.1f%%", percent),
		"passed", p.passed.Load(),
		"failed", p.failed.Load(),
		"elapsed", time.Since(p.started).Round(time.Second),
	)
}

// LineProgress redraws a single terminal line with the running counts. Only
// useful when Out is a terminal; redirected output should use TickerProgress
// instead.
type LineProgress struct {
	Out io.Writer

	mu        sync.Mutex
	total     int
	completed int
	passed    int
	failed    int
	started   time.Time
}

func (p *LineProgress) Start(total int) {
	p.total = total
	p.started = time.Now()
}

func (p *LineProgress) Record(run types.TestRun) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
	switch run.Outcome {
	case types.OutcomePassed:
		p.passed++
	case types.OutcomeFailed:
		p.failed++
	}
	percent := float64(p.completed) / float64(p.total) * 100
	fmt.Fprintf(p.Out, "\r%d/%d (%.1f%%) ✅ %d ❌ %d  %s ",
		p.completed, p.total, percent, p.passed, p.failed,
		time.Since(p.started).Round(time.Second))
}

func (p *LineProgress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.Out)
}

// VerbosePrinter writes one line per finished test, with the outcome emoji
// and, for non-passing tests, the captured diagnostic output.
type VerbosePrinter struct {
	Out io.Writer

	mu sync.Mutex
}

func (p *VerbosePrinter) Start(int) {}

func (p *VerbosePrinter) Record(run types.TestRun) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.Out, "%s %s\n", run.Outcome.Emoji(), run.File)
	if run.Outcome != types.OutcomePassed && run.Output != "" {
		fmt.Fprintln(p.Out, run.Output)
	}
}

func (p *VerbosePrinter) Stop() {}
