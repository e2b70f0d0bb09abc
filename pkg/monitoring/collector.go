/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: collector.go
Description: Run metrics for analysis runs. The Collector receives engine events as a
core.Reporter, counts them per field and samples heap usage on an interval so peak memory
of a run can be reported next to its throughput.
*/

package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kleascm/fieldlens/pkg/core"
	"github.com/kleascm/fieldlens/pkg/interpretation"
	"github.com/kleascm/fieldlens/pkg/source"
	"github.com/sirupsen/logrus"
)

// DefaultInterval is the heap sampling interval
const DefaultInterval = 250 * time.Millisecond

// MemorySnapshot is one heap sample
type MemorySnapshot struct {
	Timestamp  time.Time `json:"timestamp"`
	HeapAlloc  uint64    `json:"heap_alloc"`
	HeapInuse  uint64    `json:"heap_inuse"`
	GoRoutines int       `json:"go_routines"`
	NumGC      uint32    `json:"num_gc"`
}

// RunMetrics summarizes one run
type RunMetrics struct {
	RunID          string           `json:"run_id"`
	Records        int64            `json:"records"`
	Duration       time.Duration    `json:"duration"`
	RecordsPerSec  float64          `json:"records_per_sec"`
	ChainsFixed    int64            `json:"chains_fixed"`
	Warnings       int64            `json:"warnings"`
	RejectedValues int64            `json:"rejected_values"`
	SkippedRecords int64            `json:"skipped_records"`
	FailedFields   []string         `json:"failed_fields,omitempty"`
	RejectedBy     map[string]int64 `json:"rejected_by_field,omitempty"`
	PeakHeapAlloc  uint64           `json:"peak_heap_alloc"`
	Samples        int              `json:"samples"`
}

// Collector gathers RunMetrics. It is safe for concurrent use.
type Collector struct {
	interval time.Duration
	logger   logrus.FieldLogger

	chainsFixed int64
	warnings    int64
	rejected    int64
	skipped     int64

	mu         sync.Mutex
	rejectedBy map[string]int64
	failed     []string
	report     *core.Report
	peak       uint64
	samples    int
	last       *MemorySnapshot

	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewCollector creates a collector sampling every interval; non-positive uses DefaultInterval
func NewCollector(interval time.Duration, logger logrus.FieldLogger) *Collector {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Collector{
		interval:   interval,
		logger:     logger,
		rejectedBy: make(map[string]int64),
	}
}

// Start begins heap sampling until Stop or ctx is done
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("collector already running")
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.running = true
	c.recordLocked(TakeSnapshot())

	c.wg.Add(1)
	go c.sampleLoop(ctx)
	return nil
}

// Stop ends heap sampling and takes a final sample
func (c *Collector) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return fmt.Errorf("collector not running")
	}
	c.running = false
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
	c.record(TakeSnapshot())
	return nil
}

func (c *Collector) sampleLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.record(TakeSnapshot())
		}
	}
}

func (c *Collector) record(s *MemorySnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recordLocked(s)
}

func (c *Collector) recordLocked(s *MemorySnapshot) {
	if s.HeapAlloc > c.peak {
		c.peak = s.HeapAlloc
	}
	c.samples++
	c.last = s
}

// TakeSnapshot reads the current heap statistics
func TakeSnapshot() *MemorySnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &MemorySnapshot{
		Timestamp:  time.Now(),
		HeapAlloc:  m.HeapAlloc,
		HeapInuse:  m.HeapInuse,
		GoRoutines: runtime.NumGoroutine(),
		NumGC:      m.NumGC,
	}
}

// OnChainFixed counts a fixed chain
func (c *Collector) OnChainFixed(field *core.Field) {
	atomic.AddInt64(&c.chainsFixed, 1)
}

// OnClassificationWarning counts a faulting applicability check
func (c *Collector) OnClassificationWarning(path string, warning *interpretation.ClassificationError) {
	atomic.AddInt64(&c.warnings, 1)
}

// OnValueRejected counts a value skipped by the fixed chain
func (c *Collector) OnValueRejected(path string, value interface{}, err error) {
	atomic.AddInt64(&c.rejected, 1)
	c.mu.Lock()
	c.rejectedBy[path]++
	c.mu.Unlock()
}

// OnRecordSkipped counts an undecodable record
func (c *Collector) OnRecordSkipped(err *source.RecordError) {
	atomic.AddInt64(&c.skipped, 1)
}

// OnFieldFailed records a failed field
func (c *Collector) OnFieldFailed(path string, err error) {
	c.mu.Lock()
	c.failed = append(c.failed, path)
	c.mu.Unlock()
}

// OnRunFinished keeps the report for throughput figures
func (c *Collector) OnRunFinished(report *core.Report) {
	c.mu.Lock()
	c.report = report
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"run_id":    report.RunID,
		"rejected":  atomic.LoadInt64(&c.rejected),
		"skipped":   atomic.LoadInt64(&c.skipped),
		"warnings":  atomic.LoadInt64(&c.warnings),
		"peak_heap": c.PeakHeapAlloc(),
	}).Debug("Run metrics collected")
}

// PeakHeapAlloc returns the largest sampled heap allocation
func (c *Collector) PeakHeapAlloc() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peak
}

// Metrics returns the current summary
func (c *Collector) Metrics() RunMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := RunMetrics{
		ChainsFixed:    atomic.LoadInt64(&c.chainsFixed),
		Warnings:       atomic.LoadInt64(&c.warnings),
		RejectedValues: atomic.LoadInt64(&c.rejected),
		SkippedRecords: atomic.LoadInt64(&c.skipped),
		FailedFields:   append([]string(nil), c.failed...),
		PeakHeapAlloc:  c.peak,
		Samples:        c.samples,
	}
	sort.Strings(m.FailedFields)
	if len(c.rejectedBy) > 0 {
		m.RejectedBy = make(map[string]int64, len(c.rejectedBy))
		for path, n := range c.rejectedBy {
			m.RejectedBy[path] = n
		}
	}
	if c.report != nil {
		m.RunID = c.report.RunID
		m.Records = c.report.Records
		m.Duration = c.report.Duration
		if secs := c.report.Duration.Seconds(); secs > 0 {
			m.RecordsPerSec = float64(c.report.Records) / secs
		}
	}
	return m
}

// FormatBytes renders a byte count with a binary unit
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
