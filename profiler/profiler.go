// Package profiler - Per-stage timing of a sorting run.
package profiler

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxSamples bounds the number of durations kept per stage.
const DefaultMaxSamples = 1024

// Stat summarizes the timings of one stage.
type Stat struct {
	Name  string
	Count int64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
	// Mean is taken over the retained window of samples.
	Mean time.Duration
}

// timeTracker tracks operation timing statistics.
type timeTracker struct {
	durations []time.Duration
	window    time.Duration
	total     time.Duration
	min       time.Duration
	max       time.Duration
	count     int64
}

// Timings collects durations per named stage. It is safe for concurrent use.
type Timings struct {
	mu         sync.Mutex
	maxSamples int
	startTime  time.Time
	stages     map[string]*timeTracker
}

// New creates an empty collector.
//
// Arguments:
//   - maxSamples: Durations kept per stage for the mean. Zero uses DefaultMaxSamples.
//
// Returns:
//   - *Timings: The collector.
func New(maxSamples int) *Timings {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Timings{
		maxSamples: maxSamples,
		startTime:  time.Now(),
		stages:     make(map[string]*timeTracker),
	}
}

// StartOperation begins timing a stage.
//
// Arguments:
//   - name: The name of the stage.
//
// Returns:
//   - A function to call when the stage completes.
//
// @example
// done := timings.StartOperation("detect_a")
// detections, err := detector.Detect(ctx, img)
// done()
func (t *Timings) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		t.Observe(name, time.Since(start))
	}
}

// Observe records one completed stage.
func (t *Timings) Observe(name string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tracker, exists := t.stages[name]
	if !exists {
		tracker = &timeTracker{min: d, max: d}
		t.stages[name] = tracker
	}

	tracker.durations = append(tracker.durations, d)
	tracker.window += d
	if len(tracker.durations) > t.maxSamples {
		tracker.window -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}

	tracker.total += d
	tracker.count++
	tracker.min = min(tracker.min, d)
	tracker.max = max(tracker.max, d)
}

// Snapshot returns the statistics of every stage ordered by name.
func (t *Timings) Snapshot() []Stat {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := make([]Stat, 0, len(t.stages))
	for name, tracker := range t.stages {
		stat := Stat{
			Name:  name,
			Count: tracker.count,
			Total: tracker.total,
			Min:   tracker.min,
			Max:   tracker.max,
		}
		if n := len(tracker.durations); n > 0 {
			stat.Mean = tracker.window / time.Duration(n)
		}
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Name < stats[j].Name
	})
	return stats
}

// Report logs one line per stage and a memory summary.
func (t *Timings) Report(log logrus.FieldLogger) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	log.WithFields(logrus.Fields{
		"uptime":     time.Since(t.startTime).Truncate(time.Millisecond),
		"heap_alloc": formatBytes(mem.HeapAlloc),
		"sys":        formatBytes(mem.Sys),
		"gc_cycles":  mem.NumGC,
	}).Info("run summary")

	for _, s := range t.Snapshot() {
		log.WithFields(logrus.Fields{
			"stage": s.Name,
			"count": s.Count,
			"mean":  s.Mean.Truncate(time.Microsecond),
			"min":   s.Min.Truncate(time.Microsecond),
			"max":   s.Max.Truncate(time.Microsecond),
			"total": s.Total.Truncate(time.Millisecond),
		}).Info("stage timing")
	}
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
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
