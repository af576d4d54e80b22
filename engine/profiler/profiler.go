// Package profiler reports frame rate, per-stage frame timings and memory statistics.
package profiler

import (
	"fmt"
	"log"
	"runtime"
	"strings"
	"time"
)

// StageStats is the accumulated timing of one named frame stage over a report interval.
type StageStats struct {
	Name  string
	Count int
	Total time.Duration
	Max   time.Duration
}

// Mean returns the average duration of the stage, or zero if it never ran.
func (s StageStats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Report is the summary produced each time the update interval elapses.
type Report struct {
	FPS    float64
	Stages []StageStats

	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// String formats the report as a single log line.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "FPS: %.2f", r.FPS)
	for _, s := range r.Stages {
		fmt.Fprintf(&b, " | %s: %s (max %s)", s.Name, s.Mean().Round(time.Microsecond), s.Max.Round(time.Microsecond))
	}
	fmt.Fprintf(&b, " | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		r.HeapMB, r.AllocRateMB, r.GCCount, r.LastPauseUs, r.MaxPauseUs, r.SysMB)
	return b.String()
}

// Profiler tracks frame rate, stage timings and memory statistics.
// Outputs stats to the log at a configurable interval. A Profiler is not safe for concurrent use;
// it is driven from the frame loop.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	stages     []StageStats
	stageIndex map[string]int

	now    func() time.Time
	output func(Report)
	last   *Report
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		stageIndex:     make(map[string]int),
		now:            time.Now,
		output: func(r Report) {
			log.Printf("[Profiler] %s", r)
		},
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Record adds one sample for a named stage. Stages are reported in first-recorded order.
//
// Parameters:
//   - stage: the stage name
//   - d: how long the stage took
func (p *Profiler) Record(stage string, d time.Duration) {
	i, ok := p.stageIndex[stage]
	if !ok {
		i = len(p.stages)
		p.stageIndex[stage] = i
		p.stages = append(p.stages, StageStats{Name: stage})
	}
	s := &p.stages[i]
	s.Count++
	s.Total += d
	if d > s.Max {
		s.Max = d
	}
}

// Measure runs fn and records its duration under stage, whether or not it fails.
//
// Parameters:
//   - stage: the stage name
//   - fn: the work to time
//
// Returns:
//   - error: the error returned by fn
func (p *Profiler) Measure(stage string, fn func() error) error {
	start := p.now()
	err := fn()
	p.Record(stage, p.now().Sub(start))
	return err
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, mean and max stage timings, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	r := Report{
		FPS:    float64(p.frameCount) / elapsed.Seconds(),
		Stages: append([]StageStats(nil), p.stages...),
	}

	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	r.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	r.GCCount = p.memStats.NumGC
	if r.GCCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		r.LastPauseUs = p.memStats.PauseNs[(r.GCCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if r.GCCount-startIdx > 256 {
			startIdx = r.GCCount - 256
		}
		for i := startIdx; i < r.GCCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > r.MaxPauseUs {
				r.MaxPauseUs = pause
			}
		}
	}

	p.output(r)
	p.last = &r

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	for i := range p.stages {
		p.stages[i] = StageStats{Name: p.stages[i].Name}
	}
	return true
}

// Last returns the most recent report, or false if none has been produced yet.
func (p *Profiler) Last() (Report, bool) {
	if p.last == nil {
		return Report{}, false
	}
	return *p.last, true
}
