// Package metrics tracks in-memory counters for capture, backfill, and
// assembly runs, summarized at the end of each run.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"lapsecam/internal/archive"
)

var (
	globalCollector *Collector
	once            sync.Once
)

// Collector tracks run-wide counters in memory
type Collector struct {
	framesCaptured atomic.Int64
	framesSkipped  atomic.Int64
	framesFailed   atomic.Int64

	mu              sync.RWMutex
	failuresByClass map[archive.Class]int64
	videosBuilt     int64
	videosReused    int64
	videosFailed    int64
	startTime       time.Time
}

// Snapshot is a point-in-time copy of the collector's counters
type Snapshot struct {
	FramesCaptured  int64                   `json:"frames_captured"`
	FramesSkipped   int64                   `json:"frames_skipped"`
	FramesFailed    int64                   `json:"frames_failed"`
	FailuresByClass map[archive.Class]int64 `json:"failures_by_class"`
	VideosBuilt     int64                   `json:"videos_built"`
	VideosReused    int64                   `json:"videos_reused"`
	VideosFailed    int64                   `json:"videos_failed"`
	Uptime          time.Duration           `json:"uptime"`
}

// Default returns the global collector instance
func Default() *Collector {
	once.Do(func() {
		globalCollector = NewCollector()
	})
	return globalCollector
}

// NewCollector creates a new collector
func NewCollector() *Collector {
	return &Collector{
		failuresByClass: make(map[archive.Class]int64),
		startTime:       time.Now(),
	}
}

// RecordFrameCaptured counts a successful archive export
func (c *Collector) RecordFrameCaptured() {
	c.framesCaptured.Add(1)
}

// RecordFrameSkipped counts an already-present frame
func (c *Collector) RecordFrameSkipped() {
	c.framesSkipped.Add(1)
}

// RecordFrameFailed counts a failed export by failure class
func (c *Collector) RecordFrameFailed(class archive.Class) {
	c.framesFailed.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.failuresByClass[class]++
}

// RecordVideoBuilt counts a freshly encoded artifact
func (c *Collector) RecordVideoBuilt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.videosBuilt++
}

// RecordVideoReused counts a cache hit on an existing artifact
func (c *Collector) RecordVideoReused() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.videosReused++
}

// RecordVideoFailed counts a failed artifact build
func (c *Collector) RecordVideoFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.videosFailed++
}

// GetSnapshot returns a copy of the current counters
func (c *Collector) GetSnapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byClass := make(map[archive.Class]int64, len(c.failuresByClass))
	for k, v := range c.failuresByClass {
		byClass[k] = v
	}

	return Snapshot{
		FramesCaptured:  c.framesCaptured.Load(),
		FramesSkipped:   c.framesSkipped.Load(),
		FramesFailed:    c.framesFailed.Load(),
		FailuresByClass: byClass,
		VideosBuilt:     c.videosBuilt,
		VideosReused:    c.videosReused,
		VideosFailed:    c.videosFailed,
		Uptime:          time.Since(c.startTime),
	}
}

// Reset clears all counters (useful for testing)
func (c *Collector) Reset() {
	c.framesCaptured.Store(0)
	c.framesSkipped.Store(0)
	c.framesFailed.Store(0)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.failuresByClass = make(map[archive.Class]int64)
	c.videosBuilt = 0
	c.videosReused = 0
	c.videosFailed = 0
	c.startTime = time.Now()
}
