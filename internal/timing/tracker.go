// Package timing records how long named operations take.
package timing

import (
	"context"
	"sync"
	"time"

	"radiomics-toolkit/internal/logger"
)

type timingKey struct{}

type timingInfo struct {
	Operation string
	StartTime time.Time
}

// Tracker accumulates durations per operation and logs each one at debug level.
type Tracker struct {
	timings map[string][]time.Duration
	mu      sync.RWMutex
	logger  logger.Logger
}

// NewTracker creates a tracker. A nil logger disables logging only.
func NewTracker(log logger.Logger) *Tracker {
	if log == nil {
		log = logger.NewNop()
	}
	return &Tracker{
		timings: make(map[string][]time.Duration),
		logger:  log,
	}
}

// StartTiming returns a context carrying the start time of operation.
func (tt *Tracker) StartTiming(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, timingKey{}, timingInfo{
		Operation: operation,
		StartTime: time.Now(),
	})
}

// EndTiming records the duration since the matching StartTiming.
func (tt *Tracker) EndTiming(ctx context.Context) time.Duration {
	info, ok := ctx.Value(timingKey{}).(timingInfo)
	if !ok {
		return 0
	}

	duration := time.Since(info.StartTime)

	tt.mu.Lock()
	tt.timings[info.Operation] = append(tt.timings[info.Operation], duration)
	tt.mu.Unlock()

	tt.logger.Debug("Timing", "operation completed", map[string]interface{}{
		"operation":   info.Operation,
		"duration_ms": duration.Milliseconds(),
	})
	return duration
}

// Timings returns a copy of the durations recorded for operation.
func (tt *Tracker) Timings(operation string) []time.Duration {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	timings := tt.timings[operation]
	if timings == nil {
		return nil
	}

	result := make([]time.Duration, len(timings))
	copy(result, timings)
	return result
}

// AverageTime returns the mean recorded duration for operation.
func (tt *Tracker) AverageTime(operation string) time.Duration {
	timings := tt.Timings(operation)
	if len(timings) == 0 {
		return 0
	}

	var total time.Duration
	for _, duration := range timings {
		total += duration
	}

	return total / time.Duration(len(timings))
}

// Reset drops the durations for operation, or all of them when operation is empty.
func (tt *Tracker) Reset(operation string) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if operation == "" {
		tt.timings = make(map[string][]time.Duration)
	} else {
		delete(tt.timings, operation)
	}
}
