// Package common provides shared stage timing and memory statistics.
package common

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Timer measures a single named span of work.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewNamedTimer starts a timer with the given name.
func NewNamedTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// String formats the timer as "name: duration" (duration is zero before Stop).
func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// StageTiming is the duration of one named pipeline stage.
type StageTiming struct {
	Stage    string        `json:"stage" yaml:"stage"`
	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// Stages records stage durations in the order the stages ran.
type Stages struct {
	mu     sync.Mutex
	stages []StageTiming
}

// Time runs fn as the named stage, records its duration and logs it at debug level.
func (s *Stages) Time(name string, fn func()) time.Duration {
	t := NewNamedTimer(name)
	fn()
	d := t.Stop()
	s.Add(name, d)
	slog.Debug("stage finished", "stage", name, "duration", d)
	return d
}

// Add records a duration for the named stage.
func (s *Stages) Add(name string, d time.Duration) {
	s.mu.Lock()
	s.stages = append(s.stages, StageTiming{Stage: name, Duration: d})
	s.mu.Unlock()
}

// List returns a copy of the recorded stages.
func (s *Stages) List() []StageTiming {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StageTiming(nil), s.stages...)
}

// Total sums all recorded stage durations.
func (s *Stages) Total() time.Duration {
	var total time.Duration
	for _, st := range s.List() {
		total += st.Duration
	}
	return total
}

// String formats the stages as "name=duration" pairs.
func (s *Stages) String() string {
	list := s.List()
	parts := make([]string, len(list))
	for i, st := range list {
		parts[i] = fmt.Sprintf("%s=%v", st.Stage, st.Duration)
	}
	return strings.Join(parts, " ")
}
