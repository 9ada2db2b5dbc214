package regs

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PollStats collects how many register reads each kind of hardware wait took.
// A nil *PollStats ignores observations.
type PollStats struct {
	mu      sync.Mutex
	samples map[string][]float64
}

// PollSummary describes the distribution of poll counts for one wait kind
type PollSummary struct {
	Op     string
	Count  int
	Mean   float64
	StdDev float64
	Max    float64
}

// NewPollStats returns an empty collector
func NewPollStats() *PollStats {
	return &PollStats{samples: map[string][]float64{}}
}

// Observe records one completed (or abandoned) wait
func (s *PollStats) Observe(op string, polls int) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[op] = append(s.samples[op], float64(polls))
}

// Summaries returns one summary per wait kind, sorted by name
func (s *PollStats) Summaries() []PollSummary {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PollSummary, 0, len(s.samples))
	for op, xs := range s.samples {
		if len(xs) == 0 {
			continue
		}
		sum := PollSummary{
			Op:    op,
			Count: len(xs),
			Mean:  stat.Mean(xs, nil),
			Max:   floats.Max(xs),
		}
		if len(xs) > 1 {
			sum.StdDev = stat.StdDev(xs, nil)
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Op < out[j].Op })
	return out
}
