package plan

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/s32-bsp/s32clk/pkg/clk"
)

// StepResult is the outcome of one applied step
type StepResult struct {
	Step    Step
	RateHz  uint64
	Elapsed time.Duration
}

// Report lists the steps applied so far
type Report struct {
	Plan  string
	Steps []StepResult
}

// Apply runs the steps of p against r and stops at the first failure. The
// report covers the steps that completed.
func Apply(r *clk.Registry, p *Plan) (*Report, error) {
	rep := &Report{Plan: p.Name}
	if err := p.Validate(r); err != nil {
		return rep, err
	}
	for i, s := range p.Steps {
		start := time.Now()
		if err := applyStep(r, s); err != nil {
			glog.Errorf("boot plan %s: step %d (%s) failed: %v", p.Name, i, s, err)
			return rep, fmt.Errorf("boot plan %s step %d (%s): %w", p.Name, i, s.Clock, err)
		}
		id, _ := r.Lookup(s.Clock)
		rep.Steps = append(rep.Steps, StepResult{
			Step:    s,
			RateHz:  r.GetRate(id),
			Elapsed: time.Since(start),
		})
	}
	glog.Infof("boot plan %s: %d steps applied", p.Name, len(rep.Steps))
	return rep, nil
}

func applyStep(r *clk.Registry, s Step) error {
	id, err := r.Lookup(s.Clock)
	if err != nil {
		return err
	}
	if s.Parent != "" {
		parent, err := r.Lookup(s.Parent)
		if err != nil {
			return err
		}
		if err := r.SetParent(id, parent); err != nil {
			return err
		}
	}
	if s.Rate != 0 {
		got, err := r.SetRate(id, s.Rate)
		if err != nil {
			return err
		}
		if got != s.Rate {
			return fmt.Errorf("requested %d Hz, accepted %d Hz: %w", s.Rate, got, ErrRateMismatch)
		}
	}
	if s.Enable {
		if err := r.Enable(id); err != nil {
			return err
		}
	}
	if s.Verify && s.Rate != 0 {
		if got := r.GetRate(id); got != s.Rate {
			return fmt.Errorf("requested %d Hz, hardware runs at %d Hz: %w", s.Rate, got, ErrRateMismatch)
		}
	}
	return nil
}
