package clk

import (
	"fmt"

	"github.com/golang/glog"
)

// SetRate records the frequency requested for id. Requests travel toward
// the sources until they reach a node holding frequency state; nothing is
// written to hardware before Enable.
func (r *Registry) SetRate(id NodeID, hz uint64) (uint64, error) {
	n, err := r.Resolve(id)
	if err != nil {
		return 0, err
	}
	if hz == 0 {
		return 0, fmt.Errorf("clock %s: zero frequency: %w", n.Name, ErrRange)
	}
	if n.MinHz != 0 && n.MaxHz != 0 && (hz < n.MinHz || hz > n.MaxHz) {
		return 0, fmt.Errorf("clock %s: %d Hz outside [%d:%d]: %w", n.Name, hz, n.MinHz, n.MaxHz, ErrRange)
	}

	switch v := n.Spec.(type) {
	case *Oscillator:
		return setOnce(n.Name, &v.FreqHz, hz)
	case *FixedClock:
		return setOnce(n.Name, &v.FreqHz, hz)
	case *Pll:
		return setOnce(n.Name, &v.VcoHz, hz)
	case *PllOutputDivider:
		return setOnce(n.Name, &v.RequestedHz, hz)
	case *DfsOutputDivider:
		return setOnce(n.Name, &v.RequestedHz, hz)
	case *CgmDivider:
		return setOnce(n.Name, &v.RequestedHz, hz)
	case *Dfs:
		return 0, fmt.Errorf("clock %s: setting a DFS frequency: %w", n.Name, ErrNotSupported)
	case *FixedDivider:
		return r.SetRate(v.Parent, hz*v.Ratio)
	case *Mux:
		return r.SetRate(v.Selected, hz)
	case *PartitionBlock:
		return r.SetRate(v.Parent, hz)
	default:
		return 0, fmt.Errorf("clock %s: unhandled node type %T", n.Name, n.Spec)
	}
}

func setOnce(name string, field *uint64, hz uint64) (uint64, error) {
	if *field != 0 && *field != hz {
		return 0, fmt.Errorf("clock %s already set to %d Hz, requested %d Hz: %w", name, *field, hz, ErrAlreadyInitialized)
	}
	*field = hz
	glog.V(2).Infof("clock %s: requested %d Hz", name, hz)
	return hz, nil
}

// SetParent selects source as the input of the mux id.
//
// When id is an external oscillator or fixed clock, source belongs to
// another clock domain and only its current rate is copied into id.
func (r *Registry) SetParent(id, source NodeID) error {
	n, err := r.Resolve(id)
	if err != nil {
		return err
	}
	src, err := r.Resolve(source)
	if err != nil {
		return fmt.Errorf("clock %s: %w: %w", n.Name, ErrInvalidParent, err)
	}

	switch v := n.Spec.(type) {
	case *Oscillator:
		if v.External {
			return r.attachExternal(n, id, source)
		}
	case *FixedClock:
		if v.External {
			return r.attachExternal(n, id, source)
		}
	}

	mux, ok := n.Spec.(*Mux)
	if !ok {
		return fmt.Errorf("clock %s is not a mux: %w", n.Name, ErrInvalidParent)
	}
	if !mux.has(source) {
		return fmt.Errorf("clock %s is not an input of mux %s: %w", src.Name, n.Name, ErrInvalidParent)
	}

	if r.modules[mux.Module].Kind == ModulePLL {
		mux.Selected = source
		return nil
	}
	if r.GetRate(source) == 0 {
		// an idle source cannot complete a switch; Enable commits it later
		glog.V(2).Infof("mux %s: %s not running yet, switch deferred", n.Name, src.Name)
		mux.Selected = source
		return nil
	}
	if err := r.switchMux(n, mux, source); err != nil {
		return err
	}
	mux.Selected = source
	return nil
}

func (r *Registry) attachExternal(n *Node, id, source NodeID) error {
	rate := r.GetRate(source)
	if rate == 0 {
		return fmt.Errorf("clock %s: rate of %s unknown: %w", n.Name, r.Name(source), ErrNotConfigured)
	}
	if _, err := r.SetRate(id, rate); err != nil {
		return err
	}
	glog.Infof("external clock %s follows %s at %d Hz", n.Name, r.Name(source), rate)
	return nil
}
