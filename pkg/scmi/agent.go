// Package scmi exposes the clock registry under the numeric clock IDs used
// by SCMI agents.
package scmi

import (
	"context"
	"fmt"
	"sort"

	"github.com/golang/glog"
	"golang.org/x/sync/semaphore"

	"github.com/s32-bsp/s32clk/pkg/clk"
)

// Interface modes of the Ethernet compound clocks
const (
	ModeSGMII = "sgmii"
	ModeRGMII = "rgmii"
)

type entry struct {
	clock clk.NodeID
	// set for compound clocks only
	mux    clk.NodeID
	source clk.NodeID
	mode   string
}

func (e entry) compound() bool {
	return e.mux != clk.NoNode
}

// Agent serves SCMI clock requests. Requests are serialized since the
// registry is not reentrant.
type Agent struct {
	reg *clk.Registry
	ids map[uint32]entry
	sem *semaphore.Weighted
}

// NewAgent resolves every entry of table against reg
func NewAgent(reg *clk.Registry, table Table) (*Agent, error) {
	a := &Agent{
		reg: reg,
		ids: map[uint32]entry{},
		sem: semaphore.NewWeighted(1),
	}
	add := func(id uint32, e entry) error {
		if _, ok := a.ids[id]; ok {
			return fmt.Errorf("scmi clock %d mapped twice", id)
		}
		a.ids[id] = e
		return nil
	}

	for _, m := range table.Clocks {
		node, err := reg.Lookup(m.Clock)
		if err != nil {
			return nil, fmt.Errorf("scmi clock %d: %w", m.ID, err)
		}
		if err := add(m.ID, entry{clock: node, mux: clk.NoNode, source: clk.NoNode}); err != nil {
			return nil, err
		}
	}
	for _, c := range table.Compounds {
		target, err := reg.Lookup(c.Clock)
		if err != nil {
			return nil, fmt.Errorf("compound clock: %w", err)
		}
		mux, err := reg.Lookup(c.Mux)
		if err != nil {
			return nil, fmt.Errorf("compound clock %s: %w", c.Clock, err)
		}
		for _, m := range c.Modes {
			src, err := reg.Lookup(m.Source)
			if err != nil {
				return nil, fmt.Errorf("compound clock %s mode %s: %w", c.Clock, m.Mode, err)
			}
			if err := add(m.ID, entry{clock: target, mux: mux, source: src, mode: m.Mode}); err != nil {
				return nil, err
			}
		}
	}
	glog.V(2).Infof("scmi: %d clock IDs mapped", len(a.ids))
	return a, nil
}

// IDs returns every mapped SCMI clock ID in ascending order
func (a *Agent) IDs() []uint32 {
	ids := make([]uint32, 0, len(a.ids))
	for id := range a.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ClockID returns the registry node behind an SCMI ID. For compound clocks
// this is the target clock.
func (a *Agent) ClockID(id uint32) (clk.NodeID, error) {
	e, err := a.lookup(id)
	if err != nil {
		return clk.NoNode, err
	}
	return e.clock, nil
}

// Mode returns the interface mode of a compound clock ID, empty for plain
// clocks
func (a *Agent) Mode(id uint32) (string, error) {
	e, err := a.lookup(id)
	if err != nil {
		return "", err
	}
	return e.mode, nil
}

// Route returns the mux a compound ID switches and the source it selects.
// Both are NoNode for plain clocks.
func (a *Agent) Route(id uint32) (mux, source clk.NodeID, err error) {
	e, err := a.lookup(id)
	if err != nil {
		return clk.NoNode, clk.NoNode, err
	}
	return e.mux, e.source, nil
}

func (a *Agent) lookup(id uint32) (entry, error) {
	e, ok := a.ids[id]
	if !ok {
		return entry{}, fmt.Errorf("scmi clock %d: %w", id, clk.ErrUnknownClock)
	}
	return e, nil
}

func (a *Agent) acquire(ctx context.Context) error {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("scmi: waiting for clock access: %w", err)
	}
	return nil
}

// selectSource points the compound's mux at the source of the requested
// mode
func (a *Agent) selectSource(id uint32, e entry) error {
	if !e.compound() {
		return nil
	}
	if err := a.reg.SetParent(e.mux, e.source); err != nil {
		return fmt.Errorf("scmi clock %d (%s): %w", id, e.mode, err)
	}
	return nil
}

// GetRate returns the current rate of the clock behind id
func (a *Agent) GetRate(ctx context.Context, id uint32) (uint64, error) {
	e, err := a.lookup(id)
	if err != nil {
		return 0, err
	}
	if err := a.acquire(ctx); err != nil {
		return 0, err
	}
	defer a.sem.Release(1)
	return a.reg.GetRate(e.clock), nil
}

// SetRate requests hz for the clock behind id
func (a *Agent) SetRate(ctx context.Context, id uint32, hz uint64) (uint64, error) {
	e, err := a.lookup(id)
	if err != nil {
		return 0, err
	}
	if err := a.acquire(ctx); err != nil {
		return 0, err
	}
	defer a.sem.Release(1)

	if err := a.selectSource(id, e); err != nil {
		return 0, err
	}
	rate, err := a.reg.SetRate(e.clock, hz)
	if err != nil {
		return 0, fmt.Errorf("scmi clock %d: %w", id, err)
	}
	return rate, nil
}

// Enable brings up the clock behind id
func (a *Agent) Enable(ctx context.Context, id uint32) error {
	e, err := a.lookup(id)
	if err != nil {
		return err
	}
	if err := a.acquire(ctx); err != nil {
		return err
	}
	defer a.sem.Release(1)

	if err := a.selectSource(id, e); err != nil {
		return err
	}
	if err := a.reg.Enable(e.clock); err != nil {
		return fmt.Errorf("scmi clock %d: %w", id, err)
	}
	return nil
}

// Disable is not available: clocks stay on once the boot plan brought them
// up
func (a *Agent) Disable(ctx context.Context, id uint32) error {
	if _, err := a.lookup(id); err != nil {
		return err
	}
	return fmt.Errorf("scmi clock %d: disable: %w", id, clk.ErrNotSupported)
}

// SetParent is reserved to board code, which reparents through the registry
func (a *Agent) SetParent(ctx context.Context, id, parent uint32) error {
	if _, err := a.lookup(id); err != nil {
		return err
	}
	return fmt.Errorf("scmi clock %d: set parent: %w", id, clk.ErrNotSupported)
}
