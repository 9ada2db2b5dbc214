package soc

import (
	"fmt"
	"sort"

	"github.com/golang/glog"
	"k8s.io/utils/ptr"

	"github.com/s32-bsp/s32clk/pkg/clk"
	"github.com/s32-bsp/s32clk/pkg/partition"
	"github.com/s32-bsp/s32clk/pkg/regs"
	"github.com/s32-bsp/s32clk/pkg/scmi"
	"github.com/s32-bsp/s32clk/pkg/simhw"
)

// moduleWindow is the register space mapped per hardware block. It covers
// every register this module programs, MC_ME partitions included.
const moduleWindow = 0x1000

// Options select the hardware a SoC is built on
type Options struct {
	Regs                regs.Accessor
	Poller              *regs.Poller
	SetNearestFrequency bool
}

// SoC is a built clock tree with its partition controller and SCMI agent
type SoC struct {
	Name       string
	Registry   *clk.Registry
	Partitions *partition.Controller
	Agent      *scmi.Agent
}

// Build turns the tables into a validated clock registry
func (v *Variant) Build(opts Options) (*SoC, error) {
	if opts.Regs == nil {
		return nil, fmt.Errorf("SoC %s: no register accessor", v.Name)
	}
	if v.Gating == nil {
		return nil, fmt.Errorf("SoC %s: no partition gating bases", v.Name)
	}
	poller := opts.Poller
	if poller == nil {
		poller = regs.DefaultPoller()
	}

	ids, err := v.index()
	if err != nil {
		return nil, err
	}
	b := clk.NewBuilder()
	for _, c := range v.Clocks {
		if c.Kind == clk.KindPartitionBlock && (c.Partition < 0 || c.Partition >= v.Partitions) {
			return nil, fmt.Errorf("SoC %s: clock %s in partition %d, only %d partitions", v.Name, c.Name, c.Partition, v.Partitions)
		}
		n, err := c.node(ids)
		if err != nil {
			return nil, fmt.Errorf("SoC %s: %w", v.Name, err)
		}
		if _, err := b.Add(n); err != nil {
			return nil, fmt.Errorf("SoC %s: %w", v.Name, err)
		}
	}

	parts := partition.NewController(opts.Regs, poller, *v.Gating)
	reg, err := b.Build(clk.Config{
		Regs:                opts.Regs,
		Poller:              poller,
		Modules:             v.Modules,
		Partitions:          parts,
		SetNearestFrequency: opts.SetNearestFrequency,
	})
	if err != nil {
		return nil, fmt.Errorf("SoC %s: %w", v.Name, err)
	}
	agent, err := scmi.NewAgent(reg, v.SCMI)
	if err != nil {
		return nil, fmt.Errorf("SoC %s: %w", v.Name, err)
	}
	glog.Infof("SoC %s: %d clocks, %d SCMI IDs", v.Name, len(reg.Nodes()), len(agent.IDs()))
	return &SoC{Name: v.Name, Registry: reg, Partitions: parts, Agent: agent}, nil
}

// index assigns node IDs in table order. The builder hands out the same
// IDs, which lets definitions refer to clocks declared further down.
func (v *Variant) index() (map[string]clk.NodeID, error) {
	ids := map[string]clk.NodeID{}
	for i, c := range v.Clocks {
		for _, name := range append([]string{c.Name}, c.Aliases...) {
			if _, ok := ids[name]; ok {
				return nil, fmt.Errorf("SoC %s: duplicate clock name %s", v.Name, name)
			}
			ids[name] = clk.NodeID(i)
		}
	}
	return ids, nil
}

func (c ClockDef) node(ids map[string]clk.NodeID) (clk.Node, error) {
	ref := func(name string) (clk.NodeID, error) {
		if name == "" {
			return clk.NoNode, fmt.Errorf("clock %s: no parent given", c.Name)
		}
		id, ok := ids[name]
		if !ok {
			return clk.NoNode, fmt.Errorf("clock %s: parent %s: %w", c.Name, name, clk.ErrUnknownClock)
		}
		return id, nil
	}

	n := clk.Node{
		Name:    c.Name,
		Aliases: c.Aliases,
		MinHz:   c.MinHz,
		MaxHz:   c.MaxHz,
	}
	// nodes must not share the selector of the clock table
	if c.Sel != nil {
		n.Sel = ptr.To(*c.Sel)
	}
	switch c.Kind {
	case clk.KindOscillator:
		n.Spec = &clk.Oscillator{Instance: c.Instance, FreqHz: c.FreqHz, External: c.External}
		return n, nil
	case clk.KindFixedClock:
		n.Spec = &clk.FixedClock{FreqHz: c.FreqHz, External: c.External}
		return n, nil
	case clk.KindMux:
		in := make([]clk.NodeID, 0, len(c.Inputs))
		for _, name := range c.Inputs {
			id, err := ref(name)
			if err != nil {
				return n, err
			}
			in = append(in, id)
		}
		n.Spec = clk.NewMux(c.Instance, c.Index, in...)
		return n, nil
	}

	parent, err := ref(c.Parent)
	if err != nil {
		return n, err
	}
	switch c.Kind {
	case clk.KindPll:
		n.Spec = &clk.Pll{Instance: c.Instance, Source: parent, Outputs: c.Outputs}
	case clk.KindPllOutputDivider:
		n.Spec = &clk.PllOutputDivider{Parent: parent, Index: c.Index}
	case clk.KindDfs:
		n.Spec = &clk.Dfs{Instance: c.Instance, Parent: parent}
	case clk.KindDfsOutputDivider:
		n.Spec = &clk.DfsOutputDivider{Parent: parent, Port: c.Index}
	case clk.KindFixedDivider:
		n.Spec = &clk.FixedDivider{Parent: parent, Ratio: c.Ratio}
	case clk.KindCgmDivider:
		n.Spec = &clk.CgmDivider{Parent: parent}
	case clk.KindPartitionBlock:
		n.Spec = &clk.PartitionBlock{Partition: c.Partition, Block: c.Block, Parent: parent, CheckStatus: c.CheckStatus}
	default:
		return n, fmt.Errorf("clock %s: unknown kind %q", c.Name, c.Kind)
	}
	return n, nil
}

func (v *Variant) moduleNames() []string {
	names := make([]string, 0, len(v.Modules))
	for name := range v.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SimLayout describes the variant's hardware to the simulator
func (v *Variant) SimLayout() simhw.Layout {
	l := simhw.Layout{Partitions: v.Partitions}
	if v.Gating != nil {
		l.Gating = *v.Gating
	}
	for _, name := range v.moduleNames() {
		m := v.Modules[name]
		switch m.Kind {
		case clk.ModulePLL:
			l.PLLs = append(l.PLLs, m.Base)
		case clk.ModuleDFS:
			l.DFSs = append(l.DFSs, m.Base)
		case clk.ModuleCGM:
			l.CGMs = append(l.CGMs, m.Base)
		case clk.ModuleFXOSC:
			l.FXOSCs = append(l.FXOSCs, m.Base)
		}
	}
	return l
}

// Windows lists the register ranges to map for direct hardware access
func (v *Variant) Windows() []regs.Window {
	var ws []regs.Window
	for _, name := range v.moduleNames() {
		ws = append(ws, regs.Window{Base: v.Modules[name].Base, Size: moduleWindow})
	}
	if v.Gating != nil {
		for _, base := range []uint64{v.Gating.MCME, v.Gating.RDC, v.Gating.RGM} {
			ws = append(ws, regs.Window{Base: base, Size: moduleWindow})
		}
	}
	return ws
}
