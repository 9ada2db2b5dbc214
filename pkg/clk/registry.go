package clk

import (
	"fmt"
	"sort"

	"github.com/golang/glog"

	"github.com/s32-bsp/s32clk/pkg/hw"
	"github.com/s32-bsp/s32clk/pkg/partition"
	"github.com/s32-bsp/s32clk/pkg/regs"
)

// ModuleKind is the type of a hardware block owning clock registers
type ModuleKind string

const (
	ModulePLL   ModuleKind = "pll"
	ModuleDFS   ModuleKind = "dfs"
	ModuleCGM   ModuleKind = "cgm"
	ModuleFXOSC ModuleKind = "fxosc"
)

// Module is a hardware block and its physical base address
type Module struct {
	Kind ModuleKind `json:"kind"`
	Base uint64     `json:"base"`
}

// Config holds what a registry needs to reach the hardware
type Config struct {
	Regs       regs.Accessor
	Poller     *regs.Poller
	Modules    map[string]Module
	Partitions *partition.Controller
	// SetNearestFrequency accepts PLL, DFS and divider settings that only
	// approximate the requested frequency
	SetNearestFrequency bool
}

// Builder collects nodes before they are validated into a Registry
type Builder struct {
	nodes []*Node
	names map[string]NodeID
}

// NewBuilder returns an empty builder
func NewBuilder() *Builder {
	return &Builder{names: map[string]NodeID{}}
}

// Add appends a node. IDs are handed out in insertion order, so node
// references may point forward to IDs not added yet.
func (b *Builder) Add(n Node) (NodeID, error) {
	if n.Name == "" {
		return NoNode, fmt.Errorf("node %d has no name", len(b.nodes))
	}
	if n.Spec == nil {
		return NoNode, fmt.Errorf("node %s has no spec", n.Name)
	}
	id := NodeID(len(b.nodes))
	for _, name := range append([]string{n.Name}, n.Aliases...) {
		if prev, ok := b.names[name]; ok {
			return NoNode, fmt.Errorf("duplicate clock name %s (node %d and %d)", name, prev, id)
		}
	}
	for _, name := range append([]string{n.Name}, n.Aliases...) {
		b.names[name] = id
	}
	node := n
	b.nodes = append(b.nodes, &node)
	return id, nil
}

// Len returns the number of nodes added so far
func (b *Builder) Len() int {
	return len(b.nodes)
}

// Build validates the graph and returns the registry. The builder must not
// be used afterwards.
func (b *Builder) Build(cfg Config) (*Registry, error) {
	if cfg.Regs == nil {
		return nil, fmt.Errorf("no register accessor configured")
	}
	if cfg.Poller == nil {
		cfg.Poller = regs.DefaultPoller()
	}
	r := &Registry{
		nodes:   b.nodes,
		names:   b.names,
		acc:     cfg.Regs,
		poller:  cfg.Poller,
		modules: cfg.Modules,
		parts:   cfg.Partitions,
		nearest: cfg.SetNearestFrequency,
	}
	if r.modules == nil {
		r.modules = map[string]Module{}
	}
	for i := range r.nodes {
		if err := r.validate(NodeID(i)); err != nil {
			return nil, err
		}
	}
	if err := r.checkAcyclic(); err != nil {
		return nil, err
	}
	b.nodes = nil
	b.names = map[string]NodeID{}
	glog.V(2).Infof("clock registry built with %d nodes", len(r.nodes))
	return r, nil
}

// Registry is the immutable clock graph plus the requested frequencies.
// It is not safe for concurrent use.
type Registry struct {
	nodes   []*Node
	names   map[string]NodeID
	acc     regs.Accessor
	poller  *regs.Poller
	modules map[string]Module
	parts   *partition.Controller
	nearest bool
}

// Resolve returns the node behind id
func (r *Registry) Resolve(id NodeID) (*Node, error) {
	if id < 0 || int(id) >= len(r.nodes) {
		return nil, fmt.Errorf("clock %d: %w", id, ErrUnknownClock)
	}
	return r.nodes[id], nil
}

// Lookup finds a node by name or alias
func (r *Registry) Lookup(name string) (NodeID, error) {
	id, ok := r.names[name]
	if !ok {
		return NoNode, fmt.Errorf("clock %s: %w", name, ErrUnknownClock)
	}
	return id, nil
}

// Name returns the node name, or a placeholder for unknown IDs
func (r *Registry) Name(id NodeID) string {
	n, err := r.Resolve(id)
	if err != nil {
		return fmt.Sprintf("<clock %d>", id)
	}
	return n.Name
}

// Nodes returns every node ID in insertion order
func (r *Registry) Nodes() []NodeID {
	ids := make([]NodeID, len(r.nodes))
	for i := range ids {
		ids[i] = NodeID(i)
	}
	return ids
}

// Roots returns the oscillators and fixed clocks
func (r *Registry) Roots() []NodeID {
	var ids []NodeID
	for i, n := range r.nodes {
		switch n.Spec.(type) {
		case *Oscillator, *FixedClock:
			ids = append(ids, NodeID(i))
		}
	}
	return ids
}

// Parent returns the node id currently derives its rate from
func (r *Registry) Parent(id NodeID) NodeID {
	n, err := r.Resolve(id)
	if err != nil {
		return NoNode
	}
	p, err := parent(n.Spec)
	if err != nil {
		return NoNode
	}
	return p
}

// Children returns the nodes currently deriving their rate from id
func (r *Registry) Children(id NodeID) []NodeID {
	var ids []NodeID
	for i := range r.nodes {
		if r.Parent(NodeID(i)) == id {
			ids = append(ids, NodeID(i))
		}
	}
	return ids
}

// Modules returns the module names known to the registry, sorted
func (r *Registry) Modules() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Accessor returns the register accessor the registry programs
func (r *Registry) Accessor() regs.Accessor {
	return r.acc
}

// Poller returns the poller bounding hardware waits
func (r *Registry) Poller() *regs.Poller {
	return r.poller
}

// Partitions returns the partition controller, possibly nil
func (r *Registry) Partitions() *partition.Controller {
	return r.parts
}

// Depth returns the longest chain from id to a root over every possible
// parent, failing when the walk exceeds the node count
func (r *Registry) Depth(id NodeID) (int, error) {
	return r.depth(id, 0, map[NodeID]int{})
}

func (r *Registry) depth(id NodeID, level int, memo map[NodeID]int) (int, error) {
	if d, ok := memo[id]; ok {
		return d, nil
	}
	if level > len(r.nodes) {
		return 0, fmt.Errorf("clock %s: parent chain longer than %d nodes, the graph has a cycle", r.Name(id), len(r.nodes))
	}
	n, err := r.Resolve(id)
	if err != nil {
		return 0, err
	}
	in, err := inputs(n.Spec)
	if err != nil {
		return 0, err
	}
	deepest := 0
	for _, p := range in {
		d, err := r.depth(p, level+1, memo)
		if err != nil {
			return 0, err
		}
		if d+1 > deepest {
			deepest = d + 1
		}
	}
	memo[id] = deepest
	return deepest, nil
}

func (r *Registry) checkAcyclic() error {
	memo := map[NodeID]int{}
	for i := range r.nodes {
		if _, err := r.depth(NodeID(i), 0, memo); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) module(name string, kind ModuleKind) (Module, error) {
	m, ok := r.modules[name]
	if !ok {
		return Module{}, fmt.Errorf("module %s: %w", name, ErrNotConfigured)
	}
	if m.Kind != kind {
		return Module{}, fmt.Errorf("module %s is a %s, expected %s", name, m.Kind, kind)
	}
	return m, nil
}

func (r *Registry) specOf(id NodeID, name string) (Spec, error) {
	n, err := r.Resolve(id)
	if err != nil {
		return nil, fmt.Errorf("%s references %w", name, err)
	}
	return n.Spec, nil
}

func (r *Registry) validate(id NodeID) error {
	n := r.nodes[id]
	if n.MinHz != 0 && n.MaxHz != 0 && n.MinHz > n.MaxHz {
		return fmt.Errorf("clock %s: min %d above max %d", n.Name, n.MinHz, n.MaxHz)
	}
	switch v := n.Spec.(type) {
	case *Oscillator:
		if m, ok := r.modules[v.Instance]; ok && m.Kind != ModuleFXOSC {
			return fmt.Errorf("oscillator %s: module %s is a %s", n.Name, v.Instance, m.Kind)
		}
	case *FixedClock:
	case *Pll:
		if _, err := r.module(v.Instance, ModulePLL); err != nil {
			return fmt.Errorf("pll %s: %w", n.Name, err)
		}
		s, err := r.specOf(v.Source, n.Name)
		if err != nil {
			return err
		}
		mux, ok := s.(*Mux)
		if !ok {
			return fmt.Errorf("pll %s: source %s is not a mux: %w", n.Name, r.Name(v.Source), ErrInvalidParent)
		}
		if mux.Module != v.Instance {
			return fmt.Errorf("pll %s: source mux belongs to %s, not %s", n.Name, mux.Module, v.Instance)
		}
		if v.Outputs < 1 {
			return fmt.Errorf("pll %s: no output dividers", n.Name)
		}
	case *PllOutputDivider:
		s, err := r.specOf(v.Parent, n.Name)
		if err != nil {
			return err
		}
		pll, ok := s.(*Pll)
		if !ok {
			return fmt.Errorf("pll divider %s: parent %s is not a pll: %w", n.Name, r.Name(v.Parent), ErrInvalidParent)
		}
		if v.Index < 0 || v.Index >= pll.Outputs {
			return fmt.Errorf("pll divider %s: index %d outside %d outputs", n.Name, v.Index, pll.Outputs)
		}
	case *Dfs:
		if _, err := r.module(v.Instance, ModuleDFS); err != nil {
			return fmt.Errorf("dfs %s: %w", n.Name, err)
		}
		if _, err := r.specOf(v.Parent, n.Name); err != nil {
			return err
		}
	case *DfsOutputDivider:
		s, err := r.specOf(v.Parent, n.Name)
		if err != nil {
			return err
		}
		if _, ok := s.(*Dfs); !ok {
			return fmt.Errorf("dfs divider %s: parent %s is not a dfs: %w", n.Name, r.Name(v.Parent), ErrInvalidParent)
		}
		if v.Port < 0 || v.Port >= hw.DfsPorts {
			return fmt.Errorf("dfs divider %s: port %d out of range", n.Name, v.Port)
		}
	case *FixedDivider:
		if v.Ratio == 0 {
			return fmt.Errorf("fixed divider %s: zero ratio", n.Name)
		}
		if _, err := r.specOf(v.Parent, n.Name); err != nil {
			return err
		}
	case *CgmDivider:
		s, err := r.specOf(v.Parent, n.Name)
		if err != nil {
			return err
		}
		mux, ok := s.(*Mux)
		if !ok {
			return fmt.Errorf("cgm divider %s: parent %s is not a mux: %w", n.Name, r.Name(v.Parent), ErrInvalidParent)
		}
		if _, err := r.module(mux.Module, ModuleCGM); err != nil {
			return fmt.Errorf("cgm divider %s: %w", n.Name, err)
		}
	case *Mux:
		if len(v.Candidates) == 0 {
			return fmt.Errorf("mux %s: no candidates", n.Name)
		}
		m, ok := r.modules[v.Module]
		if !ok {
			return fmt.Errorf("mux %s: module %s: %w", n.Name, v.Module, ErrNotConfigured)
		}
		for _, c := range v.Candidates {
			cn, err := r.Resolve(c)
			if err != nil {
				return fmt.Errorf("mux %s candidate: %w", n.Name, err)
			}
			if m.Kind == ModuleCGM && cn.Sel == nil {
				return fmt.Errorf("mux %s: candidate %s has no selector", n.Name, cn.Name)
			}
		}
		switch m.Kind {
		case ModuleCGM, ModulePLL:
		default:
			return fmt.Errorf("mux %s: module %s is a %s", n.Name, v.Module, m.Kind)
		}
		if !v.has(v.Selected) {
			return fmt.Errorf("mux %s: selected %s is not a candidate: %w", n.Name, r.Name(v.Selected), ErrInvalidParent)
		}
	case *PartitionBlock:
		if v.Block < 0 || v.Block > partition.MaxBlock {
			return fmt.Errorf("partition block %s: block %d out of range", n.Name, v.Block)
		}
		if _, err := r.specOf(v.Parent, n.Name); err != nil {
			return err
		}
	default:
		return fmt.Errorf("clock %s: unhandled node type %T", n.Name, n.Spec)
	}
	return nil
}
