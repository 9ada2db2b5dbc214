package clk

import "fmt"

// NodeID indexes a node in the registry arena
type NodeID int

// NoNode is the zero reference
const NoNode NodeID = -1

// Kind names a node variant
type Kind string

const (
	KindOscillator       Kind = "oscillator"
	KindFixedClock       Kind = "fixed"
	KindPll              Kind = "pll"
	KindPllOutputDivider Kind = "pll-div"
	KindDfs              Kind = "dfs"
	KindDfsOutputDivider Kind = "dfs-div"
	KindFixedDivider     Kind = "fixed-div"
	KindCgmDivider       Kind = "cgm-div"
	KindMux              Kind = "mux"
	KindPartitionBlock   Kind = "part-block"
)

// Node is one clock generation element. Spec carries the variant data.
type Node struct {
	Name    string
	Aliases []string
	// MinHz and MaxHz bound SetRate requests when both are set
	MinHz uint64
	MaxHz uint64
	// Sel is the MC_CGM_MUXn_CSC_SEL value of this clock, for clocks that
	// can feed a CGM mux
	Sel  *uint32
	Spec Spec
}

// Spec is implemented by the node variants of this package only
type Spec interface {
	Kind() Kind
	spec()
}

// Oscillator is a reference clock source (FXOSC, FIRC, SIRC). Its
// frequency is recorded once.
type Oscillator struct {
	Instance string
	FreqHz   uint64
	// External sources belong to another clock domain and take their rate
	// from it
	External bool
}

// FixedClock is a constant source without registers
type FixedClock struct {
	FreqHz   uint64
	External bool
}

// Pll is a PLLDIG instance. Source is the reference mux.
type Pll struct {
	Instance string
	Source   NodeID
	Outputs  int
	VcoHz    uint64
}

type PllOutputDivider struct {
	Parent      NodeID
	Index       int
	RequestedHz uint64
}

type Dfs struct {
	Instance string
	Parent   NodeID
}

type DfsOutputDivider struct {
	Parent      NodeID
	Port        int
	RequestedHz uint64
}

type FixedDivider struct {
	Parent NodeID
	Ratio  uint64
}

// CgmDivider is the DC0 divider behind a CGM mux. Parent is the mux.
type CgmDivider struct {
	Parent      NodeID
	RequestedHz uint64
}

// Mux selects one of Candidates. Module is either a CGM or the PLL the mux
// feeds.
type Mux struct {
	Module     string
	Index      int
	Candidates []NodeID
	Selected   NodeID
}

// NewMux returns a mux selecting its first candidate
func NewMux(module string, index int, candidates ...NodeID) *Mux {
	m := &Mux{Module: module, Index: index, Candidates: candidates, Selected: NoNode}
	if len(candidates) > 0 {
		m.Selected = candidates[0]
	}
	return m
}

func (m *Mux) has(id NodeID) bool {
	for _, c := range m.Candidates {
		if c == id {
			return true
		}
	}
	return false
}

// PartitionBlock gates its parent with a COFB0 clock enable bit
type PartitionBlock struct {
	Partition   int
	Block       int
	Parent      NodeID
	CheckStatus bool
}

// Mask returns the COFB0 bit of the block
func (b *PartitionBlock) Mask() uint32 {
	return 1 << uint(b.Block)
}

func (*Oscillator) Kind() Kind       { return KindOscillator }
func (*FixedClock) Kind() Kind       { return KindFixedClock }
func (*Pll) Kind() Kind              { return KindPll }
func (*PllOutputDivider) Kind() Kind { return KindPllOutputDivider }
func (*Dfs) Kind() Kind              { return KindDfs }
func (*DfsOutputDivider) Kind() Kind { return KindDfsOutputDivider }
func (*FixedDivider) Kind() Kind     { return KindFixedDivider }
func (*CgmDivider) Kind() Kind       { return KindCgmDivider }
func (*Mux) Kind() Kind              { return KindMux }
func (*PartitionBlock) Kind() Kind   { return KindPartitionBlock }

func (*Oscillator) spec()       {}
func (*FixedClock) spec()       {}
func (*Pll) spec()              {}
func (*PllOutputDivider) spec() {}
func (*Dfs) spec()              {}
func (*DfsOutputDivider) spec() {}
func (*FixedDivider) spec()     {}
func (*CgmDivider) spec()       {}
func (*Mux) spec()              {}
func (*PartitionBlock) spec()   {}

// parent returns the node this one currently derives its rate from
func parent(s Spec) (NodeID, error) {
	switch v := s.(type) {
	case *Oscillator, *FixedClock:
		return NoNode, nil
	case *Pll:
		return v.Source, nil
	case *PllOutputDivider:
		return v.Parent, nil
	case *Dfs:
		return v.Parent, nil
	case *DfsOutputDivider:
		return v.Parent, nil
	case *FixedDivider:
		return v.Parent, nil
	case *CgmDivider:
		return v.Parent, nil
	case *Mux:
		return v.Selected, nil
	case *PartitionBlock:
		return v.Parent, nil
	default:
		return NoNode, fmt.Errorf("unhandled node type %T", s)
	}
}

// inputs returns every node this one may derive its rate from
func inputs(s Spec) ([]NodeID, error) {
	if m, ok := s.(*Mux); ok {
		return m.Candidates, nil
	}
	p, err := parent(s)
	if err != nil || p == NoNode {
		return nil, err
	}
	return []NodeID{p}, nil
}
