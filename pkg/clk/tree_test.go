package clk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"k8s.io/utils/ptr"

	"github.com/s32-bsp/s32clk/pkg/hw"
	"github.com/s32-bsp/s32clk/pkg/partition"
	"github.com/s32-bsp/s32clk/pkg/regs"
	"github.com/s32-bsp/s32clk/pkg/simhw"
)

const (
	testFxosc  = 0x40050000
	testArmPll = 0x40038000
	testArmDfs = 0x40054000
	testCgm0   = 0x40030000
	testCgm1   = 0x40034000
)

var testGating = hw.GatingBases{MCME: 0x40088000, RDC: 0x40080000, RGM: 0x40078000}

var testModules = map[string]Module{
	"FXOSC":   {Kind: ModuleFXOSC, Base: testFxosc},
	"ARM_PLL": {Kind: ModulePLL, Base: testArmPll},
	"ARM_DFS": {Kind: ModuleDFS, Base: testArmDfs},
	"CGM0":    {Kind: ModuleCGM, Base: testCgm0},
	"CGM1":    {Kind: ModuleCGM, Base: testCgm1},
}

type testTree struct {
	*Registry
	sim *simhw.Model
	ids map[string]NodeID
}

func (tt *testTree) id(name string) NodeID {
	return tt.ids[name]
}

func (tt *testTree) node(name string) *Node {
	return tt.nodes[tt.ids[name]]
}

// newTestTree builds a reduced A53 / XBAR / peripheral clock tree
// on top of the simulated hardware
func newTestTree(t *testing.T, nearest bool) *testTree {
	sim := simhw.New(simhw.Layout{
		PLLs:       []uint64{testArmPll},
		DFSs:       []uint64{testArmDfs},
		CGMs:       []uint64{testCgm0, testCgm1},
		FXOSCs:     []uint64{testFxosc},
		Gating:     testGating,
		Partitions: 2,
	})
	poller := regs.NewPoller(0, 100)

	b := NewBuilder()
	ids := map[string]NodeID{}
	add := func(n Node) NodeID {
		id, err := b.Add(n)
		assert.NoError(t, err)
		ids[n.Name] = id
		return id
	}

	firc := add(Node{Name: "firc", Sel: ptr.To[uint32](0), Spec: &Oscillator{Instance: "FIRC", FreqHz: 48000000}})
	fxosc := add(Node{Name: "fxosc", Sel: ptr.To[uint32](2), Spec: &Oscillator{Instance: "FXOSC"}})
	pllMux := add(Node{Name: "arm_pll_mux", Spec: NewMux("ARM_PLL", 0, firc, fxosc)})
	pll := add(Node{Name: "arm_pll_vco", Spec: &Pll{Instance: "ARM_PLL", Source: pllMux, Outputs: 2}})
	phi0 := add(Node{Name: "arm_pll_phi0", Sel: ptr.To[uint32](4), Spec: &PllOutputDivider{Parent: pll, Index: 0}})
	phi1 := add(Node{Name: "arm_pll_phi1", Sel: ptr.To[uint32](5), Spec: &PllOutputDivider{Parent: pll, Index: 1}})
	dfs := add(Node{Name: "arm_dfs", Spec: &Dfs{Instance: "ARM_DFS", Parent: pll}})
	dfs1 := add(Node{Name: "arm_dfs1", Sel: ptr.To[uint32](12), Spec: &DfsOutputDivider{Parent: dfs, Port: 0}})
	dfs2 := add(Node{Name: "arm_dfs2", Sel: ptr.To[uint32](13), Spec: &DfsOutputDivider{Parent: dfs, Port: 1}})
	add(Node{Name: "cgm1_mux0", Aliases: []string{"a53_core"}, MinHz: 48000000, MaxHz: 1000000000,
		Spec: NewMux("CGM1", 0, firc, phi0, dfs2)})
	xbarMux := add(Node{Name: "cgm0_mux0", Spec: NewMux("CGM0", 0, firc, dfs1)})
	add(Node{Name: "xbar_2x", MinHz: 48000000, MaxHz: 800000000,
		Spec: &PartitionBlock{Partition: 0, Block: 3, Parent: xbarMux}})
	add(Node{Name: "xbar", Spec: &FixedDivider{Parent: xbarMux, Ratio: 2}})
	perMux := add(Node{Name: "cgm0_mux3", Spec: NewMux("CGM0", 3, firc, phi1)})
	perDiv := add(Node{Name: "per_div", Spec: &CgmDivider{Parent: perMux}})
	add(Node{Name: "per_block", Spec: &PartitionBlock{Partition: 1, Block: 0, Parent: perDiv, CheckStatus: true}})
	add(Node{Name: "gmac_ext_rx", Spec: &FixedClock{External: true}})

	reg, err := b.Build(Config{
		Regs:                sim,
		Poller:              poller,
		Modules:             testModules,
		Partitions:          partition.NewController(sim, poller, testGating),
		SetNearestFrequency: nearest,
	})
	assert.NoError(t, err)
	return &testTree{Registry: reg, sim: sim, ids: ids}
}

// armPllAt runs the ARM PLL from a 40 MHz crystal at vco Hz with phi0 at
// phi0 Hz
func (tt *testTree) armPllAt(t *testing.T, vco, phi0 uint64) {
	_, err := tt.SetRate(tt.id("fxosc"), 40000000)
	assert.NoError(t, err)
	assert.NoError(t, tt.SetParent(tt.id("arm_pll_mux"), tt.id("fxosc")))
	_, err = tt.SetRate(tt.id("arm_pll_vco"), vco)
	assert.NoError(t, err)
	_, err = tt.SetRate(tt.id("arm_pll_phi0"), phi0)
	assert.NoError(t, err)
	assert.NoError(t, tt.Enable(tt.id("arm_pll_phi0")))
}
