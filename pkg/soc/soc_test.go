package soc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s32-bsp/s32clk/pkg/clk"
	"github.com/s32-bsp/s32clk/pkg/regs"
	"github.com/s32-bsp/s32clk/pkg/simhw"
)

func buildSim(t *testing.T, v *Variant) *SoC {
	sim := simhw.New(v.SimLayout())
	s, err := v.Build(Options{Regs: sim, Poller: regs.NewPoller(0, 1000)})
	assert.NoError(t, err)
	return s
}

func clockDef(v *Variant, name string) (ClockDef, bool) {
	for _, c := range v.Clocks {
		if c.Name == name {
			return c, true
		}
	}
	return ClockDef{}, false
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"s32g274a", "s32r45"}, Names())
}

func TestLoadUnknown(t *testing.T) {
	_, err := Load("s32k3")
	assert.Error(t, err)
}

func TestLoadS32G274A(t *testing.T) {
	v, err := Load("s32g274a")
	assert.NoError(t, err)
	assert.Equal(t, "s32g274a", v.Name)
	assert.Equal(t, 4, v.Partitions)
	assert.Equal(t, uint64(0x40088000), v.Gating.MCME)
	assert.Equal(t, clk.Module{Kind: clk.ModuleCGM, Base: 0x44018000}, v.Modules["CGM2"])
	assert.Equal(t, clk.Module{Kind: clk.ModulePLL, Base: 0x40038000}, v.Modules["ARM_PLL"])

	c, ok := clockDef(v, "xbar_2x")
	assert.True(t, ok)
	assert.Equal(t, clk.KindPartitionBlock, c.Kind)
	assert.Equal(t, 3, c.Partition)
	assert.Equal(t, uint64(800000000), c.MaxHz)

	c, ok = clockDef(v, "cgm0_mux15")
	assert.True(t, ok)
	assert.Equal(t, uint32(45), *c.Sel)

	_, ok = clockDef(v, "accel3")
	assert.False(t, ok)
}

func TestLoadS32R45Overrides(t *testing.T) {
	v, err := Load("s32r45")
	assert.NoError(t, err)
	assert.Equal(t, clk.Module{Kind: clk.ModuleCGM, Base: 0x440C0000}, v.Modules["CGM2"])

	count := 0
	for _, c := range v.Clocks {
		if c.Name == "per_div" {
			count++
			assert.Empty(t, c.Aliases)
		}
	}
	assert.Equal(t, 1, count)

	c, ok := clockDef(v, "xbar_2x")
	assert.True(t, ok)
	assert.Equal(t, "xbar_part0_blk8", c.Parent)
	assert.Equal(t, 9, c.Block)

	_, ok = clockDef(v, "pfe_pe")
	assert.False(t, ok)
}

func TestBuildVariants(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			v, err := Load(name)
			assert.NoError(t, err)
			s := buildSim(t, v)
			if s == nil {
				return
			}
			assert.Equal(t, name, s.Name)
			for _, clock := range []string{"a53_core", "xbar_2x", "lin_baud", "ddr", "per", "can_pe"} {
				_, err := s.Registry.Lookup(clock)
				assert.NoError(t, err, clock)
			}
			for id := uint32(0); id <= 52; id++ {
				_, err := s.Agent.ClockID(id)
				assert.NoError(t, err, "scmi id %d", id)
			}
		})
	}
}

func TestBuildCopiesSelectors(t *testing.T) {
	v, err := Load("s32g274a")
	assert.NoError(t, err)
	s := buildSim(t, v)

	id, err := s.Registry.Lookup("cgm0_mux15")
	assert.NoError(t, err)
	n, err := s.Registry.Resolve(id)
	assert.NoError(t, err)
	c, _ := clockDef(v, "cgm0_mux15")
	if assert.NotNil(t, n.Sel) {
		assert.Equal(t, uint32(45), *n.Sel)
		assert.NotSame(t, c.Sel, n.Sel)
	}
}

func TestBlockChains(t *testing.T) {
	v, err := Load("s32r45")
	assert.NoError(t, err)
	s := buildSim(t, v)

	id, err := s.Registry.Lookup("xbar_2x")
	assert.NoError(t, err)
	mux, err := s.Registry.Lookup("cgm0_mux0")
	assert.NoError(t, err)

	hops := 0
	for p := id; p != mux; p = s.Registry.Parent(p) {
		n, err := s.Registry.Resolve(p)
		assert.NoError(t, err)
		_, ok := n.Spec.(*clk.PartitionBlock)
		assert.True(t, ok, n.Name)
		hops++
		if hops > 10 {
			break
		}
	}
	assert.Equal(t, 7, hops)
}

func TestPlatformSCMIIDs(t *testing.T) {
	g, err := Load("s32g274a")
	assert.NoError(t, err)
	sg := buildSim(t, g)
	pe, _ := sg.Registry.Lookup("pfe_pe")
	id, err := sg.Agent.ClockID(66)
	assert.NoError(t, err)
	assert.Equal(t, pe, id)
	mode, err := sg.Agent.Mode(53)
	assert.NoError(t, err)
	assert.Equal(t, "sgmii", mode)

	r, err := Load("s32r45")
	assert.NoError(t, err)
	sr := buildSim(t, r)
	accel3, _ := sr.Registry.Lookup("accel3")
	id, err = sr.Agent.ClockID(54)
	assert.NoError(t, err)
	assert.Equal(t, accel3, id)
	_, err = sr.Agent.ClockID(66)
	assert.True(t, errors.Is(err, clk.ErrUnknownClock))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.yaml")
	data := `
name: s32g274a-evb
extends: s32g274a
clocks:
- {name: xbar_2x, kind: part-block, parent: cgm0_mux0, partition: 3, block: 0, min: 48000000, max: 400000000}
- {name: board_osc, kind: fixed, freq: 25000000}
scmi:
  clocks:
  - {id: 0, clock: board_osc}
`
	assert.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	v, err := LoadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "s32g274a-evb", v.Name)
	c, _ := clockDef(v, "xbar_2x")
	assert.Equal(t, uint64(400000000), c.MaxHz)

	s := buildSim(t, v)
	osc, _ := s.Registry.Lookup("board_osc")
	id, err := s.Agent.ClockID(0)
	assert.NoError(t, err)
	assert.Equal(t, osc, id)
	assert.Equal(t, uint64(25000000), s.Registry.GetRate(id))
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"unknown parent", "name: x\nextends: s32g274a\nclocks:\n- {name: y, kind: fixed-div, parent: nothing, ratio: 2}\n"},
		{"unknown kind", "name: x\nextends: s32g274a\nclocks:\n- {name: y, kind: gearbox, parent: firc}\n"},
		{"partition range", "name: x\nextends: s32g274a\nclocks:\n- {name: y, kind: part-block, parent: firc, partition: 7}\n"},
		{"duplicate alias", "name: x\nextends: s32g274a\nclocks:\n- {name: y, aliases: [a53_core], kind: fixed, freq: 1}\n"},
		{"scmi unknown clock", "name: x\nextends: s32g274a\nscmi:\n  clocks:\n  - {id: 500, clock: nothing}\n"},
		{"cycle", "name: x\nextends: s32g274a\nclocks:\n- {name: a, kind: fixed-div, parent: b, ratio: 2}\n- {name: b, kind: fixed-div, parent: a, ratio: 2}\n"},
	}
	dir := t.TempDir()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, "v.yaml")
			assert.NoError(t, os.WriteFile(path, []byte(tc.data), 0o644))
			v, err := LoadFile(path)
			assert.NoError(t, err)
			sim := simhw.New(v.SimLayout())
			_, err = v.Build(Options{Regs: sim})
			assert.Error(t, err)
		})
	}
}

func TestSimLayoutAndWindows(t *testing.T) {
	v, err := Load("s32g274a")
	assert.NoError(t, err)
	l := v.SimLayout()
	assert.Len(t, l.PLLs, 4)
	assert.Len(t, l.DFSs, 2)
	assert.Len(t, l.CGMs, 5)
	assert.Equal(t, []uint64{0x40050000}, l.FXOSCs)
	assert.Equal(t, 4, l.Partitions)

	ws := v.Windows()
	assert.Len(t, ws, len(v.Modules)+3)
	assert.Contains(t, ws, regs.Window{Base: 0x40078000, Size: moduleWindow})
}
