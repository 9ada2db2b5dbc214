// Package simhw models how the S32 clock, mode entry and reset blocks
// react to register writes, on top of an in-memory register file.
package simhw

import (
	"github.com/golang/glog"

	"github.com/s32-bsp/s32clk/pkg/hw"
	"github.com/s32-bsp/s32clk/pkg/regs"
)

// DefaultCgmMuxes is the number of muxes modeled per CGM
const DefaultCgmMuxes = 17

// Layout lists the hardware blocks to model
type Layout struct {
	PLLs       []uint64
	DFSs       []uint64
	CGMs       []uint64
	CgmMuxes   int
	FXOSCs     []uint64
	Gating     hw.GatingBases
	Partitions int
}

type muxKey struct {
	base uint64
	mux  int
}

type dfsPort struct {
	base uint64
	port int
}

// Model is a register file with S32 clock hardware behavior attached.
// Registers start at their reset values.
type Model struct {
	*regs.Sim
	layout Layout

	stuckPlls    map[uint64]bool
	failedMuxes  map[muxKey]bool
	hungMuxes    map[muxKey]bool
	unlockedDfs  map[dfsPort]bool
	stuckOscs    map[uint64]bool
	lastKeyWrite uint32
}

// New builds the model for layout
func New(layout Layout) *Model {
	if layout.CgmMuxes == 0 {
		layout.CgmMuxes = DefaultCgmMuxes
	}
	m := &Model{
		Sim:         regs.NewSim(),
		layout:      layout,
		stuckPlls:   map[uint64]bool{},
		failedMuxes: map[muxKey]bool{},
		hungMuxes:   map[muxKey]bool{},
		unlockedDfs: map[dfsPort]bool{},
		stuckOscs:   map[uint64]bool{},
	}
	for _, base := range layout.PLLs {
		m.addPll(base)
	}
	for _, base := range layout.DFSs {
		m.addDfs(base)
	}
	for _, base := range layout.CGMs {
		for i := 0; i < layout.CgmMuxes; i++ {
			m.addCgmMux(base, i)
		}
	}
	for _, base := range layout.FXOSCs {
		m.addFxosc(base)
	}
	if layout.Gating.MCME != 0 {
		m.addGating()
	}
	return m
}

// StickPllLock keeps the PLL at base from ever reporting lock
func (m *Model) StickPllLock(base uint64) {
	m.stuckPlls[base] = true
}

// FailMuxSwitch makes switches of a CGM mux complete on the old source
// with a failed trigger cause
func (m *Model) FailMuxSwitch(base uint64, mux int) {
	m.failedMuxes[muxKey{base, mux}] = true
}

// HangMuxSwitch leaves switches of a CGM mux in progress forever
func (m *Model) HangMuxSwitch(base uint64, mux int) {
	m.hungMuxes[muxKey{base, mux}] = true
}

// LoseDfsLock reports loss of lock on a DFS port after it is programmed
func (m *Model) LoseDfsLock(base uint64, port int) {
	m.unlockedDfs[dfsPort{base, port}] = true
}

// StickOscillator keeps the oscillator at base from stabilizing
func (m *Model) StickOscillator(base uint64) {
	m.stuckOscs[base] = true
}

func (m *Model) addPll(base uint64) {
	m.Poke(base+hw.PllCR, hw.PllCRPLLPD)
	m.OnWrite(base+hw.PllCR, func(s *regs.Sim, addr uint64, val uint32) {
		if val&hw.PllCRPLLPD != 0 || m.stuckPlls[base] {
			s.Poke(base+hw.PllSR, 0)
			return
		}
		s.Poke(base+hw.PllSR, hw.PllSRLock)
	})
}

func (m *Model) addDfs(base uint64) {
	m.Poke(base+hw.DfsCtl, hw.DfsCtlReset)
	m.Poke(base+hw.DfsPortReset, hw.DfsPortResetMaxVal)

	// PORTOLSR is write one to clear, so its value is kept outside the
	// register file
	olsr := uint32(0)
	update := func(s *regs.Sim) {
		if s.Peek(base+hw.DfsCtl)&hw.DfsCtlReset != 0 {
			s.Poke(base+hw.DfsPortSR, 0)
			return
		}
		running := ^s.Peek(base+hw.DfsPortReset) & hw.DfsPortResetMaxVal
		s.Poke(base+hw.DfsPortSR, running)
		for p := 0; p < hw.DfsPorts; p++ {
			if running&regs.Bit(uint(p)) != 0 && m.unlockedDfs[dfsPort{base, p}] {
				olsr |= regs.Bit(uint(p))
			}
		}
		s.Poke(base+hw.DfsPortOLSR, olsr)
	}
	m.OnWrite(base+hw.DfsPortOLSR, func(s *regs.Sim, addr uint64, val uint32) {
		olsr &^= val
		s.Poke(addr, olsr)
	})
	m.OnWrite(base+hw.DfsPortReset, func(s *regs.Sim, addr uint64, val uint32) {
		update(s)
	})
	m.OnWrite(base+hw.DfsCtl, func(s *regs.Sim, addr uint64, val uint32) {
		update(s)
	})
}

func (m *Model) addCgmMux(base uint64, mux int) {
	csc := base + hw.CgmCSC(mux)
	css := base + hw.CgmCSS(mux)
	m.Poke(css, regs.Place(hw.CgmSWTRGSuccess, hw.CgmSWTRGMask, hw.CgmSWTRGShift))

	m.OnWrite(csc, func(s *regs.Sim, addr uint64, val uint32) {
		if val&hw.CgmCSCClkSW == 0 {
			return
		}
		key := muxKey{base, mux}
		sel := regs.Field(val, hw.CgmSELCTLMask, hw.CgmSELCTLShift)
		switch {
		case m.hungMuxes[key]:
			s.Poke(css, s.Peek(css)|hw.CgmCSSSWIP)
		case m.failedMuxes[key]:
			old := s.Peek(css) & hw.CgmSELSTATMask
			s.Poke(css, old|regs.Place(2, hw.CgmSWTRGMask, hw.CgmSWTRGShift))
		default:
			s.Poke(css, regs.Place(sel, hw.CgmSELSTATMask, hw.CgmSELCTLShift)|
				regs.Place(hw.CgmSWTRGSuccess, hw.CgmSWTRGMask, hw.CgmSWTRGShift))
		}
		if !m.hungMuxes[key] {
			s.Poke(csc, val&^hw.CgmCSCClkSW)
		}
		glog.V(4).Infof("sim: cgm %#x mux %d select %d", base, mux, sel)
	})
}

func (m *Model) addFxosc(base uint64) {
	m.OnWrite(base+hw.FxoscCTRL, func(s *regs.Sim, addr uint64, val uint32) {
		if val&hw.FxoscOSCON != 0 && !m.stuckOscs[base] {
			s.Poke(base+hw.FxoscSTAT, hw.FxoscOscStat)
			return
		}
		s.Poke(base+hw.FxoscSTAT, 0)
	})
}

func (m *Model) addGating() {
	g := m.layout.Gating
	m.Poke(g.PCONF(0), hw.PconfPCE)
	m.Poke(g.STAT(0), hw.StatPCS)
	for p := 1; p < m.layout.Partitions; p++ {
		m.Poke(g.PCONF(p), hw.PconfOSSE)
		m.Poke(g.STAT(p), hw.StatOSSS)
		m.Poke(g.RDCCtrl(p), hw.RdcInterconnectDisable)
		m.Poke(g.RDCStatus(p), hw.RdcInterconnectDisStat)
		m.Poke(g.RGMPrst(p), hw.RgmPeriph0Rst)
		m.Poke(g.RGMPstat(p), hw.RgmPeriph0Stat)
	}
	for p := 0; p < m.layout.Partitions; p++ {
		p := p
		m.OnWrite(g.RDCCtrl(p), func(s *regs.Sim, addr uint64, val uint32) {
			if val&hw.RdcInterconnectDisable != 0 {
				s.Poke(g.RDCStatus(p), hw.RdcInterconnectDisStat)
				return
			}
			s.Poke(g.RDCStatus(p), 0)
		})
		m.OnWrite(g.RGMPrst(p), func(s *regs.Sim, addr uint64, val uint32) {
			s.Poke(g.RGMPstat(p), val&hw.RgmPeriph0Rst)
		})
	}
	m.OnWrite(g.CtlKey(), func(s *regs.Sim, addr uint64, val uint32) {
		if val == hw.McMeInvertedKey && m.lastKeyWrite == hw.McMeKey {
			m.commitPartitions(s)
		}
		m.lastKeyWrite = val
	})
}

func (m *Model) commitPartitions(s *regs.Sim) {
	g := m.layout.Gating
	for p := 0; p < m.layout.Partitions; p++ {
		pupd := s.Peek(g.PUPD(p))
		if pupd == 0 {
			continue
		}
		pconf := s.Peek(g.PCONF(p))
		stat := s.Peek(g.STAT(p))
		if pupd&hw.PupdPCUD != 0 {
			stat &^= hw.StatPCS
			if pconf&hw.PconfPCE != 0 {
				stat |= hw.StatPCS
				s.Poke(g.COFB0Stat(p), s.Peek(g.COFB0En(p)))
			} else {
				s.Poke(g.COFB0Stat(p), 0)
			}
		}
		if pupd&hw.PupdOSSUD != 0 {
			stat &^= hw.StatOSSS
			if pconf&hw.PconfOSSE != 0 {
				stat |= hw.StatOSSS
			}
		}
		s.Poke(g.STAT(p), stat)
		s.Poke(g.PUPD(p), 0)
		glog.V(4).Infof("sim: partition %d update committed", p)
	}
}
