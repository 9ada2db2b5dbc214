package partition

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s32-bsp/s32clk/pkg/hw"
	"github.com/s32-bsp/s32clk/pkg/regs"
	"github.com/s32-bsp/s32clk/pkg/simhw"
)

var testBases = Bases{MCME: 0x40088000, RDC: 0x40080000, RGM: 0x40078000}

func newTestController() (*Controller, *simhw.Model) {
	sim := simhw.New(simhw.Layout{Gating: testBases, Partitions: 3})
	return NewController(sim, regs.NewPoller(0, 100), testBases), sim
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "DISABLED", Disabled.String())
	assert.Equal(t, "RDC_LOCKED", RdcLocked.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
	assert.False(t, PeriphResetConfirmed.Enabled())
	assert.True(t, BlocksClockEnabled.Enabled())
}

func TestEnablePartition(t *testing.T) {
	c, sim := newTestController()
	assert.Equal(t, Disabled, c.State(1))

	assert.NoError(t, c.EnablePartition(1))
	assert.Equal(t, RdcLocked, c.State(1))

	assert.Equal(t, hw.StatPCS, sim.Peek(testBases.STAT(1)))
	assert.Equal(t, hw.PconfPCE, sim.Peek(testBases.PCONF(1)))
	assert.Equal(t, uint32(0), sim.Peek(testBases.RDCCtrl(1)))
	assert.Equal(t, uint32(0), sim.Peek(testBases.RDCStatus(1)))
	assert.Equal(t, uint32(0), sim.Peek(testBases.RGMPstat(1)))
	assert.Equal(t, uint32(0), sim.Peek(testBases.PUPD(1)))

	// unlock, then interconnect enable, then relock
	rdc := sim.WritesTo(testBases.RDCCtrl(1))
	assert.Equal(t, []uint32{hw.RdcUnlock | hw.RdcInterconnectDisable, hw.RdcUnlock, 0}, rdc)

	// partition 2 is untouched
	assert.Equal(t, Disabled, c.State(2))
	assert.Equal(t, hw.StatOSSS, sim.Peek(testBases.STAT(2)))
}

func TestEnablePartitionTwice(t *testing.T) {
	c, sim := newTestController()
	assert.NoError(t, c.EnablePartition(1))

	sim.ResetLog()
	err := c.EnablePartition(1)
	assert.True(t, errors.Is(err, ErrAlreadyEnabled))
	assert.Empty(t, sim.Writes())
	assert.Equal(t, RdcLocked, c.State(1))
}

func TestEnablePartitionEnabledByFirmware(t *testing.T) {
	c, sim := newTestController()
	sim.Poke(testBases.STAT(2), hw.StatPCS)

	err := c.EnablePartition(2)
	assert.True(t, errors.Is(err, ErrAlreadyEnabled))

	// blocks can still be clocked on a partition brought up earlier
	assert.NoError(t, c.EnableBlocks(2, 0x3, true))
	assert.Equal(t, uint32(0x3), sim.Peek(testBases.COFB0Stat(2)))
}

func TestPartitionZero(t *testing.T) {
	c, sim := newTestController()
	assert.Equal(t, RdcLocked, c.State(0))

	sim.ResetLog()
	assert.NoError(t, c.EnablePartition(0))
	assert.Empty(t, sim.Writes())

	assert.NoError(t, c.EnableBlocks(0, 1<<3, true))
	assert.Equal(t, uint32(1<<3), sim.Peek(testBases.COFB0En(0)))
	assert.Equal(t, uint32(1<<3), sim.Peek(testBases.COFB0Stat(0)))
	assert.Equal(t, BlocksClockEnabled, c.State(0))
	assert.Empty(t, sim.WritesTo(testBases.RDCCtrl(0)))
}

func TestEnableBlocks(t *testing.T) {
	c, sim := newTestController()

	assert.NoError(t, c.EnableBlocks(1, 1<<0, true))
	assert.Equal(t, BlocksClockEnabled, c.State(1))
	assert.Len(t, sim.WritesTo(testBases.RGMPrst(1)), 1)

	// a second block of a running partition skips the enable sequence
	sim.ResetLog()
	assert.NoError(t, c.EnableBlocks(1, 1<<4, false))
	assert.Equal(t, uint32(1<<0|1<<4), sim.Peek(testBases.COFB0En(1)))
	assert.Equal(t, uint32(1<<0|1<<4), sim.Peek(testBases.COFB0Stat(1)))
	assert.Empty(t, sim.WritesTo(testBases.RGMPrst(1)))
}

func TestEnableBlocksInvalidMask(t *testing.T) {
	c, sim := newTestController()
	assert.Error(t, c.EnableBlocks(1, 0, false))
	assert.Error(t, c.EnableBlocks(1, 1<<16, false))
	assert.Empty(t, sim.Writes())
}

func TestEnablePartitionTimeout(t *testing.T) {
	c, sim := newTestController()
	// the interconnect never reports enabled
	sim.OnWrite(testBases.RDCCtrl(1), func(s *regs.Sim, addr uint64, val uint32) {
		s.Poke(testBases.RDCStatus(1), hw.RdcInterconnectDisStat)
	})

	err := c.EnablePartition(1)
	assert.True(t, errors.Is(err, regs.ErrHardwareTimeout), "got %v", err)
	assert.Equal(t, PartitionEnableRequested, c.State(1))
}

func TestEnablePartitionRetryAfterTimeout(t *testing.T) {
	c, sim := newTestController()
	stuck := true
	sim.OnWrite(testBases.RDCCtrl(1), func(s *regs.Sim, addr uint64, val uint32) {
		if stuck {
			s.Poke(testBases.RDCStatus(1), hw.RdcInterconnectDisStat)
		}
	})

	err := c.EnablePartition(1)
	assert.True(t, errors.Is(err, regs.ErrHardwareTimeout), "got %v", err)
	// the clock status is already up, the partition is not
	assert.Equal(t, hw.StatPCS, sim.Peek(testBases.STAT(1))&hw.StatPCS)
	assert.Equal(t, PartitionEnableRequested, c.State(1))

	// blocks stay off while the sequence cannot complete
	sim.ResetLog()
	err = c.EnableBlocks(1, 1<<0, true)
	assert.True(t, errors.Is(err, regs.ErrHardwareTimeout), "got %v", err)
	assert.Empty(t, sim.WritesTo(testBases.COFB0En(1)))

	stuck = false
	assert.NoError(t, c.EnablePartition(1))
	assert.Equal(t, RdcLocked, c.State(1))
	assert.Equal(t, uint32(0), sim.Peek(testBases.RGMPrst(1))&hw.RgmPeriph0Rst)
	assert.Equal(t, uint32(0), sim.Peek(testBases.RDCCtrl(1)))

	assert.NoError(t, c.EnableBlocks(1, 1<<0, true))
	assert.Equal(t, BlocksClockEnabled, c.State(1))
	assert.Equal(t, uint32(1<<0), sim.Peek(testBases.COFB0Stat(1)))
}

func TestEnableBlocksCompletesInterruptedSequence(t *testing.T) {
	c, sim := newTestController()
	stuck := true
	sim.OnWrite(testBases.RDCCtrl(1), func(s *regs.Sim, addr uint64, val uint32) {
		if stuck {
			s.Poke(testBases.RDCStatus(1), hw.RdcInterconnectDisStat)
		}
	})
	assert.Error(t, c.EnablePartition(1))

	stuck = false
	assert.NoError(t, c.EnableBlocks(1, 1<<2, true))
	assert.Equal(t, BlocksClockEnabled, c.State(1))
	assert.Equal(t, uint32(0), sim.Peek(testBases.RGMPrst(1))&hw.RgmPeriph0Rst)
	assert.Equal(t, uint32(0), sim.Peek(testBases.RDCCtrl(1)))
	assert.Equal(t, uint32(1<<2), sim.Peek(testBases.COFB0Stat(1)))
}
