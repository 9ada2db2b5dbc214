package partition

import (
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/s32-bsp/s32clk/pkg/hw"
	"github.com/s32-bsp/s32clk/pkg/metrics"
	"github.com/s32-bsp/s32clk/pkg/regs"
)

// Bases holds the MC_ME, RDC and MC_RGM base addresses
type Bases = hw.GatingBases

// ErrAlreadyEnabled is returned when the enable sequence is requested again
// for a non-zero partition. Silicon blocks a second activation unless the
// partition was disabled in between.
var ErrAlreadyEnabled = errors.New("partition already enabled")

// MaxBlock is the highest COFB0 block index
const MaxBlock = 15

// Controller drives the MC_ME / RDC / MC_RGM partition gating sequence
type Controller struct {
	acc    regs.Accessor
	poller *regs.Poller
	bases  Bases
	states map[int]State
}

// NewController returns a controller. Partition 0 starts enabled.
func NewController(acc regs.Accessor, poller *regs.Poller, bases Bases) *Controller {
	if poller == nil {
		poller = regs.DefaultPoller()
	}
	return &Controller{
		acc:    acc,
		poller: poller,
		bases:  bases,
		states: map[int]State{0: RdcLocked},
	}
}

// Bases returns the register bases the controller was built with
func (c *Controller) Bases() Bases {
	return c.bases
}

// State returns the last state reached by partition p
func (c *Controller) State(p int) State {
	return c.states[p]
}

func (c *Controller) setState(p int, s State) {
	c.states[p] = s
	metrics.UpdatePartitionState(p, int(s))
	glog.V(2).Infof("partition %d: %s", p, s)
}

// commit requests an MC_ME update of partition p for the PUPD bits in mask
// and waits for the hardware to acknowledge it
func (c *Controller) commit(p int, mask uint32, op string) error {
	regs.SetBits(c.acc, c.bases.PUPD(p), mask)
	c.acc.Write32(c.bases.CtlKey(), hw.McMeKey)
	c.acc.Write32(c.bases.CtlKey(), hw.McMeInvertedKey)
	return c.poller.WaitClear(c.acc, c.bases.PUPD(p), mask, fmt.Sprintf("partition %d %s", p, op))
}

// enabled reports whether partition p completed its enable sequence, either
// through this controller or before it was created. A partition left in an
// intermediate state by a failed sequence is not enabled, even when its
// clock status bit is already set.
func (c *Controller) enabled(p int) bool {
	st, known := c.states[p]
	if known {
		return st.Enabled()
	}
	return c.acc.Read32(c.bases.STAT(p))&hw.StatPCS != 0
}

// EnablePartition runs the full enable sequence for partition p.
// Partition 0 is always on and is left untouched. After a failure the
// partition keeps the state it reached and the sequence may be run again.
func (c *Controller) EnablePartition(p int) error {
	if p == 0 {
		return nil
	}
	if c.enabled(p) {
		return fmt.Errorf("partition %d: %w", p, ErrAlreadyEnabled)
	}

	regs.SetBits(c.acc, c.bases.PCONF(p), hw.PconfPCE)
	c.setState(p, PartitionEnableRequested)

	if err := c.commit(p, hw.PupdPCUD, "clock update"); err != nil {
		return err
	}
	if err := c.poller.WaitSet(c.acc, c.bases.STAT(p), hw.StatPCS, fmt.Sprintf("partition %d clock status", p)); err != nil {
		return err
	}

	regs.SetBits(c.acc, c.bases.RDCCtrl(p), hw.RdcUnlock)
	regs.ClearBits(c.acc, c.bases.RDCCtrl(p), hw.RdcInterconnectDisable)
	if err := c.poller.WaitClear(c.acc, c.bases.RDCStatus(p), hw.RdcInterconnectDisStat, fmt.Sprintf("partition %d xbar enable", p)); err != nil {
		return err
	}
	c.setState(p, XbarWaitEnabled)

	regs.ClearBits(c.acc, c.bases.RGMPrst(p), hw.RgmPeriph0Rst)
	if err := c.poller.WaitClear(c.acc, c.bases.RGMPstat(p), hw.RgmPeriph0Stat, fmt.Sprintf("partition %d reset release", p)); err != nil {
		return err
	}
	c.setState(p, ResetReleased)

	regs.ClearBits(c.acc, c.bases.PCONF(p), hw.PconfOSSE)
	c.setState(p, OsseClearRequested)
	if err := c.commit(p, hw.PupdOSSUD, "output safe state update"); err != nil {
		return err
	}
	c.setState(p, OsseUpdatePending)
	if err := c.poller.WaitClear(c.acc, c.bases.STAT(p), hw.StatOSSS, fmt.Sprintf("partition %d output safe state", p)); err != nil {
		return err
	}
	c.setState(p, OsseClearConfirmed)
	if err := c.poller.WaitClear(c.acc, c.bases.RGMPstat(p), hw.RgmPeriph0Stat, fmt.Sprintf("partition %d reset status", p)); err != nil {
		return err
	}
	c.setState(p, PeriphResetConfirmed)

	regs.ClearBits(c.acc, c.bases.RDCCtrl(p), hw.RdcUnlock)
	c.setState(p, RdcLocked)

	glog.Infof("partition %d enabled", p)
	return nil
}

// EnableBlocks turns on the COFB0 clocks in mask for partition p, enabling
// the partition first when it is still off. When checkStatus is set it
// waits for the blocks to report their clocks as running.
func (c *Controller) EnableBlocks(p int, mask uint32, checkStatus bool) error {
	if mask == 0 || mask>>(MaxBlock+1) != 0 {
		return fmt.Errorf("partition %d: invalid block mask %#x", p, mask)
	}
	if !c.enabled(p) {
		if err := c.EnablePartition(p); err != nil {
			return err
		}
	}

	regs.SetBits(c.acc, c.bases.COFB0En(p), mask)
	regs.SetBits(c.acc, c.bases.PCONF(p), hw.PconfPCE)
	if err := c.commit(p, hw.PupdPCUD, "block clock update"); err != nil {
		return err
	}

	if checkStatus {
		op := fmt.Sprintf("partition %d block status %#x", p, mask)
		if err := c.poller.WaitSet(c.acc, c.bases.COFB0Stat(p), mask, op); err != nil {
			return err
		}
	}
	c.setState(p, BlocksClockEnabled)
	glog.Infof("partition %d: blocks %#x clocked", p, mask)
	return nil
}
