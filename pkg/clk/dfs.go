package clk

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/s32-bsp/s32clk/pkg/hw"
	"github.com/s32-bsp/s32clk/pkg/regs"
)

// DfsFactors returns the DVPORT divider fields producing out from in.
// The factors are returned together with ErrRange when they only
// approximate out.
func DfsFactors(in, out uint64) (mfi, mfn uint32, err error) {
	if out == 0 {
		return 0, 0, fmt.Errorf("dfs port frequency not requested: %w", ErrNotConfigured)
	}
	mfi = uint32(in / out / 2)
	if mfi > hw.DfsDVPortMFIMask>>hw.DfsDVPortMFIShift {
		return 0, 0, fmt.Errorf("no dfs divider for %d Hz from %d Hz: %w", out, in, ErrRange)
	}
	dmfn := (float64(in)/float64(2*out) - float64(mfi)) * hw.DfsMFNDenominator
	mfn = uint32(dmfn)
	got := dfsOutput(in, mfi, mfn)
	if mfi == 0 && mfn == 0 {
		return 0, 0, fmt.Errorf("no dfs divider for %d Hz from %d Hz: %w", out, in, ErrRange)
	}
	if got != out {
		return mfi, mfn, fmt.Errorf("no exact dfs divider for %d Hz from %d Hz, nearest %d Hz: %w", out, in, got, ErrRange)
	}
	return mfi, mfn, nil
}

// ProgramDFSPort configures the DFS port id to its requested frequency
func (r *Registry) ProgramDFSPort(id NodeID) error {
	n, err := r.Resolve(id)
	if err != nil {
		return err
	}
	div, ok := n.Spec.(*DfsOutputDivider)
	if !ok {
		return fmt.Errorf("clock %s is not a dfs port: %w", n.Name, ErrNotSupported)
	}
	dfs := r.nodes[div.Parent].Spec.(*Dfs)
	m, err := r.module(dfs.Instance, ModuleDFS)
	if err != nil {
		return err
	}
	if div.RequestedHz == 0 {
		return fmt.Errorf("clock %s: frequency not requested: %w", n.Name, ErrNotConfigured)
	}

	var in uint64
	if r.acc.Read32(m.Base+hw.DfsCtl)&hw.DfsCtlReset == 0 {
		in = r.GetRate(div.Parent)
	} else {
		in = r.GetRate(dfs.Parent)
	}
	if in == 0 {
		return fmt.Errorf("clock %s: dfs input not running: %w", n.Name, ErrNotConfigured)
	}

	mfi, mfn, err := DfsFactors(in, div.RequestedHz)
	if err != nil {
		if mfi == 0 && mfn == 0 {
			return fmt.Errorf("clock %s: %w", n.Name, err)
		}
		if err := r.inexact(fmt.Errorf("clock %s: %w", n.Name, err)); err != nil {
			return err
		}
	}
	return r.initDfsPort(n.Name, m.Base, div.Port, mfi, mfn)
}

func (r *Registry) initDfsPort(name string, base uint64, port int, mfi, mfn uint32) error {
	bit := regs.Bit(uint(port))
	dvport := r.acc.Read32(base + hw.DfsDVPort(port))
	portsr := r.acc.Read32(base + hw.DfsPortSR)
	portolsr := r.acc.Read32(base + hw.DfsPortOLSR)

	if portsr&bit != 0 && portolsr&bit == 0 &&
		regs.Field(dvport, hw.DfsDVPortMFIMask, hw.DfsDVPortMFIShift) == mfi &&
		regs.Field(dvport, hw.DfsDVPortMFNMask, 0) == mfn {
		return nil
	}

	initDfs := portsr == 0
	mask := bit
	if initDfs {
		mask = hw.DfsPortResetMaxVal
	}

	r.acc.Write32(base+hw.DfsPortOLSR, mask)
	r.acc.Write32(base+hw.DfsPortReset, mask)
	if err := r.poller.WaitClear(r.acc, base+hw.DfsPortSR, mask, name+" port reset"); err != nil {
		return err
	}

	if initDfs {
		r.acc.Write32(base+hw.DfsCtl, hw.DfsCtlReset)
	}
	r.acc.Write32(base+hw.DfsDVPort(port),
		regs.Place(mfi, hw.DfsDVPortMFIMask, hw.DfsDVPortMFIShift)|regs.Place(mfn, hw.DfsDVPortMFNMask, 0))
	if initDfs {
		regs.ClearBits(r.acc, base+hw.DfsCtl, hw.DfsCtlReset)
	}

	regs.ClearBits(r.acc, base+hw.DfsPortReset, bit)
	if err := r.poller.WaitSet(r.acc, base+hw.DfsPortSR, bit, name+" port lock"); err != nil {
		return err
	}

	if r.acc.Read32(base+hw.DfsPortOLSR)&bit != 0 {
		glog.Errorf("dfs port %s lost lock", name)
		return fmt.Errorf("dfs port %s: loss of lock after programming: %w", name, ErrHardwareSequence)
	}
	glog.Infof("dfs port %s programmed (mfi %d, mfn %d)", name, mfi, mfn)
	return nil
}
