package clk

import (
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/s32-bsp/s32clk/pkg/hw"
	"github.com/s32-bsp/s32clk/pkg/metrics"
	"github.com/s32-bsp/s32clk/pkg/regs"
)

// Enable brings up id and everything it derives from, programming the
// frequencies recorded by SetRate
func (r *Registry) Enable(id NodeID) error {
	if err := r.enable(id); err != nil {
		glog.Errorf("failed to enable clock %s: %v", r.Name(id), err)
		return err
	}
	metrics.UpdateClockRate(r.Name(id), r.GetRate(id))
	return nil
}

func (r *Registry) enable(id NodeID) error {
	n, err := r.Resolve(id)
	if err != nil {
		return err
	}

	switch v := n.Spec.(type) {
	case *Oscillator:
		if _, ok := r.modules[v.Instance]; !ok {
			return nil
		}
		return r.SetupReferenceOscillator(id)
	case *FixedClock:
		return nil
	case *Pll:
		return r.enablePll(id, n, v)
	case *PllOutputDivider:
		return r.enablePllDiv(n, v)
	case *Dfs:
		return r.enable(v.Parent)
	case *DfsOutputDivider:
		if err := r.enable(v.Parent); err != nil {
			return err
		}
		return r.ProgramDFSPort(id)
	case *FixedDivider:
		return r.enable(v.Parent)
	case *CgmDivider:
		return r.enableCgmDiv(n, v)
	case *Mux:
		if err := r.enable(v.Selected); err != nil {
			return err
		}
		if r.modules[v.Module].Kind == ModulePLL {
			// programmed together with the PLL
			return nil
		}
		return r.switchMux(n, v, v.Selected)
	case *PartitionBlock:
		if r.parts == nil {
			return fmt.Errorf("partition block %s: no partition controller: %w", n.Name, ErrNotConfigured)
		}
		if err := r.parts.EnableBlocks(v.Partition, v.Mask(), v.CheckStatus); err != nil {
			return fmt.Errorf("partition block %s: %w", n.Name, err)
		}
		return r.enable(v.Parent)
	default:
		return fmt.Errorf("clock %s: unhandled node type %T", n.Name, n.Spec)
	}
}

// exact divider giving out from in, honoring the nearest frequency mode
func (r *Registry) divider(name string, in, out uint64) (uint32, error) {
	if out == 0 {
		return 0, fmt.Errorf("clock %s: frequency not requested: %w", name, ErrNotConfigured)
	}
	if in == 0 {
		return 0, fmt.Errorf("clock %s: input not running: %w", name, ErrNotConfigured)
	}
	dc := uint32(float64(in) / float64(out))
	if dc == 0 {
		return 0, fmt.Errorf("clock %s: %d Hz above input %d Hz: %w", name, out, in, ErrRange)
	}
	if got := uint64(float64(in) / float64(dc)); got != out {
		err := fmt.Errorf("clock %s: cannot divide %d Hz to %d Hz, nearest %d Hz: %w", name, in, out, got, ErrRange)
		if err := r.inexact(err); err != nil {
			return 0, err
		}
	}
	return dc, nil
}

// inexact lets ErrRange through as a warning in nearest frequency mode
func (r *Registry) inexact(err error) error {
	if r.nearest && errors.Is(err, ErrRange) {
		glog.Warningf("%v, using nearest frequency", err)
		return nil
	}
	return err
}

func (r *Registry) enablePllDiv(n *Node, div *PllOutputDivider) error {
	if div.RequestedHz == 0 {
		return fmt.Errorf("clock %s: frequency not requested: %w", n.Name, ErrNotConfigured)
	}
	if err := r.enable(div.Parent); err != nil {
		return err
	}
	pll := r.nodes[div.Parent].Spec.(*Pll)
	m, err := r.module(pll.Instance, ModulePLL)
	if err != nil {
		return err
	}
	dc, err := r.divider(n.Name, r.GetRate(div.Parent), div.RequestedHz)
	if err != nil {
		return err
	}
	if dc-1 > regs.Field(hw.PllODIVDIVMask, hw.PllODIVDIVMask, hw.PllODIVDIVShift) {
		return fmt.Errorf("clock %s: divider %d too large: %w", n.Name, dc, ErrRange)
	}
	r.configPllOutDiv(m.Base, div.Index, dc)
	return nil
}

func (r *Registry) configPllOutDiv(base uint64, index int, dc uint32) {
	addr := base + hw.PllODIV(index)
	odiv := r.acc.Read32(addr)
	if regs.Field(odiv, hw.PllODIVDIVMask, hw.PllODIVDIVShift)+1 == dc && odiv&hw.PllODIVDE != 0 {
		return
	}
	if odiv&hw.PllODIVDE != 0 {
		regs.ClearBits(r.acc, addr, hw.PllODIVDE)
	}
	r.acc.Write32(addr, regs.Place(dc-1, hw.PllODIVDIVMask, hw.PllODIVDIVShift))
	regs.SetBits(r.acc, addr, hw.PllODIVDE)
}

func (r *Registry) enableCgmDiv(n *Node, div *CgmDivider) error {
	if div.RequestedHz == 0 {
		return fmt.Errorf("clock %s: frequency not requested: %w", n.Name, ErrNotConfigured)
	}
	if err := r.enable(div.Parent); err != nil {
		return err
	}
	mux := r.nodes[div.Parent].Spec.(*Mux)
	m, err := r.module(mux.Module, ModuleCGM)
	if err != nil {
		return err
	}
	dc, err := r.divider(n.Name, r.GetRate(div.Parent), div.RequestedHz)
	if err != nil {
		return err
	}
	if dc-1 > regs.Field(hw.CgmDCDIVMask, hw.CgmDCDIVMask, hw.CgmDCDIVShift) {
		return fmt.Errorf("clock %s: divider %d too large: %w", n.Name, dc, ErrRange)
	}

	addr := m.Base + hw.CgmDC(mux.Index)
	want := hw.CgmDCDE | regs.Place(dc-1, hw.CgmDCDIVMask, hw.CgmDCDIVShift)
	if r.acc.Read32(addr)&(hw.CgmDCDE|hw.CgmDCDIVMask) == want {
		return nil
	}
	r.acc.Write32(addr, want)
	return r.poller.WaitClear(r.acc, m.Base+hw.CgmDivUpd(mux.Index), hw.CgmDivUpdStat, n.Name+" divider update")
}
