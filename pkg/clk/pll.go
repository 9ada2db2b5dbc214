package clk

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/s32-bsp/s32clk/pkg/hw"
	"github.com/s32-bsp/s32clk/pkg/metrics"
	"github.com/s32-bsp/s32clk/pkg/regs"
)

// PllFactors returns the integer and fractional loop divider producing vco
// from ref in fractional-N mode. The factors are returned together with
// ErrRange when they only approximate vco.
func PllFactors(vco, ref uint64) (mfi, mfn uint32, err error) {
	if ref == 0 {
		return 0, 0, fmt.Errorf("pll reference not running: %w", ErrNotConfigured)
	}
	mfi = uint32(vco / ref)
	if mfi == 0 || mfi > hw.PllDVMFIMask {
		return 0, 0, fmt.Errorf("no loop divider for vco %d Hz from %d Hz: %w", vco, ref, ErrRange)
	}
	dmfn := float64(vco%ref) / float64(ref) * hw.PllMFNDenominator
	mfn = uint32(dmfn)
	if dmfn-float64(mfn) >= 0.5 {
		mfn++
	}
	if got := uint64(float64(ref) * (float64(mfi) + float64(mfn)/hw.PllMFNDenominator)); got != vco {
		return mfi, mfn, fmt.Errorf("no exact loop divider for vco %d Hz from %d Hz, nearest %d Hz: %w", vco, ref, got, ErrRange)
	}
	return mfi, mfn, nil
}

func (r *Registry) pllMux(pll *Pll) *Mux {
	return r.nodes[pll.Source].Spec.(*Mux)
}

func (r *Registry) pllEnabled(base uint64) bool {
	return r.acc.Read32(base+hw.PllCR)&hw.PllCRPLLPD == 0 &&
		r.acc.Read32(base+hw.PllSR)&hw.PllSRLock != 0
}

func (r *Registry) enablePll(id NodeID, n *Node, pll *Pll) error {
	if err := r.enable(pll.Source); err != nil {
		return err
	}
	m, err := r.module(pll.Instance, ModulePLL)
	if err != nil {
		return err
	}
	if pll.VcoHz == 0 {
		return fmt.Errorf("pll %s: vco frequency not requested: %w", n.Name, ErrNotConfigured)
	}

	mux := r.pllMux(pll)
	ref := r.acc.Read32(m.Base + hw.PllClkMux)
	if int(ref) < len(mux.Candidates) && mux.Candidates[ref] == mux.Selected &&
		r.pllEnabled(m.Base) && r.GetRate(id) == pll.VcoHz {
		return nil
	}
	return r.ProgramPLL(id)
}

// ProgramPLL reprograms the PLL id to its requested VCO frequency from the
// reference selected on its source mux. Output dividers that were running
// keep their frequencies where the new VCO allows it.
func (r *Registry) ProgramPLL(id NodeID) error {
	n, err := r.Resolve(id)
	if err != nil {
		return err
	}
	pll, ok := n.Spec.(*Pll)
	if !ok {
		return fmt.Errorf("clock %s is not a pll: %w", n.Name, ErrNotSupported)
	}
	m, err := r.module(pll.Instance, ModulePLL)
	if err != nil {
		return err
	}
	if pll.VcoHz == 0 {
		return fmt.Errorf("pll %s: vco frequency not requested: %w", n.Name, ErrNotConfigured)
	}

	mux := r.pllMux(pll)
	ref := -1
	for i, c := range mux.Candidates {
		if c == mux.Selected {
			ref = i
		}
	}
	sfreq := r.GetRate(mux.Selected)
	mfi, mfn, err := PllFactors(pll.VcoHz, sfreq)
	if err != nil {
		if mfi == 0 {
			return fmt.Errorf("pll %s: %w", n.Name, err)
		}
		if err := r.inexact(fmt.Errorf("pll %s: %w", n.Name, err)); err != nil {
			return err
		}
	}

	base := m.Base
	odivs := r.enabledODivs(base, pll.Outputs)
	oldVco := r.GetRate(id)

	for i := 0; i < pll.Outputs; i++ {
		regs.ClearBits(r.acc, base+hw.PllODIV(i), hw.PllODIVDE)
	}
	r.acc.Write32(base+hw.PllCR, hw.PllCRPLLPD)

	r.acc.Write32(base+hw.PllClkMux, uint32(ref))
	r.acc.Write32(base+hw.PllDV, regs.Place(1, hw.PllDVRDIVMask, hw.PllDVRDIVShift)|regs.Place(mfi, hw.PllDVMFIMask, 0))
	r.acc.Write32(base+hw.PllFD, regs.Place(mfn, hw.PllFDMFNMask, 0)|hw.PllFDSMDEN)

	r.adjustODivs(n.Name, base, pll, odivs, oldVco)

	r.acc.Write32(base+hw.PllCR, 0)
	polls, err := r.poller.Poll(n.Name+" lock", func() bool {
		return r.acc.Read32(base+hw.PllSR)&hw.PllSRLock != 0
	})
	metrics.UpdatePllLockPolls(pll.Instance, polls)
	if err != nil {
		return err
	}

	for i := 0; i < pll.Outputs; i++ {
		if odivs&regs.Bit(uint(i)) != 0 {
			regs.SetBits(r.acc, base+hw.PllODIV(i), hw.PllODIVDE)
		}
	}
	glog.Infof("pll %s locked at %d Hz (ref %s, mfi %d, mfn %d)", n.Name, pll.VcoHz, r.Name(mux.Selected), mfi, mfn)
	return nil
}

func (r *Registry) enabledODivs(base uint64, outputs int) uint32 {
	var mask uint32
	for i := 0; i < outputs; i++ {
		if r.acc.Read32(base+hw.PllODIV(i))&hw.PllODIVDE != 0 {
			mask |= regs.Bit(uint(i))
		}
	}
	return mask
}

func (r *Registry) adjustODivs(name string, base uint64, pll *Pll, mask uint32, oldVco uint64) {
	if oldVco == 0 {
		return
	}
	for i := 0; i < pll.Outputs; i++ {
		if mask&regs.Bit(uint(i)) == 0 {
			continue
		}
		div := regs.Field(r.acc.Read32(base+hw.PllODIV(i)), hw.PllODIVDIVMask, hw.PllODIVDIVShift)
		oldFreq := float64(oldVco) / float64(div+1)
		div = uint32(float64(pll.VcoHz) / oldFreq)
		if div == 0 {
			div = 1
		}
		if newFreq := float64(pll.VcoHz) / float64(div); newFreq != oldFreq {
			glog.Errorf("pll %s: output %d moves from %d Hz to %d Hz", name, i, uint64(oldFreq), uint64(newFreq))
		}
		r.acc.Write32(base+hw.PllODIV(i), regs.Place(div-1, hw.PllODIVDIVMask, hw.PllODIVDIVShift))
	}
}
