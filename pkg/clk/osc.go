package clk

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/s32-bsp/s32clk/pkg/hw"
	"github.com/s32-bsp/s32clk/pkg/regs"
)

// SetupReferenceOscillator starts the crystal oscillator id unless it is
// already running. Internal RC oscillators are always on.
func (r *Registry) SetupReferenceOscillator(id NodeID) error {
	n, err := r.Resolve(id)
	if err != nil {
		return err
	}
	osc, ok := n.Spec.(*Oscillator)
	if !ok {
		return fmt.Errorf("clock %s is not an oscillator: %w", n.Name, ErrNotSupported)
	}
	if _, ok := r.modules[osc.Instance]; !ok {
		return nil
	}
	m, err := r.module(osc.Instance, ModuleFXOSC)
	if err != nil {
		return err
	}

	// analog inputs must not change while the oscillator runs
	if r.acc.Read32(m.Base+hw.FxoscCTRL)&hw.FxoscOSCON != 0 {
		return nil
	}

	ctrl := hw.FxoscCompEN |
		regs.Place(1, hw.FxoscEOCVMask, hw.FxoscEOCVShift) |
		regs.Place(7, hw.FxoscGMSELMask, hw.FxoscGMSELShift)
	r.acc.Write32(m.Base+hw.FxoscCTRL, ctrl)
	regs.SetBits(r.acc, m.Base+hw.FxoscCTRL, hw.FxoscOSCON)

	if err := r.poller.WaitSet(r.acc, m.Base+hw.FxoscSTAT, hw.FxoscOscStat, n.Name+" stabilization"); err != nil {
		return err
	}
	glog.Infof("oscillator %s running at %d Hz", n.Name, osc.FreqHz)
	return nil
}
