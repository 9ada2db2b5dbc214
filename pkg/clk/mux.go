package clk

import (
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/s32-bsp/s32clk/pkg/hw"
	"github.com/s32-bsp/s32clk/pkg/metrics"
	"github.com/s32-bsp/s32clk/pkg/regs"
)

// switchMux runs the MC_CGM clock switch protocol moving mux to source
func (r *Registry) switchMux(n *Node, mux *Mux, source NodeID) error {
	m, err := r.module(mux.Module, ModuleCGM)
	if err != nil {
		return fmt.Errorf("mux %s: %w", n.Name, err)
	}
	sel := r.nodes[source].Sel
	if sel == nil {
		return fmt.Errorf("mux %s: %s has no selector: %w", n.Name, r.Name(source), ErrInvalidParent)
	}
	cscAddr := m.Base + hw.CgmCSC(mux.Index)
	cssAddr := m.Base + hw.CgmCSS(mux.Index)

	css := r.acc.Read32(cssAddr)
	if regs.Field(css, hw.CgmSELSTATMask, hw.CgmSELCTLShift) == *sel &&
		regs.Field(css, hw.CgmSWTRGMask, hw.CgmSWTRGShift) == hw.CgmSWTRGSuccess &&
		css&hw.CgmCSSSWIP == 0 {
		metrics.IncMuxSwitch(n.Name, metrics.SwitchSkipped)
		return nil
	}

	err = r.commitSwitch(n.Name, cscAddr, cssAddr, *sel)
	switch {
	case errors.Is(err, ErrHardwareTimeout):
		metrics.IncMuxSwitch(n.Name, metrics.SwitchTimeout)
		return err
	case err != nil:
		metrics.IncMuxSwitch(n.Name, metrics.SwitchFailed)
		return err
	}
	metrics.IncMuxSwitch(n.Name, metrics.SwitchOK)
	glog.Infof("mux %s switched to %s", n.Name, r.Name(source))
	return nil
}

func (r *Registry) commitSwitch(name string, cscAddr, cssAddr uint64, sel uint32) error {
	if err := r.poller.WaitClear(r.acc, cssAddr, hw.CgmCSSSWIP, name+" switch in progress"); err != nil {
		return err
	}

	csc := r.acc.Read32(cscAddr) &^ hw.CgmSELCTLMask
	r.acc.Write32(cscAddr, csc|regs.Place(sel, hw.CgmSELCTLMask, hw.CgmSELCTLShift)|hw.CgmCSCClkSW)

	if err := r.poller.WaitClear(r.acc, cscAddr, hw.CgmCSCClkSW, name+" switch trigger"); err != nil {
		return err
	}
	if err := r.poller.WaitClear(r.acc, cssAddr, hw.CgmCSSSWIP, name+" switch completion"); err != nil {
		return err
	}

	css := r.acc.Read32(cssAddr)
	trg := regs.Field(css, hw.CgmSWTRGMask, hw.CgmSWTRGShift)
	stat := regs.Field(css, hw.CgmSELSTATMask, hw.CgmSELCTLShift)
	if trg != hw.CgmSWTRGSuccess || stat != sel {
		glog.Errorf("mux %s: failed to switch to source %d (trigger %d, selected %d)", name, sel, trg, stat)
		return fmt.Errorf("mux %s: switch to source %d ended on %d with trigger cause %d: %w",
			name, sel, stat, trg, ErrHardwareSequence)
	}
	return nil
}
