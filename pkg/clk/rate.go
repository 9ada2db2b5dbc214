package clk

import (
	"github.com/golang/glog"

	"github.com/s32-bsp/s32clk/pkg/hw"
	"github.com/s32-bsp/s32clk/pkg/regs"
)

// GetRate returns the frequency id runs at, derived from the current
// register contents. Unknown clocks and disabled stages read as 0.
func (r *Registry) GetRate(id NodeID) uint64 {
	n, err := r.Resolve(id)
	if err != nil {
		glog.V(2).Infof("get rate: %v", err)
		return 0
	}

	switch v := n.Spec.(type) {
	case *Oscillator:
		if v.FreqHz == 0 {
			glog.V(2).Infof("oscillator %s is not initialized", n.Name)
		}
		return v.FreqHz
	case *FixedClock:
		return v.FreqHz
	case *Pll:
		return r.pllRate(n, v)
	case *PllOutputDivider:
		return r.pllDivRate(v)
	case *Dfs:
		return r.dfsRate(v)
	case *DfsOutputDivider:
		return r.dfsDivRate(v)
	case *FixedDivider:
		return uint64(float64(r.GetRate(v.Parent)) / float64(v.Ratio))
	case *CgmDivider:
		return r.cgmDivRate(v)
	case *Mux:
		return r.GetRate(v.Selected)
	case *PartitionBlock:
		return r.GetRate(v.Parent)
	default:
		glog.Errorf("get rate: clock %s has unhandled type %T", n.Name, n.Spec)
		return 0
	}
}

func (r *Registry) base(name string) (uint64, bool) {
	m, ok := r.modules[name]
	return m.Base, ok
}

func (r *Registry) pllRate(n *Node, pll *Pll) uint64 {
	base, ok := r.base(pll.Instance)
	if !ok {
		return 0
	}
	if r.acc.Read32(base+hw.PllCR)&hw.PllCRPLLPD != 0 {
		return 0
	}

	mux := r.nodes[pll.Source].Spec.(*Mux)
	ref := int(r.acc.Read32(base + hw.PllClkMux))
	if ref >= len(mux.Candidates) {
		glog.Errorf("pll %s: reference %d has no clock", n.Name, ref)
		return 0
	}
	prate := r.GetRate(mux.Candidates[ref])

	dv := r.acc.Read32(base + hw.PllDV)
	mfi := regs.Field(dv, hw.PllDVMFIMask, 0)
	rdiv := regs.Field(dv, hw.PllDVRDIVMask, hw.PllDVRDIVShift)
	if rdiv == 0 {
		rdiv = 1
	}
	mfn := regs.Field(r.acc.Read32(base+hw.PllFD), hw.PllFDMFNMask, 0)

	return pllVco(prate, rdiv, mfi, mfn)
}

func pllVco(prate uint64, rdiv, mfi, mfn uint32) uint64 {
	return uint64(float64(prate) / float64(rdiv) * (float64(mfi) + float64(mfn)/hw.PllMFNDenominator))
}

func (r *Registry) pllDivRate(div *PllOutputDivider) uint64 {
	pll := r.nodes[div.Parent].Spec.(*Pll)
	base, ok := r.base(pll.Instance)
	if !ok {
		return 0
	}
	pfreq := r.GetRate(div.Parent)
	if pfreq == 0 {
		return 0
	}
	odiv := r.acc.Read32(base + hw.PllODIV(div.Index))
	if odiv&hw.PllODIVDE == 0 {
		return 0
	}
	dc := regs.Field(odiv, hw.PllODIVDIVMask, hw.PllODIVDIVShift)
	return uint64(float64(pfreq) / float64(dc+1))
}

func (r *Registry) dfsRate(dfs *Dfs) uint64 {
	base, ok := r.base(dfs.Instance)
	if !ok {
		return 0
	}
	if r.acc.Read32(base+hw.DfsCtl)&hw.DfsCtlReset != 0 {
		return 0
	}
	return r.GetRate(dfs.Parent)
}

func (r *Registry) dfsDivRate(div *DfsOutputDivider) uint64 {
	dfs := r.nodes[div.Parent].Spec.(*Dfs)
	pfreq := r.GetRate(div.Parent)
	if pfreq == 0 {
		return 0
	}
	base, ok := r.base(dfs.Instance)
	if !ok {
		return 0
	}
	dvport := r.acc.Read32(base + hw.DfsDVPort(div.Port))
	mfi := regs.Field(dvport, hw.DfsDVPortMFIMask, hw.DfsDVPortMFIShift)
	mfn := regs.Field(dvport, hw.DfsDVPortMFNMask, 0)
	return dfsOutput(pfreq, mfi, mfn)
}

// dfsOutput returns the port frequency, 0 for a port without divider
func dfsOutput(in uint64, mfi, mfn uint32) uint64 {
	if mfi == 0 && mfn == 0 {
		return 0
	}
	return uint64(float64(in) / (2 * (float64(mfi) + float64(mfn)/hw.DfsMFNDenominator)))
}

func (r *Registry) cgmDivRate(div *CgmDivider) uint64 {
	pfreq := r.GetRate(div.Parent)
	if pfreq == 0 {
		return 0
	}
	mux := r.nodes[div.Parent].Spec.(*Mux)
	base, ok := r.base(mux.Module)
	if !ok {
		return 0
	}
	dc := r.acc.Read32(base + hw.CgmDC(mux.Index))
	if dc&hw.CgmDCDE == 0 {
		return 0
	}
	return uint64(float64(pfreq) / float64(regs.Field(dc, hw.CgmDCDIVMask, hw.CgmDCDIVShift)+1))
}
