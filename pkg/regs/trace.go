package regs

import (
	"github.com/golang/glog"
)

// Trace wraps an Accessor and logs every access at verbosity 4
type Trace struct {
	Accessor
}

// Read32 implements Accessor
func (t Trace) Read32(addr uint64) uint32 {
	val := t.Accessor.Read32(addr)
	glog.V(4).Infof("readl(%#010x) = %#010x", addr, val)
	return val
}

// Write32 implements Accessor
func (t Trace) Write32(addr uint64, val uint32) {
	glog.V(4).Infof("writel(%#010x, %#010x)", val, addr)
	t.Accessor.Write32(addr, val)
}

// Mapped reports whether the wrapped accessor reaches addr
func (t Trace) Mapped(addr uint64) bool {
	m, ok := t.Accessor.(mapper)
	return !ok || m.Mapped(addr)
}
