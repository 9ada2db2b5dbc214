package regs

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/golang/glog"
)

// DefaultMemFile is the physical memory device
const DefaultMemFile = "/dev/mem"

// Window is a physical address range to map
type Window struct {
	Base uint64
	Size int
}

type mapping struct {
	base uint64
	size int
	mm   mmap.MMap
	offs uint64
}

// DevMem accesses registers through mmap'ed windows of a physical memory device
type DevMem struct {
	maps []mapping
}

// OpenDevMem maps every window of path. Mappings start on a page boundary,
// so each window remembers the offset of its base inside the mapping.
func OpenDevMem(path string, windows []Window) (*DevMem, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("couldn't open %s: %w", path, err)
	}
	defer f.Close()

	page := uint64(os.Getpagesize())
	d := &DevMem{}
	for _, w := range windows {
		if w.Size <= 0 {
			d.Close()
			return nil, fmt.Errorf("window %#x has no size", w.Base)
		}
		mapAddr := w.Base &^ (page - 1)
		size := w.Size + int(w.Base-mapAddr)
		glog.V(2).Infof("mapping %s: base %#x size %#x (page %#x)", path, w.Base, size, mapAddr)
		mm, err := mmap.MapRegion(f, size, mmap.RDWR, 0, int64(mapAddr))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("couldn't map region (%#x, %d): %w", w.Base, w.Size, err)
		}
		d.maps = append(d.maps, mapping{base: w.Base, size: w.Size, mm: mm, offs: w.Base - mapAddr})
	}
	return d, nil
}

func (d *DevMem) word(addr uint64) *uint32 {
	for i := range d.maps {
		m := &d.maps[i]
		if addr >= m.base && addr+4 <= m.base+uint64(m.size) {
			return (*uint32)(unsafe.Pointer(&m.mm[m.offs+addr-m.base]))
		}
	}
	return nil
}

// Mapped reports whether a window covers the register at addr
func (d *DevMem) Mapped(addr uint64) bool {
	return d.word(addr) != nil
}

// Read32 implements Accessor. Reads outside every window return zero.
func (d *DevMem) Read32(addr uint64) uint32 {
	p := d.word(addr)
	if p == nil {
		glog.Errorf("read of unmapped register %#x", addr)
		return 0
	}
	return atomic.LoadUint32(p)
}

// Write32 implements Accessor. Writes outside every window are dropped.
func (d *DevMem) Write32(addr uint64, val uint32) {
	p := d.word(addr)
	if p == nil {
		glog.Errorf("write of unmapped register %#x", addr)
		return
	}
	atomic.StoreUint32(p, val)
}

// Close unmaps every window
func (d *DevMem) Close() error {
	var firstErr error
	for _, m := range d.maps {
		if err := m.mm.Unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.maps = nil
	return firstErr
}
