package regs

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// a regular file stands in for the memory device
func newMemFile(t *testing.T, size int) string {
	path := filepath.Join(t.TempDir(), "mem")
	assert.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
	return path
}

func TestDevMem(t *testing.T) {
	page := os.Getpagesize()
	path := newMemFile(t, 3*page)
	base := uint64(page) + 0x10

	mem, err := OpenDevMem(path, []Window{{Base: base, Size: 0x100}})
	assert.NoError(t, err)

	mem.Write32(base+0x8, 0xCAFEF00D)
	assert.Equal(t, uint32(0xCAFEF00D), mem.Read32(base+0x8))
	SetBits(mem, base, Bit(3))
	assert.Equal(t, Bit(3), mem.Read32(base))

	// outside every window
	mem.Write32(base+0x100, 1)
	assert.Zero(t, mem.Read32(base+0x100))
	assert.Zero(t, mem.Read32(0))
	assert.NoError(t, mem.Close())

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEF00D), binary.NativeEndian.Uint32(data[base+0x8:]))
}

func TestOpenDevMemMissing(t *testing.T) {
	_, err := OpenDevMem(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

func TestTracePassesThrough(t *testing.T) {
	sim := NewSim()
	tr := Trace{Accessor: sim}
	tr.Write32(0x40, 7)
	assert.Equal(t, uint32(7), tr.Read32(0x40))
	assert.Equal(t, []uint32{7}, sim.WritesTo(0x40))
}

func TestWaitOnUnmappedRegister(t *testing.T) {
	page := os.Getpagesize()
	path := newMemFile(t, 2*page)
	base := uint64(page)

	mem, err := OpenDevMem(path, []Window{{Base: base, Size: 0x40}})
	assert.NoError(t, err)
	defer mem.Close()

	assert.True(t, mem.Mapped(base+0x3C))
	assert.False(t, mem.Mapped(base+0x40))

	// unmapped reads are zero, which must not satisfy a wait for a clear bit
	p := NewPoller(0, 10)
	err = p.WaitClear(mem, base+0x40, Bit(0), "swip")
	assert.ErrorIs(t, err, ErrUnmapped)
	assert.False(t, errors.Is(err, ErrHardwareTimeout))
	assert.Empty(t, p.Stats.Summaries())

	err = p.WaitClear(Trace{Accessor: mem}, base+0x40, Bit(0), "swip")
	assert.ErrorIs(t, err, ErrUnmapped)

	assert.NoError(t, p.WaitClear(mem, base+0x10, Bit(0), "swip"))
	assert.NoError(t, p.WaitClear(Trace{Accessor: mem}, base+0x10, Bit(0), "swip"))
}

func TestOpenDevMemEmptyWindow(t *testing.T) {
	path := newMemFile(t, os.Getpagesize())
	_, err := OpenDevMem(path, []Window{{Base: 0x10, Size: 0}})
	assert.Error(t, err)
}
