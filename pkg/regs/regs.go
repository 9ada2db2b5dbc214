package regs

// Accessor reads and writes 32-bit memory-mapped registers.
// Addresses are physical addresses as listed in the SoC reference manual.
type Accessor interface {
	Read32(addr uint64) uint32
	Write32(addr uint64, val uint32)
}

// SetBits performs a read-modify-write that sets mask.
func SetBits(a Accessor, addr uint64, mask uint32) {
	a.Write32(addr, a.Read32(addr)|mask)
}

// ClearBits performs a read-modify-write that clears mask.
func ClearBits(a Accessor, addr uint64, mask uint32) {
	a.Write32(addr, a.Read32(addr)&^mask)
}

// Field extracts the field selected by mask and shifted down by shift.
func Field(val, mask uint32, shift uint) uint32 {
	return (val & mask) >> shift
}

// Place shifts field into position and truncates it to mask.
func Place(field, mask uint32, shift uint) uint32 {
	return (field << shift) & mask
}

// Bit returns a mask with only bit n set.
func Bit(n uint) uint32 {
	return 1 << n
}
