package hw

import "github.com/s32-bsp/s32clk/pkg/regs"

const (
	cgmMuxCSC        = 0x300
	cgmMuxCSS        = 0x304
	cgmMuxDC0        = 0x308
	cgmMuxDivUpdStat = 0x33C
	cgmMuxStride     = 0x40

	CgmSELCTLMask  = 0x3F000000
	CgmSELCTLShift = 24
	CgmSELSTATMask = 0x3F000000
	CgmSWTRGMask   = 0x000E0000
	CgmSWTRGShift  = 17
	CgmDCDIVMask   = 0x00070000
	CgmDCDIVShift  = 16

	// CgmSWTRGSuccess is the switch trigger cause of a completed request
	CgmSWTRGSuccess = 0x1
)

var (
	CgmCSCClkSW   = regs.Bit(2)
	CgmCSSSWIP    = regs.Bit(16)
	CgmDCDE       = regs.Bit(31)
	CgmDivUpdStat = regs.Bit(0)
)

// CgmCSC returns the offset of MUX n clock select control
func CgmCSC(mux int) uint64 { return cgmMuxCSC + cgmMuxStride*uint64(mux) }

// CgmCSS returns the offset of MUX n clock select status
func CgmCSS(mux int) uint64 { return cgmMuxCSS + cgmMuxStride*uint64(mux) }

// CgmDC returns the offset of the MUX n divider control. Every mux has a
// single divider at DC0.
func CgmDC(mux int) uint64 { return cgmMuxDC0 + cgmMuxStride*uint64(mux) }

// CgmDivUpd returns the offset of MUX n divider update status
func CgmDivUpd(mux int) uint64 { return cgmMuxDivUpdStat + cgmMuxStride*uint64(mux) }
