// Package hw describes the register layout of the S32 clock generation,
// mode entry and reset blocks.
package hw

import "github.com/s32-bsp/s32clk/pkg/regs"

// PLLDIG offsets
const (
	PllCR     = 0x00
	PllSR     = 0x04
	PllDV     = 0x08
	PllFD     = 0x10
	PllClkMux = 0x20
	pllODIV0  = 0x80
)

// PLLDIG fields
var (
	PllCRPLLPD = regs.Bit(31)
	PllSRLock  = regs.Bit(2)
	PllFDSMDEN = regs.Bit(30)
	PllODIVDE  = regs.Bit(31)
)

const (
	PllDVMFIMask    = 0x000000FF
	PllDVRDIVMask   = 0x00007000
	PllDVRDIVShift  = 12
	PllFDMFNMask    = 0x00007FFF
	PllODIVDIVMask  = 0x00FF0000
	PllODIVDIVShift = 16

	// PllMFNDenominator is the fractional part denominator of the loop divider
	PllMFNDenominator = 18432
)

// PLL reference selection written to PLLCLKMUX
const (
	PllRefFIRC  = 0
	PllRefFXOSC = 1
)

// PllODIV returns the offset of PLLODIV n
func PllODIV(n int) uint64 {
	return pllODIV0 + 4*uint64(n)
}

// FXOSC
const (
	FxoscCTRL = 0x0
	FxoscSTAT = 0x4

	FxoscEOCVMask   = 0x00FF0000
	FxoscEOCVShift  = 16
	FxoscGMSELMask  = 0x000000F0
	FxoscGMSELShift = 4
)

var (
	FxoscOscBYP  = regs.Bit(31)
	FxoscCompEN  = regs.Bit(24)
	FxoscOSCON   = regs.Bit(0)
	FxoscOscStat = regs.Bit(31)
)
