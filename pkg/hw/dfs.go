package hw

import "github.com/s32-bsp/s32clk/pkg/regs"

// DFS offsets
const (
	DfsPortSR    = 0x0C
	DfsPortOLSR  = 0x10
	DfsPortReset = 0x14
	DfsCtl       = 0x18
	dfsDVPort0   = 0x1C

	DfsPorts           = 6
	DfsPortResetMaxVal = 0x3F
	DfsDVPortMFIMask   = 0x0000FF00
	DfsDVPortMFIShift  = 8
	DfsDVPortMFNMask   = 0x000000FF
	DfsMFNDenominator  = 36
)

var DfsCtlReset = regs.Bit(1)

// DfsDVPort returns the offset of DVPORT n
func DfsDVPort(n int) uint64 {
	return dfsDVPort0 + 4*uint64(n)
}
