package hw

import "github.com/s32-bsp/s32clk/pkg/regs"

// MC_ME
const (
	mcMeCtlKey        = 0x0
	mcMePrtnBase      = 0x100
	mcMePrtnStride    = 0x200
	mcMePrtnPconf     = 0x0
	mcMePrtnPupd      = 0x4
	mcMePrtnStat      = 0x8
	mcMePrtnCofb0Stat = 0x10
	mcMePrtnCofb0En   = 0x30

	// MC_ME_CTL_KEY values committing a partition update
	McMeKey         = 0x5AF0
	McMeInvertedKey = 0xA50F
)

// MC_ME partition bits
var (
	PconfPCE  = regs.Bit(0)
	PconfOSSE = regs.Bit(2)
	PupdPCUD  = regs.Bit(0)
	PupdOSSUD = regs.Bit(2)
	StatPCS   = regs.Bit(0)
	StatOSSS  = regs.Bit(2)
)

// RDC and MC_RGM bits
var (
	RdcUnlock              = regs.Bit(31)
	RdcInterconnectDisable = regs.Bit(3)
	RdcInterconnectDisStat = regs.Bit(4)
	RgmPeriph0Rst          = regs.Bit(0)
	RgmPeriph0Stat         = regs.Bit(0)
)

// GatingBases holds the physical base addresses of the blocks involved in
// partition gating
type GatingBases struct {
	MCME uint64 `json:"mcMe"`
	RDC  uint64 `json:"rdc"`
	RGM  uint64 `json:"rgm"`
}

func (b GatingBases) prtn(p int) uint64 {
	return b.MCME + mcMePrtnBase + uint64(p)*mcMePrtnStride
}

func (b GatingBases) CtlKey() uint64 { return b.MCME + mcMeCtlKey }
func (b GatingBases) PCONF(p int) uint64 { return b.prtn(p) + mcMePrtnPconf }
func (b GatingBases) PUPD(p int) uint64 { return b.prtn(p) + mcMePrtnPupd }
func (b GatingBases) STAT(p int) uint64 { return b.prtn(p) + mcMePrtnStat }
func (b GatingBases) COFB0Stat(p int) uint64 { return b.prtn(p) + mcMePrtnCofb0Stat }
func (b GatingBases) COFB0En(p int) uint64 { return b.prtn(p) + mcMePrtnCofb0En }

func (b GatingBases) RDCCtrl(p int) uint64 { return b.RDC + 4*uint64(p) }
func (b GatingBases) RDCStatus(p int) uint64 { return b.RDC + 0x80 + 4*uint64(p) }

func (b GatingBases) RGMPrst(p int) uint64 { return b.RGM + 0x40 + 8*uint64(p) }
func (b GatingBases) RGMPstat(p int) uint64 { return b.RGM + 0x140 + 8*uint64(p) }
