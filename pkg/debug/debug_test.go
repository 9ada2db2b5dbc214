package debug_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s32-bsp/s32clk/pkg/debug"
	"github.com/s32-bsp/s32clk/pkg/regs"
	"github.com/s32-bsp/s32clk/pkg/simhw"
	"github.com/s32-bsp/s32clk/pkg/soc"
)

func newSoC(t *testing.T) (*soc.SoC, *regs.Poller) {
	v, err := soc.Load("s32g274a")
	assert.NoError(t, err)
	poller := regs.NewPoller(0, 1000)
	s, err := v.Build(soc.Options{Regs: simhw.New(v.SimLayout()), Poller: poller})
	assert.NoError(t, err)
	return s, poller
}

func TestFormatHz(t *testing.T) {
	assert.Equal(t, "off", debug.FormatHz(0))
	assert.Equal(t, "48 MHz", debug.FormatHz(48000000))
	assert.Equal(t, "4800 kHz", debug.FormatHz(4800000))
	assert.Equal(t, "32 kHz", debug.FormatHz(32000))
	assert.Equal(t, "133333333 Hz", debug.FormatHz(133333333))
}

func TestPrintTree(t *testing.T) {
	s, _ := newSoC(t)
	var buf bytes.Buffer
	debug.PrintTree(&buf, s.Registry)
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// every node hangs below exactly one source
	assert.Len(t, lines, len(s.Registry.Nodes()))
	assert.Equal(t, "firc (oscillator, 48 MHz)", lines[0])
	assert.Contains(t, out, "cgm1_mux0 (mux, 48 MHz) [a53_core]")
	assert.Contains(t, out, "a53_core_div10 (fixed-div, 4800 kHz)")
	assert.Contains(t, out, "fxosc (oscillator, off)")
}

func TestPrintTreeFollowsReparent(t *testing.T) {
	s, _ := newSoC(t)
	r := s.Registry
	mux, err := r.Lookup("arm_pll_mux")
	assert.NoError(t, err)
	fxosc, err := r.Lookup("fxosc")
	assert.NoError(t, err)
	assert.NoError(t, r.SetParent(mux, fxosc))

	var buf bytes.Buffer
	debug.PrintTree(&buf, r)
	out := buf.String()
	fxoscAt := strings.Index(out, "fxosc (oscillator")
	muxAt := strings.Index(out, "arm_pll_mux (mux")
	assert.True(t, fxoscAt >= 0 && muxAt > fxoscAt, "arm_pll_mux should be printed below fxosc")
}

func TestPrintPartitions(t *testing.T) {
	s, _ := newSoC(t)
	var buf bytes.Buffer
	debug.PrintPartitions(&buf, s.Partitions, 2)
	assert.Equal(t, "partition 0: RDC_LOCKED\npartition 1: DISABLED\n", buf.String())
}

func TestPrintPollStats(t *testing.T) {
	_, poller := newSoC(t)
	assert.NoError(t, poller.Until("pll lock", func() bool { return true }))

	var buf bytes.Buffer
	debug.PrintPollStats(&buf, poller.Stats)
	assert.True(t, strings.HasPrefix(buf.String(), "pll lock "))
	assert.Contains(t, buf.String(), "count 1 ")
}
