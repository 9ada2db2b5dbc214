package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestUpdateClockRate(t *testing.T) {
	ResetMetrics()
	UpdateClockRate("a53_core", 1000000000)
	assert.Equal(t, 1e9, testutil.ToFloat64(ClockRate.WithLabelValues("a53_core")))

	DeleteClockRateMetrics([]string{"a53_core"})
	assert.Equal(t, 0, testutil.CollectAndCount(ClockRate))
}

func TestCounters(t *testing.T) {
	ResetMetrics()
	IncMuxSwitch("cgm0_mux0", SwitchOK)
	IncMuxSwitch("cgm0_mux0", SwitchOK)
	IncMuxSwitch("cgm0_mux0", SwitchFailed)
	IncPollTimeout("pll lock")
	assert.Equal(t, 2.0, testutil.ToFloat64(MuxSwitch.WithLabelValues("cgm0_mux0", SwitchOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(MuxSwitch.WithLabelValues("cgm0_mux0", SwitchFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(PollTimeout.WithLabelValues("pll lock")))

	UpdatePartitionState(1, 9)
	assert.Equal(t, 9.0, testutil.ToFloat64(PartitionState.WithLabelValues("1")))
}

func TestWriteTextfile(t *testing.T) {
	RegisterMetrics()
	ResetMetrics()
	UpdateClockRate("ddr", 800000000)
	UpdatePllLockPolls("ARM_PLL", 3)

	path := filepath.Join(t.TempDir(), "s32clk.prom")
	assert.NoError(t, WriteTextfile(path))
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `s32clk_clock_rate_hz{clock="ddr"} 8e+08`), text)
	assert.True(t, strings.Contains(text, `s32clk_pll_lock_polls{pll="ARM_PLL"} 3`), text)
}
