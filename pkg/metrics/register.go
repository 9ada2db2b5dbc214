package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var registerMetrics sync.Once

const (
	S32Namespace = "s32clk"
)

var (
	// ClockRate metrics to show the rate read back from hardware
	ClockRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: S32Namespace,
			Name:      "clock_rate_hz",
			Help:      "0 = disabled or undetermined",
		}, []string{"clock"})

	// MuxSwitch counts source switches per mux and outcome
	MuxSwitch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: S32Namespace,
			Name:      "mux_switch_total",
			Help:      "result = ok, skipped, failed, timeout",
		}, []string{"mux", "result"})

	PollTimeout = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: S32Namespace,
			Name:      "poll_timeout_total",
			Help:      "",
		}, []string{"op"})

	// PartitionState metrics to show the gating state of each partition
	PartitionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: S32Namespace,
			Name:      "partition_state",
			Help:      "0 = DISABLED, 9 = BLOCKS_CLOCK_ENABLED, intermediate values follow the enable sequence",
		}, []string{"partition"})

	PllLockPolls = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: S32Namespace,
			Name:      "pll_lock_polls",
			Help:      "status reads needed before the last PLL lock",
		}, []string{"pll"})
)

// RegisterMetrics registers all the metrics with Prometheus
func RegisterMetrics() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(ClockRate)
		prometheus.MustRegister(MuxSwitch)
		prometheus.MustRegister(PollTimeout)
		prometheus.MustRegister(PartitionState)
		prometheus.MustRegister(PllLockPolls)

		// a one-shot tool has no use for runtime stats in the textfile
		prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		prometheus.Unregister(collectors.NewGoCollector())
	})
}
