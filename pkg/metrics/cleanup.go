package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DeleteClockRateMetrics removes the rate series of the given clocks
func DeleteClockRateMetrics(clocks []string) {
	for _, c := range clocks {
		ClockRate.Delete(prometheus.Labels{"clock": c})
	}
}

// ResetMetrics drops every series, used before a plan is applied again
func ResetMetrics() {
	ClockRate.Reset()
	MuxSwitch.Reset()
	PollTimeout.Reset()
	PartitionState.Reset()
	PllLockPolls.Reset()
}
