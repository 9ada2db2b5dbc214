package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Mux switch outcomes
const (
	SwitchOK      = "ok"
	SwitchSkipped = "skipped"
	SwitchFailed  = "failed"
	SwitchTimeout = "timeout"
)

// UpdateClockRate sets the ClockRate metric
func UpdateClockRate(clock string, hz uint64) {
	ClockRate.With(prometheus.Labels{"clock": clock}).Set(float64(hz))
}

// IncMuxSwitch ...
func IncMuxSwitch(mux, result string) {
	MuxSwitch.With(prometheus.Labels{"mux": mux, "result": result}).Inc()
}

// IncPollTimeout ...
func IncPollTimeout(op string) {
	PollTimeout.With(prometheus.Labels{"op": op}).Inc()
}

// UpdatePartitionState sets the PartitionState metric
func UpdatePartitionState(partition int, state int) {
	PartitionState.With(prometheus.Labels{"partition": strconv.Itoa(partition)}).Set(float64(state))
}

// UpdatePllLockPolls ...
func UpdatePllLockPolls(pll string, polls int) {
	PllLockPolls.With(prometheus.Labels{"pll": pll}).Set(float64(polls))
}

// WriteTextfile writes every registered metric in the node-exporter textfile format
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
