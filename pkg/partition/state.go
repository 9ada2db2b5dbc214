package partition

// State is the position of a partition in the enable sequence
type State int

const (
	Disabled State = iota
	PartitionEnableRequested
	XbarWaitEnabled
	ResetReleased
	OsseClearRequested
	OsseUpdatePending
	OsseClearConfirmed
	PeriphResetConfirmed
	RdcLocked
	BlocksClockEnabled
)

var stateNames = map[State]string{
	Disabled:                 "DISABLED",
	PartitionEnableRequested: "PARTITION_ENABLE_REQUESTED",
	XbarWaitEnabled:          "XBAR_WAIT_ENABLED",
	ResetReleased:            "RESET_RELEASED",
	OsseClearRequested:       "OSSE_CLEAR_REQUESTED",
	OsseUpdatePending:        "OSSE_UPDATE_PENDING",
	OsseClearConfirmed:       "OSSE_CLEAR_CONFIRMED",
	PeriphResetConfirmed:     "PERIPH_RESET_CONFIRMED",
	RdcLocked:                "RDC_LOCKED",
	BlocksClockEnabled:       "BLOCKS_CLOCK_ENABLED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Enabled reports whether the partition completed its enable sequence
func (s State) Enabled() bool {
	return s >= RdcLocked
}
