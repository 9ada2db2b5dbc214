package features

import (
	"github.com/golang/glog"
)

// Flags feature flags
var Flags *Features

func init() {
	Flags = &Features{}
}

// Features is the build profile the clocks are brought up for
type Features struct {
	Boot  BootFeatures
	Clock ClockFeatures
}

// Print prints
// out the internal values of feature flags
func (f Features) Print() {
	f.Boot.Print()
	f.Clock.Print()
}

// And applies a logical and on the feature sets
func (f Features) And(other Features) *Features {
	return &Features{
		Boot:  f.Boot.And(other.Boot),
		Clock: f.Clock.And(other.Clock),
	}
}

// BootFeatures ...
type BootFeatures struct {
	// SecureBoot parks the XBAR on FIRC before the boot plan runs
	SecureBoot bool
	// Emulator targets a pre-silicon platform without LIN
	Emulator bool
}

// Print ...
func (f BootFeatures) Print() {
	glog.Info("Boot SecureBoot: ", f.SecureBoot)
	glog.Info("Boot Emulator: ", f.Emulator)
}

// And applies a logical and on the feature sets
func (f BootFeatures) And(other BootFeatures) BootFeatures {
	return BootFeatures{
		SecureBoot: f.SecureBoot && other.SecureBoot,
		Emulator:   f.Emulator && other.Emulator,
	}
}

// ClockFeatures ...
type ClockFeatures struct {
	// SetNearestFreq accepts divider settings that only approximate the
	// requested frequency
	SetNearestFreq bool
}

// Print ...
func (f ClockFeatures) Print() {
	glog.Info("Clock SetNearestFreq: ", f.SetNearestFreq)
}

// And applies a logical and on the feature sets
func (f ClockFeatures) And(other ClockFeatures) ClockFeatures {
	return ClockFeatures{
		SetNearestFreq: f.SetNearestFreq && other.SetNearestFreq,
	}
}

// SetFlags keeps the requested features the SoC supports
func SetFlags(requested Features, soc string) {
	Flags = requested.And(getSoCFeatures(soc))
}
