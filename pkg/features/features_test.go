package features_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s32-bsp/s32clk/pkg/features"
)

// clearFeatures ... used by unit tests
func clearFeatures() {
	features.Flags = &features.Features{}
}

func TestSoCFlags(t *testing.T) {
	all := features.Features{
		Boot:  features.BootFeatures{SecureBoot: true, Emulator: true},
		Clock: features.ClockFeatures{SetNearestFreq: true},
	}
	cases := []struct {
		soc           string
		requested     features.Features
		expectedFlags features.Features
	}{
		{"s32g274a", all, all},
		{
			"s32r45",
			all,
			features.Features{
				Boot:  features.BootFeatures{Emulator: true},
				Clock: features.ClockFeatures{SetNearestFreq: true},
			},
		},
		{
			"s32g274a",
			features.Features{Boot: features.BootFeatures{SecureBoot: true}},
			features.Features{Boot: features.BootFeatures{SecureBoot: true}},
		},
		{"s32k3", all, features.Features{}},
	}
	for _, tc := range cases {
		clearFeatures()
		features.SetFlags(tc.requested, tc.soc)
		assert.Equal(t, tc.expectedFlags, *features.Flags, tc.soc)
		features.Flags.Print()
	}
	clearFeatures()
}
