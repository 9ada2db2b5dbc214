package features

var socFeatureMatrix = map[string]Features{
	"s32g274a": {
		Boot: BootFeatures{
			SecureBoot: true,
			Emulator:   true,
		},
		Clock: ClockFeatures{
			SetNearestFreq: true,
		},
	},
	"s32r45": {
		Boot: BootFeatures{
			Emulator: true,
		},
		Clock: ClockFeatures{
			SetNearestFreq: true,
		},
	},
}

func getSoCFeatures(soc string) Features {
	res, ok := socFeatureMatrix[soc]
	if !ok {
		return Features{}
	}
	return res
}
