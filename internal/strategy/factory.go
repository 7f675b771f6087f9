package strategy

import "fmt"

// Params expresses tunable knobs required by the engine constructor.
type Params struct {
	Timeframes      int
	VolumeMode      string
	VolumeThreshold float64
	RatioThreshold  float64
	Comparison      string
}

// Build returns an engine matching the configured volume policy and timeframe count.
func Build(params Params) (*Engine, error) {
	mode, err := ParseVolumeMode(params.VolumeMode)
	if err != nil {
		return nil, fmt.Errorf("build strategy: %w", err)
	}
	cmp, err := ParseComparison(params.Comparison)
	if err != nil {
		return nil, fmt.Errorf("build strategy: %w", err)
	}
	threshold := params.VolumeThreshold
	if mode == VolumeRatio {
		threshold = params.RatioThreshold
	}
	return NewEngine(params.Timeframes, VolumeScorer{Mode: mode, Threshold: threshold, Compare: cmp}), nil
}
