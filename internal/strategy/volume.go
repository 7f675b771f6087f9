package strategy

import (
	"fmt"
	"strings"

	"derivbot-go/internal/signal"
)

// VolumeMode selects which metric a VolumeScorer compares against its threshold.
type VolumeMode string

const (
	// VolumeCount compares the raw number of collected ticks.
	VolumeCount VolumeMode = "count"
	// VolumeRatio compares collected ticks divided by the transaction count of the history window.
	VolumeRatio VolumeMode = "ratio"
)

// Comparison is the operator used for the "is volume strong" check.
type Comparison string

const (
	GreaterThan        Comparison = "gt"
	GreaterThanOrEqual Comparison = "gte"
)

// ParseVolumeMode maps a config string onto a VolumeMode.
func ParseVolumeMode(s string) (VolumeMode, error) {
	switch VolumeMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", VolumeCount:
		return VolumeCount, nil
	case VolumeRatio:
		return VolumeRatio, nil
	default:
		return "", fmt.Errorf("unknown volume mode %q", s)
	}
}

// ParseComparison maps a config string onto a Comparison. Symbolic forms are accepted too.
func ParseComparison(s string) (Comparison, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gt", ">":
		return GreaterThan, nil
	case "gte", ">=":
		return GreaterThanOrEqual, nil
	default:
		return "", fmt.Errorf("unknown comparison %q", s)
	}
}

// VolumeScorer turns tick and transaction counts into a Strength.
type VolumeScorer struct {
	Mode      VolumeMode
	Threshold float64
	Compare   Comparison
}

// Score computes the strength of a window holding ticks quotes against transactions history samples.
func (v VolumeScorer) Score(ticks, transactions int) signal.Strength {
	var value float64
	switch v.Mode {
	case VolumeRatio:
		if transactions > 0 {
			value = float64(ticks) / float64(transactions)
		}
	default:
		value = float64(ticks)
	}

	strong := value > v.Threshold
	if v.Compare == GreaterThanOrEqual {
		strong = value >= v.Threshold
	}
	return signal.Strength{Value: value, Threshold: v.Threshold, Strong: strong}
}
