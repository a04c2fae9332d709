// Package health turns one snapshot of sensor samples into a severity tier and decides
// what the indicators, buzzer and relay must do about it. It performs no I/O.
package health

import (
	"fmt"

	"equipment_monitor/sensor"
)

// Tier is the severity classification. Tiers are ordered and combine by max.
type Tier int

const (
	Normal Tier = iota
	Warning
	Critical
)

func (t Tier) String() string {
	switch t {
	case Normal:
		return "NORMAL"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("TIER(%d)", int(t))
	}
}

// Max returns the more severe of the two tiers.
func Max(a, b Tier) Tier {
	if b > a {
		return b
	}
	return a
}

// Operating limits.
const (
	TempWarning  = 60.0  // °C
	TempCritical = 80.0  // °C
	TempShutdown = 90.0  // °C, also cuts the relay
	VibWarning   = 1.0   // g
	VibCritical  = 2.0   // g, also cuts the relay
	DistMin      = 5.0   // cm
	DistMax      = 250.0 // cm
	DistWarnLow  = 10.0  // cm
	DistWarnHigh = 200.0 // cm
)

// Reason records which sensor and which limit produced a non-normal tier.
type Reason struct {
	Kind  sensor.Kind
	Tier  Tier
	Value float64
	Rule  string
}

func (r Reason) String() string {
	return fmt.Sprintf("%s %s: %.2f%s %s", r.Kind, r.Tier, r.Value, r.Kind.Unit(), r.Rule)
}

// Assessment is the classifier output for one iteration.
type Assessment struct {
	Tier    Tier
	Reasons []Reason
	// CutRelay is set by the two physical hazards that de-energize the equipment:
	// thermal runaway and excessive shock.
	CutRelay bool
	// CutReasons is the subset of Reasons that requested the relay cut.
	CutReasons []Reason
	// Faults lists samples the drivers flagged as invalid.
	Faults []sensor.Sample
}

// Classify evaluates every sensor against its limits and aggregates by max.
// An invalid temperature or vibration sample contributes no tier; an invalid distance
// sample (no echo) is Critical, since the level can no longer be observed.
func Classify(s sensor.Snapshot) Assessment {
	var a Assessment

	for _, sample := range s.Samples() {
		if !sample.Valid {
			a.Faults = append(a.Faults, sample)
		}

		var (
			tier Tier
			rule string
			cut  bool
		)
		switch sample.Kind {
		case sensor.Temperature:
			if !sample.Valid {
				continue
			}
			tier, rule, cut = classifyTemperature(sample.Value)
		case sensor.Vibration:
			if !sample.Valid {
				continue
			}
			tier, rule, cut = classifyVibration(sample.Value)
		case sensor.Distance:
			if !sample.Valid {
				tier, rule = Critical, "no echo"
			} else {
				tier, rule = classifyDistance(sample.Value)
			}
		default:
			continue
		}

		if tier == Normal {
			continue
		}
		reason := Reason{Kind: sample.Kind, Tier: tier, Value: sample.Value, Rule: rule}
		a.Reasons = append(a.Reasons, reason)
		a.Tier = Max(a.Tier, tier)
		if cut {
			a.CutRelay = true
			a.CutReasons = append(a.CutReasons, reason)
		}
	}

	return a
}

func classifyTemperature(v float64) (Tier, string, bool) {
	switch {
	case v >= TempShutdown:
		return Critical, fmt.Sprintf(">= %.1f", TempShutdown), true
	case v > TempCritical:
		return Critical, fmt.Sprintf("> %.1f", TempCritical), false
	case v > TempWarning:
		return Warning, fmt.Sprintf("> %.1f", TempWarning), false
	}
	return Normal, "", false
}

func classifyVibration(v float64) (Tier, string, bool) {
	switch {
	case v > VibCritical:
		return Critical, fmt.Sprintf("> %.1f", VibCritical), true
	case v > VibWarning:
		return Warning, fmt.Sprintf("> %.1f", VibWarning), false
	}
	return Normal, "", false
}

// Warning bounds are only consulted when the critical bounds did not match.
func classifyDistance(v float64) (Tier, string) {
	switch {
	case v < DistMin:
		return Critical, fmt.Sprintf("< %.1f", DistMin)
	case v > DistMax:
		return Critical, fmt.Sprintf("> %.1f", DistMax)
	case v < DistWarnLow:
		return Warning, fmt.Sprintf("< %.1f", DistWarnLow)
	case v > DistWarnHigh:
		return Warning, fmt.Sprintf("> %.1f", DistWarnHigh)
	}
	return Normal, ""
}
