// Package report summarizes a recorded stream the way the operator dashboard does:
// iterations per tier, critical share and temperature figures.
package report

import (
	"fmt"
	"io"
	"strings"

	"equipment_monitor/health"
	"equipment_monitor/sensor"
	"equipment_monitor/stream"
)

// Summary holds the KPIs of one recording.
type Summary struct {
	Runs       int
	Iterations int
	Tiers      map[health.Tier]int
	Faults     map[sensor.Kind]int

	// Temperature figures cover valid samples only.
	TempSamples int
	MaxTemp     float64
	MeanTemp    float64

	// RelayCut is false when the relay stayed engaged for the whole recording. With
	// several runs it reports the first cut.
	RelayCut         bool
	RelayCutRun      int
	RelayCutSequence uint64
	RelayCutReasons  []health.Reason
}

// CriticalShare is the percentage of iterations classified Critical.
func (s Summary) CriticalShare() float64 {
	if s.Iterations == 0 {
		return 0
	}
	return 100 * float64(s.Tiers[health.Critical]) / float64(s.Iterations)
}

// Build replays every recorded iteration through the classifier and the actuation
// policy, so the tiers and the relay latch are recomputed rather than trusted. Every
// run starts from the power-up state.
func Build(rp *stream.Replay) Summary {
	s := Summary{
		Tiers:  map[health.Tier]int{},
		Faults: map[sensor.Kind]int{},
	}

	var (
		state   health.Health
		run     int
		tempSum float64
	)
	for i, b := range rp.Batches {
		if i == 0 || b.Run != run {
			state = health.Initial()
			run = b.Run
			s.Runs++
		}
		a := health.Classify(b.Snapshot)
		var tr health.Transition
		state, _, tr = health.Actuate(state, a)

		s.Iterations++
		s.Tiers[a.Tier]++
		for _, f := range a.Faults {
			s.Faults[f.Kind]++
		}
		if tr.RelayCut && !s.RelayCut {
			s.RelayCut = true
			s.RelayCutRun = b.Run
			s.RelayCutSequence = b.Sequence
			s.RelayCutReasons = a.CutReasons
		}

		if t := b.Snapshot.Temperature; t.Valid {
			if s.TempSamples == 0 || t.Value > s.MaxTemp {
				s.MaxTemp = t.Value
			}
			s.TempSamples++
			tempSum += t.Value
		}
	}
	if s.TempSamples > 0 {
		s.MeanTemp = tempSum / float64(s.TempSamples)
	}
	return s
}

// Write prints the summary as a plain text block.
func (s Summary) Write(w io.Writer) error {
	var b strings.Builder
	rule := strings.Repeat("=", 50)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "EQUIPMENT HEALTH REPORT")
	fmt.Fprintln(&b, rule)
	if s.Runs > 1 {
		fmt.Fprintf(&b, "Runs:              %d\n", s.Runs)
	}
	fmt.Fprintf(&b, "Iterations:        %d\n", s.Iterations)
	for _, t := range []health.Tier{health.Normal, health.Warning, health.Critical} {
		fmt.Fprintf(&b, "  %-16s %d\n", t.String()+":", s.Tiers[t])
	}
	fmt.Fprintf(&b, "Critical share:    %.1f%%\n", s.CriticalShare())

	if s.TempSamples > 0 {
		fmt.Fprintf(&b, "Max temperature:   %.2f°C\n", s.MaxTemp)
		fmt.Fprintf(&b, "Mean temperature:  %.2f°C\n", s.MeanTemp)
	} else {
		fmt.Fprintln(&b, "Temperature:       no valid samples")
	}

	for _, k := range sensor.Kinds {
		if n := s.Faults[k]; n > 0 {
			fmt.Fprintf(&b, "Faults (%s): %d\n", k, n)
		}
	}

	if s.RelayCut {
		reasons := make([]string, 0, len(s.RelayCutReasons))
		for _, r := range s.RelayCutReasons {
			reasons = append(reasons, r.String())
		}
		where := fmt.Sprintf("iteration %d", s.RelayCutSequence)
		if s.Runs > 1 {
			where = fmt.Sprintf("run %d %s", s.RelayCutRun, where)
		}
		fmt.Fprintf(&b, "Relay cut:         %s (%s)\n", where, strings.Join(reasons, "; "))
	} else {
		fmt.Fprintln(&b, "Relay cut:         never")
	}
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(w, b.String())
	return err
}
