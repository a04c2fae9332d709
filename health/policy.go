package health

import "fmt"

// Line is a digital output driven by the policy.
type Line int

const (
	Green Line = iota
	Yellow
	Red
	Buzzer
	Relay
)

func (l Line) String() string {
	switch l {
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	case Buzzer:
		return "buzzer"
	case Relay:
		return "relay"
	default:
		return fmt.Sprintf("line(%d)", int(l))
	}
}

// DigitalOutput sets a digital line high or low.
type DigitalOutput interface {
	Set(line Line, on bool) error
}

// Health is the per-iteration system state. RelayEngaged is a latch: once false it stays
// false for the rest of the run.
type Health struct {
	Tier         Tier
	RelayEngaged bool
}

// Initial is the state at power-up: nothing classified yet, equipment powered.
func Initial() Health {
	return Health{Tier: Normal, RelayEngaged: true}
}

// Outputs is the desired level of every line after one iteration.
type Outputs struct {
	Green  bool
	Yellow bool
	Red    bool
	Buzzer bool
	Relay  bool
}

// Lit returns the indicator that is on.
func (o Outputs) Lit() Line {
	switch {
	case o.Red:
		return Red
	case o.Yellow:
		return Yellow
	default:
		return Green
	}
}

// Transition reports what changed when the policy was applied.
type Transition struct {
	// RelayCut is true only in the iteration where the relay went from engaged to cut.
	RelayCut bool
}

// Actuate derives the next system state and the output levels from the previous state
// and this iteration's assessment.
func Actuate(prev Health, a Assessment) (Health, Outputs, Transition) {
	next := Health{Tier: a.Tier, RelayEngaged: prev.RelayEngaged}
	var tr Transition
	if a.CutRelay && prev.RelayEngaged {
		next.RelayEngaged = false
		tr.RelayCut = true
	}

	out := Outputs{Relay: next.RelayEngaged}
	switch a.Tier {
	case Critical:
		out.Red = true
		out.Buzzer = true
	case Warning:
		out.Yellow = true
	default:
		out.Green = true
	}
	return next, out, tr
}

// Apply writes the outputs. Indicators and buzzer are reset first so nothing from the
// previous iteration stays lit, then the selection and the relay are written. Every line
// is attempted; the first error is returned.
func Apply(dst DigitalOutput, o Outputs) error {
	var first error
	set := func(line Line, on bool) {
		if err := dst.Set(line, on); err != nil && first == nil {
			first = fmt.Errorf("set %s: %w", line, err)
		}
	}

	set(Green, false)
	set(Yellow, false)
	set(Red, false)
	set(Buzzer, false)

	set(o.Lit(), true)
	if o.Buzzer {
		set(Buzzer, true)
	}
	set(Relay, o.Relay)

	return first
}
