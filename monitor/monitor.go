// Package monitor runs the control loop: sample every sensor, classify, drive the
// outputs and emit the measurement records, once per fixed period.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"equipment_monitor/health"
	"equipment_monitor/logger"
	"equipment_monitor/sensor"
	"equipment_monitor/stream"
)

// DefaultPeriod is the loop period of the reference system.
const DefaultPeriod = time.Second

// State is the loop phase. Phases run strictly in declaration order.
type State int

const (
	Initializing State = iota
	Sampling
	Classifying
	Actuating
	Emitting
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Sampling:
		return "sampling"
	case Classifying:
		return "classifying"
	case Actuating:
		return "actuating"
	case Emitting:
		return "emitting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Iteration is everything one pass of the loop produced.
type Iteration struct {
	Sequence    uint64
	TimestampMs int64
	Snapshot    sensor.Snapshot
	Assessment  health.Assessment
	Health      health.Health
	Outputs     health.Outputs
	Transition  health.Transition
	Records     []stream.Record
	Duration    time.Duration
}

// Observer is notified after every iteration.
type Observer interface {
	ObserveIteration(Iteration)
}

// Options wires the loop to its collaborators.
type Options struct {
	Sensors  sensor.Bank
	Output   health.DigitalOutput
	Stream   *stream.Writer
	Observer Observer
	Period   time.Duration
	// Now is the clock used for record timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Monitor owns the only state that survives an iteration: the relay latch (inside
// health) and the sequence counter. It is driven by a single goroutine.
type Monitor struct {
	sensors  sensor.Bank
	output   health.DigitalOutput
	stream   *stream.Writer
	observer Observer
	period   time.Duration
	now      func() time.Time

	start  time.Time
	state  State
	health health.Health
	seq    uint64
	ready  bool
}

// New validates the options and creates a monitor. The timestamp origin is taken here.
func New(opts Options) (*Monitor, error) {
	if err := opts.Sensors.Validate(); err != nil {
		return nil, fmt.Errorf("sensors: %w", err)
	}
	if opts.Output == nil {
		return nil, errors.New("digital output is required")
	}
	if opts.Stream == nil {
		return nil, errors.New("stream writer is required")
	}
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Monitor{
		sensors:  opts.Sensors,
		output:   opts.Output,
		stream:   opts.Stream,
		observer: opts.Observer,
		period:   opts.Period,
		now:      opts.Now,
		start:    opts.Now(),
		state:    Initializing,
		health:   health.Initial(),
	}, nil
}

// Init puts every line in its power-up level (indicators and buzzer off, relay on) and
// writes the stream header. It runs once; later calls are no-ops.
func (m *Monitor) Init() error {
	if m.ready {
		return nil
	}
	m.state = Initializing

	var errs []error
	for _, line := range []health.Line{health.Green, health.Yellow, health.Red, health.Buzzer} {
		if err := m.output.Set(line, false); err != nil {
			errs = append(errs, fmt.Errorf("init %s: %w", line, err))
		}
	}
	if err := m.output.Set(health.Relay, true); err != nil {
		errs = append(errs, fmt.Errorf("init relay: %w", err))
	}
	if err := m.stream.WriteHeader(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	m.ready = true
	logger.Println("Monitor initialized, sampling every", m.period)
	return nil
}

// Step runs one iteration. Output and stream failures do not stop the iteration; they are
// logged and returned joined.
func (m *Monitor) Step() (Iteration, error) {
	if !m.ready {
		if err := m.Init(); err != nil {
			return Iteration{}, fmt.Errorf("initialize: %w", err)
		}
	}
	began := time.Now()
	var errs []error

	m.state = Sampling
	snap := m.sensors.Read()

	m.state = Classifying
	assessment := health.Classify(snap)
	for _, f := range assessment.Faults {
		logger.Warnf("%s sensor fault: %s\n", f.Kind, f.Fault)
		if err := m.stream.Diagnostic("FAULT: %s %s", f.Kind, f.Fault); err != nil {
			errs = append(errs, err)
		}
	}

	m.state = Actuating
	next, outputs, tr := health.Actuate(m.health, assessment)
	m.health = next
	switch {
	case tr.RelayCut:
		reasons := describe(assessment.CutReasons)
		logger.Errorf("relay cut, equipment de-energized: %s\n", reasons)
		if err := m.stream.Diagnostic("EMERGENCY: equipment shut down, %s", reasons); err != nil {
			errs = append(errs, err)
		}
	case assessment.CutRelay:
		// the latch is already open; keep reporting the hazard while it lasts
		reasons := describe(assessment.CutReasons)
		logger.Warnf("cut condition persists, relay already open: %s\n", reasons)
		if err := m.stream.Diagnostic("EMERGENCY: cut condition persists, relay already open, %s", reasons); err != nil {
			errs = append(errs, err)
		}
	}
	if err := health.Apply(m.output, outputs); err != nil {
		logger.Errorf("apply outputs: %v\n", err)
		errs = append(errs, err)
	}

	m.state = Emitting
	m.seq++
	ts := m.now().Sub(m.start).Milliseconds()
	records, err := m.stream.Emit(m.seq, ts, snap)
	if err != nil {
		errs = append(errs, err)
	}
	if err := m.stream.Diagnostic("STATUS: %s", next.Tier); err != nil {
		errs = append(errs, err)
	}
	if len(assessment.Reasons) > 0 {
		logger.Debugf("iteration %d %s: %s\n", m.seq, next.Tier, describe(assessment.Reasons))
	}

	it := Iteration{
		Sequence:    m.seq,
		TimestampMs: ts,
		Snapshot:    snap,
		Assessment:  assessment,
		Health:      next,
		Outputs:     outputs,
		Transition:  tr,
		Records:     records,
		Duration:    time.Since(began),
	}
	if m.observer != nil {
		m.observer.ObserveIteration(it)
	}
	return it, errors.Join(errs...)
}

// Run initializes the loop and then steps once per period until ctx is done. An
// iteration in progress always completes; cancellation is only seen between iterations.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Init(); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		if _, err := m.Step(); err != nil {
			logger.Errorf("iteration %d: %v\n", m.seq, err)
		}

		select {
		case <-ctx.Done():
			logger.Printf("Monitor stopped after %d iterations\n", m.seq)
			return nil
		case <-ticker.C:
		}
	}
}

// Health returns the state after the last iteration.
func (m *Monitor) Health() health.Health {
	return m.health
}

// State returns the phase the loop is in, or last ran.
func (m *Monitor) State() State {
	return m.state
}

// Sequence returns the id of the last emitted batch.
func (m *Monitor) Sequence() uint64 {
	return m.seq
}

func describe(reasons []health.Reason) string {
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// SyntheticClock returns a clock that starts at origin and advances by period on every
// call. With it a loop driven by Step produces one period between batches without
// sleeping, which is how offline recordings are generated.
func SyntheticClock(origin time.Time, period time.Duration) func() time.Time {
	t := origin
	return func() time.Time {
		now := t
		t = t.Add(period)
		return now
	}
}
