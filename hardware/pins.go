// Package hardware binds the policy's digital lines to output pins. Without a GPIO
// driver the bank keeps the pin levels in memory and reports every level change.
package hardware

import (
	"fmt"
	"sync"

	"equipment_monitor/health"
)

// Pin map of the reference board (ESP32 GPIO numbers).
const (
	PinRelay  = 19
	PinBuzzer = 23
	PinGreen  = 21
	PinYellow = 22
	PinRed    = 25

	// BuzzerToneHz is the tone driven on the buzzer pin while it is active.
	BuzzerToneHz = 1000
)

// DefaultPins maps each line to its GPIO.
var DefaultPins = map[health.Line]int{
	health.Green:  PinGreen,
	health.Yellow: PinYellow,
	health.Red:    PinRed,
	health.Buzzer: PinBuzzer,
	health.Relay:  PinRelay,
}

// ChangeFunc is called when a line changes level.
type ChangeFunc func(line health.Line, pin int, on bool)

// PinBank is an in-memory digital output. It is safe for concurrent use so the level
// can be read by the metrics endpoint while the loop writes it.
type PinBank struct {
	mu       sync.Mutex
	pins     map[health.Line]int
	levels   map[health.Line]bool
	writes   int
	onChange ChangeFunc
}

// NewPinBank creates a bank with the given pin map; nil uses DefaultPins.
func NewPinBank(pins map[health.Line]int, onChange ChangeFunc) *PinBank {
	if pins == nil {
		pins = DefaultPins
	}
	return &PinBank{
		pins:     pins,
		levels:   make(map[health.Line]bool, len(pins)),
		onChange: onChange,
	}
}

// Set drives a line. Lines with no pin assigned are rejected.
func (b *PinBank) Set(line health.Line, on bool) error {
	b.mu.Lock()
	pin, ok := b.pins[line]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("no pin assigned to %s", line)
	}
	prev, known := b.levels[line]
	b.levels[line] = on
	b.writes++
	changed := !known || prev != on
	cb := b.onChange
	b.mu.Unlock()

	if changed && cb != nil {
		cb(line, pin, on)
	}
	return nil
}

// Level returns the current level of a line.
func (b *PinBank) Level(line health.Line) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.levels[line]
}

// Writes returns the number of Set calls accepted so far.
func (b *PinBank) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

var _ health.DigitalOutput = (*PinBank)(nil)
