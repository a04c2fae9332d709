// Package sensor wraps the physical sensors behind a uniform read operation.
package sensor

import "fmt"

// Kind identifies a physical quantity. Its numeric value is the sensor id used in the
// measurement stream.
type Kind int

const (
	Temperature Kind = iota + 1
	Vibration
	Distance
)

// Kinds lists every sensor in stream order.
var Kinds = []Kind{Temperature, Vibration, Distance}

// ID returns the stream sensor id (1, 2 or 3)
func (k Kind) ID() int {
	return int(k)
}

func (k Kind) String() string {
	switch k {
	case Temperature:
		return "temperature"
	case Vibration:
		return "vibration"
	case Distance:
		return "distance"
	default:
		return fmt.Sprintf("sensor(%d)", int(k))
	}
}

// Unit returns the engineering unit of the values produced for this kind
func (k Kind) Unit() string {
	switch k {
	case Temperature:
		return "°C"
	case Vibration:
		return "g"
	case Distance:
		return "cm"
	default:
		return ""
	}
}

// KindFromID maps a stream sensor id back to its kind.
func KindFromID(id int) (Kind, error) {
	k := Kind(id)
	switch k {
	case Temperature, Vibration, Distance:
		return k, nil
	}
	return 0, fmt.Errorf("unknown sensor id: %d", id)
}

// Sample is one reading of one sensor. Valid is false when the driver reported a fault;
// Value then carries whatever the driver returned (the sentinel, or zero).
type Sample struct {
	Kind  Kind
	Value float64
	Valid bool
	Fault string
}

// Valid builds a good reading.
func Valid(kind Kind, value float64) Sample {
	return Sample{Kind: kind, Value: value, Valid: true}
}

// Faulted builds a reading the driver flagged as unusable.
func Faulted(kind Kind, value float64, reason string) Sample {
	return Sample{Kind: kind, Value: value, Fault: reason}
}

// Reader reads one sample from one sensor. Implementations own the driver specifics and
// never block longer than the driver timeout.
type Reader interface {
	Kind() Kind
	Read() Sample
}

// Snapshot holds one sample per sensor taken in the same loop iteration.
type Snapshot struct {
	Temperature Sample
	Vibration   Sample
	Distance    Sample
}

// Samples returns the samples in stream order: temperature, vibration, distance.
func (s Snapshot) Samples() []Sample {
	return []Sample{s.Temperature, s.Vibration, s.Distance}
}

// Bank groups the three readers sampled each iteration.
type Bank struct {
	Temperature Reader
	Vibration   Reader
	Distance    Reader
}

// Read samples every sensor once, in stream order.
func (b Bank) Read() Snapshot {
	return Snapshot{
		Temperature: b.Temperature.Read(),
		Vibration:   b.Vibration.Read(),
		Distance:    b.Distance.Read(),
	}
}

// Validate checks that every reader is present and wired to the right kind.
func (b Bank) Validate() error {
	readers := []struct {
		want Kind
		r    Reader
	}{
		{Temperature, b.Temperature},
		{Vibration, b.Vibration},
		{Distance, b.Distance},
	}
	for _, entry := range readers {
		if entry.r == nil {
			return fmt.Errorf("%s reader is not configured", entry.want)
		}
		if entry.r.Kind() != entry.want {
			return fmt.Errorf("%s slot holds a %s reader", entry.want, entry.r.Kind())
		}
	}
	return nil
}
