package sensor

import (
	"math"
	"math/rand"
	"time"
)

// walk describes the random walk of one simulated quantity.
type walk struct {
	min, max, maxDelta float64
	value              float64
}

func (w *walk) next(rng *rand.Rand) float64 {
	w.value += (rng.Float64()*2 - 1) * w.maxDelta
	if w.value < w.min {
		w.value = w.min
	}
	if w.value > w.max {
		w.value = w.max
	}
	return w.value
}

// spike pushes a trend up by step on every iteration strictly between from and to.
type spike struct {
	from, to int
	step     float64
}

func (s spike) active(iteration int) bool {
	return iteration > s.from && iteration < s.to
}

// Simulator produces drifting readings for bench runs without hardware. Temperature and
// vibration get forced excursions so that warning, critical and relay-cut paths are hit.
type Simulator struct {
	rng         *rand.Rand
	echoTimeout time.Duration

	temperature walk
	vibration   walk
	distance    walk

	temperatureSpikes []spike
	vibrationSpikes   []spike
}

// NewSimulator creates a simulator seeded for reproducible runs.
func NewSimulator(seed int64, echoTimeout time.Duration) *Simulator {
	return &Simulator{
		rng:         rand.New(rand.NewSource(seed)),
		echoTimeout: echoTimeout,
		temperature: walk{min: 20.0, max: 100.0, maxDelta: 0.8, value: 30.0},
		vibration:   walk{min: 0.1, max: 3.0, maxDelta: 0.1, value: 0.5},
		distance:    walk{min: 5.0, max: 250.0, maxDelta: 5.0, value: 150.0},
		temperatureSpikes: []spike{
			{from: 50, to: 70, step: 3.0},
			{from: 150, to: 170, step: 3.0},
		},
		vibrationSpikes: []spike{
			{from: 90, to: 110, step: 0.5},
		},
	}
}

// Bank returns the three simulated readers. Each reader counts its own iterations, so the
// bank must be read once per loop iteration.
func (s *Simulator) Bank() Bank {
	return Bank{
		Temperature: &simulatedReader{kind: Temperature, read: s.readTemperature},
		Vibration:   &simulatedReader{kind: Vibration, read: s.readVibration},
		Distance:    &simulatedReader{kind: Distance, read: s.readDistance},
	}
}

func (s *Simulator) readTemperature(iteration int) Sample {
	v := s.temperature.next(s.rng)
	for _, sp := range s.temperatureSpikes {
		if sp.active(iteration) {
			s.temperature.value += sp.step
			v = s.temperature.value
		}
	}
	return FromCelsius(round2(v))
}

func (s *Simulator) readVibration(iteration int) Sample {
	v := s.vibration.next(s.rng)
	for _, sp := range s.vibrationSpikes {
		if sp.active(iteration) {
			s.vibration.value += sp.step
			v = s.vibration.value
		}
	}
	return Valid(Vibration, round2(v))
}

func (s *Simulator) readDistance(int) Sample {
	v := round2(s.distance.next(s.rng))
	sample := FromEcho(EchoFor(v), s.echoTimeout)
	if sample.Valid {
		sample.Value = round2(sample.Value)
	}
	return sample
}

type simulatedReader struct {
	kind      Kind
	iteration int
	read      func(iteration int) Sample
}

func (r *simulatedReader) Kind() Kind { return r.kind }

func (r *simulatedReader) Read() Sample {
	r.iteration++
	return r.read(r.iteration)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
