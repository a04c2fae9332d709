package sensor

import (
	"math"
	"time"
)

const (
	// DisconnectedC is what the DS18B20 driver returns when the probe does not answer.
	DisconnectedC = -127.0

	// CountsPerG is the MPU6050 sensitivity in the ±2 g range.
	CountsPerG = 16384.0

	// SoundSpeedCmPerUs is the speed of sound used for the HC-SR04 round trip.
	SoundSpeedCmPerUs = 0.034

	// DefaultEchoTimeout bounds the echo wait. Beyond ~25 ms the HC-SR04 is out of range anyway.
	DefaultEchoTimeout = 30 * time.Millisecond
)

// FromCelsius converts a temperature driver reading into a sample.
func FromCelsius(c float64) Sample {
	if c == DisconnectedC {
		return Faulted(Temperature, c, "temperature probe disconnected")
	}
	return Valid(Temperature, c)
}

// FromAcceleration converts raw accelerometer counts into the acceleration magnitude in g.
func FromAcceleration(ax, ay, az int16) Sample {
	x := float64(ax) / CountsPerG
	y := float64(ay) / CountsPerG
	z := float64(az) / CountsPerG
	return Valid(Vibration, math.Sqrt(x*x+y*y+z*z))
}

// FromEcho converts an echo pulse width into a distance. A zero pulse, or one that reached
// the timeout, means no echo came back and yields an invalid sample instead of ~0 cm.
func FromEcho(pulse, timeout time.Duration) Sample {
	if timeout <= 0 {
		timeout = DefaultEchoTimeout
	}
	if pulse <= 0 || pulse >= timeout {
		return Faulted(Distance, 0, "no echo within "+timeout.String())
	}
	us := float64(pulse) / float64(time.Microsecond)
	return Valid(Distance, us*SoundSpeedCmPerUs/2)
}

// EchoFor returns the pulse width an object at cm would produce. Used by the simulator.
func EchoFor(cm float64) time.Duration {
	us := cm * 2 / SoundSpeedCmPerUs
	return time.Duration(math.Round(us * float64(time.Microsecond)))
}
