package filter

import "time"

// Thresholds configures fix rejection.
type Thresholds struct {
	MaxDOP           float64       // HDOP, VDOP and PDOP must be below
	MaxVerticalSpeed float64       // m/s
	MinInterval      time.Duration // fixes further apart are not compared
}

// DefaultMaxDOP is the dilution of precision limit for a kept fix.
const DefaultMaxDOP = 5

// DefaultThresholds provides the default rejection thresholds
var DefaultThresholds = Thresholds{
	MaxDOP:           DefaultMaxDOP,
	MaxVerticalSpeed: 10,               // 36 km/h climb or descent
	MinInterval:      10 * time.Second, // vertical speed is not judged across gaps
}

// WithDefaults fills zero fields from DefaultThresholds.
func (t Thresholds) WithDefaults() Thresholds {
	if t.MaxDOP <= 0 {
		t.MaxDOP = DefaultThresholds.MaxDOP
	}
	if t.MaxVerticalSpeed <= 0 {
		t.MaxVerticalSpeed = DefaultThresholds.MaxVerticalSpeed
	}
	if t.MinInterval <= 0 {
		t.MinInterval = DefaultThresholds.MinInterval
	}
	return t
}
