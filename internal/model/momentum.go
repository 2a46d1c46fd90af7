package model

// Health classifies overall system load into three bands.
type Health uint8

const (
	HealthHealthy Health = iota
	HealthElevated
	HealthCritical
)

// MomentumColor drives the indicator border color in the UI client.
type MomentumColor uint8

const (
	ColorIdle MomentumColor = iota
	ColorActive
	ColorCritical
)

// Momentum is the derived animation state streamed alongside raw metrics.
type Momentum struct {
	Intensity     float32       `json:"intensity"`
	Color         MomentumColor `json:"color"`
	RotationSpeed float32       `json:"rotation_speed"`
}

// HealthFromMetrics maps cpu/memory percents onto the three-band scale.
// Critical when cpu > 90 or mem > 85, elevated when cpu > 60 or mem > 60.
func HealthFromMetrics(cpuUsage, memoryUsage float32) Health {
	switch {
	case cpuUsage > 90 || memoryUsage > 85:
		return HealthCritical
	case cpuUsage > 60 || memoryUsage > 60:
		return HealthElevated
	default:
		return HealthHealthy
	}
}

// MomentumFromMetrics applies the same bands as HealthFromMetrics with the
// contractual intensity/rotation mapping. The values are part of the wire
// format and must not drift.
func MomentumFromMetrics(cpuUsage, memoryUsage float32) Momentum {
	switch HealthFromMetrics(cpuUsage, memoryUsage) {
	case HealthCritical:
		return Momentum{Intensity: 1.0, Color: ColorCritical, RotationSpeed: 3.0}
	case HealthElevated:
		return Momentum{Intensity: 0.7, Color: ColorActive, RotationSpeed: 1.5}
	default:
		return Momentum{Intensity: 0.3, Color: ColorIdle, RotationSpeed: 0.5}
	}
}

// HealthFromByte coerces an on-wire byte to a valid state. Unknown values
// decode as healthy.
func HealthFromByte(b uint8) Health {
	if b > uint8(HealthCritical) {
		return HealthHealthy
	}
	return Health(b)
}

// ColorFromByte coerces an on-wire byte to a valid color. Unknown values
// decode as idle.
func ColorFromByte(b uint8) MomentumColor {
	if b > uint8(ColorCritical) {
		return ColorIdle
	}
	return MomentumColor(b)
}

func (h Health) String() string {
	switch h {
	case HealthElevated:
		return "elevated"
	case HealthCritical:
		return "critical"
	default:
		return "healthy"
	}
}

func (c MomentumColor) String() string {
	switch c {
	case ColorActive:
		return "active"
	case ColorCritical:
		return "critical"
	default:
		return "idle"
	}
}
