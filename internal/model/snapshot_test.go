package model

import (
	"math"
	"testing"
)

func TestHealthFromMetrics(t *testing.T) {
	cases := []struct {
		name     string
		cpu, mem float32
		want     Health
	}{
		{"idle", 30, 40, HealthHealthy},
		{"cpu elevated", 70, 50, HealthElevated},
		{"mem elevated", 10, 61, HealthElevated},
		{"cpu critical", 95, 50, HealthCritical},
		{"mem critical", 50, 90, HealthCritical},
		{"boundary cpu 90 stays elevated", 90, 0, HealthElevated},
		{"boundary cpu 60 stays healthy", 60, 0, HealthHealthy},
		{"boundary mem 85 stays elevated", 0, 85, HealthElevated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HealthFromMetrics(tc.cpu, tc.mem); got != tc.want {
				t.Errorf("HealthFromMetrics(%v, %v) = %v, want %v", tc.cpu, tc.mem, got, tc.want)
			}
		})
	}
}

func TestMomentumFromMetrics(t *testing.T) {
	critical := MomentumFromMetrics(95, 50)
	if critical.Color != ColorCritical || critical.Intensity != 1.0 || critical.RotationSpeed != 3.0 {
		t.Errorf("critical momentum mismatch: %+v", critical)
	}

	active := MomentumFromMetrics(70, 50)
	if active.Color != ColorActive || active.Intensity != 0.7 || active.RotationSpeed != 1.5 {
		t.Errorf("active momentum mismatch: %+v", active)
	}

	idle := MomentumFromMetrics(30, 40)
	if idle.Color != ColorIdle || idle.Intensity != 0.3 || idle.RotationSpeed != 0.5 {
		t.Errorf("idle momentum mismatch: %+v", idle)
	}
}

func TestByteCoercion(t *testing.T) {
	if got := ColorFromByte(2); got != ColorCritical {
		t.Errorf("ColorFromByte(2) = %v", got)
	}
	if got := ColorFromByte(99); got != ColorIdle {
		t.Errorf("ColorFromByte(99) = %v, want idle", got)
	}
	if got := HealthFromByte(1); got != HealthElevated {
		t.Errorf("HealthFromByte(1) = %v", got)
	}
	if got := HealthFromByte(255); got != HealthHealthy {
		t.Errorf("HealthFromByte(255) = %v, want healthy", got)
	}
}

func TestNewSnapshotClampsInputs(t *testing.T) {
	s := NewSnapshot(150, -3, 100, 200, float32(math.NaN()), 0, 0, 1, nil, nil)
	if s.CPUUsage != 100 {
		t.Errorf("cpu not clamped: %v", s.CPUUsage)
	}
	if s.MemoryUsage != 0 {
		t.Errorf("negative memory usage not clamped: %v", s.MemoryUsage)
	}
	if s.DiskUsage != 0 {
		t.Errorf("NaN disk usage not clamped: %v", s.DiskUsage)
	}
	if s.MemoryUsed != s.MemoryTotal {
		t.Errorf("memory used %d exceeds total %d", s.MemoryUsed, s.MemoryTotal)
	}
}

func TestNewSnapshotDerivesFields(t *testing.T) {
	s := NewSnapshot(95, 50, 0, 0, 0, 0, 0, 0, nil, nil)
	if s.Health != HealthCritical {
		t.Errorf("health = %v, want critical", s.Health)
	}
	if s.Momentum.Color != ColorCritical {
		t.Errorf("momentum color = %v, want critical", s.Momentum.Color)
	}
}

func TestEmptySnapshot(t *testing.T) {
	s := EmptySnapshot()
	if s.Health != HealthHealthy || s.Momentum.Color != ColorIdle {
		t.Errorf("empty snapshot not healthy/idle: %+v", s)
	}
	if len(s.TopProcesses) != 0 || len(s.FanSpeeds) != 0 {
		t.Errorf("empty snapshot carries entries")
	}
}
