package model

import "time"

// ProcessEntry describes one of the top resource consumers at sample time.
type ProcessEntry struct {
	PID        uint32  `json:"pid"`
	Name       string  `json:"name"`
	CPUPercent float32 `json:"cpu_percent"`
	MemoryMB   float32 `json:"memory_mb"`
}

// Snapshot is one complete reading of host system state. It is immutable
// after construction; Momentum and Health are pure functions of CPUUsage and
// MemoryUsage and are filled in by NewSnapshot.
type Snapshot struct {
	CPUUsage       float32        `json:"cpu_usage"`
	MemoryUsage    float32        `json:"memory_usage"`
	MemoryTotal    uint64         `json:"memory_total"`
	MemoryUsed     uint64         `json:"memory_used"`
	DiskUsage      float32        `json:"disk_usage"`
	Temperature    float32        `json:"temperature"`
	GPUTemperature float32        `json:"gpu_temperature"`
	Timestamp      uint64         `json:"timestamp"`
	TopProcesses   []ProcessEntry `json:"top_processes"`
	Momentum       Momentum       `json:"momentum"`
	Health         Health         `json:"health"`
	FanSpeeds      []uint32       `json:"fan_speeds"`
}

// NewSnapshot builds a snapshot with clamped inputs and derived fields.
func NewSnapshot(
	cpuUsage, memoryUsage float32,
	memoryTotal, memoryUsed uint64,
	diskUsage, temperature, gpuTemperature float32,
	timestamp uint64,
	topProcesses []ProcessEntry,
	fanSpeeds []uint32,
) Snapshot {
	cpuUsage = ClampPercent(cpuUsage)
	memoryUsage = ClampPercent(memoryUsage)
	if memoryUsed > memoryTotal {
		memoryUsed = memoryTotal
	}
	return Snapshot{
		CPUUsage:       cpuUsage,
		MemoryUsage:    memoryUsage,
		MemoryTotal:    memoryTotal,
		MemoryUsed:     memoryUsed,
		DiskUsage:      ClampPercent(diskUsage),
		Temperature:    temperature,
		GPUTemperature: gpuTemperature,
		Timestamp:      timestamp,
		TopProcesses:   topProcesses,
		Momentum:       MomentumFromMetrics(cpuUsage, memoryUsage),
		Health:         HealthFromMetrics(cpuUsage, memoryUsage),
		FanSpeeds:      fanSpeeds,
	}
}

// EmptySnapshot returns an all-zero snapshot stamped with the current time.
// Used as the end-of-stream notice and in tests.
func EmptySnapshot() Snapshot {
	return NewSnapshot(0, 0, 0, 0, 0, 0, 0, uint64(time.Now().UnixMilli()), nil, nil)
}

// ClampPercent bounds a percentage to [0,100]. NaN clamps to 0.
func ClampPercent(v float32) float32 {
	if v > 100 {
		return 100
	}
	if v >= 0 {
		return v
	}
	return 0
}
