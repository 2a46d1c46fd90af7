package source

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/shirou/gopsutil/v4/sensors"

	"opta-metricsd/internal/model"
)

// SystemSource samples live host state via gopsutil. CPU and memory are
// required; temperatures, processes, and fan speeds degrade to zero values
// when the platform cannot provide them. Not safe for concurrent calls; the
// producer loop is the single caller.
type SystemSource struct {
	logger       *slog.Logger
	diskPath     string
	processLimit int
	lastTS       uint64
}

// NewSystemSource builds a source reporting disk usage for diskPath and at
// most processLimit top processes.
func NewSystemSource(logger *slog.Logger, diskPath string, processLimit int) *SystemSource {
	if diskPath == "" {
		diskPath = "/"
	}
	if processLimit <= 0 {
		processLimit = 10
	}
	return &SystemSource{
		logger:       logger,
		diskPath:     diskPath,
		processLimit: processLimit,
	}
}

// Snapshot assembles one reading. The returned timestamp is monotonically
// non-decreasing across calls even if the wall clock steps backwards.
func (s *SystemSource) Snapshot(ctx context.Context) (model.Snapshot, error) {
	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("cpu usage: %w", err)
	}
	var cpuUsage float64
	if len(cpuPercents) > 0 {
		cpuUsage = cpuPercents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("memory usage: %w", err)
	}

	var diskUsage float64
	if du, duErr := disk.UsageWithContext(ctx, s.diskPath); duErr != nil {
		s.logger.Debug("disk usage unavailable", "path", s.diskPath, "error", duErr)
	} else {
		diskUsage = du.UsedPercent
	}

	cpuTemp, gpuTemp := s.readTemperatures(ctx)
	procs := s.topProcesses(ctx)
	fans := readFanSpeeds()

	ts := uint64(time.Now().UnixMilli())
	if ts < s.lastTS {
		ts = s.lastTS
	}
	s.lastTS = ts

	return model.NewSnapshot(
		float32(cpuUsage),
		float32(vm.UsedPercent),
		vm.Total,
		vm.Used,
		float32(diskUsage),
		cpuTemp,
		gpuTemp,
		ts,
		procs,
		fans,
	), nil
}

func (s *SystemSource) readTemperatures(ctx context.Context) (cpuTemp, gpuTemp float32) {
	temps, err := sensors.TemperaturesWithContext(ctx)
	if err != nil {
		s.logger.Debug("temperature sensors unavailable", "error", err)
		return 0, 0
	}
	for _, t := range temps {
		key := strings.ToLower(t.SensorKey)
		switch {
		case gpuTemp == 0 && isGPUSensor(key):
			gpuTemp = float32(t.Temperature)
		case cpuTemp == 0 && isCPUSensor(key):
			cpuTemp = float32(t.Temperature)
		}
	}
	return cpuTemp, gpuTemp
}

func isCPUSensor(key string) bool {
	for _, probe := range []string{"cpu", "coretemp", "k10temp", "package", "tdie", "soc"} {
		if strings.Contains(key, probe) {
			return true
		}
	}
	return false
}

func isGPUSensor(key string) bool {
	for _, probe := range []string{"gpu", "amdgpu", "nouveau", "edge"} {
		if strings.Contains(key, probe) {
			return true
		}
	}
	return false
}

func (s *SystemSource) topProcesses(ctx context.Context) []model.ProcessEntry {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		s.logger.Debug("process listing unavailable", "error", err)
		return nil
	}

	entries := make([]model.ProcessEntry, 0, len(procs))
	for _, p := range procs {
		cpuPct, err := p.CPUPercentWithContext(ctx)
		if err != nil {
			continue
		}
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		var memMB float64
		if mi, miErr := p.MemoryInfoWithContext(ctx); miErr == nil && mi != nil {
			memMB = float64(mi.RSS) / (1 << 20)
		}
		entries = append(entries, model.ProcessEntry{
			PID:        uint32(p.Pid),
			Name:       name,
			CPUPercent: float32(cpuPct),
			MemoryMB:   float32(memMB),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CPUPercent > entries[j].CPUPercent
	})
	if len(entries) > s.processLimit {
		entries = entries[:s.processLimit]
	}
	return entries
}
