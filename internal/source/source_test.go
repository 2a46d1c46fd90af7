package source

import (
	"context"
	"errors"
	"testing"

	"opta-metricsd/internal/model"
)

func TestStaticSource(t *testing.T) {
	want := model.NewSnapshot(50, 50, 1<<30, 1<<29, 10, 40, 35, 123, nil, nil)
	s := &StaticSource{Value: want}

	got, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got.Timestamp != 123 || got.CPUUsage != 50 {
		t.Errorf("snapshot = %+v, want %+v", got, want)
	}
}

func TestStaticSourceError(t *testing.T) {
	probeErr := errors.New("probe failed")
	s := &StaticSource{Err: probeErr}
	if _, err := s.Snapshot(context.Background()); !errors.Is(err, probeErr) {
		t.Errorf("err = %v, want %v", err, probeErr)
	}
}

func TestStaticSourceHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &StaticSource{}
	if _, err := s.Snapshot(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSensorClassification(t *testing.T) {
	cpuKeys := []string{"coretemp_core_0", "k10temp_tctl", "cpu_thermal", "package_id_0", "soc_thermal"}
	for _, key := range cpuKeys {
		if !isCPUSensor(key) {
			t.Errorf("isCPUSensor(%q) = false", key)
		}
	}
	gpuKeys := []string{"amdgpu_edge", "gpu_thermal", "nouveau_temp"}
	for _, key := range gpuKeys {
		if !isGPUSensor(key) {
			t.Errorf("isGPUSensor(%q) = false", key)
		}
	}
	if isCPUSensor("nvme_composite") || isGPUSensor("acpitz") {
		t.Errorf("unrelated sensors misclassified")
	}
}
