//go:build linux

package source

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const hwmonRoot = "/sys/class/hwmon"

// readFanSpeeds scans hwmon fan inputs. Hosts without fan sensors (VMs,
// passively cooled boards) report none.
func readFanSpeeds() []uint32 {
	return readFanSpeedsFrom(hwmonRoot)
}

func readFanSpeedsFrom(root string) []uint32 {
	chips, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	var speeds []uint32
	for _, chip := range chips {
		inputs, err := filepath.Glob(filepath.Join(root, chip.Name(), "fan*_input"))
		if err != nil {
			continue
		}
		for _, input := range inputs {
			raw, err := os.ReadFile(input)
			if err != nil {
				continue
			}
			rpm, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 32)
			if err != nil {
				continue
			}
			speeds = append(speeds, uint32(rpm))
		}
	}
	return speeds
}
