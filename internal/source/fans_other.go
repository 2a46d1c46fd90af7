//go:build !linux

package source

// readFanSpeeds reports no fans on platforms without hwmon.
func readFanSpeeds() []uint32 {
	return nil
}
