package wire

import (
	"encoding/binary"
	"errors"
	"math"

	"opta-metricsd/internal/model"
)

var (
	// ErrInvalidMagic reports a frame that does not start with the OPTA magic.
	ErrInvalidMagic = errors.New("wire: invalid magic")
	// ErrUnsupportedVersion reports a frame with an unknown format version.
	ErrUnsupportedVersion = errors.New("wire: unsupported version")
	// ErrTruncated reports a buffer shorter than its header claims.
	ErrTruncated = errors.New("wire: truncated frame")
)

// ValidateHeader checks the 12-byte frame header and returns the payload
// length. The buffer must contain at least the full declared payload.
func ValidateHeader(data []byte) (uint32, error) {
	if len(data) < 4 {
		return 0, ErrTruncated
	}
	if binary.LittleEndian.Uint32(data[0:4]) != Magic {
		return 0, ErrInvalidMagic
	}
	if len(data) < HeaderSize {
		return 0, ErrTruncated
	}
	if binary.LittleEndian.Uint16(data[4:6]) != Version {
		return 0, ErrUnsupportedVersion
	}
	payloadLen := binary.LittleEndian.Uint32(data[8:12])
	if uint64(len(data)) < HeaderSize+uint64(payloadLen) {
		return 0, ErrTruncated
	}
	return payloadLen, nil
}

// Decode parses a frame back into a snapshot. Header validation is strict;
// beyond that the parser is total: reads that would overrun the payload yield
// zero values, which tolerates older short frames. Derived-field bytes
// outside their documented ranges are coerced to the zero state.
func Decode(data []byte) (model.Snapshot, error) {
	payloadLen, err := ValidateHeader(data)
	if err != nil {
		return model.Snapshot{}, err
	}

	d := reader{data: data[:HeaderSize+int(payloadLen)], pos: HeaderSize}

	s := model.Snapshot{
		CPUUsage:       d.f32(),
		MemoryUsage:    d.f32(),
		MemoryTotal:    d.u64(),
		MemoryUsed:     d.u64(),
		DiskUsage:      d.f32(),
		Temperature:    d.f32(),
		GPUTemperature: d.f32(),
		Timestamp:      d.u64(),
	}

	s.Momentum = model.Momentum{
		Intensity:     d.f32(),
		Color:         model.ColorFromByte(d.u8()),
		RotationSpeed: d.f32(),
	}
	s.Health = model.HealthFromByte(d.u8())

	processCount := int(d.u8())
	if processCount > 0 {
		s.TopProcesses = make([]model.ProcessEntry, 0, processCount)
		for i := 0; i < processCount; i++ {
			s.TopProcesses = append(s.TopProcesses, model.ProcessEntry{
				PID:        d.u32(),
				Name:       d.str(),
				CPUPercent: d.f32(),
				MemoryMB:   d.f32(),
			})
		}
	}

	fanCount := int(d.u8())
	if fanCount > 0 {
		s.FanSpeeds = make([]uint32, 0, fanCount)
		for i := 0; i < fanCount; i++ {
			s.FanSpeeds = append(s.FanSpeeds, d.u32())
		}
	}

	return s, nil
}

// reader walks a frame returning zero values past the end instead of
// failing, keeping Decode total over malformed payloads.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) has(n int) bool {
	return r.pos+n <= len(r.data)
}

func (r *reader) u8() uint8 {
	if !r.has(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) u32() uint32 {
	if !r.has(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) u64() uint64 {
	if !r.has(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *reader) str() string {
	n := int(r.u8())
	if n == 0 || !r.has(n) {
		return ""
	}
	v := string(r.data[r.pos : r.pos+n])
	r.pos += n
	return v
}
