package wire

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"unicode/utf8"

	"opta-metricsd/internal/model"
)

// fixedPayloadSize is the payload size before the variable lists: eight core
// metrics (44), momentum (9), health (1), process count (1), fan count (1).
const fixedPayloadSize = 44 + 9 + 1 + 1 + 1

// Encoder serializes snapshots into frames, reusing one scratch buffer
// across calls. Safe for concurrent use; the buffer is held for the duration
// of a single Encode only, and a panic mid-serialization leaves the encoder
// usable for the next caller.
type Encoder struct {
	mu     sync.Mutex
	buf    []byte
	limits Limits
}

// NewEncoder returns an encoder with a pre-allocated scratch buffer.
func NewEncoder(limits Limits) *Encoder {
	l := limits.withDefaults()
	return &Encoder{
		buf:    make([]byte, 0, l.BufferCeiling),
		limits: l,
	}
}

// Encode serializes a snapshot and returns a fresh copy of the frame bytes.
// Process and fan lists beyond the configured limits are silently truncated;
// if the frame would still exceed the buffer ceiling, processes are shed
// first, then fans, until it fits.
func (e *Encoder) Encode(s *model.Snapshot) (data []byte, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			e.buf = e.buf[:0]
			err = fmt.Errorf("wire: encode panic: %v", r)
		}
	}()

	procs := s.TopProcesses
	if len(procs) > e.limits.Processes {
		procs = procs[:e.limits.Processes]
	}
	fans := s.FanSpeeds
	if len(fans) > e.limits.Fans {
		fans = fans[:e.limits.Fans]
	}

	// Shed the variable tails until the frame fits the ceiling.
	for HeaderSize+e.payloadSize(procs, fans) > e.limits.BufferCeiling && len(procs) > 0 {
		procs = procs[:len(procs)-1]
	}
	for HeaderSize+e.payloadSize(procs, fans) > e.limits.BufferCeiling && len(fans) > 0 {
		fans = fans[:len(fans)-1]
	}

	// Reserve header space; it is written last, once the payload length is
	// known.
	e.buf = append(e.buf[:0], make([]byte, HeaderSize)...)

	e.appendF32(s.CPUUsage)
	e.appendF32(s.MemoryUsage)
	e.appendU64(s.MemoryTotal)
	e.appendU64(s.MemoryUsed)
	e.appendF32(s.DiskUsage)
	e.appendF32(s.Temperature)
	e.appendF32(s.GPUTemperature)
	e.appendU64(s.Timestamp)

	e.appendF32(s.Momentum.Intensity)
	e.appendU8(uint8(s.Momentum.Color))
	e.appendF32(s.Momentum.RotationSpeed)

	e.appendU8(uint8(s.Health))

	e.appendU8(uint8(len(procs)))
	for i := range procs {
		e.appendProcess(&procs[i])
	}

	e.appendU8(uint8(len(fans)))
	for _, speed := range fans {
		e.appendU32(speed)
	}

	payloadLen := uint32(len(e.buf) - HeaderSize)
	binary.LittleEndian.PutUint32(e.buf[0:4], Magic)
	binary.LittleEndian.PutUint16(e.buf[4:6], Version)
	binary.LittleEndian.PutUint16(e.buf[6:8], 0)
	binary.LittleEndian.PutUint32(e.buf[8:12], payloadLen)

	return append([]byte(nil), e.buf...), nil
}

func (e *Encoder) payloadSize(procs []model.ProcessEntry, fans []uint32) int {
	size := fixedPayloadSize
	for i := range procs {
		name := truncateUTF8(procs[i].Name, e.limits.NameBytes)
		size += 4 + 1 + len(name) + 4 + 4
	}
	size += 4 * len(fans)
	return size
}

func (e *Encoder) appendProcess(p *model.ProcessEntry) {
	e.appendU32(p.PID)
	name := truncateUTF8(p.Name, e.limits.NameBytes)
	e.appendU8(uint8(len(name)))
	e.buf = append(e.buf, name...)
	e.appendF32(p.CPUPercent)
	e.appendF32(p.MemoryMB)
}

func (e *Encoder) appendU8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) appendU32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) appendU64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *Encoder) appendF32(v float32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, math.Float32bits(v))
}

// truncateUTF8 cuts s to at most max bytes, backing up to the last complete
// codepoint when the cut would split one.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
