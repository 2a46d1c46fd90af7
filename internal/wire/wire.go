// Package wire implements the OPTA binary frame format used to stream
// snapshots to the indicator client.
//
// A frame is a 12-byte little-endian header followed by a variable payload:
//
//	magic    uint32  0x4F505441 ("OPTA")
//	version  uint16  1
//	flags    uint16  0 (reserved)
//	length   uint32  payload byte count
//
// The payload carries the snapshot fields in a fixed order, then a
// length-prefixed process list and a fan-speed list. The outer transport
// framing (big-endian length prefix, see internal/ipc) is a separate layer
// and treats the whole frame as an opaque blob.
package wire

// Magic identifies an OPTA frame ("OPTA" as a little-endian uint32).
const Magic uint32 = 0x4F505441

// Version is the current frame format version.
const Version uint16 = 1

// HeaderSize is the fixed frame header length in bytes.
const HeaderSize = 12

const (
	// DefaultBufferCeiling bounds the encoder scratch buffer.
	DefaultBufferCeiling = 8192
	// DefaultProcessLimit caps processes per frame.
	DefaultProcessLimit = 10
	// DefaultFanLimit caps fan readings per frame.
	DefaultFanLimit = 4
	// DefaultNameLimit caps a process name on the wire, in bytes.
	DefaultNameLimit = 64
)

// Limits bound the variable-length parts of a frame.
type Limits struct {
	Processes     int
	Fans          int
	NameBytes     int
	BufferCeiling int
}

// DefaultLimits returns the contractual frame bounds.
func DefaultLimits() Limits {
	return Limits{
		Processes:     DefaultProcessLimit,
		Fans:          DefaultFanLimit,
		NameBytes:     DefaultNameLimit,
		BufferCeiling: DefaultBufferCeiling,
	}
}

func (l Limits) withDefaults() Limits {
	if l.Processes <= 0 {
		l.Processes = DefaultProcessLimit
	}
	if l.Fans <= 0 {
		l.Fans = DefaultFanLimit
	}
	if l.NameBytes <= 0 || l.NameBytes > 255 {
		l.NameBytes = DefaultNameLimit
	}
	if l.BufferCeiling < HeaderSize {
		l.BufferCeiling = DefaultBufferCeiling
	}
	return l
}
