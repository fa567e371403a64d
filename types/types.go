package types

import "encoding/binary"

// ============================================================================
// ACCESS EVENT - ONE OBSERVED CACHE ACCESS
// ============================================================================

// AccessType classifies the access that triggered the engine.
type AccessType uint8

const (
	Load AccessType = iota
	RFO
	Prefetch
	Writeback
	Translation

	accessTypeCount
)

var accessTypeNames = [accessTypeCount]string{
	Load:        "load",
	RFO:         "rfo",
	Prefetch:    "prefetch",
	Writeback:   "writeback",
	Translation: "translation",
}

// String returns the lowercase trace name of the access type.
func (t AccessType) String() string {
	if t < accessTypeCount {
		return accessTypeNames[t]
	}
	return "unknown"
}

// ParseAccessType maps a trace name back to its AccessType.
func ParseAccessType(s string) (AccessType, bool) {
	for i, name := range accessTypeNames {
		if name == s {
			return AccessType(i), true
		}
	}
	return 0, false
}

// Valid reports whether t is one of the declared access types.
func (t AccessType) Valid() bool { return t < accessTypeCount }

// FillLevel names the cache level a prefetch should fill into.
type FillLevel uint8

const (
	FillL1 FillLevel = iota + 1
	FillL2
	FillLLC
)

// String returns the config name of the fill level.
func (f FillLevel) String() string {
	switch f {
	case FillL1:
		return "l1"
	case FillL2:
		return "l2"
	case FillLLC:
		return "llc"
	}
	return "unknown"
}

// ParseFillLevel maps a config name to its FillLevel.
func ParseFillLevel(s string) (FillLevel, bool) {
	switch s {
	case "l1":
		return FillL1, true
	case "l2":
		return FillL2, true
	case "llc":
		return FillLLC, true
	}
	return 0, false
}

// AccessEvent is the per-call input to the engine. It is supplied by the host
// and never retained by the engine beyond the call.
type AccessEvent struct {
	PC       uint64     // instruction pointer
	Addr     uint64     // accessed byte address
	CPU      uint16     // originating core (used only for routing in replay)
	Type     AccessType // access classification
	Hit      bool       // host cache hit
	Critical bool       // criticality hint
}

// ============================================================================
// 24-BYTE PACKING - RING PAYLOAD LAYOUT
// ============================================================================
//
// Layout (little-endian):
//
//	[0:8]   PC
//	[8:16]  Addr
//	[16:18] CPU
//	[18]    Type
//	[19]    flag bits (hit, critical, end-of-stream)
//	[20:24] reserved, zero

const (
	flagHit uint8 = 1 << iota
	flagCritical
	flagEnd
)

// Pack encodes e into the fixed ring payload.
//
//go:nosplit
//go:inline
func (e AccessEvent) Pack() [24]byte {
	var b [24]byte
	binary.LittleEndian.PutUint64(b[0:8], e.PC)
	binary.LittleEndian.PutUint64(b[8:16], e.Addr)
	binary.LittleEndian.PutUint16(b[16:18], e.CPU)
	b[18] = byte(e.Type)
	var f uint8
	if e.Hit {
		f |= flagHit
	}
	if e.Critical {
		f |= flagCritical
	}
	b[19] = f
	return b
}

// Unpack decodes a ring payload produced by Pack.
//
//go:nosplit
//go:inline
func Unpack(b *[24]byte) AccessEvent {
	return AccessEvent{
		PC:       binary.LittleEndian.Uint64(b[0:8]),
		Addr:     binary.LittleEndian.Uint64(b[8:16]),
		CPU:      binary.LittleEndian.Uint16(b[16:18]),
		Type:     AccessType(b[18]),
		Hit:      b[19]&flagHit != 0,
		Critical: b[19]&flagCritical != 0,
	}
}

// EndMarker returns the payload that tells a consumer its stream is complete.
func EndMarker() [24]byte {
	var b [24]byte
	b[19] = flagEnd
	return b
}

// IsEnd reports whether a payload is the end-of-stream marker.
//
//go:nosplit
//go:inline
func IsEnd(b *[24]byte) bool {
	return b[19]&flagEnd != 0
}
