package utils

import (
	"io"
	"os"
	"strconv"
	"sync"
	"unsafe"
)

///////////////////////////////////////////////////////////////////////////////
// Conversion Utilities - Zero-Alloc Casts
///////////////////////////////////////////////////////////////////////////////

// B2s converts a []byte to a string **without** allocation.
// ⚠️ Caller must ensure the input slice remains valid and unchanged.
// Used for human-readable print paths.
//
//go:nosplit
//go:inline
func B2s(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

///////////////////////////////////////////////////////////////////////////////
// Number Rendering - For Cold-Path Diagnostics
///////////////////////////////////////////////////////////////////////////////

// Itoa renders a signed integer in base 10.
// One allocation for the resulting string, no fmt.
//
//go:nosplit
//go:inline
func Itoa(n int) string {
	if n >= 0 {
		return Utoa(uint64(n))
	}
	var buf [20]byte
	i := len(buf)
	u := uint64(-int64(n))
	for u >= 10 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	i--
	buf[i] = byte('0' + u)
	i--
	buf[i] = '-'
	return string(buf[i:])
}

// Utoa renders an unsigned 64-bit integer in base 10.
//
//go:nosplit
//go:inline
func Utoa(u uint64) string {
	var buf [20]byte
	i := len(buf)
	for u >= 10 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	i--
	buf[i] = byte('0' + u)
	return string(buf[i:])
}

// Ftoa renders a float with a fixed number of decimals.
func Ftoa(f float64, prec int) string {
	var buf [32]byte
	return string(strconv.AppendFloat(buf[:0], f, 'f', prec, 64))
}

// Xtoa renders an unsigned value as 0x-prefixed lowercase hex (addresses, PCs).
//
//go:nosplit
//go:inline
func Xtoa(u uint64) string {
	const digits = "0123456789abcdef"
	var buf [18]byte
	i := len(buf)
	for {
		i--
		buf[i] = digits[u&0xf]
		u >>= 4
		if u == 0 {
			break
		}
	}
	i--
	buf[i] = 'x'
	i--
	buf[i] = '0'
	return string(buf[i:])
}

///////////////////////////////////////////////////////////////////////////////
// Diagnostic Output - Direct Writes, No Formatting
///////////////////////////////////////////////////////////////////////////////

var (
	outMu sync.Mutex
	out   io.Writer = os.Stderr
)

// SetOutput redirects diagnostic output (tests, CLI redirection).
// Returns the previous writer so callers can restore it.
func SetOutput(w io.Writer) io.Writer {
	outMu.Lock()
	prev := out
	out = w
	outMu.Unlock()
	return prev
}

// PrintWarning writes msg verbatim to the diagnostic output.
// Callers terminate the message themselves.
//
//go:nosplit
func PrintWarning(msg string) {
	outMu.Lock()
	_, _ = io.WriteString(out, msg)
	outMu.Unlock()
}

// PrintInfo is PrintWarning for informational lines. Kept separate so the
// two streams can diverge without touching call sites.
//
//go:nosplit
func PrintInfo(msg string) {
	PrintWarning(msg)
}

///////////////////////////////////////////////////////////////////////////////
// Hex Decoders - No Allocation, Early Exit on Malformed Input
///////////////////////////////////////////////////////////////////////////////

// ParseHexU64 parses a 64-bit uint from a (0x-optional) ASCII hex string.
// Stops at first non-nibble. ~5x faster than strconv.ParseUint.
//
//go:nosplit
//go:inline
func ParseHexU64(b []byte) uint64 {
	j := 0
	if len(b) >= 2 && b[0] == '0' && (b[1]|0x20) == 'x' {
		j = 2
	}
	var u uint64
	for ; j < len(b) && j < 18; j++ {
		c := b[j] | 0x20
		if c < '0' || c > 'f' || (c > '9' && c < 'a') {
			break
		}
		v := uint64(c - '0')
		if c > '9' {
			v -= 39 // a/A -> 10
		}
		u = (u << 4) | v
	}
	return u
}

// IsHex reports whether b is a non-empty (0x-optional) hex literal of at most 16 nibbles.
// Used by trace parsing to reject garbage that ParseHexU64 would silently truncate.
//
//go:nosplit
//go:inline
func IsHex(b []byte) bool {
	if len(b) >= 2 && b[0] == '0' && (b[1]|0x20) == 'x' {
		b = b[2:]
	}
	if len(b) == 0 || len(b) > 16 {
		return false
	}
	for _, c := range b {
		c |= 0x20
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

///////////////////////////////////////////////////////////////////////////////
// Hash & Mixers
///////////////////////////////////////////////////////////////////////////////

// Mix64 applies a Murmur3-style avalanche to a 64-bit value.
// Spreads cache-line numbers into in-flight filter keys.
//
//go:nosplit
//go:inline
func Mix64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}
