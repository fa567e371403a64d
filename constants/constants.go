// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go - Prefetch engine tunables & architectural shape
//
// Purpose:
//   - Fixes the addressing geometry (cache line, page) the engine reasons in.
//   - Defines the default learning parameters and delay-line depth.
//   - Sizes the replay harness: per-core rings, host cache model, in-flight filter.
//
// Notes:
//   - Everything here is a default. Runtime overrides live in package config.
//   - Geometry constants (BlockShift, PageShift, HistoryDepth, ActionCount) are
//     NOT overridable: state keys and action tables are sized from them.
//
// ⚠️ No runtime logic here - all values must be compile-time resolvable
// ─────────────────────────────────────────────────────────────────────────────

package constants

// ───────────────────────────── Address Geometry ─────────────────────────────

const (
	// BlockShift converts a byte address to a cache-line address.
	// 64-byte lines.
	BlockShift = 6

	// PageShift bounds prefetch candidates to the page of the triggering access.
	// 4 KiB pages.
	PageShift = 12
)

// ───────────────────────────── State & Actions ──────────────────────────────

const (
	// HistoryDepth is the number of line deltas remembered per instruction pointer.
	// It is also the length of the delta part of a state key.
	HistoryDepth = 4

	// ActionCount is the size of the fixed action set (see package action).
	ActionCount = 6
)

// ───────────────────────────── Learning Defaults ────────────────────────────

const (
	// DefaultAlpha is the SARSA learning rate.
	DefaultAlpha = 0.01

	// DefaultGamma is the discount applied to the bootstrap value.
	DefaultGamma = 0.9

	// DefaultEpsilon is the exploration probability of the epsilon-greedy policy.
	DefaultEpsilon = 0.1

	// DefaultSeed seeds the per-engine exploration source. Core i uses DefaultSeed+i.
	DefaultSeed = 0x5A5A_1234

	// QueueCapacity is K, the depth of the pending-credit delay line.
	// An entry retires on the (K+1)-th accepted enqueue after it.
	QueueCapacity = 128
)

// ───────────────────────────── Replay Harness ───────────────────────────────

const (
	// MaxCores caps the number of per-core engines (affinity masks cover 0-63).
	MaxCores = 64

	// RingSize is the per-core SPSC ring depth in packed access events.
	// 2^14 events × 32B slots = 512 KiB per core.
	RingSize = 1 << 14

	// CacheSets and CacheWays size the host cache model (64 × 8 × 64B = 32 KiB, L1D-like).
	CacheSets = 64
	CacheWays = 8

	// FilterCapacity is the expected number of in-flight prefetch lines between
	// filter resets, FilterFPRate the tolerated false-positive rate.
	FilterCapacity = 4096
	FilterFPRate   = 0.01

	// FilterReset clears the in-flight filter every N prefetch requests.
	FilterReset = 4096
)

// ───────────────────────────── Observability ────────────────────────────────

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "rlpf"
