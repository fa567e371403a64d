package sim

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bloom/v3"

	"rlpf/config"
	"rlpf/constants"
	"rlpf/engine"
	"rlpf/types"
	"rlpf/utils"
)

// ============================================================================
// SIMULATED CORE
// ============================================================================
//
// One core = one cache model + one decision engine + one in-flight filter.
// Core is the engine's Host: a prefetch is refused when its line is already
// resident or was requested since the last filter reset, otherwise it is
// filled immediately.

// Core is owned by exactly one consumer goroutine.
type Core struct {
	id         int
	cache      *Cache
	eng        *engine.Engine
	filter     *bloom.BloomFilter
	resetEvery int
	requests   int
	key        [8]byte
}

// NewCore builds core id from a validated configuration.
func NewCore(id int, cfg config.Config) *Core {
	c := &Core{
		id:         id,
		cache:      NewCache(cfg.Sim.CacheSets, cfg.Sim.CacheWays),
		filter:     bloom.NewWithEstimates(cfg.Sim.FilterCapacity, cfg.Sim.FilterFPRate),
		resetEvery: cfg.Sim.FilterReset,
	}
	c.eng = engine.New(cfg.EngineFor(id), c)
	return c
}

// ID returns the core index.
func (c *Core) ID() int { return c.id }

// Engine returns the core's decision engine.
func (c *Core) Engine() *engine.Engine { return c.eng }

// Cache returns the core's cache model.
func (c *Core) Cache() *Cache { return c.cache }

// Access replays one demand access: the cache decides hit or miss, then the
// engine observes the access with that outcome.
func (c *Core) Access(ev types.AccessEvent) {
	line := ev.Addr >> constants.BlockShift
	hit, evicted, didEvict := c.cache.Access(line)
	if !hit {
		c.eng.OnFill(ev.Addr, types.FillL1, false, evicted<<constants.BlockShift, 0)
		if didEvict {
			c.eng.OnEvict(evicted << constants.BlockShift)
		}
	}
	ev.Hit = hit
	c.eng.OnAccess(ev)
}

// RequestPrefetch implements engine.Host.
func (c *Core) RequestPrefetch(pc, addr, pfAddr uint64, fill types.FillLevel, meta uint32) bool {
	if c.requests++; c.requests >= c.resetEvery {
		c.requests = 0
		c.filter.ClearAll()
	}

	line := pfAddr >> constants.BlockShift
	if c.cache.Contains(line) {
		return false
	}
	binary.LittleEndian.PutUint64(c.key[:], utils.Mix64(line))
	if c.filter.TestAndAdd(c.key[:]) {
		return false
	}

	evicted, didEvict := c.cache.Fill(line)
	c.eng.OnFill(pfAddr, fill, true, evicted<<constants.BlockShift, meta)
	if didEvict {
		c.eng.OnEvict(evicted << constants.BlockShift)
	}
	return true
}
