package engine

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"rlpf/sarsa"
	"rlpf/state"
	"rlpf/types"
	"rlpf/utils"
)

// addrAt returns the byte address of line within page.
func addrAt(page, line uint64) uint64 { return page<<12 | line<<6 }

// mid is a line whose every action stays inside the page.
const mid = 32

func greedy(k int) Config {
	cfg := DefaultConfig()
	cfg.Epsilon = 0
	cfg.QueueCapacity = k
	return cfg
}

func quiet(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := utils.SetOutput(&buf)
	t.Cleanup(func() { utils.SetOutput(prev) })
	return &buf
}

// hashedStream derives a deterministic access stream from sha3 digests.
func hashedStream(n int) []types.AccessEvent {
	out := make([]types.AccessEvent, n)
	var seed [8]byte
	for i := range out {
		binary.LittleEndian.PutUint64(seed[:], uint64(i))
		h := sha3.Sum256(seed[:])
		out[i] = types.AccessEvent{
			PC:   0x400000 + uint64(h[0]%8)*4,
			Addr: addrAt(uint64(h[1]%4), uint64(h[2]%64)),
			Hit:  h[3]&1 == 1,
		}
	}
	return out
}

type call struct {
	pc, addr, pf uint64
	fill         types.FillLevel
	meta         uint32
}

func recorder(accept bool, calls *[]call) Host {
	return HostFunc(func(pc, addr, pf uint64, fill types.FillLevel, meta uint32) bool {
		*calls = append(*calls, call{pc, addr, pf, fill, meta})
		return accept
	})
}

func TestRetirementOnKPlusOneEnqueue(t *testing.T) {
	const k = 4
	e := New(greedy(k), AcceptAll)
	for i := 1; i <= 3*k; i++ {
		e.OnAccess(types.AccessEvent{PC: 1, Addr: addrAt(1, mid)})
		st := e.Stats()
		want := uint64(0)
		if i > k {
			want = uint64(i - k)
		}
		require.Equal(t, want, st.Retirements, "after %d enqueues", i)
		require.Equal(t, st.Retirements, st.Updates)
		require.LessOrEqual(t, st.QueueDepth, uint64(k))
	}
}

func TestCrossPageCandidateRejected(t *testing.T) {
	var calls []call
	e := New(greedy(2), recorder(true, &calls))

	// Greedy over a zero row picks action 0 (-6 lines); line 0 leaves the page.
	e.OnAccess(types.AccessEvent{PC: 7, Addr: addrAt(3, 0)})
	st := e.Stats()
	assert.Equal(t, uint64(1), st.Rejected)
	assert.Equal(t, uint64(0), st.QueueDepth)
	assert.Empty(t, calls)

	// The access still feeds the history.
	e.OnAccess(types.AccessEvent{PC: 7, Addr: addrAt(3, 1)})
	assert.Equal(t, []int64{1}, e.Window(7))
}

func TestHostReceivesDecision(t *testing.T) {
	var calls []call
	cfg := greedy(8)
	cfg.FillLevel = types.FillLLC
	e := New(cfg, recorder(true, &calls))

	addr := addrAt(5, mid) + 12
	e.OnAccess(types.AccessEvent{PC: 0x40, Addr: addr})
	require.Len(t, calls, 1)
	c := calls[0]
	assert.Equal(t, uint64(0x40), c.pc)
	assert.Equal(t, addr, c.addr)
	assert.Equal(t, addrAt(5, mid-6), c.pf)
	assert.Equal(t, types.FillLLC, c.fill)
	assert.Equal(t, uint32(0), c.meta)
}

func TestRefusalTolerated(t *testing.T) {
	var calls []call
	e := New(greedy(2), recorder(false, &calls))
	for i := 0; i < 10; i++ {
		e.OnAccess(types.AccessEvent{PC: 1, Addr: addrAt(1, mid)})
	}
	st := e.Stats()
	assert.Equal(t, uint64(10), st.Refused)
	assert.Equal(t, uint64(0), st.Issued)
	assert.Equal(t, uint64(8), st.Retirements, "refused decisions are still learned from")
}

func TestStateExcludesCurrentDelta(t *testing.T) {
	e := New(greedy(128), AcceptAll)
	for _, line := range []uint64{20, 21, 24} {
		e.OnAccess(types.AccessEvent{PC: 9, Addr: addrAt(2, line)})
	}
	for _, s := range []state.State{
		state.New(9, nil),        // first and second access
		state.New(9, []int64{1}), // third access
	} {
		_, ok := e.Value(s, 0)
		assert.True(t, ok, "missing %v", s)
	}
	_, ok := e.Value(state.New(9, []int64{1, 3}), 0)
	assert.False(t, ok, "state built with the delta of the access itself")
	assert.Equal(t, []int64{1, 3}, e.Window(9))
}

func TestSarsaScenario(t *testing.T) {
	e := New(greedy(1), AcceptAll)
	sa := state.New(0xA, nil)
	sb := state.New(0xB, nil)
	e.Restore([]Row{{State: sb, Values: [6]float64{10}}})

	e.OnAccess(types.AccessEvent{PC: 0xA, Addr: addrAt(1, mid)})
	e.OnAccess(types.AccessEvent{PC: 0xB, Addr: addrAt(1, mid)})

	v, ok := e.Value(sa, 0)
	require.True(t, ok)
	assert.InDelta(t, 0.09, v, 1e-12)
	assert.Equal(t, uint64(1), e.Stats().Updates)
}

func TestZeroCapacitySkipsEveryUpdate(t *testing.T) {
	out := quiet(t)
	e := New(greedy(0), AcceptAll)
	e.Restore([]Row{{State: state.New(1, nil), Values: [6]float64{0.5, 0.25}}})
	before := e.Snapshot()

	for i := 0; i < 5; i++ {
		e.OnAccess(types.AccessEvent{PC: 1, Addr: addrAt(1, mid)})
	}
	st := e.Stats()
	assert.Equal(t, uint64(5), st.Retirements)
	assert.Equal(t, uint64(5), st.SkippedUpdates)
	assert.Zero(t, st.Updates)
	v, _ := e.Value(state.New(1, nil), 0)
	assert.Equal(t, before[0].Values[0], v)
	assert.Contains(t, out.String(), "RETIRE: core0 no successor")
}

func TestRewardHook(t *testing.T) {
	cfg := greedy(1)
	cfg.Alpha, cfg.Gamma = 1, 0
	cfg.Reward = func(ev types.AccessEvent, pf uint64, a int) float64 {
		if ev.PC == 1 {
			return 2
		}
		return 0
	}
	e := New(cfg, AcceptAll)
	e.OnAccess(types.AccessEvent{PC: 1, Addr: addrAt(1, mid)})
	e.OnAccess(types.AccessEvent{PC: 2, Addr: addrAt(1, mid)})
	v, _ := e.Value(state.New(1, nil), 0)
	assert.Equal(t, 2.0, v)
}

func TestDeterministicAndReset(t *testing.T) {
	stream := hashedStream(4000)
	run := func(e *Engine) ([]Row, Stats) {
		for _, ev := range stream {
			e.OnAccess(ev)
		}
		return e.Snapshot(), e.Stats()
	}

	cfg := DefaultConfig()
	cfg.QueueCapacity = 16
	a := New(cfg, AcceptAll)
	rowsA, statsA := run(a)
	rowsB, statsB := run(New(cfg, AcceptAll))
	require.Equal(t, statsA, statsB)
	require.Equal(t, rowsA, rowsB)
	require.NotZero(t, statsA.Explorations)

	a.Reset()
	zero := a.Stats()
	assert.Zero(t, zero.Accesses)
	assert.Zero(t, zero.States)
	assert.Empty(t, a.Snapshot())

	rowsC, statsC := run(a)
	assert.Equal(t, statsA, statsC)
	assert.Equal(t, rowsA, rowsC)
}

func TestSnapshotRestorePreservesOrder(t *testing.T) {
	e := New(DefaultConfig(), AcceptAll)
	for _, ev := range hashedStream(500) {
		e.OnAccess(ev)
	}
	rows := e.Snapshot()
	require.NotEmpty(t, rows)

	f := New(DefaultConfig(), AcceptAll)
	f.Restore(rows)
	assert.Equal(t, rows, f.Snapshot())
	assert.Equal(t, uint64(len(rows)), f.Stats().States)
}

func TestBoundedStores(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxStates = 16
	cfg.MaxPCs = 4
	e := New(cfg, AcceptAll)
	for _, ev := range hashedStream(2000) {
		e.OnAccess(ev)
	}
	st := e.Stats()
	assert.LessOrEqual(t, st.States, uint64(16))
	assert.LessOrEqual(t, st.TrackedPCs, uint64(4))
	assert.NotZero(t, st.StateEvictions, "8 PCs over 2000 accesses overflow 16 rows")
	assert.NotZero(t, st.PCEvictions, "8 PCs overflow a bound of 4")

	e.Reset()
	assert.Zero(t, e.Stats().StateEvictions)
	assert.Zero(t, e.Stats().PCEvictions)

	u := New(DefaultConfig(), AcceptAll)
	for _, ev := range hashedStream(2000) {
		u.OnAccess(ev)
	}
	assert.Zero(t, u.Stats().StateEvictions)
	assert.Zero(t, u.Stats().PCEvictions)
}

func TestHistoryBoundedToDepth(t *testing.T) {
	e := New(greedy(4), AcceptAll)
	for line := uint64(10); line < 40; line++ {
		e.OnAccess(types.AccessEvent{PC: 3, Addr: addrAt(1, line)})
		assert.LessOrEqual(t, len(e.Window(3)), 4)
	}
	assert.Equal(t, []int64{1, 1, 1, 1}, e.Window(3))
}

func TestLifecycleHooks(t *testing.T) {
	out := quiet(t)
	cfg := DefaultConfig()
	cfg.Name = "core3"
	cfg.Successor = sarsa.SuccessorAdjacent
	e := New(cfg, nil)
	e.Initialize()
	e.OnFill(0x1000, types.FillL2, true, 0, 1)
	e.OnEvict(0x2000)
	e.OnAccess(types.AccessEvent{PC: 1, Addr: addrAt(1, mid)})
	st := e.FinalStats()

	assert.Equal(t, uint64(1), st.Fills)
	assert.Equal(t, uint64(1), st.Evictions)
	assert.Equal(t, uint64(1), st.Accesses)
	log := out.String()
	assert.True(t, strings.HasPrefix(log, "INIT: core3 alpha=0.0100"), log)
	assert.Contains(t, log, "successor=adjacent")
	assert.Contains(t, log, "STATS: core3 accesses=1")
	assert.Equal(t, "adjacent", e.Params().Successor)
}
