package stream

import (
	"context"
	"math/rand/v2"
	"slices"

	"chunkworld/internal/storage"
	"chunkworld/internal/world"
)

// EvictionPolicy decides, per tick, whether an over-capacity cache is trimmed.
type EvictionPolicy interface {
	ShouldEvict(tick uint64) bool
}

// ProbabilisticPolicy triggers on a fraction P of ticks.
type ProbabilisticPolicy struct {
	P    float64
	Rand func() float64 // defaults to math/rand/v2
}

func (p ProbabilisticPolicy) ShouldEvict(uint64) bool {
	if p.P <= 0 {
		return false
	}
	r := p.Rand
	if r == nil {
		r = rand.Float64
	}
	return r() < p.P
}

// EveryNTicks triggers deterministically on every Nth tick. N <= 1 means every tick.
type EveryNTicks struct {
	N uint64
}

func (p EveryNTicks) ShouldEvict(tick uint64) bool {
	if p.N <= 1 {
		return true
	}
	return tick%p.N == 0
}

// Evict runs one eviction pass immediately, regardless of policy and cap.
// It returns the number of volumes dropped.
func (m *Manager) Evict() int {
	return m.evict()
}

// evict drops the EvictBatch cached volumes farthest from the viewer chunk.
// Dirty volumes move to the write-back buffer until their write lands.
func (m *Manager) evict() int {
	keys := make([]world.ChunkPos, 0, len(m.cache))
	for pos := range m.cache {
		keys = append(keys, pos)
	}
	slices.SortFunc(keys, func(a, b world.ChunkPos) int {
		da, db := a.DistSq(m.center), b.DistSq(m.center)
		if da != db {
			return db - da
		}
		if a.X != b.X {
			return a.X - b.X
		}
		return a.Z - b.Z
	})
	n := min(m.opts.EvictBatch, len(keys))
	for _, pos := range keys[:n] {
		vol := m.cache[pos]
		delete(m.cache, pos)
		m.releaseMesh(pos)
		if stamp, dirty := m.dirty[pos]; dirty {
			m.writeBack(pos, vol, stamp)
		}
	}
	m.log.Debug("evicted chunks", "count", n, "cached", len(m.cache), "writeback", len(m.writeback))
	return n
}

// pendingWrite is a write-back buffer entry. At most one store write per key
// is in flight; a re-eviction while it runs sets queued so the newer bytes
// follow once it lands.
type pendingWrite struct {
	vol    *world.Volume
	stamp  uint64
	queued bool
}

func (m *Manager) writeBack(pos world.ChunkPos, vol *world.Volume, stamp uint64) {
	if w, ok := m.writeback[pos]; ok {
		w.vol, w.stamp, w.queued = vol, stamp, true
		return
	}
	w := &pendingWrite{vol: vol, stamp: stamp}
	m.writeback[pos] = w
	m.startWrite(pos, w)
}

func (m *Manager) startWrite(pos world.ChunkPos, w *pendingWrite) {
	key := pos.Key()
	raw := storage.EncodeVolume(w.vol)
	stamp := w.stamp
	w.queued = false
	epoch := m.epoch

	m.spawn("save "+key, func(ctx context.Context) error {
		return m.store.Set(ctx, storage.NamespaceChunks, key, raw)
	}, func(err error) {
		if epoch != m.epoch || m.writeback[pos] != w {
			return
		}
		if err != nil {
			m.log.Error("write back chunk", "chunk", key, "error", err)
			delete(m.writeback, pos)
			if _, ok := m.cache[pos]; !ok {
				m.cache[pos] = w.vol
			}
			return
		}
		m.known[pos] = struct{}{}
		m.clearDirty(pos, stamp)
		if w.queued && w.stamp != stamp {
			m.startWrite(pos, w)
			return
		}
		delete(m.writeback, pos)
	})
}
