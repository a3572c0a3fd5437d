package stream

import (
	"context"
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"chunkworld/internal/profiling"
	"chunkworld/internal/storage"
	"chunkworld/internal/world"
)

// Update is the per-tick entry point. It applies finished store operations,
// activates every chunk within the active radius of viewer, releases meshes
// that left the radius and, when the cache is over capacity, consults the
// eviction policy. It never blocks on store I/O.
func (m *Manager) Update(viewer mgl32.Vec3) {
	defer profiling.Track("stream.Update")()
	m.tick++
	m.center = world.ChunkPosAt(int(math.Floor(float64(viewer.X()))), int(math.Floor(float64(viewer.Z()))))

	m.drain()

	ring := activeRing(m.center, m.opts.ActiveRadius)
	clear(m.active)
	for _, pos := range ring {
		m.active[pos] = struct{}{}
	}

	// Activation runs before unloading so a chunk crossing the radius edge
	// within one tick keeps its mesh.
	for _, pos := range ring {
		m.activate(pos)
	}
	for pos := range m.meshes {
		if _, ok := m.active[pos]; !ok {
			m.releaseMesh(pos)
		}
	}

	if len(m.cache) > m.opts.CacheCap && m.opts.Eviction.ShouldEvict(m.tick) {
		m.evict()
	}
}

// activeRing lists every chunk within Chebyshev radius r of center, walking
// each square ring's perimeter from the center outward.
func activeRing(center world.ChunkPos, r int) []world.ChunkPos {
	out := make([]world.ChunkPos, 0, (2*r+1)*(2*r+1))
	out = append(out, center)
	for d := 1; d <= r; d++ {
		x0, x1 := center.X-d, center.X+d
		z0, z1 := center.Z-d, center.Z+d
		for x := x0; x <= x1; x++ {
			out = append(out, world.ChunkPos{X: x, Z: z0})
		}
		for z := z0 + 1; z <= z1-1; z++ {
			out = append(out, world.ChunkPos{X: x1, Z: z})
		}
		for x := x1; x >= x0; x-- {
			out = append(out, world.ChunkPos{X: x, Z: z1})
		}
		for z := z1 - 1; z >= z0+1; z-- {
			out = append(out, world.ChunkPos{X: x0, Z: z})
		}
	}
	return out
}

// activate moves pos toward Resident: cache, then write-back buffer, then
// store, then generator.
func (m *Manager) activate(pos world.ChunkPos) {
	if _, ok := m.cache[pos]; ok {
		if _, meshed := m.meshes[pos]; !meshed {
			m.remesh(pos)
		}
		return
	}
	if _, ok := m.inflight[pos]; ok {
		return
	}
	if w, ok := m.writeback[pos]; ok {
		m.cache[pos] = w.vol
		m.remesh(pos)
		return
	}
	if _, ok := m.known[pos]; ok {
		m.load(pos)
		return
	}
	m.generate(pos)
	m.remesh(pos)
}

func (m *Manager) generate(pos world.ChunkPos) {
	m.cache[pos] = m.gen.Generate(pos)
	m.markDirty(pos)
	profiling.Count("stream.generated", 1)
}

// load fetches a known chunk in the background.
func (m *Manager) load(pos world.ChunkPos) {
	m.inflight[pos] = struct{}{}
	epoch := m.epoch
	key := pos.Key()
	var vol *world.Volume

	m.spawn("load "+key, func(ctx context.Context) error {
		raw, err := m.store.Get(ctx, storage.NamespaceChunks, key)
		if err != nil {
			return err
		}
		vol, err = storage.DecodeVolume(raw)
		return err
	}, func(err error) {
		if epoch != m.epoch {
			return
		}
		delete(m.inflight, pos)
		if _, ok := m.cache[pos]; ok {
			return
		}
		switch {
		case err == nil:
			m.cache[pos] = vol
			profiling.Count("stream.loaded", 1)
		case errors.Is(err, storage.ErrNotFound),
			errors.Is(err, storage.ErrCorrupt),
			errors.Is(err, world.ErrVolumeSize):
			m.log.Warn("known chunk missing or unreadable, regenerating", "chunk", key, "error", err)
			m.generate(pos)
		default:
			m.log.Error("load chunk", "chunk", key, "error", err)
			return
		}
		if _, ok := m.active[pos]; ok {
			m.remesh(pos)
		}
	})
}
