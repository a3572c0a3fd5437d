package stream

import (
	"time"

	"chunkworld/internal/world"
)

// locate resolves world coordinates to a cached volume and local coordinates.
func (m *Manager) locate(x, y, z int) (pos world.ChunkPos, vol *world.Volume, lx, lz int, ok bool) {
	if y < 0 || y >= world.ChunkSize {
		return pos, nil, 0, 0, false
	}
	pos = world.ChunkPosAt(x, z)
	vol, ok = m.cache[pos]
	if !ok {
		return pos, nil, 0, 0, false
	}
	return pos, vol, world.Mod(x, world.ChunkSize), world.Mod(z, world.ChunkSize), true
}

// GetBlock returns the block at world coordinates, or air for uncached chunks
// and out-of-range y.
func (m *Manager) GetBlock(x, y, z int) world.BlockType {
	_, vol, lx, lz, ok := m.locate(x, y, z)
	if !ok {
		return world.BlockTypeAir
	}
	return vol.Get(lx, y, lz)
}

// HasBlock reports whether a non-air block is at world coordinates.
func (m *Manager) HasBlock(x, y, z int) bool {
	return m.GetBlock(x, y, z) != world.BlockTypeAir
}

// SetBlock writes a block, marks its chunk dirty and rebuilds that chunk's
// mesh. It is a no-op for uncached chunks and out-of-range y.
func (m *Manager) SetBlock(x, y, z int, t world.BlockType) {
	pos, vol, lx, lz, ok := m.locate(x, y, z)
	if !ok {
		return
	}
	vol.Set(lx, y, lz, t)
	m.markDirty(pos)

	_, meshed := m.meshes[pos]
	_, active := m.active[pos]
	if meshed || active {
		m.remesh(pos)
	}
}

// IsChunkLoaded reports whether the chunk containing world column (x, z) is cached.
func (m *Manager) IsChunkLoaded(x, z int) bool {
	_, ok := m.cache[world.ChunkPosAt(x, z)]
	return ok
}

// GetBreakTime returns how long breaking t takes.
func (m *Manager) GetBreakTime(t world.BlockType) time.Duration {
	return world.BreakTime(t)
}
